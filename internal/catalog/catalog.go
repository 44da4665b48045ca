// Package catalog holds the service -> course offerings a registration is
// tagged with. It is loaded from configuration once at startup.
package catalog

import (
	"strings"

	"registration-service/internal/config"
)

type Service struct {
	Name    string   `json:"name"`
	Courses []string `json:"courses"`
}

type Catalog struct {
	strict   bool
	services []Service
	courses  map[string]map[string]struct{}
}

func New(strict bool, services []Service) *Catalog {
	c := &Catalog{
		strict:  strict,
		courses: make(map[string]map[string]struct{}, len(services)),
	}
	index := make(map[string]int, len(services))
	for _, s := range services {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		idx, ok := index[name]
		if !ok {
			idx = len(c.services)
			index[name] = idx
			c.services = append(c.services, Service{Name: name})
			c.courses[name] = make(map[string]struct{}, len(s.Courses))
		}
		set := c.courses[name]
		for _, course := range s.Courses {
			course = strings.TrimSpace(course)
			if course == "" {
				continue
			}
			if _, dup := set[course]; dup {
				continue
			}
			set[course] = struct{}{}
			c.services[idx].Courses = append(c.services[idx].Courses, course)
		}
	}
	return c
}

func FromConfig(cfg config.CatalogConfig) *Catalog {
	services := make([]Service, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		services = append(services, Service{Name: s.Name, Courses: s.Courses})
	}
	return New(cfg.Strict, services)
}

// Strict reports whether registrations must name a known service and course.
func (c *Catalog) Strict() bool {
	return c != nil && c.strict
}

func (c *Catalog) HasService(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.courses[name]
	return ok
}

func (c *Catalog) HasCourse(service, course string) bool {
	if c == nil {
		return false
	}
	set, ok := c.courses[service]
	if !ok {
		return false
	}
	_, ok = set[course]
	return ok
}

// Services returns the catalog in configuration order.
func (c *Catalog) Services() []Service {
	if c == nil {
		return nil
	}
	out := make([]Service, len(c.services))
	for i, s := range c.services {
		out[i] = Service{Name: s.Name, Courses: append([]string(nil), s.Courses...)}
	}
	return out
}
