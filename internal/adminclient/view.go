package adminclient

import (
	"strings"

	"registration-service/internal/registration"
)

// View is the admin's local state: the current query and the merged records.
type View struct {
	Page     int
	PageSize int
	Search   string
	Service  string

	Records []registration.Registration
	Total   int
}

func NewView(q Query) *View {
	return &View{
		Page:     q.Page,
		PageSize: q.PageSize,
		Search:   q.Search,
		Service:  q.Service,
	}
}

func (v *View) Query() Query {
	return Query{Page: v.Page, PageSize: v.PageSize, Search: v.Search, Service: v.Service}
}

// Replace discards local state in favour of a fresh fetch.
func (v *View) Replace(res *registration.ListResult) {
	v.Records = append([]registration.Registration(nil), res.Records...)
	v.Total = res.Total
	if res.Page > 0 {
		v.Page = res.Page
	}
	if res.PageSize > 0 {
		v.PageSize = res.PageSize
	}
}

// Apply merges a broadcast record. It reports whether the record was new.
func (v *View) Apply(reg registration.Registration) bool {
	before := len(v.Records)
	v.Records = Merge(v.Records, reg)
	added := len(v.Records) > before
	if added {
		v.Total++
	}
	return added
}

// Remove drops a record after a successful delete.
func (v *View) Remove(id string) {
	out := v.Records[:0:0]
	for _, r := range v.Records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	if len(out) < len(v.Records) && v.Total > 0 {
		v.Total--
	}
	v.Records = out
}

// Filtered applies the search text and service filter to the local records,
// with the same matching rules as the server.
func (v *View) Filtered() []registration.Registration {
	out := make([]registration.Registration, 0, len(v.Records))
	for _, r := range v.Records {
		if v.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether r passes the view's search and service filters.
func (v *View) Matches(r registration.Registration) bool {
	if service := strings.TrimSpace(v.Service); service != "" && r.Service != service {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(v.Search))
	return term == "" || matches(r, term)
}

func matches(r registration.Registration, term string) bool {
	for _, field := range []string{r.FullName, r.Email, r.Phone, r.Service, r.Course} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
