package registration

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const (
	DefaultQualification = "Not specified"
	EventSource          = "registration-service"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrEmailTaken           = errors.New("email already registered")
)

type Registration struct {
	bun.BaseModel `bun:"table:registrations,alias:r"`

	ID            string    `bun:"id,pk,type:uuid" json:"id"`
	FullName      string    `bun:"full_name,notnull" json:"fullName"`
	Email         string    `bun:"email,unique,notnull" json:"email"`
	Phone         string    `bun:"phone,notnull" json:"phone"`
	Qualification string    `bun:"qualification,notnull" json:"qualification"`
	PassingYear   int       `bun:"passing_year,notnull" json:"passingYear"`
	Service       string    `bun:"service,notnull" json:"service"`
	Course        string    `bun:"course,notnull" json:"course"`
	Message       string    `bun:"message,notnull" json:"message"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// rawRegistration mirrors the table with every column nullable so that rows
// written by older revisions or by hand can still be scanned.
type rawRegistration struct {
	bun.BaseModel `bun:"table:registrations,alias:r"`

	ID            *string    `bun:"id"`
	FullName      *string    `bun:"full_name"`
	Email         *string    `bun:"email"`
	Phone         *string    `bun:"phone"`
	Qualification *string    `bun:"qualification"`
	PassingYear   *int64     `bun:"passing_year"`
	Service       *string    `bun:"service"`
	Course        *string    `bun:"course"`
	Message       *string    `bun:"message"`
	CreatedAt     *time.Time `bun:"created_at"`
}

// Input is a registration as submitted by a client.
type Input struct {
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Qualification string `json:"qualification,omitempty"`
	PassingYear   Year   `json:"passingYear"`
	Service       string `json:"service"`
	Course        string `json:"course"`
	Message       string `json:"message,omitempty"`
}

// Year is a passing year that decodes from a JSON number or a numeric string.
// Absent, null and "" leave it unset.
type Year struct {
	Value int
	set   bool
	bad   bool
}

func YearOf(v int) Year {
	return Year{Value: v, set: true}
}

// ParseYear reads a year typed by a user. Blank input leaves it unset.
func ParseYear(s string) Year {
	var y Year
	_ = y.UnmarshalJSON([]byte(strconv.Quote(s)))
	return y
}

// IsSet reports whether a value was supplied.
func (y Year) IsSet() bool { return y.set || y.bad }

// IsValid reports whether the supplied value parsed as an integer.
func (y Year) IsValid() bool { return !y.bad }

func (y *Year) UnmarshalJSON(b []byte) error {
	*y = Year{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		y.bad = true
		return nil
	}
	y.Value = v
	y.set = true
	return nil
}

func (y Year) MarshalJSON() ([]byte, error) {
	if !y.set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(y.Value)), nil
}

type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Service  string
}

type ListResult struct {
	Records         []Registration `json:"data"`
	Total           int            `json:"total"`
	Page            int            `json:"page"`
	PageSize        int            `json:"pageSize"`
	TotalPages      int            `json:"totalPages"`
	HasNextPage     bool           `json:"hasNextPage"`
	HasPreviousPage bool           `json:"hasPreviousPage"`
}

type ServiceCount struct {
	Service string `bun:"service" json:"service"`
	Count   int    `bun:"count" json:"count"`
}

type Stats struct {
	Total     int            `json:"total"`
	ByService []ServiceCount `json:"byService"`
}

// Event is the payload pushed to admin subscribers for a new registration.
type Event struct {
	Registration
	EventSource string    `json:"eventSource"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewEvent(r Registration, now time.Time) Event {
	return Event{Registration: r, EventSource: EventSource, Timestamp: now.UTC()}
}

// NormalizeEmail is the uniqueness key for registrations.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
