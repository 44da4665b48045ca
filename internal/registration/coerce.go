package registration

import (
	"strings"
)

// Coerce turns a stored row into a Registration, substituting safe defaults
// for missing optional columns. Rows without an id, an email or a creation
// time cannot be identified or ordered and are rejected.
func Coerce(raw rawRegistration) (*Registration, bool) {
	id := str(raw.ID)
	email := NormalizeEmail(str(raw.Email))
	if id == "" || email == "" || raw.CreatedAt == nil || raw.CreatedAt.IsZero() {
		return nil, false
	}

	out := &Registration{
		ID:            id,
		FullName:      str(raw.FullName),
		Email:         email,
		Phone:         str(raw.Phone),
		Qualification: str(raw.Qualification),
		Service:       str(raw.Service),
		Course:        str(raw.Course),
		Message:       str(raw.Message),
		CreatedAt:     raw.CreatedAt.UTC(),
	}
	if out.Qualification == "" {
		out.Qualification = DefaultQualification
	}
	if raw.PassingYear != nil {
		out.PassingYear = int(*raw.PassingYear)
	}
	return out, true
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
