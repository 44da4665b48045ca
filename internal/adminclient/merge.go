package adminclient

import (
	"strings"

	"registration-service/internal/registration"

	"github.com/google/uuid"
)

// PlaceholderPrefix marks ids generated locally before the server assigned one.
const PlaceholderPrefix = "local-"

func IsPlaceholder(id string) bool {
	return id == "" || strings.HasPrefix(id, PlaceholderPrefix)
}

// withPlaceholder gives an id-less record a local id so it can still be shown
// and later replaced by the server copy, matched on email. Records without an
// email cannot be matched and are rejected.
func withPlaceholder(reg registration.Registration) (registration.Registration, bool) {
	if reg.Email == "" {
		return reg, false
	}
	if reg.ID == "" {
		reg.ID = PlaceholderPrefix + uuid.NewString()
	}
	return reg, true
}

// sameRecord matches by id when both ids are server-assigned, and by
// normalized email when either side only has a placeholder.
func sameRecord(a, b registration.Registration) bool {
	if !IsPlaceholder(a.ID) && !IsPlaceholder(b.ID) {
		return a.ID == b.ID
	}
	ea, eb := registration.NormalizeEmail(a.Email), registration.NormalizeEmail(b.Email)
	return ea != "" && ea == eb
}

// Merge returns local with incoming applied: the first matching record is
// replaced in place, otherwise incoming is prepended. local is not modified.
func Merge(local []registration.Registration, incoming registration.Registration) []registration.Registration {
	for i := range local {
		if sameRecord(local[i], incoming) {
			out := make([]registration.Registration, len(local))
			copy(out, local)
			out[i] = incoming
			return out
		}
	}

	out := make([]registration.Registration, 0, len(local)+1)
	out = append(out, incoming)
	return append(out, local...)
}
