package registration

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"registration-service/internal/apperror"
	"registration-service/internal/catalog"

	"github.com/go-playground/validator/v10"
)

const (
	MinPassingYear   = 1900
	maxYearsAhead    = 5
	maxFullNameRunes = 100
	maxMessageRunes  = 500
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// candidate is the normalized form checked by the validator.
type candidate struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone10"`
	Service  string `json:"service" validate:"required"`
	Course   string `json:"course" validate:"required"`
	Message  string `json:"message" validate:"max=500"`
}

var fieldMessages = map[string]map[string]string{
	"fullName": {
		"required": "Full name is required",
		"max":      fmt.Sprintf("Full name cannot exceed %d characters", maxFullNameRunes),
	},
	"email": {
		"required": "Email is required",
		"email":    "Please enter a valid email",
	},
	"phone": {
		"required": "Phone number is required",
		"phone10":  "Phone number must be 10 digits",
	},
	"service": {"required": "Service is required"},
	"course":  {"required": "Course is required"},
	"message": {"max": fmt.Sprintf("Message cannot exceed %d characters", maxMessageRunes)},
}

// Normalize trims every text field, lower-cases the email and fills the
// qualification and passing year defaults. It does not validate.
func Normalize(in Input, now time.Time) Registration {
	r := Registration{
		FullName:      strings.TrimSpace(in.FullName),
		Email:         NormalizeEmail(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		Qualification: strings.TrimSpace(in.Qualification),
		Service:       strings.TrimSpace(in.Service),
		Course:        strings.TrimSpace(in.Course),
		Message:       strings.TrimSpace(in.Message),
		PassingYear:   now.Year(),
	}
	if r.Qualification == "" {
		r.Qualification = DefaultQualification
	}
	if in.PassingYear.IsSet() && in.PassingYear.IsValid() {
		r.PassingYear = in.PassingYear.Value
	}
	return r
}

// Validate normalizes in and checks every rule, collecting all violations
// into a single invalid AppError. cat may be nil; it is only consulted when strict.
func Validate(in Input, now time.Time, cat *catalog.Catalog) (Registration, error) {
	r := Normalize(in, now)
	fields := map[string]string{}

	c := candidate{
		FullName: r.FullName,
		Email:    r.Email,
		Phone:    r.Phone,
		Service:  r.Service,
		Course:   r.Course,
		Message:  r.Message,
	}
	if err := validate.Struct(&c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return Registration{}, apperror.Wrap(err, apperror.CodeInternal, "validation failed")
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; seen {
				continue
			}
			msg, ok := fieldMessages[fe.Field()][fe.Tag()]
			if !ok {
				msg = fmt.Sprintf("%s is invalid", fe.Field())
			}
			fields[fe.Field()] = msg
		}
	}

	maxYear := now.Year() + maxYearsAhead
	switch {
	case in.PassingYear.IsSet() && !in.PassingYear.IsValid():
		fields["passingYear"] = "Passing year must be a number"
	case r.PassingYear < MinPassingYear || r.PassingYear > maxYear:
		fields["passingYear"] = fmt.Sprintf("Year must be between %d and %d", MinPassingYear, maxYear)
	}

	if cat.Strict() {
		_, serviceErr := fields["service"]
		_, courseErr := fields["course"]
		switch {
		case !serviceErr && !cat.HasService(r.Service):
			fields["service"] = fmt.Sprintf("Unknown service %q", r.Service)
		case !serviceErr && !courseErr && !cat.HasCourse(r.Service, r.Course):
			fields["course"] = fmt.Sprintf("Course %q is not offered under %q", r.Course, r.Service)
		}
	}

	if len(fields) > 0 {
		return Registration{}, apperror.Validation(fields)
	}
	return r, nil
}
