package auth

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var reUsername = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// SignUpPayload is the public registration form
type SignUpPayload struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Name            string `json:"name" form:"name"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
	Role            string `json:"role,omitempty" form:"role"`
}

func (p *SignUpPayload) normalize() {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = normalizeEmail(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	p.Role = strings.TrimSpace(p.Role)
}

// Validate checks the identity fields. Password rules are graded
// separately by the password service.
func (p SignUpPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username,
			validation.Required,
			validation.RuneLength(3, 50),
			validation.Match(reUsername).Error("may only contain letters, digits, '.', '_' and '-'"),
		),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Name, validation.Required, validation.RuneLength(1, 200)),
	)
}

// AdminSignUpPayload is the admin registration form, gated by a shared key
type AdminSignUpPayload struct {
	SignUpPayload
	AdminKey string `json:"adminKey" form:"adminKey"`
}

// LoginPayload carries login credentials
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

// Validate checks only the fields that are present
func (p ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.RuneLength(1, 200)),
		validation.Field(&p.Bio, validation.RuneLength(0, 2000)),
		validation.Field(&p.Timezone, validation.NilOrNotEmpty, validation.By(validTimezone)),
		validation.Field(&p.Locale, validation.NilOrNotEmpty, validation.RuneLength(2, 16)),
	)
}

// IsEmpty reports whether the update changes nothing
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Bio == nil && p.Timezone == nil && p.Locale == nil
}

func validTimezone(value any) error {
	var tz string
	switch v := value.(type) {
	case *string:
		if v == nil {
			return nil
		}
		tz = *v
	case string:
		tz = v
	}
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return errors.New("must be a valid IANA time zone")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validationMessages flattens ozzo field errors into sorted "field: message"
// lines
func validationMessages(err error) []string {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	keys := make([]string, 0, len(fieldErrs))
	for k := range fieldErrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s: %s", k, fieldErrs[k].Error()))
	}
	return out
}
