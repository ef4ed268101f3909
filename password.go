package auth

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts
const MaxPasswordBytes = 72

// PasswordStrength is the outcome of a strength check. Errors lists every
// rule the password failed, in rule order.
type PasswordStrength struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors,omitempty"`
}

// PasswordService hashes, verifies and grades passwords
type PasswordService struct {
	cost  int
	rules []validation.Rule
}

var (
	reLower   = regexp.MustCompile(`[a-z]`)
	reUpper   = regexp.MustCompile(`[A-Z]`)
	reDigit   = regexp.MustCompile(`[0-9]`)
	reSpecial = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// NewPasswordService returns a service hashing with the given bcrypt cost.
// A cost outside bcrypt's range falls back to the build default.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return &PasswordService{
		cost: cost,
		rules: []validation.Rule{
			validation.Required.Error("Password is required"),
			validation.RuneLength(8, 0).Error("Password must be at least 8 characters long"),
			validation.By(maxPasswordBytes),
			validation.Match(reLower).Error("Password must contain at least one lowercase letter"),
			validation.Match(reUpper).Error("Password must contain at least one uppercase letter"),
			validation.Match(reDigit).Error("Password must contain at least one number"),
			validation.Match(reSpecial).Error("Password must contain at least one special character"),
		},
	}
}

func maxPasswordBytes(value any) error {
	s, _ := value.(string)
	if len(s) > MaxPasswordBytes {
		return errors.New("Password must be at most 72 bytes long")
	}
	return nil
}

// Cost returns the bcrypt work factor in use
func (p *PasswordService) Cost() int {
	return p.cost
}

// Hash returns a salted bcrypt hash of password
func (p *PasswordService) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether password matches hash. Malformed or empty
// hashes never match.
func (p *PasswordService) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword implements PasswordAuthenticator
func (p *PasswordService) HashPassword(password string) (string, error) {
	return p.Hash(password)
}

// ComparePasswordAndHash implements PasswordAuthenticator
func (p *PasswordService) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// ValidateStrength checks password against every strength rule
func (p *PasswordService) ValidateStrength(password string) PasswordStrength {
	out := PasswordStrength{IsValid: true}
	for _, rule := range p.rules {
		if err := rule.Validate(password); err != nil {
			out.IsValid = false
			out.Errors = append(out.Errors, err.Error())
		}
	}
	return out
}
