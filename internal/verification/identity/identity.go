// Package identity defines the descriptor that every verification provider is
// queried with.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"

	dErrors "landtrust/pkg/domain-errors"
)

// MaxFieldLength bounds every descriptor field.
const MaxFieldLength = 256

// Descriptor is the minimal name/email/address tuple used to query external
// providers about a property owner. All fields are optional, but a descriptor
// with neither OwnerName nor Email is rejected by Validate.
type Descriptor struct {
	OwnerName string `json:"ownerName,omitempty" validate:"omitempty,max=256"`
	Email     string `json:"email,omitempty" validate:"omitempty,max=256"`
	Address   string `json:"address,omitempty" validate:"omitempty,max=256"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Normalize trims every field and lower-cases the email.
func (d *Descriptor) Normalize() {
	d.OwnerName = CollapseSpaces(d.OwnerName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Address = CollapseSpaces(d.Address)
}

// Validate enforces the minimum-field invariant and field lengths. Email
// syntax is not checked here; see HasValidEmail. It returns a CodeValidation
// domain error.
func (d *Descriptor) Validate() error {
	if !d.HasName() && !d.HasEmail() {
		return dErrors.New(dErrors.CodeValidation, "owner name or email is required")
	}
	if err := fieldValidator().Struct(d); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, describe(err))
	}
	return nil
}

// HasName reports whether an owner name is present.
func (d Descriptor) HasName() bool { return strings.TrimSpace(d.OwnerName) != "" }

// HasEmail reports whether an email is present.
func (d Descriptor) HasEmail() bool { return strings.TrimSpace(d.Email) != "" }

// HasValidEmail reports whether the email is present and syntactically valid.
func (d Descriptor) HasValidEmail() bool {
	return d.HasEmail() && fieldValidator().Var(strings.TrimSpace(d.Email), "email") == nil
}

// HasAddress reports whether an address is present.
func (d Descriptor) HasAddress() bool { return strings.TrimSpace(d.Address) != "" }

// Fingerprint is a stable hash of the normalized descriptor, used as a cache
// and history key so raw PII never becomes a storage key.
func (d Descriptor) Fingerprint() string {
	n := d
	n.Normalize()
	h := sha256.New()
	h.Write([]byte(strings.ToLower(n.OwnerName)))
	h.Write([]byte{0})
	h.Write([]byte(n.Email))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(n.Address)))
	return hex.EncodeToString(h.Sum(nil))
}

// LogValue implements slog.LogValuer so a descriptor can be logged directly
// without exposing PII.
func (d Descriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("owner_name", RedactName(d.OwnerName)),
		slog.String("email", RedactEmail(d.Email)),
		slog.Bool("has_address", d.HasAddress()),
	)
}

// RedactEmail keeps the first character of the local part and the domain.
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// RedactName keeps initials only.
func RedactName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	initials := make([]string, 0, len(fields))
	for _, f := range fields {
		initials = append(initials, string([]rune(f)[0])+".")
	}
	return strings.Join(initials, " ")
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid identity descriptor"
	}
	fe := verrs[0]
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "max":
		return field + " exceeds maximum length"
	default:
		return field + " is invalid"
	}
}

func jsonName(field string) string {
	switch field {
	case "OwnerName":
		return "ownerName"
	case "Email":
		return "email"
	case "Address":
		return "address"
	default:
		return field
	}
}

// CollapseSpaces trims s and reduces internal whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NameSimilarity returns 1 minus the normalized Levenshtein distance between
// two names, compared case-insensitively with whitespace collapsed. The result
// is in [0,1].
func NameSimilarity(a, b string) float64 {
	a = strings.ToLower(CollapseSpaces(a))
	b = strings.ToLower(CollapseSpaces(b))
	if a == "" && b == "" {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
