package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Validator validates a field value.
type Validator interface {
	// Validate checks if the value is valid.
	Validate(value any) error

	// Message returns the error message shown to the user.
	Message() string
}

// ErrInvalid is returned by validators that reject a value.
var ErrInvalid = errors.New("invalid value")

var validate = validator.New()

// MaxLengthValidator validates maximum string length in runes.
type MaxLengthValidator struct {
	Max int
}

func (v MaxLengthValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok {
		return nil
	}
	if utf8.RuneCountInString(str) > v.Max {
		return fmt.Errorf("too long (max %d): %w", v.Max, ErrInvalid)
	}
	return nil
}

func (v MaxLengthValidator) Message() string {
	return fmt.Sprintf("Must be at most %d characters", v.Max)
}

// MinLengthValidator validates minimum string length in runes.
type MinLengthValidator struct {
	Min int
	Msg string
}

func (v MinLengthValidator) Validate(value any) error {
	str, _ := value.(string)
	if utf8.RuneCountInString(str) < v.Min {
		return fmt.Errorf("too short (min %d): %w", v.Min, ErrInvalid)
	}
	return nil
}

func (v MinLengthValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return fmt.Sprintf("Must be at least %d characters", v.Min)
}

// EmailValidator validates an address with the go-playground email rule.
type EmailValidator struct {
	Msg string
}

func (v EmailValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok {
		return ErrInvalid
	}
	if err := validate.Var(strings.TrimSpace(str), "required,email"); err != nil {
		return fmt.Errorf("invalid email: %w", ErrInvalid)
	}
	return nil
}

func (v EmailValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Please enter a valid email address"
}

// PatternValidator validates against a compiled expression.
type PatternValidator struct {
	Re  *regexp.Regexp
	Msg string
}

func (v PatternValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || !v.Re.MatchString(str) {
		return fmt.Errorf("pattern mismatch: %w", ErrInvalid)
	}
	return nil
}

func (v PatternValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Invalid format"
}

// NumberValidator rejects values that do not coerce to a number.
type NumberValidator struct{}

func (NumberValidator) Validate(value any) error {
	if _, ok := ToFloat(value); !ok {
		return fmt.Errorf("not a number: %w", ErrInvalid)
	}
	return nil
}

func (NumberValidator) Message() string {
	return "Must be a number"
}

// RangeValidator validates a numeric range. Max is always inclusive; Min is
// inclusive unless ExclusiveMin is set.
type RangeValidator struct {
	Min          float64
	Max          float64
	ExclusiveMin bool
	Msg          string
}

func (v RangeValidator) Validate(value any) error {
	num, ok := ToFloat(value)
	if !ok {
		// NumberValidator reports unparseable input.
		return nil
	}
	low := num < v.Min
	if v.ExclusiveMin {
		low = num <= v.Min
	}
	if low || num > v.Max {
		return fmt.Errorf("out of range: %w", ErrInvalid)
	}
	return nil
}

func (v RangeValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	if v.ExclusiveMin {
		return fmt.Sprintf("Must be greater than %s and at most %s", formatNumber(v.Min), formatNumber(v.Max))
	}
	return fmt.Sprintf("Must be between %s and %s", formatNumber(v.Min), formatNumber(v.Max))
}

// OneOfValidator validates that a string value is one of the allowed values.
type OneOfValidator struct {
	Values []string
}

func (v OneOfValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok {
		return ErrInvalid
	}
	for _, allowed := range v.Values {
		if str == allowed {
			return nil
		}
	}
	return fmt.Errorf("invalid option %q: %w", str, ErrInvalid)
}

func (v OneOfValidator) Message() string {
	return "Please select a valid option"
}

// MustBeTrueValidator passes only for the literal boolean true.
type MustBeTrueValidator struct {
	Msg string
}

func (v MustBeTrueValidator) Validate(value any) error {
	if b, ok := value.(bool); ok && b {
		return nil
	}
	return ErrInvalid
}

func (v MustBeTrueValidator) Message() string {
	return v.Msg
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MaxLength returns a maximum length validator.
func MaxLength(n int) Validator {
	return MaxLengthValidator{Max: n}
}

// MinLength returns a minimum length validator.
func MinLength(n int, msg ...string) Validator {
	v := MinLengthValidator{Min: n}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// Email returns an email validator.
func Email(msg ...string) Validator {
	v := EmailValidator{}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

// Pattern returns a validator for the given expression. It panics if the
// expression does not compile.
func Pattern(pattern, msg string) Validator {
	return PatternValidator{Re: regexp.MustCompile(pattern), Msg: msg}
}

// Number returns a numeric parse validator.
func Number() Validator {
	return NumberValidator{}
}

// Range returns an inclusive range validator.
func Range(min, max float64) Validator {
	return RangeValidator{Min: min, Max: max}
}

// PositiveUpTo returns a validator for (0, max].
func PositiveUpTo(max float64, msg string) Validator {
	return RangeValidator{Min: 0, Max: max, ExclusiveMin: true, Msg: msg}
}

// OneOf returns a closed-enum validator.
func OneOf(values ...string) Validator {
	return OneOfValidator{Values: values}
}

// MustBeTrue returns an acknowledgement validator.
func MustBeTrue(msg string) Validator {
	return MustBeTrueValidator{Msg: msg}
}
