package forms

// FieldKind identifies how a field's raw input is coerced and checked.
type FieldKind string

const (
	KindText           FieldKind = "text"
	KindEmail          FieldKind = "email"
	KindTel            FieldKind = "tel"
	KindNumber         FieldKind = "number"
	KindSelect         FieldKind = "select"
	KindAcknowledgment FieldKind = "acknowledgement"
	KindFile           FieldKind = "file"
)

// DefaultRequiredMessage is reported for an empty required field that does
// not declare its own message.
const DefaultRequiredMessage = "This field is required"

// Field declares one input of a schema.
type Field struct {
	// Name is the key the value is stored under.
	Name string

	// Kind drives coercion.
	Kind FieldKind

	// Label is the human-readable name.
	Label string

	// Required rejects empty values before validators run.
	Required bool

	// RequiredMessage overrides DefaultRequiredMessage.
	RequiredMessage string

	// Validators run in order on non-empty values.
	Validators []Validator

	// Options are the allowed values for select fields.
	Options []Option
}

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldOption configures a field.
type FieldOption func(*Field)

// NewField creates a field of the given kind.
func NewField(name string, kind FieldKind, label string, opts ...FieldOption) Field {
	field := Field{
		Name:       name,
		Kind:       kind,
		Label:      label,
		Validators: make([]Validator, 0),
	}
	for _, opt := range opts {
		opt(&field)
	}
	return field
}

// WithRequired marks the field as required. An optional message replaces
// the default one.
func WithRequired(msg ...string) FieldOption {
	return func(f *Field) {
		f.Required = true
		if len(msg) > 0 {
			f.RequiredMessage = msg[0]
		}
	}
}

// WithValidator appends a validator.
func WithValidator(v Validator) FieldOption {
	return func(f *Field) {
		f.Validators = append(f.Validators, v)
	}
}

// WithMaxLength appends a maximum length validator.
func WithMaxLength(n int) FieldOption {
	return WithValidator(MaxLength(n))
}

// WithMinLength appends a minimum length validator.
func WithMinLength(n int, msg ...string) FieldOption {
	return WithValidator(MinLength(n, msg...))
}

// WithOptions sets the select options and restricts the field to them.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = options
		values := make([]string, len(options))
		for i, o := range options {
			values[i] = o.Value
		}
		f.Validators = append(f.Validators, OneOf(values...))
	}
}

// TextField creates a free text field.
func TextField(name, label string, opts ...FieldOption) Field {
	return NewField(name, KindText, label, opts...)
}

// EmailField creates an email field validated against the address grammar.
// An empty msg reports the default email message.
func EmailField(name, label, msg string, opts ...FieldOption) Field {
	field := NewField(name, KindEmail, label, opts...)
	field.Validators = append(field.Validators, Email(msg))
	return field
}

// TelField creates a telephone field.
func TelField(name, label string, opts ...FieldOption) Field {
	return NewField(name, KindTel, label, opts...)
}

// NumberField creates a numeric field. Empty input coerces to zero.
func NumberField(name, label string, opts ...FieldOption) Field {
	field := NewField(name, KindNumber, label)
	field.Validators = append(field.Validators, Number())
	for _, opt := range opts {
		opt(&field)
	}
	return field
}

// SelectField creates a closed-enum field.
func SelectField(name, label string, options []Option, opts ...FieldOption) Field {
	return NewField(name, KindSelect, label, append([]FieldOption{WithOptions(options...)}, opts...)...)
}

// AcknowledgementField creates a checkbox that only passes when true.
func AcknowledgementField(name, label, msg string) Field {
	field := NewField(name, KindAcknowledgment, label)
	field.Validators = append(field.Validators, MustBeTrue(msg))
	return field
}

// FileField creates an optional file reference field.
func FileField(name, label string, opts ...FieldOption) Field {
	return NewField(name, KindFile, label, opts...)
}
