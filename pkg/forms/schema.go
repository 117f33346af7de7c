package forms

// Schema is an ordered set of fields validated together.
// A nil *Schema accepts everything.
type Schema struct {
	Name   string
	Fields []Field
}

// NewSchema creates a schema.
func NewSchema(name string, fields ...Field) *Schema {
	return &Schema{Name: name, Fields: fields}
}

// Merge concatenates schemas in order, skipping nil ones. A field declared
// twice keeps its last declaration.
func Merge(name string, schemas ...*Schema) *Schema {
	merged := &Schema{Name: name}
	index := make(map[string]int)
	for _, s := range schemas {
		if s == nil {
			continue
		}
		for _, f := range s.Fields {
			if i, ok := index[f.Name]; ok {
				merged.Fields[i] = f
				continue
			}
			index[f.Name] = len(merged.Fields)
			merged.Fields = append(merged.Fields, f)
		}
	}
	return merged
}

// Names returns the declared field names in order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a declared field.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Normalize returns a copy of values with every declared field coerced to
// its kind's representation. Undeclared keys are copied unchanged.
func (s *Schema) Normalize(values Values) Values {
	out := values.Clone()
	if s == nil {
		return out
	}
	for _, f := range s.Fields {
		raw, present := out[f.Name]
		if !present && f.Kind != KindNumber && f.Kind != KindAcknowledgment {
			continue
		}
		out[f.Name] = Coerce(f.Kind, raw)
	}
	return out
}

// Validate checks values against every declared field. Required fields
// report their required message when empty; validators run only on
// non-empty values.
func (s *Schema) Validate(values Values) Errors {
	errs := make(Errors)
	if s == nil {
		return errs
	}
	normalized := s.Normalize(values)
	for _, f := range s.Fields {
		value := normalized[f.Name]
		if isEmpty(value) {
			if f.Required {
				msg := f.RequiredMessage
				if msg == "" {
					msg = DefaultRequiredMessage
				}
				errs.Add(f.Name, msg)
			}
			continue
		}
		for _, v := range f.Validators {
			if err := v.Validate(value); err != nil {
				errs.Add(f.Name, v.Message())
				break
			}
		}
	}
	return errs
}

// Valid reports whether values pass every field.
func (s *Schema) Valid(values Values) bool {
	return s.Validate(values).Len() == 0
}
