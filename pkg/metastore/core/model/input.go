package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// InputType identifies one of the supported input variants.
type InputType string

const (
	InputTypeString  InputType = "STRING"
	InputTypeInteger InputType = "INTEGER"
	InputTypeEnum    InputType = "ENUM"
	InputTypeMap     InputType = "MAP"
)

// String returns the string representation of the InputType.
func (t InputType) String() string {
	return string(t)
}

// Input is one typed configuration field inside a Form. The set of
// implementations is closed: StringInput, IntegerInput, EnumInput and
// MapInput. The interface is sealed so no implementation can exist outside
// this package.
type Input interface {
	// Name returns the field name, unique within its form.
	Name() string
	// Type returns the variant of this input.
	Type() InputType
	// Sensitive reports whether the value must be masked in any display output.
	Sensitive() bool
	// PersistenceID returns the identity assigned by the repository, or
	// PersistenceIDUnassigned when the input has not been stored yet.
	PersistenceID() int64
	// SetPersistenceID assigns the repository identity.
	SetPersistenceID(id int64)
	// HasValue reports whether a value has been set on this input.
	HasValue() bool
	// EncodeValue returns the persistence encoding of the current value.
	// The result is only meaningful when HasValue is true.
	EncodeValue() (string, error)
	// DecodeValue restores the value from its persistence encoding.
	DecodeValue(encoded string) error
	// Validation returns the validation message attached to this input, if any.
	Validation() string
	// SetValidation attaches a validation message to this input.
	SetValidation(msg string)

	sealedInput()
}

// InputBase carries the attributes shared by all input variants. It is
// embedded by every concrete input and provides the sealing method.
type InputBase struct {
	name          string
	sensitive     bool
	persistenceID int64
	validation    string
}

func newInputBase(name string, sensitive bool) InputBase {
	return InputBase{
		name:          name,
		sensitive:     sensitive,
		persistenceID: PersistenceIDUnassigned,
	}
}

// Name returns the field name.
func (b *InputBase) Name() string { return b.name }

// Sensitive reports whether the value must be masked in display output.
func (b *InputBase) Sensitive() bool { return b.sensitive }

// PersistenceID returns the repository identity of this input.
func (b *InputBase) PersistenceID() int64 { return b.persistenceID }

// SetPersistenceID assigns the repository identity of this input.
func (b *InputBase) SetPersistenceID(id int64) { b.persistenceID = id }

// Validation returns the validation message attached to this input.
func (b *InputBase) Validation() string { return b.validation }

// SetValidation attaches a validation message to this input.
func (b *InputBase) SetValidation(msg string) { b.validation = msg }

func (b *InputBase) sealedInput() {}

// StringInput is a string-typed configuration field with a maximum length
// constraint.
type StringInput struct {
	InputBase
	maxLength int
	value     *string
}

// NewStringInput creates a string input without a value.
func NewStringInput(name string, sensitive bool, maxLength int) *StringInput {
	return &StringInput{InputBase: newInputBase(name, sensitive), maxLength: maxLength}
}

// Type implements Input.
func (i *StringInput) Type() InputType { return InputTypeString }

// MaxLength returns the maximum allowed length for the value.
func (i *StringInput) MaxLength() int { return i.maxLength }

// HasValue implements Input.
func (i *StringInput) HasValue() bool { return i.value != nil }

// Value returns the current value, or the empty string when unset.
func (i *StringInput) Value() string {
	if i.value == nil {
		return ""
	}
	return *i.value
}

// SetValue sets the value of this input.
func (i *StringInput) SetValue(v string) { i.value = &v }

// EncodeValue implements Input.
func (i *StringInput) EncodeValue() (string, error) {
	return i.Value(), nil
}

// DecodeValue implements Input.
func (i *StringInput) DecodeValue(encoded string) error {
	i.SetValue(encoded)
	return nil
}

// IntegerInput is an integer-typed configuration field.
type IntegerInput struct {
	InputBase
	value *int64
}

// NewIntegerInput creates an integer input without a value.
func NewIntegerInput(name string, sensitive bool) *IntegerInput {
	return &IntegerInput{InputBase: newInputBase(name, sensitive)}
}

// Type implements Input.
func (i *IntegerInput) Type() InputType { return InputTypeInteger }

// HasValue implements Input.
func (i *IntegerInput) HasValue() bool { return i.value != nil }

// Value returns the current value, or zero when unset.
func (i *IntegerInput) Value() int64 {
	if i.value == nil {
		return 0
	}
	return *i.value
}

// SetValue sets the value of this input.
func (i *IntegerInput) SetValue(v int64) { i.value = &v }

// EncodeValue implements Input.
func (i *IntegerInput) EncodeValue() (string, error) {
	return strconv.FormatInt(i.Value(), 10), nil
}

// DecodeValue implements Input.
func (i *IntegerInput) DecodeValue(encoded string) error {
	v, err := strconv.ParseInt(encoded, 10, 64)
	if err != nil {
		return fmt.Errorf("input %q: invalid integer encoding %q: %w", i.Name(), encoded, err)
	}
	i.SetValue(v)
	return nil
}

// EnumInput is a configuration field restricted to a closed set of allowed
// values.
type EnumInput struct {
	InputBase
	values []string
	value  *string
}

// NewEnumInput creates an enum input with the given allowed values and no
// selected value.
func NewEnumInput(name string, sensitive bool, values []string) *EnumInput {
	return &EnumInput{
		InputBase: newInputBase(name, sensitive),
		values:    append([]string(nil), values...),
	}
}

// Type implements Input.
func (i *EnumInput) Type() InputType { return InputTypeEnum }

// Values returns the allowed values for this input.
func (i *EnumInput) Values() []string { return i.values }

// HasValue implements Input.
func (i *EnumInput) HasValue() bool { return i.value != nil }

// Value returns the selected value, or the empty string when unset.
func (i *EnumInput) Value() string {
	if i.value == nil {
		return ""
	}
	return *i.value
}

// SetValue selects a value for this input.
func (i *EnumInput) SetValue(v string) { i.value = &v }

// EncodeValue implements Input.
func (i *EnumInput) EncodeValue() (string, error) {
	return i.Value(), nil
}

// DecodeValue implements Input.
func (i *EnumInput) DecodeValue(encoded string) error {
	i.SetValue(encoded)
	return nil
}

// MapInput is a configuration field holding free-form string key/value pairs.
type MapInput struct {
	InputBase
	value map[string]string
}

// NewMapInput creates a map input without a value.
func NewMapInput(name string, sensitive bool) *MapInput {
	return &MapInput{InputBase: newInputBase(name, sensitive)}
}

// Type implements Input.
func (i *MapInput) Type() InputType { return InputTypeMap }

// HasValue implements Input.
func (i *MapInput) HasValue() bool { return i.value != nil }

// Value returns the current map value, which may be nil when unset.
func (i *MapInput) Value() map[string]string { return i.value }

// SetValue sets the map value of this input.
func (i *MapInput) SetValue(v map[string]string) { i.value = v }

// EncodeValue implements Input. The map is encoded as JSON.
func (i *MapInput) EncodeValue() (string, error) {
	data, err := json.Marshal(i.value)
	if err != nil {
		return "", fmt.Errorf("input %q: failed to encode map value: %w", i.Name(), err)
	}
	return string(data), nil
}

// DecodeValue implements Input.
func (i *MapInput) DecodeValue(encoded string) error {
	var v map[string]string
	if err := json.Unmarshal([]byte(encoded), &v); err != nil {
		return fmt.Errorf("input %q: invalid map encoding: %w", i.Name(), err)
	}
	i.value = v
	return nil
}
