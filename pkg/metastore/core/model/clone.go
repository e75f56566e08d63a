package model

import (
	"fmt"

	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

const moduleName = "model"

// CloneForms produces a value-free copy of a schema's form list. Every input
// in the result is newly constructed and typed identically to its source,
// carrying only the source's persistence id; values, validation state and
// form persistence ids are discarded. The result is the blank target shape a
// migration capability fills with migrated values.
//
// Encountering an input variant outside the closed set fails with
// ErrUnsupportedInputType and produces no partial clone.
func CloneForms(forms []*Form) ([]*Form, error) {
	cloned := make([]*Form, 0, len(forms))
	for _, form := range forms {
		inputs := make([]Input, 0, len(form.Inputs()))
		for _, input := range form.Inputs() {
			var blank Input
			switch in := input.(type) {
			case *StringInput:
				blank = NewStringInput(in.Name(), in.Sensitive(), in.MaxLength())
			case *IntegerInput:
				blank = NewIntegerInput(in.Name(), in.Sensitive())
			case *EnumInput:
				blank = NewEnumInput(in.Name(), in.Sensitive(), in.Values())
			case *MapInput:
				blank = NewMapInput(in.Name(), in.Sensitive())
			default:
				return nil, exception.NewUnsupportedInputType(moduleName,
					fmt.Sprintf("cannot clone input %q of unknown variant %T", input.Name(), input))
			}
			blank.SetPersistenceID(input.PersistenceID())
			inputs = append(inputs, blank)
		}
		cloned = append(cloned, NewForm(form.Name(), inputs))
	}
	return cloned, nil
}

// CloneConnectionForms clones a connection-level form bundle into a blank
// target shape.
func CloneConnectionForms(src *ConnectionForms) (*ConnectionForms, error) {
	forms, err := CloneForms(src.Forms())
	if err != nil {
		return nil, err
	}
	return NewConnectionForms(forms), nil
}

// CloneJobForms clones a job-level form bundle into a blank target shape for
// the same job type.
func CloneJobForms(src *JobForms) (*JobForms, error) {
	forms, err := CloneForms(src.Forms())
	if err != nil {
		return nil, err
	}
	return NewJobForms(src.Type(), forms), nil
}
