package sql

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// inputFromRow rebuilds a typed input from its schema row.
func inputFromRow(row inputRow) (model.Input, error) {
	var in model.Input
	switch model.InputType(row.Type) {
	case model.InputTypeString:
		in = model.NewStringInput(row.Name, row.Sensitive, row.MaxLength)
	case model.InputTypeInteger:
		in = model.NewIntegerInput(row.Name, row.Sensitive)
	case model.InputTypeEnum:
		var values []string
		if row.EnumValues != "" {
			values = strings.Split(row.EnumValues, ",")
		}
		in = model.NewEnumInput(row.Name, row.Sensitive, values)
	case model.InputTypeMap:
		in = model.NewMapInput(row.Name, row.Sensitive)
	default:
		return nil, exception.NewUnsupportedInputType(moduleName,
			fmt.Sprintf("input %q has unknown stored type %q", row.Name, row.Type))
	}
	in.SetPersistenceID(row.ID)
	return in, nil
}

// inputToRow maps a typed input to its schema row. The variant-specific
// attributes (max length, enum values) live in dedicated columns.
func inputToRow(formID int64, position int, in model.Input) (*inputRow, error) {
	row := &inputRow{
		FormID:    formID,
		Position:  position,
		Name:      in.Name(),
		Type:      in.Type().String(),
		Sensitive: in.Sensitive(),
	}
	switch v := in.(type) {
	case *model.StringInput:
		row.MaxLength = v.MaxLength()
	case *model.IntegerInput:
	case *model.EnumInput:
		row.EnumValues = strings.Join(v.Values(), ",")
	case *model.MapInput:
	default:
		return nil, exception.NewUnsupportedInputType(moduleName,
			fmt.Sprintf("input %q has unsupported type %T", in.Name(), in))
	}
	return row, nil
}

// insertSchemaForms stores the forms and inputs of a schema owner and
// assigns the generated persistence ids back onto the model.
func insertSchemaForms(db *gorm.DB, ownerType string, ownerID int64, connectionForms *model.ConnectionForms, jobForms map[model.JobType]*model.JobForms) error {
	if connectionForms != nil {
		if err := insertForms(db, ownerType, ownerID, directionConnection, "", connectionForms.Forms()); err != nil {
			return err
		}
	}
	for _, jobType := range sortedJobTypes(jobForms) {
		if err := insertForms(db, ownerType, ownerID, directionJob, jobType.String(), jobForms[jobType].Forms()); err != nil {
			return err
		}
	}
	return nil
}

func insertForms(db *gorm.DB, ownerType string, ownerID int64, direction, jobType string, forms []*model.Form) error {
	for position, form := range forms {
		row := &formRow{
			OwnerType: ownerType,
			OwnerID:   ownerID,
			Direction: direction,
			JobType:   jobType,
			Name:      form.Name(),
			Position:  position,
		}
		if err := db.Create(row).Error; err != nil {
			return exception.NewStoreErrorf(moduleName, "failed to store form %q", form.Name(), err)
		}
		form.SetPersistenceID(row.ID)

		for inputPosition, in := range form.Inputs() {
			inRow, err := inputToRow(row.ID, inputPosition, in)
			if err != nil {
				return err
			}
			if err := db.Create(inRow).Error; err != nil {
				return exception.NewStoreErrorf(moduleName, "failed to store input %q", in.Name(), err)
			}
			in.SetPersistenceID(inRow.ID)
		}
	}
	return nil
}

// loadSchemaForms loads the full schema of an owner: the connection-level
// forms plus the job-level forms grouped by job type, ordered by position.
func loadSchemaForms(db *gorm.DB, ownerType string, ownerID int64) (*model.ConnectionForms, []*model.JobForms, error) {
	var formRows []formRow
	if err := db.
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("position").
		Find(&formRows).Error; err != nil {
		return nil, nil, exception.NewStoreError(moduleName, "failed to load schema forms", err)
	}
	if len(formRows) == 0 {
		return model.NewConnectionForms(nil), nil, nil
	}

	formIDs := make([]int64, 0, len(formRows))
	for _, row := range formRows {
		formIDs = append(formIDs, row.ID)
	}
	var inputRows []inputRow
	if err := db.
		Where("form_id IN ?", formIDs).
		Order("position").
		Find(&inputRows).Error; err != nil {
		return nil, nil, exception.NewStoreError(moduleName, "failed to load schema inputs", err)
	}
	inputsByForm := make(map[int64][]inputRow)
	for _, row := range inputRows {
		inputsByForm[row.FormID] = append(inputsByForm[row.FormID], row)
	}

	var connectionForms []*model.Form
	jobFormsByType := make(map[model.JobType][]*model.Form)
	for _, row := range formRows {
		inputs := make([]model.Input, 0, len(inputsByForm[row.ID]))
		for _, inRow := range inputsByForm[row.ID] {
			in, err := inputFromRow(inRow)
			if err != nil {
				return nil, nil, err
			}
			inputs = append(inputs, in)
		}
		form := model.NewForm(row.Name, inputs)
		form.SetPersistenceID(row.ID)

		switch row.Direction {
		case directionConnection:
			connectionForms = append(connectionForms, form)
		case directionJob:
			jobType := model.JobType(row.JobType)
			jobFormsByType[jobType] = append(jobFormsByType[jobType], form)
		default:
			return nil, nil, exception.NewStoreErrorf(moduleName,
				"form %d has unknown direction %q", row.ID, row.Direction)
		}
	}

	jobForms := make([]*model.JobForms, 0, len(jobFormsByType))
	for _, jobType := range sortedJobTypeKeys(jobFormsByType) {
		jobForms = append(jobForms, model.NewJobForms(jobType, jobFormsByType[jobType]))
	}
	return model.NewConnectionForms(connectionForms), jobForms, nil
}

// deleteSchemaForms removes all forms and inputs attached to an owner.
// Inputs are removed first so no orphan rows survive a partial failure.
func deleteSchemaForms(db *gorm.DB, ownerType string, ownerID int64) error {
	formIDQuery := db.Model(&formRow{}).Select("id").
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID)
	if err := db.Where("form_id IN (?)", formIDQuery).Delete(&inputRow{}).Error; err != nil {
		return exception.NewStoreError(moduleName, "failed to delete schema inputs", err)
	}
	if err := db.
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Delete(&formRow{}).Error; err != nil {
		return exception.NewStoreError(moduleName, "failed to delete schema forms", err)
	}
	return nil
}

type inputValue struct {
	inputID int64
	value   string
}

// collectFormValues walks forms in order and returns (inputID, encoded value)
// pairs for every input carrying a value.
func collectFormValues(formBundles ...[]*model.Form) ([]inputValue, error) {
	var values []inputValue
	for _, forms := range formBundles {
		for _, form := range forms {
			for _, in := range form.Inputs() {
				if !in.HasValue() {
					continue
				}
				encoded, err := in.EncodeValue()
				if err != nil {
					return nil, exception.NewStoreErrorf(moduleName,
						"failed to encode value of input %q", in.Name(), err)
				}
				values = append(values, inputValue{inputID: in.PersistenceID(), value: encoded})
			}
		}
	}
	return values, nil
}

// applyFormValues restores encoded values onto the inputs of the given form
// bundles, keyed by input persistence id.
func applyFormValues(values map[int64]string, formBundles ...[]*model.Form) error {
	for _, forms := range formBundles {
		for _, form := range forms {
			for _, in := range form.Inputs() {
				encoded, ok := values[in.PersistenceID()]
				if !ok {
					continue
				}
				if err := in.DecodeValue(encoded); err != nil {
					return exception.NewStoreErrorf(moduleName,
						"failed to decode value of input %q", in.Name(), err)
				}
			}
		}
	}
	return nil
}

func sortedJobTypes(jobForms map[model.JobType]*model.JobForms) []model.JobType {
	types := make([]model.JobType, 0, len(jobForms))
	for t := range jobForms {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func sortedJobTypeKeys(jobForms map[model.JobType][]*model.Form) []model.JobType {
	types := make([]model.JobType, 0, len(jobForms))
	for t := range jobForms {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
