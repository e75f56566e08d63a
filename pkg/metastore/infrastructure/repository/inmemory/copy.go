package inmemory

import (
	"github.com/quayside/metastore/pkg/metastore/core/model"
)

// The copy helpers produce full deep copies of entities, values included.
// They reuse the structural cloner for the shape and then carry the values
// and validation state over, so the copies stay within the closed input set.

func copyForms(forms []*model.Form) ([]*model.Form, error) {
	cloned, err := model.CloneForms(forms)
	if err != nil {
		return nil, err
	}
	for i, form := range forms {
		cloned[i].SetPersistenceID(form.PersistenceID())
		for j, input := range form.Inputs() {
			dst := cloned[i].Inputs()[j]
			dst.SetValidation(input.Validation())
			if !input.HasValue() {
				continue
			}
			encoded, err := input.EncodeValue()
			if err != nil {
				return nil, err
			}
			if err := dst.DecodeValue(encoded); err != nil {
				return nil, err
			}
		}
	}
	return cloned, nil
}

func copyConnectionForms(src *model.ConnectionForms) (*model.ConnectionForms, error) {
	forms, err := copyForms(src.Forms())
	if err != nil {
		return nil, err
	}
	return model.NewConnectionForms(forms), nil
}

func copyJobForms(src *model.JobForms) (*model.JobForms, error) {
	forms, err := copyForms(src.Forms())
	if err != nil {
		return nil, err
	}
	return model.NewJobForms(src.Type(), forms), nil
}

func copyJobFormsMap(src map[model.JobType]*model.JobForms) ([]*model.JobForms, error) {
	out := make([]*model.JobForms, 0, len(src))
	for _, jf := range src {
		copied, err := copyJobForms(jf)
		if err != nil {
			return nil, err
		}
		out = append(out, copied)
	}
	return out, nil
}

func copyConnector(src *model.Connector) (*model.Connector, error) {
	connectionForms, err := copyConnectionForms(src.ConnectionForms())
	if err != nil {
		return nil, err
	}
	jobForms, err := copyJobFormsMap(src.AllJobForms())
	if err != nil {
		return nil, err
	}
	dst := model.NewConnector(src.UniqueName(), src.ClassName(), connectionForms, jobForms)
	dst.SetPersistenceID(src.PersistenceID())
	return dst, nil
}

func copyFramework(src *model.Framework) (*model.Framework, error) {
	connectionForms, err := copyConnectionForms(src.ConnectionForms())
	if err != nil {
		return nil, err
	}
	jobForms, err := copyJobFormsMap(src.AllJobForms())
	if err != nil {
		return nil, err
	}
	dst := model.NewFramework(connectionForms, jobForms)
	dst.SetPersistenceID(src.PersistenceID())
	return dst, nil
}

func copyConnection(src *model.Connection) (*model.Connection, error) {
	connectorPart, err := copyConnectionForms(src.ConnectorPart())
	if err != nil {
		return nil, err
	}
	frameworkPart, err := copyConnectionForms(src.FrameworkPart())
	if err != nil {
		return nil, err
	}
	dst := model.NewConnection(src.ConnectorID(), connectorPart, frameworkPart)
	dst.SetPersistenceID(src.PersistenceID())
	return dst, nil
}

func copyJob(src *model.Job) (*model.Job, error) {
	connectorPart, err := copyJobForms(src.ConnectorPart())
	if err != nil {
		return nil, err
	}
	frameworkPart, err := copyJobForms(src.FrameworkPart())
	if err != nil {
		return nil, err
	}
	dst := model.NewJob(src.ConnectorID(), src.ConnectionID(), src.Type(), connectorPart, frameworkPart)
	dst.SetPersistenceID(src.PersistenceID())
	return dst, nil
}

func copySubmission(src *model.Submission) *model.Submission {
	dst := model.RestoreSubmission(src.JobID(), src.ExternalID(), src.Status(), src.CreationDate(), src.LastUpdateDate())
	dst.SetPersistenceID(src.PersistenceID())
	return dst
}
