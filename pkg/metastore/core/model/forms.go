package model

// PersistenceIDUnassigned marks an entity or field that has not been stored
// in the repository yet.
const PersistenceIDUnassigned int64 = -1

// Persistable is embedded by every model type whose identity is assigned by
// the repository. A persistence id, once assigned, never changes for the
// lifetime of the entity, even when its content is fully replaced.
type Persistable struct {
	persistenceID int64
}

// NewPersistable returns a Persistable with no identity assigned.
func NewPersistable() Persistable {
	return Persistable{persistenceID: PersistenceIDUnassigned}
}

// PersistenceID returns the repository identity of this entity.
func (p *Persistable) PersistenceID() int64 { return p.persistenceID }

// SetPersistenceID assigns the repository identity of this entity.
func (p *Persistable) SetPersistenceID(id int64) { p.persistenceID = id }

// HasPersistenceID reports whether the repository has assigned an identity.
func (p *Persistable) HasPersistenceID() bool {
	return p.persistenceID != PersistenceIDUnassigned
}

// Form is a named, ordered group of typed inputs. The ordering carries no
// correctness semantics but is preserved for display.
type Form struct {
	Persistable
	name   string
	inputs []Input
}

// NewForm creates a form holding the given inputs.
func NewForm(name string, inputs []Input) *Form {
	return &Form{Persistable: NewPersistable(), name: name, inputs: inputs}
}

// Name returns the form name.
func (f *Form) Name() string { return f.name }

// Inputs returns the ordered inputs of this form.
func (f *Form) Inputs() []Input { return f.inputs }

// Input returns the input with the given name, or nil when no such input
// exists in this form.
func (f *Form) Input(name string) Input {
	for _, in := range f.inputs {
		if in.Name() == name {
			return in
		}
	}
	return nil
}

// ConnectionForms bundles the forms describing a connection-level schema.
type ConnectionForms struct {
	forms []*Form
}

// NewConnectionForms creates a connection-level form bundle.
func NewConnectionForms(forms []*Form) *ConnectionForms {
	return &ConnectionForms{forms: forms}
}

// Forms returns the forms of this bundle.
func (c *ConnectionForms) Forms() []*Form { return c.forms }

// Form returns the form with the given name, or nil when absent.
func (c *ConnectionForms) Form(name string) *Form {
	return findForm(c.forms, name)
}

// JobType identifies the kind of data-transfer job a schema or instance
// belongs to. The set is closed.
type JobType string

const (
	JobTypeImport JobType = "IMPORT"
	JobTypeExport JobType = "EXPORT"
)

// String returns the string representation of the JobType.
func (t JobType) String() string {
	return string(t)
}

// JobForms bundles the forms describing a job-level schema for one job type.
type JobForms struct {
	jobType JobType
	forms   []*Form
}

// NewJobForms creates a job-level form bundle for the given job type.
func NewJobForms(jobType JobType, forms []*Form) *JobForms {
	return &JobForms{jobType: jobType, forms: forms}
}

// Type returns the job type this bundle applies to.
func (j *JobForms) Type() JobType { return j.jobType }

// Forms returns the forms of this bundle.
func (j *JobForms) Forms() []*Form { return j.forms }

// Form returns the form with the given name, or nil when absent.
func (j *JobForms) Form(name string) *Form {
	return findForm(j.forms, name)
}

func findForm(forms []*Form, name string) *Form {
	for _, f := range forms {
		if f.Name() == name {
			return f
		}
	}
	return nil
}
