package sql

import "time"

// Row types mapped by GORM. Schema forms and inputs are stored as rows owned
// by either a connector or the framework; instance values are stored as child
// rows referencing the schema input they belong to.

const (
	ownerTypeConnector = "CONNECTOR"
	ownerTypeFramework = "FRAMEWORK"

	directionConnection = "CONNECTION"
	directionJob        = "JOB"
)

type connectorRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string `gorm:"column:name"`
	ClassName string `gorm:"column:class_name"`
}

func (connectorRow) TableName() string { return "ms_connector" }

type frameworkRow struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
}

func (frameworkRow) TableName() string { return "ms_framework" }

type formRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerType string `gorm:"column:owner_type"`
	OwnerID   int64  `gorm:"column:owner_id"`
	Direction string `gorm:"column:direction"`
	JobType   string `gorm:"column:job_type"`
	Name      string `gorm:"column:name"`
	Position  int    `gorm:"column:position"`
}

func (formRow) TableName() string { return "ms_form" }

type inputRow struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	FormID     int64  `gorm:"column:form_id"`
	Position   int    `gorm:"column:position"`
	Name       string `gorm:"column:name"`
	Type       string `gorm:"column:type"`
	Sensitive  bool   `gorm:"column:sensitive"`
	MaxLength  int    `gorm:"column:max_length"`
	EnumValues string `gorm:"column:enum_values"`
}

func (inputRow) TableName() string { return "ms_input" }

type connectionRow struct {
	ID          int64 `gorm:"column:id;primaryKey;autoIncrement"`
	ConnectorID int64 `gorm:"column:connector_id"`
}

func (connectionRow) TableName() string { return "ms_connection" }

type connectionInputRow struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ConnectionID int64  `gorm:"column:connection_id"`
	InputID      int64  `gorm:"column:input_id"`
	Value        string `gorm:"column:value"`
}

func (connectionInputRow) TableName() string { return "ms_connection_input" }

type jobRow struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ConnectorID  int64  `gorm:"column:connector_id"`
	ConnectionID int64  `gorm:"column:connection_id"`
	JobType      string `gorm:"column:job_type"`
}

func (jobRow) TableName() string { return "ms_job" }

type jobInputRow struct {
	ID      int64  `gorm:"column:id;primaryKey;autoIncrement"`
	JobID   int64  `gorm:"column:job_id"`
	InputID int64  `gorm:"column:input_id"`
	Value   string `gorm:"column:value"`
}

func (jobInputRow) TableName() string { return "ms_job_input" }

type submissionRow struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	JobID          int64     `gorm:"column:job_id"`
	ExternalID     string    `gorm:"column:external_id"`
	Status         string    `gorm:"column:status"`
	CreationDate   time.Time `gorm:"column:creation_date"`
	LastUpdateDate time.Time `gorm:"column:last_update_date"`
}

func (submissionRow) TableName() string { return "ms_submission" }
