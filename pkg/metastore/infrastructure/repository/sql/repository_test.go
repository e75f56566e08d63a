// Package sql_test exercises the GORM-backed repository against a mocked
// database connection.
package sql_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/quayside/metastore/pkg/metastore/adapter/database/config"
	gormadapter "github.com/quayside/metastore/pkg/metastore/adapter/database/gorm"
	"github.com/quayside/metastore/pkg/metastore/core/model"
	"github.com/quayside/metastore/pkg/metastore/core/tx"
	sqlrepo "github.com/quayside/metastore/pkg/metastore/infrastructure/repository/sql"
)

// setupMockRepository wires an SQLRepository on top of a sqlmock connection
// through the regular GORM adapter.
func setupMockRepository(t *testing.T) (sqlmock.Sqlmock, *sqlrepo.SQLRepository) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	cfg := dbconfig.DatabaseConfig{Type: "mysql"}
	conn := gormadapter.NewGormDBAdapter(gormDB, cfg, "mock_db")
	repo := sqlrepo.NewSQLRepository(conn)

	t.Cleanup(func() {
		mock.ExpectClose()
		sqlDB.Close()
	})
	return mock, repo
}

func TestTransactionCloseWhileActiveRollsBack(t *testing.T) {
	mock, repo := setupMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	handle := repo.Transaction()
	require.NoError(t, handle.Begin(context.Background()))
	require.True(t, handle.Active())

	require.NoError(t, handle.Close())
	assert.Equal(t, tx.StateClosed, handle.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionCommitLifecycle(t *testing.T) {
	mock, repo := setupMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	handle := repo.Transaction()
	require.NoError(t, handle.Begin(context.Background()))
	require.NoError(t, handle.Commit())

	// A committed handle rejects further work and closes without touching
	// the database again.
	assert.Error(t, handle.Rollback())
	require.NoError(t, handle.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInstanceInputsInTx(t *testing.T) {
	mock, repo := setupMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `ms_connection_input` WHERE connection_id = ?")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `ms_job_input` WHERE job_id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	ctx := context.Background()
	handle := repo.Transaction()
	require.NoError(t, handle.Begin(ctx))

	require.NoError(t, repo.DeleteConnectionInputsInTx(ctx, handle, 3))
	require.NoError(t, repo.DeleteJobInputsInTx(ctx, handle, 7))
	require.NoError(t, handle.Commit())
	require.NoError(t, handle.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxOperationsRejectForeignHandle(t *testing.T) {
	_, repo := setupMockRepository(t)
	ctx := context.Background()

	err := repo.DeleteJobInputsInTx(ctx, &foreignTx{}, 1)
	assert.Error(t, err)
}

func TestInTxOperationsRejectInactiveHandle(t *testing.T) {
	_, repo := setupMockRepository(t)
	ctx := context.Background()

	// Never begun.
	handle := repo.Transaction()
	err := repo.DeleteConnectionInputsInTx(ctx, handle, 1)
	assert.Error(t, err)
}

func TestFindSubmissionLastForJob(t *testing.T) {
	mock, repo := setupMockRepository(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `ms_submission` WHERE job_id = ?")).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "job_id", "external_id", "status", "creation_date", "last_update_date"}).
			AddRow(int64(9), int64(4), "job_1337", "RUNNING", created, updated))

	submission, err := repo.FindSubmissionLastForJob(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, submission)
	assert.Equal(t, int64(9), submission.PersistenceID())
	assert.Equal(t, int64(4), submission.JobID())
	assert.Equal(t, "job_1337", submission.ExternalID())
	assert.Equal(t, model.SubmissionStatusRunning, submission.Status())
	assert.True(t, created.Equal(submission.CreationDate()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSubmissionLastForJobAbsent(t *testing.T) {
	mock, repo := setupMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `ms_submission` WHERE job_id = ?")).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "job_id", "external_id", "status", "creation_date", "last_update_date"}))

	submission, err := repo.FindSubmissionLastForJob(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, submission)
}

func TestFindSubmissionsUnfinished(t *testing.T) {
	mock, repo := setupMockRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `ms_submission` WHERE status NOT IN (?,?)")).
		WithArgs("SUCCEEDED", "FAILED").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "job_id", "external_id", "status", "creation_date", "last_update_date"}).
			AddRow(int64(1), int64(4), "", "BOOTING", now, now).
			AddRow(int64(2), int64(5), "job_42", "RUNNING", now, now))

	submissions, err := repo.FindSubmissionsUnfinished(context.Background())
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	assert.Equal(t, model.SubmissionStatusBooting, submissions[0].Status())
	assert.Equal(t, model.SubmissionStatusRunning, submissions[1].Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeSubmissions(t *testing.T) {
	mock, repo := setupMockRepository(t)
	threshold := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `ms_submission` WHERE creation_date < ?")).
		WithArgs(threshold).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.PurgeSubmissions(context.Background(), threshold))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSubmissionMissingRollsBack(t *testing.T) {
	mock, repo := setupMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `ms_submission` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	submission := model.RestoreSubmission(4, "job_7", model.SubmissionStatusRunning,
		time.Now().UTC(), time.Now().UTC())
	submission.SetPersistenceID(12345)

	err := repo.UpdateSubmission(context.Background(), submission)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// foreignTx satisfies tx.Tx without belonging to the SQL backend.
type foreignTx struct {
	tx.Lifecycle
}

func (f *foreignTx) Begin(context.Context) error { return f.TransitionBegin() }
func (f *foreignTx) Commit() error               { return f.TransitionCommit() }
func (f *foreignTx) Rollback() error             { return f.TransitionRollback() }
func (f *foreignTx) Close() error                { f.TransitionClose(); return nil }
