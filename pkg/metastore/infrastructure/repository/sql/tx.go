package sql

import (
	"context"

	"gorm.io/gorm"

	"github.com/quayside/metastore/pkg/metastore/core/tx"
	"github.com/quayside/metastore/pkg/metastore/support/util/exception"
)

// gormTx adapts a GORM transaction to the tx.Tx contract. The embedded
// lifecycle guard enforces the legal transition order; the database
// transaction is only touched in states the guard has approved.
type gormTx struct {
	tx.Lifecycle
	db     *gorm.DB
	handle *gorm.DB
}

// Begin implements tx.Tx.
func (t *gormTx) Begin(ctx context.Context) error {
	if err := t.TransitionBegin(); err != nil {
		return exception.NewStoreError(moduleName, "failed to begin transaction", err)
	}
	handle := t.db.WithContext(ctx).Begin()
	if handle.Error != nil {
		// The handle never became usable; close it out.
		t.TransitionClose()
		return exception.NewStoreError(moduleName, "failed to begin database transaction", handle.Error)
	}
	t.handle = handle
	return nil
}

// Commit implements tx.Tx.
func (t *gormTx) Commit() error {
	if err := t.TransitionCommit(); err != nil {
		return exception.NewStoreError(moduleName, "failed to commit transaction", err)
	}
	if err := t.handle.Commit().Error; err != nil {
		return exception.NewStoreError(moduleName, "failed to commit database transaction", err)
	}
	return nil
}

// Rollback implements tx.Tx.
func (t *gormTx) Rollback() error {
	if err := t.TransitionRollback(); err != nil {
		return exception.NewStoreError(moduleName, "failed to roll back transaction", err)
	}
	if err := t.handle.Rollback().Error; err != nil {
		return exception.NewStoreError(moduleName, "failed to roll back database transaction", err)
	}
	return nil
}

// Close implements tx.Tx. Closing an active transaction rolls it back.
func (t *gormTx) Close() error {
	prev := t.TransitionClose()
	if prev == tx.StateActive && t.handle != nil {
		if err := t.handle.Rollback().Error; err != nil {
			return exception.NewStoreError(moduleName, "failed to roll back transaction on close", err)
		}
	}
	return nil
}
