package dbmetrics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubExecutor struct {
	DBExecutor
	name string
}

type stubTx struct {
	stubExecutor
}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func TestGetExecutor(t *testing.T) {
	db := &stubExecutor{name: "db"}

	t.Run("No transaction", func(t *testing.T) {
		ctx := context.Background()
		assert.False(t, IsInTransaction(ctx))
		assert.Same(t, db, GetExecutor(ctx, db))
	})

	t.Run("Transaction in context", func(t *testing.T) {
		tx := &stubTx{stubExecutor{name: "tx"}}
		ctx := WithTx(context.Background(), tx)
		assert.True(t, IsInTransaction(ctx))
		assert.Same(t, tx, GetExecutor(ctx, db))
	})
}

func TestOperation(t *testing.T) {
	assert.Equal(t, "select", operation("SELECT id FROM appointments"))
	assert.Equal(t, "insert", operation("  INSERT INTO x VALUES ($1)"))
	assert.Equal(t, "unknown", operation(""))
}

func TestObserve_NilMetrics(t *testing.T) {
	d := Wrap(nil)
	assert.NotPanics(t, func() {
		d.observe("SELECT 1", time.Now(), sql.ErrConnDone)
	})
}
