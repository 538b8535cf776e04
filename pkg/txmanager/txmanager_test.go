package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueease/booking-service/pkg/dbmetrics"
)

type fakeTx struct {
	dbmetrics.DBExecutor
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	txs       []*fakeTx
	opts      []*sql.TxOptions
	beginErr  error
	commitErr error
}

func (b *fakeBeginner) BeginTx(_ context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	tx := &fakeTx{commitErr: b.commitErr}
	b.txs = append(b.txs, tx)
	b.opts = append(b.opts, opts)
	return tx, nil
}

// newTestManager менеджер без реальных пауз; delays собирает запрошенные задержки
func newTestManager(db dbmetrics.TxBeginner, opts Options) (*TransactionManager, *[]time.Duration) {
	m := NewTransactionManagerWithOptions(db, opts)
	delays := []time.Duration{}
	m.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return m, &delays
}

func TestDo_CommitsOnSuccess(t *testing.T) {
	db := &fakeBeginner{}
	m := NewTransactionManager(db)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		assert.True(t, dbmetrics.IsInTransaction(ctx))
		return nil
	})

	require.NoError(t, err)
	require.Len(t, db.txs, 1)
	assert.True(t, db.txs[0].committed)
	assert.False(t, db.txs[0].rolledBack)
	assert.Equal(t, sql.LevelReadCommitted, db.opts[0].Isolation)
}

func TestDo_RollsBackOnError(t *testing.T) {
	db := &fakeBeginner{}
	m := NewTransactionManager(db)
	boom := errors.New("boom")

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	require.Len(t, db.txs, 1)
	assert.True(t, db.txs[0].rolledBack)
	assert.False(t, db.txs[0].committed)
}

func TestDo_BeginError(t *testing.T) {
	m := NewTransactionManager(&fakeBeginner{beginErr: errors.New("no conn")})

	err := m.Do(context.Background(), func(ctx context.Context) error { return nil })

	assert.ErrorIs(t, err, ErrBeginTx)
}

func TestDo_NestedReusesOuterTransaction(t *testing.T) {
	db := &fakeBeginner{}
	m := NewTransactionManager(db)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return m.DoReadOnly(ctx, func(ctx context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.Len(t, db.txs, 1)
}

func TestDoSerializable_RetriesSerializationFailure(t *testing.T) {
	db := &fakeBeginner{}
	m, _ := newTestManager(db, Options{})

	calls := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return &pq.Error{Code: "40001"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, db.txs, 2)
	assert.True(t, db.txs[0].rolledBack)
	assert.True(t, db.txs[1].committed)
	assert.Equal(t, sql.LevelSerializable, db.opts[1].Isolation)
}

func TestDoSerializable_GivesUpAfterMaxAttempts(t *testing.T) {
	db := &fakeBeginner{}
	m, delays := newTestManager(db, Options{})

	calls := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		calls++
		return &pq.Error{Code: "40P01"}
	})

	assert.True(t, IsRetryable(err))
	assert.Equal(t, DefaultMaxAttempts, calls)
	// Между попытками пауза, после последней нет
	assert.Len(t, *delays, DefaultMaxAttempts-1)
}

func TestDoSerializable_SurvivesManyConflicts(t *testing.T) {
	// Очередь из нескольких бронирований одной услуги на день:
	// последняя транзакция получает 40001 больше трёх раз подряд
	db := &fakeBeginner{}
	m, delays := newTestManager(db, Options{})

	calls := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= 6 {
			return &pq.Error{Code: "40001"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, calls)
	require.Len(t, db.txs, 7)
	assert.True(t, db.txs[6].committed)
	for _, d := range *delays {
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, maxBackoff)
	}
}

func TestDo_RetriesDeadlockWithCustomBudget(t *testing.T) {
	m, _ := newTestManager(&fakeBeginner{}, Options{MaxAttempts: 2})

	calls := 0
	err := m.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &pq.Error{Code: "40P01"}
	})

	assert.True(t, IsRetryable(err))
	assert.Equal(t, 2, calls)
}

func TestDoSerializable_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m, _ := newTestManager(&fakeBeginner{}, Options{})

	calls := 0
	err := m.DoSerializable(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return &pq.Error{Code: "40001"}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoff_GrowsAndIsCapped(t *testing.T) {
	m := NewTransactionManagerWithOptions(&fakeBeginner{}, Options{BaseBackoff: 10 * time.Millisecond})

	for i := 0; i < 50; i++ {
		assert.LessOrEqual(t, m.backoff(1), 10*time.Millisecond)
		assert.LessOrEqual(t, m.backoff(3), 40*time.Millisecond)
		assert.LessOrEqual(t, m.backoff(30), maxBackoff)
		assert.Greater(t, m.backoff(30), time.Duration(0))
	}
}

func TestDoSerializable_DoesNotRetryOtherErrors(t *testing.T) {
	m := NewTransactionManager(&fakeBeginner{})
	unique := &pq.Error{Code: "23505"}

	calls := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		calls++
		return unique
	})

	assert.ErrorIs(t, err, unique)
	assert.Equal(t, 1, calls)
}

func TestDo_CommitError(t *testing.T) {
	m := NewTransactionManager(&fakeBeginner{commitErr: errors.New("disk full")})

	err := m.Do(context.Background(), func(ctx context.Context) error { return nil })

	assert.ErrorIs(t, err, ErrCommitTx)
}
