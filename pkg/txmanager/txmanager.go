// Package txmanager runs functions inside database transactions that are
// propagated to repositories through context.
package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lib/pq"

	"github.com/queueease/booking-service/pkg/dbmetrics"
)

const (
	// DefaultMaxAttempts bounds re-runs after serialization failures and deadlocks
	DefaultMaxAttempts = 10

	// DefaultBaseBackoff is the first retry delay; it doubles per attempt with full jitter
	DefaultBaseBackoff = 5 * time.Millisecond

	// maxBackoff caps a single retry delay
	maxBackoff = 500 * time.Millisecond
)

var (
	// ErrBeginTx is returned when a transaction can't be started
	ErrBeginTx = errors.New("txmanager: begin transaction")

	// ErrCommitTx is returned when commit fails
	ErrCommitTx = errors.New("txmanager: commit transaction")
)

// Options tunes retries. Zero values fall back to the defaults.
type Options struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// TransactionManager starts transactions on db
type TransactionManager struct {
	db          dbmetrics.TxBeginner
	maxAttempts int
	baseBackoff time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewTransactionManager creates a manager with the default retry budget
func NewTransactionManager(db dbmetrics.TxBeginner) *TransactionManager {
	return NewTransactionManagerWithOptions(db, Options{})
}

// NewTransactionManagerWithOptions creates a manager with a custom retry budget
func NewTransactionManagerWithOptions(db dbmetrics.TxBeginner, opts Options) *TransactionManager {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = DefaultBaseBackoff
	}
	return &TransactionManager{
		db:          db,
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
		sleep:       sleepCtx,
	}
}

// Do runs fn in a READ COMMITTED transaction. Deadlocks are retried.
func (m *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.retry(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

// DoReadOnly runs fn in a read-only transaction
func (m *TransactionManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

// DoSerializable runs fn in a SERIALIZABLE transaction. On serialization
// failure or deadlock the whole function is re-run.
func (m *TransactionManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.retry(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
}

func (m *TransactionManager) retry(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	// Повтор невозможен внутри внешней транзакции, ошибка уходит наружу
	if dbmetrics.IsInTransaction(ctx) {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err = m.run(ctx, opts, fn)
		if err == nil || !IsRetryable(err) || attempt == m.maxAttempts {
			return err
		}
		if sleepErr := m.sleep(ctx, m.backoff(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

// backoff exponential delay with full jitter
func (m *TransactionManager) backoff(attempt int) time.Duration {
	ceiling := m.baseBackoff << (attempt - 1)
	if ceiling <= 0 || ceiling > maxBackoff {
		ceiling = maxBackoff
	}
	return time.Duration(rand.Int63n(int64(ceiling))) + 1
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *TransactionManager) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	// Вложенный вызов переиспользует внешнюю транзакцию
	if dbmetrics.IsInTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBeginTx, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(dbmetrics.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		// pq возвращает ошибку сериализации на коммите как *pq.Error
		if IsRetryable(err) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCommitTx, err)
	}

	return nil
}

// IsRetryable reports serialization failures (40001) and deadlocks (40P01)
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
