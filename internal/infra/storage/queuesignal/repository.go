package queuesignal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/pkg/dbmetrics"
	"github.com/queueease/booking-service/pkg/psqlbuilder"
)

// Repository хранит сигналы персонала по очередям услуг
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория сигналов
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Get получает сигнал по услуге
func (r *Repository) Get(ctx context.Context, serviceID string) (*domain.QueueSignal, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("service_id", "reason", "delay_threshold_minutes", "updated_by", "updated_at").
		From("queue_signals").
		Where(squirrel.Eq{"service_id": serviceID}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Get - build select query: %v", ErrBuildQuery, err)
	}

	var signal domain.QueueSignal
	var reason sql.NullString
	var threshold sql.NullInt64

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&signal.ServiceID,
		&reason,
		&threshold,
		&signal.UpdatedBy,
		&signal.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSignalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Get - scan signal: %v", ErrExecQuery, err)
	}

	if reason.Valid {
		signal.Reason = &reason.String
	}
	if threshold.Valid {
		t := int(threshold.Int64)
		signal.DelayThresholdMinutes = &t
	}

	return &signal, nil
}

// Upsert сохраняет сигнал, заменяя предыдущий
func (r *Repository) Upsert(ctx context.Context, signal *domain.QueueSignal) (*domain.QueueSignal, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("queue_signals").
		Columns("service_id", "reason", "delay_threshold_minutes", "updated_by").
		Values(signal.ServiceID, signal.Reason, signal.DelayThresholdMinutes, signal.UpdatedBy).
		Suffix(`ON CONFLICT (service_id) DO UPDATE SET
			reason = EXCLUDED.reason,
			delay_threshold_minutes = EXCLUDED.delay_threshold_minutes,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
		RETURNING updated_at`).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&signal.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: Upsert - execute insert: %v", ErrExecQuery, err)
	}

	return signal, nil
}
