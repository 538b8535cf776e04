package schedule

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/pkg/dbmetrics"
	"github.com/queueease/booking-service/pkg/psqlbuilder"
)

var scheduleColumns = []string{
	"id",
	"institution_id",
	"service_id",
	"open_time",
	"close_time",
	"slot_duration_minutes",
	"size_from_service",
	"advance_booking_days",
	"created_at",
	"updated_at",
}

// Repository репозиторий конфигураций расписания
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория расписаний
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByInstitutionAndService получает конфигурацию ровно для указанной пары
// (serviceID = nil означает конфигурацию для всего учреждения)
func (r *Repository) GetByInstitutionAndService(ctx context.Context, institutionID string, serviceID *string) (*domain.ScheduleConfig, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(scheduleColumns...).
		From("schedule_configs").
		Where(squirrel.Eq{"institution_id": institutionID})

	// Фильтрация по service_id (NULL или конкретное значение)
	if serviceID == nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"service_id": nil})
	} else {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"service_id": *serviceID})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByInstitutionAndService - build select query: %v", ErrBuildQuery, err)
	}

	cfg, err := scanConfig(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByInstitutionAndService - scan config: %v", ErrScanRow, err)
	}

	return cfg, nil
}

// GetConfigWithHierarchy получает конфигурацию с учетом приоритетов:
// 1. Конфигурация конкретной услуги (institutionID, serviceID)
// 2. Конфигурация всего учреждения (institutionID, NULL)
//
// Если конфигурация не найдена ни на одном уровне, возвращает ErrConfigNotFound
func (r *Repository) GetConfigWithHierarchy(ctx context.Context, institutionID string, serviceID *string) (*domain.ScheduleConfig, error) {
	if serviceID != nil {
		cfg, err := r.GetByInstitutionAndService(ctx, institutionID, serviceID)
		if err == nil {
			return cfg, nil
		}
		if err != ErrConfigNotFound {
			return nil, fmt.Errorf("%w: GetConfigWithHierarchy - level 1 (service): %v", ErrExecQuery, err)
		}
	}

	cfg, err := r.GetByInstitutionAndService(ctx, institutionID, nil)
	if err == nil {
		return cfg, nil
	}
	if err != ErrConfigNotFound {
		return nil, fmt.Errorf("%w: GetConfigWithHierarchy - level 2 (institution): %v", ErrExecQuery, err)
	}

	return nil, ErrConfigNotFound
}

// GetAllByInstitution получает все конфигурации учреждения, общая первой
func (r *Repository) GetAllByInstitution(ctx context.Context, institutionID string) ([]*domain.ScheduleConfig, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(scheduleColumns...).
		From("schedule_configs").
		Where(squirrel.Eq{"institution_id": institutionID}).
		OrderBy("service_id ASC NULLS FIRST").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetAllByInstitution - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetAllByInstitution - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	configs := make([]*domain.ScheduleConfig, 0)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: GetAllByInstitution - scan row: %v", ErrScanRow, err)
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetAllByInstitution - rows error: %v", ErrScanRow, err)
	}

	return configs, nil
}

// Upsert создает или обновляет конфигурацию для пары (учреждение, услуга)
func (r *Repository) Upsert(ctx context.Context, cfg *domain.ScheduleConfig) (*domain.ScheduleConfig, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("schedule_configs").
		Columns(
			"institution_id",
			"service_id",
			"open_time",
			"close_time",
			"slot_duration_minutes",
			"size_from_service",
			"advance_booking_days",
		).
		Values(
			cfg.InstitutionID,
			cfg.ServiceID,
			cfg.OpenTime,
			cfg.CloseTime,
			cfg.SlotDurationMinutes,
			cfg.SizeFromService,
			cfg.AdvanceBookingDays,
		).
		Suffix(`ON CONFLICT (institution_id, (COALESCE(service_id, ''))) DO UPDATE SET
			open_time = EXCLUDED.open_time,
			close_time = EXCLUDED.close_time,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			size_from_service = EXCLUDED.size_from_service,
			advance_booking_days = EXCLUDED.advance_booking_days,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&cfg.ID, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("%w: Upsert - execute insert: %v", ErrExecQuery, err)
	}

	cfg.CreatedAt = createdAt.Time
	cfg.UpdatedAt = updatedAt.Time

	return cfg, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConfig(row rowScanner) (*domain.ScheduleConfig, error) {
	var cfg domain.ScheduleConfig
	var serviceID sql.NullString
	var createdAt, updatedAt sql.NullTime

	if err := row.Scan(
		&cfg.ID,
		&cfg.InstitutionID,
		&serviceID,
		&cfg.OpenTime,
		&cfg.CloseTime,
		&cfg.SlotDurationMinutes,
		&cfg.SizeFromService,
		&cfg.AdvanceBookingDays,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if serviceID.Valid {
		cfg.ServiceID = &serviceID.String
	}
	cfg.CreatedAt = createdAt.Time
	cfg.UpdatedAt = updatedAt.Time

	return &cfg, nil
}
