package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/pkg/dbmetrics"
	"github.com/queueease/booking-service/pkg/psqlbuilder"
)

const uniqueViolation = "23505"

var appointmentColumns = []string{
	"id",
	"user_id",
	"institution_id",
	"service_id",
	"appointment_date",
	"start_time",
	"end_time",
	"status",
	"queue_number",
	"queue_seq",
	"service_name",
	"institution_name",
	"contact_name",
	"contact_phone",
	"notes",
	"cancellation_reason",
	"cancelled_at",
	"completed_at",
	"service_minutes",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с записями на приём
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория записей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новую запись.
// Частичный уникальный индекс (service_id, appointment_date, start_time) по неотменённым
// записям превращает гонку двух бронирований в ErrSlotNotAvailable.
func (r *Repository) Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("appointments").
		Columns(
			"id",
			"user_id",
			"institution_id",
			"service_id",
			"appointment_date",
			"start_time",
			"end_time",
			"status",
			"queue_number",
			"queue_seq",
			"service_name",
			"institution_name",
			"contact_name",
			"contact_phone",
			"notes",
		).
		Values(
			a.ID,
			a.UserID,
			a.InstitutionID,
			a.ServiceID,
			a.Date.Format(domain.DateFormat),
			a.StartTime,
			a.EndTime,
			a.Status,
			a.QueueNumber,
			a.QueueSeq,
			a.ServiceName,
			a.InstitutionName,
			a.ContactName,
			a.ContactPhone,
			a.Notes,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&createdAt, &updatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: Create - %s", ErrSlotNotAvailable, pqErr.Constraint)
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return a, nil
}

// GetByID получает запись по ID
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	a, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan appointment: %v", ErrScanRow, err)
	}

	return a, nil
}

// GetByUserID получает все записи пользователя, новые первыми
func (r *Repository) GetByUserID(ctx context.Context, userID string) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("appointment_date DESC", "start_time DESC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// GetWithFilter получает записи с фильтрацией по учреждению, услуге, периоду и статусу.
// Для выборки за один день внутри транзакции добавляется FOR UPDATE: записи дня
// остаются заблокированными до конца бронирования.
func (r *Repository) GetWithFilter(ctx context.Context, filter domain.AppointmentsFilter) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).From("appointments")

	if filter.InstitutionID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"institution_id": *filter.InstitutionID})
	}
	if filter.ServiceID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"service_id": *filter.ServiceID})
	}
	if filter.StartDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"appointment_date": filter.StartDate.Format(domain.DateFormat)})
	}
	if filter.EndDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"appointment_date": filter.EndDate.Format(domain.DateFormat)})
	}

	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": string(*filter.Status)})
	} else if !filter.IncludeInactive {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"status": statusStrings(domain.InactiveStatuses)})
	}

	if filter.IsSingleDay() {
		// Порядок очереди: время слота, затем номер талона
		selectBuilder = selectBuilder.OrderBy("start_time ASC", "queue_seq ASC")
		if dbmetrics.IsInTransaction(ctx) {
			selectBuilder = selectBuilder.Suffix("FOR UPDATE")
		}
	} else {
		selectBuilder = selectBuilder.OrderBy("appointment_date DESC", "start_time DESC")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// NextQueueSeq выдаёт следующий номер талона услуги на дату.
// Счётчик монотонный; внутри транзакции бронирования строка счётчика блокируется до коммита.
func (r *Repository) NextQueueSeq(ctx context.Context, serviceID string, date time.Time) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("queue_counters").
		Columns("service_id", "counter_date", "last_value").
		Values(serviceID, date.Format(domain.DateFormat), 1).
		Suffix("ON CONFLICT (service_id, counter_date) DO UPDATE SET last_value = queue_counters.last_value + 1 RETURNING last_value").
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: NextQueueSeq - build upsert query: %v", ErrBuildQuery, err)
	}

	var seq int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&seq); err != nil {
		return 0, fmt.Errorf("%w: NextQueueSeq - execute upsert: %w", ErrExecQuery, err)
	}

	return seq, nil
}

// Cancel переводит запись в cancelled из pending/confirmed
func (r *Repository) Cancel(ctx context.Context, id string, reason *string, at time.Time) (*domain.Appointment, error) {
	return r.transition(ctx, "Cancel", id, domain.StatusCancelled, map[string]interface{}{
		"cancellation_reason": reason,
		"cancelled_at":        at,
	})
}

// Complete переводит запись в completed из confirmed, фиксируя фактическую длительность обслуживания
func (r *Repository) Complete(ctx context.Context, id string, serviceMinutes *int, at time.Time) (*domain.Appointment, error) {
	return r.transition(ctx, "Complete", id, domain.StatusCompleted, map[string]interface{}{
		"service_minutes": serviceMinutes,
		"completed_at":    at,
	})
}

// Confirm переводит запись из pending в confirmed
func (r *Repository) Confirm(ctx context.Context, id string) (*domain.Appointment, error) {
	return r.transition(ctx, "Confirm", id, domain.StatusConfirmed, nil)
}

// transition выполняет условный UPDATE ... WHERE status IN (допустимые источники).
// Если ни одна строка не обновлена, различает отсутствие записи и недопустимый переход.
func (r *Repository) transition(
	ctx context.Context,
	op string,
	id string,
	to domain.AppointmentStatus,
	extra map[string]interface{},
) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	updateBuilder := psqlbuilder.Update("appointments").
		Set("status", string(to)).
		Set("updated_at", squirrel.Expr("NOW()"))
	if len(extra) > 0 {
		updateBuilder = updateBuilder.SetMap(extra)
	}

	query, args, err := updateBuilder.
		Where(squirrel.Eq{"id": id, "status": statusStrings(domain.SourcesFor(to))}).
		Suffix("RETURNING " + strings.Join(appointmentColumns, ", ")).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: %s - build update query: %v", ErrBuildQuery, op, err)
	}

	a, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if err == nil {
		return a, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("%w: %s - %s -> %s", ErrInvalidTransition, op, current.Status, to)
}

// RecentServiceMinutes возвращает фактические длительности последних limit завершённых записей услуги
func (r *Repository) RecentServiceMinutes(ctx context.Context, serviceID string, limit int) ([]int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("service_minutes").
		From("appointments").
		Where(squirrel.Eq{"service_id": serviceID, "status": string(domain.StatusCompleted)}).
		Where(squirrel.NotEq{"service_minutes": nil}).
		OrderBy("completed_at DESC").
		Limit(uint64(limit)).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: RecentServiceMinutes - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: RecentServiceMinutes - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	minutes := make([]int, 0, limit)
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("%w: RecentServiceMinutes - scan service_minutes: %v", ErrScanRow, err)
		}
		minutes = append(minutes, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: RecentServiceMinutes - rows error: %v", ErrScanRow, err)
	}

	return minutes, nil
}

// LastCompletedAt возвращает время последнего завершения по услуге за дату, nil если завершений не было
func (r *Repository) LastCompletedAt(ctx context.Context, serviceID string, date time.Time) (*time.Time, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("MAX(completed_at)").
		From("appointments").
		Where(squirrel.Eq{
			"service_id":       serviceID,
			"appointment_date": date.Format(domain.DateFormat),
			"status":           string(domain.StatusCompleted),
		}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: LastCompletedAt - build select query: %v", ErrBuildQuery, err)
	}

	var last sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return nil, fmt.Errorf("%w: LastCompletedAt - scan: %v", ErrScanRow, err)
	}

	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

// CountByDay считает неотменённые записи учреждения по дням периода
func (r *Repository) CountByDay(ctx context.Context, institutionID string, from, to time.Time) ([]domain.DailyBookings, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("appointment_date", "COUNT(*)").
		From("appointments").
		Where(squirrel.Eq{"institution_id": institutionID}).
		Where(squirrel.NotEq{"status": statusStrings(domain.InactiveStatuses)}).
		Where(squirrel.GtOrEq{"appointment_date": from.Format(domain.DateFormat)}).
		Where(squirrel.LtOrEq{"appointment_date": to.Format(domain.DateFormat)}).
		GroupBy("appointment_date").
		OrderBy("appointment_date ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: CountByDay - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: CountByDay - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	daily := make([]domain.DailyBookings, 0)
	for rows.Next() {
		var d domain.DailyBookings
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, fmt.Errorf("%w: CountByDay - scan row: %v", ErrScanRow, err)
		}
		daily = append(daily, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: CountByDay - rows error: %v", ErrScanRow, err)
	}

	return daily, nil
}

// CountByStatus считает записи учреждения по статусам за период
func (r *Repository) CountByStatus(ctx context.Context, institutionID string, from, to time.Time) (map[domain.AppointmentStatus]int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("status", "COUNT(*)").
		From("appointments").
		Where(squirrel.Eq{"institution_id": institutionID}).
		Where(squirrel.GtOrEq{"appointment_date": from.Format(domain.DateFormat)}).
		Where(squirrel.LtOrEq{"appointment_date": to.Format(domain.DateFormat)}).
		GroupBy("status").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: CountByStatus - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: CountByStatus - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	counts := make(map[domain.AppointmentStatus]int)
	for rows.Next() {
		var status domain.AppointmentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("%w: CountByStatus - scan row: %v", ErrScanRow, err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: CountByStatus - rows error: %v", ErrScanRow, err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var a domain.Appointment
	var (
		contactName, contactPhone, notes, reason sql.NullString
		cancelledAt, completedAt                 sql.NullTime
		serviceMinutes                           sql.NullInt64
		createdAt, updatedAt                     sql.NullTime
	)

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.InstitutionID,
		&a.ServiceID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.QueueNumber,
		&a.QueueSeq,
		&a.ServiceName,
		&a.InstitutionName,
		&contactName,
		&contactPhone,
		&notes,
		&reason,
		&cancelledAt,
		&completedAt,
		&serviceMinutes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ContactName = nullString(contactName)
	a.ContactPhone = nullString(contactPhone)
	a.Notes = nullString(notes)
	a.CancellationReason = nullString(reason)
	a.CancelledAt = nullTime(cancelledAt)
	a.CompletedAt = nullTime(completedAt)
	if serviceMinutes.Valid {
		m := int(serviceMinutes.Int64)
		a.ServiceMinutes = &m
	}
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}

// scanAppointments сканирует результаты запроса в слайс записей
func scanAppointments(rows *sql.Rows) ([]*domain.Appointment, error) {
	appointments := make([]*domain.Appointment, 0)

	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanAppointments - scan row: %w", ErrScanRow, err)
		}
		appointments = append(appointments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanAppointments - rows error: %w", ErrScanRow, err)
	}

	return appointments, nil
}

func statusStrings(statuses []domain.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
