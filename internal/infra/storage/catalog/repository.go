package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/pkg/dbmetrics"
	"github.com/queueease/booking-service/pkg/psqlbuilder"
)

// Repository читает справочник учреждений и услуг. Справочник только для чтения:
// его ведёт внешний административный процесс.
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория справочника
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// ListInstitutions возвращает учреждения с услугами, отфильтрованные по типу и строке поиска
func (r *Repository) ListInstitutions(ctx context.Context, filter domain.InstitutionFilter) ([]*domain.Institution, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select("id", "name", "type", "address", "image", "manager_ids").
		From("institutions").
		OrderBy("id ASC")

	if filter.Type != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"type": string(*filter.Type)})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		selectBuilder = selectBuilder.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"address": pattern},
		})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListInstitutions - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListInstitutions - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	institutions := make([]*domain.Institution, 0)
	ids := make([]string, 0)
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListInstitutions - scan row: %v", ErrScanRow, err)
		}
		institutions = append(institutions, inst)
		ids = append(ids, inst.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListInstitutions - rows error: %v", ErrScanRow, err)
	}

	if len(ids) == 0 {
		return institutions, nil
	}

	services, err := r.listServices(ctx, squirrel.Eq{"institution_id": ids})
	if err != nil {
		return nil, err
	}

	byInstitution := make(map[string][]*domain.Service, len(ids))
	for _, s := range services {
		byInstitution[s.InstitutionID] = append(byInstitution[s.InstitutionID], s)
	}
	for _, inst := range institutions {
		inst.Services = byInstitution[inst.ID]
		if inst.Services == nil {
			inst.Services = make([]*domain.Service, 0)
		}
	}

	return institutions, nil
}

// GetInstitution получает учреждение с его услугами
func (r *Repository) GetInstitution(ctx context.Context, id string) (*domain.Institution, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "name", "type", "address", "image", "manager_ids").
		From("institutions").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetInstitution - build select query: %v", ErrBuildQuery, err)
	}

	inst, err := scanInstitution(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrInstitutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetInstitution - scan institution: %v", ErrScanRow, err)
	}

	services, err := r.listServices(ctx, squirrel.Eq{"institution_id": id})
	if err != nil {
		return nil, err
	}
	inst.Services = services

	return inst, nil
}

// GetService получает услугу по ID
func (r *Repository) GetService(ctx context.Context, id string) (*domain.Service, error) {
	services, err := r.listServices(ctx, squirrel.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, ErrServiceNotFound
	}
	return services[0], nil
}

// ListServiceIDs возвращает идентификаторы всех услуг
func (r *Repository) ListServiceIDs(ctx context.Context) ([]string, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id").From("services").OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListServiceIDs - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListServiceIDs - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: ListServiceIDs - scan id: %v", ErrScanRow, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListServiceIDs - rows error: %v", ErrScanRow, err)
	}

	return ids, nil
}

func (r *Repository) listServices(ctx context.Context, where squirrel.Sqlizer) ([]*domain.Service, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"institution_id",
		"name",
		"description",
		"estimated_time_minutes",
		"queue_prefix",
	).
		From("services").
		Where(where).
		OrderBy("institution_id ASC", "position ASC", "id ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: listServices - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listServices - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	services := make([]*domain.Service, 0)
	for rows.Next() {
		var s domain.Service
		if err := rows.Scan(
			&s.ID,
			&s.InstitutionID,
			&s.Name,
			&s.Description,
			&s.EstimatedTimeMinutes,
			&s.QueuePrefix,
		); err != nil {
			return nil, fmt.Errorf("%w: listServices - scan row: %v", ErrScanRow, err)
		}
		services = append(services, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listServices - rows error: %v", ErrScanRow, err)
	}

	return services, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstitution(row rowScanner) (*domain.Institution, error) {
	var inst domain.Institution
	var managerIDs pq.StringArray

	if err := row.Scan(
		&inst.ID,
		&inst.Name,
		&inst.Type,
		&inst.Address,
		&inst.Image,
		&managerIDs,
	); err != nil {
		return nil, err
	}

	inst.ManagerIDs = []string(managerIDs)
	return &inst, nil
}
