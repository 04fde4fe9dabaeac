package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

// Repository каталог услуг и специалистов (только чтение).
// Специалист оказывает услугу, если есть связь в specialist_services
// и его пользователь имеет роль specialist.
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр каталога
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetService получает услугу по ID (включая неактивные)
func (r *Repository) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "name", "duration_minutes", "price", "is_active").
		From("services").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetService - build select query: %v", ErrBuildQuery, err)
	}

	var s domain.Service
	var price sql.NullFloat64
	err = executor.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.Name, &s.DurationMinutes, &price, &s.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetService - scan service: %v", ErrScanRow, err)
	}
	s.Price = price.Float64

	return &s, nil
}

// SpecialistProvides оказывает ли специалист услугу
func (r *Repository) SpecialistProvides(ctx context.Context, specialistID, serviceID int64) (bool, error) {
	query, args, err := psqlbuilder.Select("1").
		Prefix("SELECT EXISTS (").
		From("specialist_services ss").
		Join("specialists sp ON sp.id = ss.specialist_id").
		Join("users u ON u.id = sp.user_id").
		Where(squirrel.Eq{
			"ss.specialist_id": specialistID,
			"ss.service_id":    serviceID,
			"u.role":           string(domain.RoleSpecialist),
		}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: SpecialistProvides - build select query: %v", ErrBuildQuery, err)
	}

	return r.exists(ctx, "SpecialistProvides", query, args)
}

// AnySpecialistProvides оказывает ли услугу хотя бы один специалист
func (r *Repository) AnySpecialistProvides(ctx context.Context, serviceID int64) (bool, error) {
	query, args, err := psqlbuilder.Select("1").
		Prefix("SELECT EXISTS (").
		From("specialist_services ss").
		Join("specialists sp ON sp.id = ss.specialist_id").
		Join("users u ON u.id = sp.user_id").
		Where(squirrel.Eq{
			"ss.service_id": serviceID,
			"u.role":        string(domain.RoleSpecialist),
		}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: AnySpecialistProvides - build select query: %v", ErrBuildQuery, err)
	}

	return r.exists(ctx, "AnySpecialistProvides", query, args)
}

// ListSpecialistsFor ID специалистов, оказывающих услугу, по возрастанию
func (r *Repository) ListSpecialistsFor(ctx context.Context, serviceID int64) ([]int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("DISTINCT ss.specialist_id").
		From("specialist_services ss").
		Join("specialists sp ON sp.id = ss.specialist_id").
		Join("users u ON u.id = sp.user_id").
		Where(squirrel.Eq{
			"ss.service_id": serviceID,
			"u.role":        string(domain.RoleSpecialist),
		}).
		OrderBy("ss.specialist_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListSpecialistsFor - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListSpecialistsFor - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: ListSpecialistsFor - scan specialist_id: %v", ErrScanRow, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListSpecialistsFor - rows error: %v", ErrScanRow, err)
	}

	return ids, nil
}

// SpecialistIDByUserID профиль специалиста для пользователя
func (r *Repository) SpecialistIDByUserID(ctx context.Context, userID int64) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id").
		From("specialists").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: SpecialistIDByUserID - build select query: %v", ErrBuildQuery, err)
	}

	var id int64
	err = executor.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrSpecialistNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: SpecialistIDByUserID - scan id: %v", ErrScanRow, err)
	}

	return id, nil
}

// LockSpecialist блокирует строку специалиста до конца транзакции.
// Создания записей к одному специалисту выполняются по очереди.
func (r *Repository) LockSpecialist(ctx context.Context, specialistID int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id").
		From("specialists").
		Where(squirrel.Eq{"id": specialistID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: LockSpecialist - build select query: %v", ErrBuildQuery, err)
	}

	var id int64
	err = executor.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrSpecialistNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: LockSpecialist - execute query: %v", ErrExecQuery, err)
	}

	return nil
}

func (r *Repository) exists(ctx context.Context, op, query string, args []interface{}) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	var ok bool
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("%w: %s - scan exists: %v", ErrScanRow, op, err)
	}

	return ok, nil
}
