package appointment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

var appointmentColumns = []string{
	"a.id",
	"a.client_id",
	"a.specialist_id",
	"a.service_id",
	"a.start_time",
	"a.duration_minutes",
	"a.status",
	"a.client_notes",
	"a.admin_notes",
	"a.created_at",
	"a.updated_at",
}

var detailsColumns = append(append([]string{}, appointmentColumns...),
	"s.name",
	"s.price",
	"u.first_name",
	"u.last_name",
	"u.email",
	"sp.first_name",
	"sp.last_name",
	"sp.specialization",
)

// Repository репозиторий записей на приём
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория записей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create вставляет запись, end_time вычисляется из start_time и duration_minutes.
// Пересечение с другой занимающей календарь записью того же специалиста
// отклоняется exclusion constraint и возвращается как ErrOverlap.
func (r *Repository) Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("appointments").
		Columns(
			"client_id",
			"specialist_id",
			"service_id",
			"start_time",
			"end_time",
			"duration_minutes",
			"status",
			"client_notes",
			"admin_notes",
		).
		Values(
			a.ClientID,
			a.SpecialistID,
			a.ServiceID,
			a.StartTime,
			a.EndTime(),
			a.DurationMinutes,
			a.Status,
			a.ClientNotes,
			a.AdminNotes,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&a.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, classifyExecError("Create - execute insert", err)
	}

	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return a, nil
}

// GetByID получает запись по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate получает запись по ID и блокирует строку до конца транзакции
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.getByID(ctx, id, dbmetrics.IsInTransaction(ctx))
}

func (r *Repository) getByID(ctx context.Context, id int64, lock bool) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(appointmentColumns...).
		From("appointments a").
		Where(squirrel.Eq{"a.id": id})
	if lock {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
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

// GetDetails получает запись вместе с названием услуги, клиентом и специалистом
func (r *Repository) GetDetails(ctx context.Context, id int64) (*domain.AppointmentDetails, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := detailsSelect().Where(squirrel.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetDetails - build select query: %v", ErrBuildQuery, err)
	}

	d, err := scanDetails(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetDetails - scan appointment: %v", ErrScanRow, err)
	}

	return d, nil
}

// ListByClient записи клиента, сначала новые
func (r *Repository) ListByClient(ctx context.Context, clientID int64) ([]*domain.AppointmentDetails, error) {
	return r.ListFiltered(ctx, domain.AppointmentFilter{ClientID: &clientID})
}

// ListFiltered записи по фильтру, сначала новые.
// DateFrom и DateTo задают начало календарных дней, обе границы включительно.
func (r *Repository) ListFiltered(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.AppointmentDetails, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := detailsSelect()

	if filter.SpecialistID != nil {
		builder = builder.Where(squirrel.Eq{"a.specialist_id": *filter.SpecialistID})
	}
	if filter.ClientID != nil {
		builder = builder.Where(squirrel.Eq{"a.client_id": *filter.ClientID})
	}
	if filter.Status != nil {
		builder = builder.Where(squirrel.Eq{"a.status": *filter.Status})
	}
	if filter.DateFrom != nil {
		builder = builder.Where(squirrel.GtOrEq{"a.start_time": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		builder = builder.Where(squirrel.Lt{"a.start_time": filter.DateTo.AddDate(0, 0, 1)})
	}

	query, args, err := builder.OrderBy("a.start_time DESC", "a.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListFiltered - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListFiltered - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]*domain.AppointmentDetails, 0)
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListFiltered - scan row: %v", ErrScanRow, err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListFiltered - rows error: %v", ErrScanRow, err)
	}

	return result, nil
}

// ListOccupying все записи специалиста с указанными статусами.
// Внутри транзакции строки блокируются (FOR UPDATE).
func (r *Repository) ListOccupying(ctx context.Context, specialistID int64, statuses []domain.AppointmentStatus) ([]*domain.Appointment, error) {
	builder := psqlbuilder.Select(appointmentColumns...).
		From("appointments a").
		Where(squirrel.Eq{"a.specialist_id": specialistID}).
		Where(squirrel.Eq{"a.status": statusStrings(statuses)}).
		OrderBy("a.start_time ASC")

	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	return r.list(ctx, "ListOccupying", builder)
}

// ListBySpecialistAndDay записи специалиста с указанными статусами,
// пересекающие интервал [dayStart, dayEnd)
func (r *Repository) ListBySpecialistAndDay(
	ctx context.Context,
	specialistID int64,
	dayStart, dayEnd time.Time,
	statuses []domain.AppointmentStatus,
) ([]*domain.Appointment, error) {
	builder := psqlbuilder.Select(appointmentColumns...).
		From("appointments a").
		Where(squirrel.Eq{"a.specialist_id": specialistID}).
		Where(squirrel.Eq{"a.status": statusStrings(statuses)}).
		Where(squirrel.Lt{"a.start_time": dayEnd}).
		Where(squirrel.Gt{"a.end_time": dayStart}).
		OrderBy("a.start_time ASC")

	return r.list(ctx, "ListBySpecialistAndDay", builder)
}

// Update применяет изменённые колонки. end_time пересчитывается,
// если меняется время начала или длительность.
func (r *Repository) Update(ctx context.Context, id int64, upd domain.AppointmentUpdate) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Update("appointments").
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})

	if upd.ClientID != nil {
		builder = builder.Set("client_id", *upd.ClientID)
	}
	if upd.SpecialistID != nil {
		builder = builder.Set("specialist_id", *upd.SpecialistID)
	} else if upd.ClearSpecialist {
		builder = builder.Set("specialist_id", nil)
	}
	if upd.ServiceID != nil {
		builder = builder.Set("service_id", *upd.ServiceID)
	}
	if upd.Status != nil {
		builder = builder.Set("status", *upd.Status)
	}
	if upd.ClientNotes != nil {
		builder = builder.Set("client_notes", *upd.ClientNotes)
	}
	if upd.AdminNotes != nil {
		builder = builder.Set("admin_notes", *upd.AdminNotes)
	}

	switch {
	case upd.StartTime != nil && upd.DurationMinutes != nil:
		builder = builder.
			Set("start_time", *upd.StartTime).
			Set("duration_minutes", *upd.DurationMinutes).
			Set("end_time", upd.StartTime.Add(time.Duration(*upd.DurationMinutes)*time.Minute))
	case upd.StartTime != nil:
		builder = builder.
			Set("start_time", *upd.StartTime).
			Set("end_time", squirrel.Expr("?::timestamptz + make_interval(mins => duration_minutes)", *upd.StartTime))
	case upd.DurationMinutes != nil:
		builder = builder.
			Set("duration_minutes", *upd.DurationMinutes).
			Set("end_time", squirrel.Expr("start_time + make_interval(mins => ?)", *upd.DurationMinutes))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: Update - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyExecError("Update - execute update", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Update - get rows affected: %v", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		return ErrAppointmentNotFound
	}

	return nil
}

func (r *Repository) list(ctx context.Context, op string, builder squirrel.SelectBuilder) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyExecError(op+" - execute query", err)
	}
	defer rows.Close()

	result := make([]*domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %s - scan row: %v", ErrScanRow, op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s - rows error: %v", ErrScanRow, op, err)
	}

	return result, nil
}

func detailsSelect() squirrel.SelectBuilder {
	return psqlbuilder.Select(detailsColumns...).
		From("appointments a").
		Join("services s ON s.id = a.service_id").
		LeftJoin("users u ON u.id = a.client_id").
		LeftJoin("specialists sp ON sp.id = a.specialist_id")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAppointment NULL в start_time оставляет нулевое время,
// такие строки отбрасываются проверкой пересечений
func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var a domain.Appointment
	var startTime, createdAt, updatedAt sql.NullTime
	var duration sql.NullInt64

	err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.SpecialistID,
		&a.ServiceID,
		&startTime,
		&duration,
		&a.Status,
		&a.ClientNotes,
		&a.AdminNotes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.StartTime = startTime.Time
	a.DurationMinutes = int(duration.Int64)
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}

func scanDetails(row rowScanner) (*domain.AppointmentDetails, error) {
	var d domain.AppointmentDetails
	var startTime, createdAt, updatedAt sql.NullTime
	var duration sql.NullInt64
	var price sql.NullFloat64

	err := row.Scan(
		&d.ID,
		&d.ClientID,
		&d.SpecialistID,
		&d.ServiceID,
		&startTime,
		&duration,
		&d.Status,
		&d.ClientNotes,
		&d.AdminNotes,
		&createdAt,
		&updatedAt,
		&d.ServiceName,
		&price,
		&d.ClientFirstName,
		&d.ClientLastName,
		&d.ClientEmail,
		&d.SpecialistFirstName,
		&d.SpecialistLastName,
		&d.SpecialistSpecialization,
	)
	if err != nil {
		return nil, err
	}

	d.StartTime = startTime.Time
	d.DurationMinutes = int(duration.Int64)
	d.ServicePrice = price.Float64
	d.CreatedAt = createdAt.Time
	d.UpdatedAt = updatedAt.Time

	return &d, nil
}

func statusStrings(statuses []domain.AppointmentStatus) []string {
	result := make([]string, len(statuses))
	for i, s := range statuses {
		result[i] = string(s)
	}
	return result
}
