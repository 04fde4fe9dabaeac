package outbox

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
	"github.com/m04kA/SMC-AppointmentService/pkg/tracing"
)

// Repository таблица outbox_events. Insert вызывается в транзакции
// бизнес-операции, выборка и отметка публикации в транзакции релея.
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория outbox
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Insert сохраняет событие вместе с текущим контекстом трассировки
func (r *Repository) Insert(ctx context.Context, evt Event) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	carrier := tracing.InjectMap(ctx)

	query, args, err := psqlbuilder.Insert("outbox_events").
		Columns("event_id", "aggregate_type", "aggregate_id", "event_type", "payload", "traceparent", "tracestate").
		Values(evt.EventID, evt.AggregateType, evt.AggregateID, evt.EventType, string(evt.Payload),
			carrier["traceparent"], carrier["tracestate"]).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Insert - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Insert - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// FetchUnpublished неопубликованные события по порядку.
// Строки, захваченные другим релеем, пропускаются (SKIP LOCKED).
func (r *Repository) FetchUnpublished(ctx context.Context, limit int) ([]Record, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id", "event_id", "aggregate_type", "aggregate_id", "event_type",
		"payload", "traceparent", "tracestate", "created_at",
	).
		From("outbox_events").
		Where(squirrel.Eq{"published_at": nil}).
		OrderBy("id").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FetchUnpublished - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FetchUnpublished - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AggregateType, &rcd.AggregateID, &rcd.EventType,
			&rcd.Payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: FetchUnpublished - scan row: %v", ErrScanRow, err)
		}
		records = append(records, rcd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: FetchUnpublished - rows error: %v", ErrScanRow, err)
	}

	return records, nil
}

// MarkPublished проставляет published_at
func (r *Repository) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("outbox_events").
		Set("published_at", squirrel.Expr("NOW()")).
		Where("id = ANY(?)", pq.Array(ids)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: MarkPublished - build update query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: MarkPublished - execute update: %v", ErrExecQuery, err)
	}

	return nil
}
