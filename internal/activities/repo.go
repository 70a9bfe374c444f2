package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/fitjournal/internal/pagination"
	"github.com/2beens/fitjournal/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrActivityNotFound = errors.New("activity not found")

type ListParams struct {
	Page  int
	Query string
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, activity Activity) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	activity.ID = uuid.NewString()
	_, err = r.db.Exec(
		ctx,
		`INSERT INTO activity
				(id, title, description, time_minutes, calories, created_at)
				VALUES ($1, $2, $3, $4, $5, $6);`,
		activity.ID, activity.Title, activity.Description,
		activity.TimeMinutes, activity.Calories, activity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("activity.id", activity.ID))
	return &activity, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	var activity Activity
	err = r.db.QueryRow(
		ctx,
		`SELECT id, title, description, time_minutes, calories, created_at FROM activity WHERE id = $1;`,
		id,
	).Scan(
		&activity.ID, &activity.Title, &activity.Description,
		&activity.TimeMinutes, &activity.Calories, &activity.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}

	return &activity, nil
}

func (r *Repo) Update(ctx context.Context, activity *Activity) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", activity.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE activity SET title = $1, description = $2, time_minutes = $3, calories = $4 WHERE id = $5;`,
		activity.Title, activity.Description, activity.TimeMinutes, activity.Calories, activity.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM activity WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// List returns one page of activities, optionally filtered by a
// case-insensitive "contains" match over title and description.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.String("query", params.Query))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, title, description, time_minutes, calories, created_at
			FROM activity
				WHERE ($1::text = '' OR title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
			ORDER BY created_at DESC
			LIMIT $2
			OFFSET $3;`,
		params.Query, pagination.PageSize, params.Page*pagination.PageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return rows2activities(rows)
}

func rows2activities(rows pgx.Rows) ([]Activity, error) {
	activities := make([]Activity, 0)
	for rows.Next() {
		var activity Activity
		if err := rows.Scan(
			&activity.ID, &activity.Title, &activity.Description,
			&activity.TimeMinutes, &activity.Calories, &activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}
	return activities, nil
}
