package exercises

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

var ErrExerciseNotFound = errors.New("exercise not found")

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

func (r *Repo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercise.ID = uuid.NewString()
	_, err = r.db.Exec(
		ctx,
		`INSERT INTO gym_exercise
				(id, title, description, comments, body_part, sets, reps, weight, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
		exercise.ID, exercise.Title, exercise.Description, exercise.Comments,
		exercise.BodyPart, exercise.Sets, exercise.Reps, exercise.Weight, exercise.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("exercise.id", exercise.ID))
	return &exercise, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	var exercise Exercise
	err = r.db.QueryRow(
		ctx,
		`SELECT id, title, description, comments, body_part, sets, reps, weight, created_at
			FROM gym_exercise WHERE id = $1;`,
		id,
	).Scan(
		&exercise.ID, &exercise.Title, &exercise.Description, &exercise.Comments,
		&exercise.BodyPart, &exercise.Sets, &exercise.Reps, &exercise.Weight, &exercise.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	return &exercise, nil
}

func (r *Repo) Update(ctx context.Context, exercise *Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", exercise.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE gym_exercise
			SET title = $1, description = $2, comments = $3, body_part = $4,
				sets = $5, reps = $6, weight = $7
			WHERE id = $8;`,
		exercise.Title, exercise.Description, exercise.Comments, exercise.BodyPart,
		exercise.Sets, exercise.Reps, exercise.Weight, exercise.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM gym_exercise WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

// List returns one page of exercises, optionally filtered by a
// case-insensitive "contains" match over title, description and body part.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.String("query", params.Query))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, title, description, comments, body_part, sets, reps, weight, created_at
			FROM gym_exercise
				WHERE (
					$1::text = ''
					OR title ILIKE '%' || $1 || '%'
					OR description ILIKE '%' || $1 || '%'
					OR body_part ILIKE '%' || $1 || '%'
				)
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

	return rows2exercises(rows)
}

func rows2exercises(rows pgx.Rows) ([]Exercise, error) {
	exercises := make([]Exercise, 0)
	for rows.Next() {
		var exercise Exercise
		if err := rows.Scan(
			&exercise.ID, &exercise.Title, &exercise.Description, &exercise.Comments,
			&exercise.BodyPart, &exercise.Sets, &exercise.Reps, &exercise.Weight, &exercise.CreatedAt,
		); err != nil {
			return nil, err
		}
		exercises = append(exercises, exercise)
	}
	return exercises, nil
}
