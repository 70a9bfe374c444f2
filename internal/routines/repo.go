package routines

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

var (
	ErrRoutineNotFound         = errors.New("routine not found")
	ErrRoutineExerciseNotFound = errors.New("routine exercise not found")
	// ErrOrderMismatch is returned by Reorder when the submitted IDs do
	// not exactly match the routine's current exercise links.
	ErrOrderMismatch = errors.New("submitted order does not match routine exercises")
)

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

func (r *Repo) Add(ctx context.Context, routine Routine) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	routine.ID = uuid.NewString()
	_, err = r.db.Exec(
		ctx,
		`INSERT INTO routine
				(id, name, description, created_at)
				VALUES ($1, $2, $3, $4);`,
		routine.ID, routine.Name, routine.Description, routine.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("routine.id", routine.ID))
	return &routine, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	var routine Routine
	err = r.db.QueryRow(
		ctx,
		`SELECT id, name, description, created_at FROM routine WHERE id = $1;`,
		id,
	).Scan(&routine.ID, &routine.Name, &routine.Description, &routine.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}

	return &routine, nil
}

func (r *Repo) Update(ctx context.Context, routine *Routine) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", routine.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE routine SET name = $1, description = $2 WHERE id = $3;`,
		routine.Name, routine.Description, routine.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoutineNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	// routine_exercise rows go away via ON DELETE CASCADE
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM routine WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoutineNotFound
	}
	return nil
}

// List returns one page of routines, optionally filtered by a
// case-insensitive "contains" match over name and description.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.String("query", params.Query))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, name, description, created_at
			FROM routine
				WHERE ($1::text = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
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

	routines := make([]Routine, 0)
	for rows.Next() {
		var routine Routine
		if err := rows.Scan(&routine.ID, &routine.Name, &routine.Description, &routine.CreatedAt); err != nil {
			return nil, err
		}
		routines = append(routines, routine)
	}
	return routines, nil
}

// AddExercise appends a gym exercise to the end of the routine.
func (r *Repo) AddExercise(ctx context.Context, link RoutineExercise) (_ *RoutineExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.addExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", link.RoutineID))

	link.ID = uuid.NewString()
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO routine_exercise
				(id, routine_id, gym_exercise_id, order_index, sets, reps, weight, comments)
				VALUES (
					$1, $2, $3,
					(SELECT COALESCE(MAX(order_index) + 1, 0) FROM routine_exercise WHERE routine_id = $2),
					$4, $5, $6, $7
				)
				RETURNING order_index;`,
		link.ID, link.RoutineID, link.GymExerciseID,
		link.Sets, link.Reps, link.Weight, link.Comments,
	).Scan(&link.OrderIndex)
	if err != nil {
		return nil, err
	}

	return &link, nil
}

// UpdateExercise replaces the overrides of a routine slot.
func (r *Repo) UpdateExercise(ctx context.Context, link *RoutineExercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.updateExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("link.id", link.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE routine_exercise
			SET sets = $1, reps = $2, weight = $3, comments = $4
			WHERE id = $5 AND routine_id = $6;`,
		link.Sets, link.Reps, link.Weight, link.Comments, link.ID, link.RoutineID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoutineExerciseNotFound
	}
	return nil
}

// RemoveExercise deletes a routine slot and closes the gap so that
// order_index stays dense.
func (r *Repo) RemoveExercise(ctx context.Context, routineID, linkID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.removeExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("link.id", linkID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("%w [rollback err: %s]", err, rollbackErr)
			}
			return
		}
		err = tx.Commit(ctx)
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, routineID); err != nil {
		return fmt.Errorf("acquire routine lock: %w", err)
	}

	var removedIndex int
	err = tx.QueryRow(
		ctx,
		`DELETE FROM routine_exercise WHERE id = $1 AND routine_id = $2 RETURNING order_index;`,
		linkID, routineID,
	).Scan(&removedIndex)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRoutineExerciseNotFound
		}
		return err
	}

	_, err = tx.Exec(
		ctx,
		`UPDATE routine_exercise SET order_index = order_index - 1
			WHERE routine_id = $1 AND order_index > $2;`,
		routineID, removedIndex,
	)
	return err
}

// ListExercises returns the routine's slots joined with their gym
// exercises, ordered by order_index ascending.
func (r *Repo) ListExercises(ctx context.Context, routineID string) (_ []LinkedExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.listExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", routineID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				re.id, re.routine_id, re.gym_exercise_id, re.order_index,
				re.sets, re.reps, re.weight, re.comments,
				ge.id, ge.title, ge.description, ge.comments, ge.body_part,
				ge.sets, ge.reps, ge.weight, ge.created_at
			FROM routine_exercise re
			JOIN gym_exercise ge ON ge.id = re.gym_exercise_id
			WHERE re.routine_id = $1
			ORDER BY re.order_index ASC;`,
		routineID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	linked := make([]LinkedExercise, 0)
	for rows.Next() {
		var le LinkedExercise
		if err := rows.Scan(
			&le.Link.ID, &le.Link.RoutineID, &le.Link.GymExerciseID, &le.Link.OrderIndex,
			&le.Link.Sets, &le.Link.Reps, &le.Link.Weight, &le.Link.Comments,
			&le.Base.ID, &le.Base.Title, &le.Base.Description, &le.Base.Comments, &le.Base.BodyPart,
			&le.Base.Sets, &le.Base.Reps, &le.Base.Weight, &le.Base.CreatedAt,
		); err != nil {
			return nil, err
		}
		linked = append(linked, le)
	}
	return linked, nil
}

// Reorder rewrites order_index so that position i in orderedIDs becomes
// index i. The whole operation runs in one transaction under an advisory
// lock on the routine, so concurrent reorders serialize instead of
// interleaving. The submitted IDs must be exactly the routine's current
// link IDs, otherwise ErrOrderMismatch.
func (r *Repo) Reorder(ctx context.Context, routineID string, orderedIDs []string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.reorder")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", routineID))
	span.SetAttributes(attribute.Int("exercises", len(orderedIDs)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("%w [rollback err: %s]", err, rollbackErr)
			}
			return
		}
		err = tx.Commit(ctx)
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, routineID); err != nil {
		return fmt.Errorf("acquire routine lock: %w", err)
	}

	rows, err := tx.Query(
		ctx,
		`SELECT id FROM routine_exercise WHERE routine_id = $1;`,
		routineID,
	)
	if err != nil {
		return fmt.Errorf("query current links: %w", err)
	}
	currentIDs := make(map[string]bool)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		currentIDs[id] = true
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}

	if len(orderedIDs) != len(currentIDs) {
		return ErrOrderMismatch
	}
	for _, id := range orderedIDs {
		if !currentIDs[id] {
			return ErrOrderMismatch
		}
		delete(currentIDs, id)
	}

	batch := &pgx.Batch{}
	for i, id := range orderedIDs {
		batch.Queue(
			`UPDATE routine_exercise SET order_index = $1 WHERE id = $2 AND routine_id = $3;`,
			i, id, routineID,
		)
	}
	batchResults := tx.SendBatch(ctx, batch)
	for range orderedIDs {
		if _, err = batchResults.Exec(); err != nil {
			batchResults.Close()
			return fmt.Errorf("apply new order: %w", err)
		}
	}
	err = batchResults.Close()
	return err
}
