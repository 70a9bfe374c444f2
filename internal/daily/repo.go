package daily

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fitjournal/internal/routines"
	"github.com/2beens/fitjournal/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrDayNotFound means the day has no statistic row at all. A day
	// that was never logged is not the same as a day with empty lists.
	ErrDayNotFound   = errors.New("day not found")
	ErrEntryNotFound = errors.New("entry not found")
)

// routinesSource is the slice of the routines repo the daily repo needs
// for snapshot seeding.
type routinesSource interface {
	Get(ctx context.Context, id string) (*routines.Routine, error)
	ListExercises(ctx context.Context, routineID string) ([]routines.LinkedExercise, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct {
	db       *pgxpool.Pool
	routines routinesSource
}

func NewRepo(db *pgxpool.Pool, routinesRepo routinesSource) *Repo {
	return &Repo{
		db:       db,
		routines: routinesRepo,
	}
}

func (r *Repo) GetStatisticByDay(ctx context.Context, day time.Time) (_ *DailyStatistic, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.getStatisticByDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", day.Format(DayFormat)))

	var stat DailyStatistic
	err = r.db.QueryRow(
		ctx,
		`SELECT id, day, calories_ingested, proteins, carbs, fat, steps, created_at
			FROM daily_statistic WHERE day = $1;`,
		day,
	).Scan(
		&stat.ID, &stat.Day, &stat.CaloriesIngested, &stat.Proteins,
		&stat.Carbs, &stat.Fat, &stat.Steps, &stat.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDayNotFound
		}
		return nil, err
	}
	return &stat, nil
}

// UpsertStatistic creates the day's statistic if absent, otherwise
// replaces the nutrition fields.
func (r *Repo) UpsertStatistic(ctx context.Context, stat DailyStatistic) (_ *DailyStatistic, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.upsertStatistic")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", stat.Day.Format(DayFormat)))

	stat.ID = uuid.NewString()
	stat.CreatedAt = time.Now()
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO daily_statistic
				(id, day, calories_ingested, proteins, carbs, fat, steps, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (day) DO UPDATE SET
				calories_ingested = EXCLUDED.calories_ingested,
				proteins = EXCLUDED.proteins,
				carbs = EXCLUDED.carbs,
				fat = EXCLUDED.fat,
				steps = EXCLUDED.steps
			RETURNING id, day, created_at;`,
		stat.ID, stat.Day, stat.CaloriesIngested, stat.Proteins,
		stat.Carbs, stat.Fat, stat.Steps, stat.CreatedAt,
	).Scan(&stat.ID, &stat.Day, &stat.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// ensureStatistic returns the day's statistic ID, creating an empty
// statistic row when the day was never logged before.
func ensureStatistic(ctx context.Context, q querier, day time.Time) (string, error) {
	if _, err := q.Exec(
		ctx,
		`INSERT INTO daily_statistic (id, day, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (day) DO NOTHING;`,
		uuid.NewString(), day, time.Now(),
	); err != nil {
		return "", fmt.Errorf("ensure statistic: %w", err)
	}

	var id string
	if err := q.QueryRow(
		ctx,
		`SELECT id FROM daily_statistic WHERE day = $1;`,
		day,
	).Scan(&id); err != nil {
		return "", fmt.Errorf("get statistic id: %w", err)
	}
	return id, nil
}

// LogRoutine records that the routine was done on the given day. The
// routine's exercises are resolved against the current overrides and
// defaults, and the result is frozen as the entry's snapshot.
func (r *Repo) LogRoutine(ctx context.Context, day time.Time, routineID string) (_ *RoutineEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.logRoutine")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", day.Format(DayFormat)))
	span.SetAttributes(attribute.String("routine.id", routineID))

	if _, err := r.routines.Get(ctx, routineID); err != nil {
		return nil, err
	}
	linked, err := r.routines.ListExercises(ctx, routineID)
	if err != nil {
		return nil, fmt.Errorf("list routine exercises: %w", err)
	}
	resolved := routines.ResolveAll(linked)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
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

	statID, err := ensureStatistic(ctx, tx, day)
	if err != nil {
		return nil, err
	}

	entry := RoutineEntry{
		ID:               uuid.NewString(),
		DailyStatisticID: statID,
		RoutineID:        routineID,
		CreatedAt:        time.Now(),
	}
	if _, err = tx.Exec(
		ctx,
		`INSERT INTO daily_routine_entry
				(id, daily_statistic_id, routine_id, created_at)
				VALUES ($1, $2, $3, $4);`,
		entry.ID, entry.DailyStatisticID, entry.RoutineID, entry.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert routine entry: %w", err)
	}

	batch := &pgx.Batch{}
	for _, re := range resolved {
		batch.Queue(
			`INSERT INTO daily_routine_entry_exercise
					(id, daily_routine_entry_id, gym_exercise_id, order_index, sets, reps, weight, comments)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
			uuid.NewString(), entry.ID, re.GymExerciseID, re.OrderIndex,
			re.Sets, re.Reps, re.Weight, re.Comments,
		)
	}
	batchResults := tx.SendBatch(ctx, batch)
	for range resolved {
		if _, err = batchResults.Exec(); err != nil {
			batchResults.Close()
			return nil, fmt.Errorf("seed snapshot: %w", err)
		}
	}
	if err = batchResults.Close(); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *Repo) DeleteRoutineEntry(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.deleteRoutineEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	// snapshot rows go away via ON DELETE CASCADE
	tag, err := r.db.Exec(ctx, `DELETE FROM daily_routine_entry WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// UpdateSnapshotExercise corrects one snapshot row, e.g. when the
// actual workout deviated from the plan. This is the only write path
// into a snapshot after seeding.
func (r *Repo) UpdateSnapshotExercise(ctx context.Context, snapshot *SnapshotExercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.updateSnapshotExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", snapshot.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE daily_routine_entry_exercise
			SET sets = $1, reps = $2, weight = $3, comments = $4
			WHERE id = $5;`,
		snapshot.Sets, snapshot.Reps, snapshot.Weight, snapshot.Comments, snapshot.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// RoutineEntries lists the day's logged routines joined with the
// routine names, without their snapshot exercises.
func (r *Repo) RoutineEntries(ctx context.Context, statisticID string) (_ []RoutineEntryView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.routineEntries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("statistic.id", statisticID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT dre.id, dre.daily_statistic_id, dre.routine_id, dre.created_at, r.name
			FROM daily_routine_entry dre
			JOIN routine r ON r.id = dre.routine_id
			WHERE dre.daily_statistic_id = $1
			ORDER BY dre.created_at ASC;`,
		statisticID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	entries := make([]RoutineEntryView, 0)
	for rows.Next() {
		var entry RoutineEntryView
		if err := rows.Scan(
			&entry.ID, &entry.DailyStatisticID, &entry.RoutineID, &entry.CreatedAt, &entry.RoutineName,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SnapshotExercises lists a routine entry's snapshot joined with the
// exercise display fields.
func (r *Repo) SnapshotExercises(ctx context.Context, entryID string) (_ []SnapshotExerciseView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.snapshotExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", entryID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				dree.id, dree.daily_routine_entry_id, dree.gym_exercise_id, dree.order_index,
				dree.sets, dree.reps, dree.weight, dree.comments,
				ge.title, ge.body_part
			FROM daily_routine_entry_exercise dree
			JOIN gym_exercise ge ON ge.id = dree.gym_exercise_id
			WHERE dree.daily_routine_entry_id = $1;`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	snapshots := make([]SnapshotExerciseView, 0)
	for rows.Next() {
		var snapshot SnapshotExerciseView
		if err := rows.Scan(
			&snapshot.ID, &snapshot.RoutineEntryID, &snapshot.GymExerciseID, &snapshot.OrderIndex,
			&snapshot.Sets, &snapshot.Reps, &snapshot.Weight, &snapshot.Comments,
			&snapshot.Title, &snapshot.BodyPart,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// AddActivityEntry logs an ad-hoc activity on the given day. Metrics
// left absent in the request default to the activity's own values.
func (r *Repo) AddActivityEntry(ctx context.Context, day time.Time, entry ActivityEntry) (_ *ActivityEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.addActivityEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", day.Format(DayFormat)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
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

	entry.DailyStatisticID, err = ensureStatistic(ctx, tx, day)
	if err != nil {
		return nil, err
	}

	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	err = tx.QueryRow(
		ctx,
		`INSERT INTO daily_activity_entry
				(id, daily_statistic_id, activity_id, time_minutes, calories, created_at)
				VALUES (
					$1, $2, $3,
					COALESCE($4, (SELECT time_minutes FROM activity WHERE id = $3)),
					COALESCE($5, (SELECT calories FROM activity WHERE id = $3)),
					$6
				)
				RETURNING time_minutes, calories;`,
		entry.ID, entry.DailyStatisticID, entry.ActivityID,
		entry.TimeMinutes, entry.Calories, entry.CreatedAt,
	).Scan(&entry.TimeMinutes, &entry.Calories)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *Repo) UpdateActivityEntry(ctx context.Context, entry *ActivityEntry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.updateActivityEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", entry.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE daily_activity_entry SET time_minutes = $1, calories = $2 WHERE id = $3;`,
		entry.TimeMinutes, entry.Calories, entry.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) DeleteActivityEntry(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.deleteActivityEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM daily_activity_entry WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) ActivityEntries(ctx context.Context, statisticID string) (_ []ActivityEntryView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.activityEntries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("statistic.id", statisticID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT dae.id, dae.daily_statistic_id, dae.activity_id,
				dae.time_minutes, dae.calories, dae.created_at, a.title
			FROM daily_activity_entry dae
			JOIN activity a ON a.id = dae.activity_id
			WHERE dae.daily_statistic_id = $1
			ORDER BY dae.created_at ASC;`,
		statisticID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	entries := make([]ActivityEntryView, 0)
	for rows.Next() {
		var entry ActivityEntryView
		if err := rows.Scan(
			&entry.ID, &entry.DailyStatisticID, &entry.ActivityID,
			&entry.TimeMinutes, &entry.Calories, &entry.CreatedAt, &entry.ActivityTitle,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AddExerciseEntry logs an ad-hoc gym exercise on the given day, outside
// any routine. Absent metrics default to the exercise's own values.
func (r *Repo) AddExerciseEntry(ctx context.Context, day time.Time, entry ExerciseEntry) (_ *ExerciseEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.addExerciseEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", day.Format(DayFormat)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
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

	entry.DailyStatisticID, err = ensureStatistic(ctx, tx, day)
	if err != nil {
		return nil, err
	}

	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	err = tx.QueryRow(
		ctx,
		`INSERT INTO daily_gym_exercise_entry
				(id, daily_statistic_id, gym_exercise_id, sets, reps, weight, created_at)
				VALUES (
					$1, $2, $3,
					COALESCE($4, (SELECT sets FROM gym_exercise WHERE id = $3)),
					COALESCE($5, (SELECT reps FROM gym_exercise WHERE id = $3)),
					COALESCE($6, (SELECT weight FROM gym_exercise WHERE id = $3)),
					$7
				)
				RETURNING sets, reps, weight;`,
		entry.ID, entry.DailyStatisticID, entry.GymExerciseID,
		entry.Sets, entry.Reps, entry.Weight, entry.CreatedAt,
	).Scan(&entry.Sets, &entry.Reps, &entry.Weight)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *Repo) UpdateExerciseEntry(ctx context.Context, entry *ExerciseEntry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.updateExerciseEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", entry.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE daily_gym_exercise_entry SET sets = $1, reps = $2, weight = $3 WHERE id = $4;`,
		entry.Sets, entry.Reps, entry.Weight, entry.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) DeleteExerciseEntry(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.deleteExerciseEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM daily_gym_exercise_entry WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) ExerciseEntries(ctx context.Context, statisticID string) (_ []ExerciseEntryView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.daily.exerciseEntries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("statistic.id", statisticID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT dgee.id, dgee.daily_statistic_id, dgee.gym_exercise_id,
				dgee.sets, dgee.reps, dgee.weight, dgee.created_at,
				ge.title, ge.body_part
			FROM daily_gym_exercise_entry dgee
			JOIN gym_exercise ge ON ge.id = dgee.gym_exercise_id
			WHERE dgee.daily_statistic_id = $1
			ORDER BY dgee.created_at ASC;`,
		statisticID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	entries := make([]ExerciseEntryView, 0)
	for rows.Next() {
		var entry ExerciseEntryView
		if err := rows.Scan(
			&entry.ID, &entry.DailyStatisticID, &entry.GymExerciseID,
			&entry.Sets, &entry.Reps, &entry.Weight, &entry.CreatedAt,
			&entry.ExerciseTitle, &entry.BodyPart,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
