package daily

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/fitjournal/internal/activities"
	"github.com/2beens/fitjournal/internal/exercises"
	"github.com/2beens/fitjournal/internal/routines"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type repoMock struct {
	routinesSrc routinesSource

	stats           map[string]*DailyStatistic
	routineEntries  map[string]*RoutineEntry
	snapshots       map[string][]*SnapshotExerciseView
	activityEntries map[string]*ActivityEntry
	exerciseEntries map[string]*ExerciseEntry

	activityDefaults map[string]*activities.Activity
	exerciseDefaults map[string]*exercises.Exercise

	// failure toggles for aggregation degradation tests
	failRoutineEntries  bool
	failSnapshots       bool
	failActivityEntries bool
	failExerciseEntries bool
}

var errMockFailure = errors.New("induced mock failure")

func NewRepoMock(routinesSrc routinesSource) *repoMock {
	return &repoMock{
		routinesSrc:      routinesSrc,
		stats:            make(map[string]*DailyStatistic),
		routineEntries:   make(map[string]*RoutineEntry),
		snapshots:        make(map[string][]*SnapshotExerciseView),
		activityEntries:  make(map[string]*ActivityEntry),
		exerciseEntries:  make(map[string]*ExerciseEntry),
		activityDefaults: make(map[string]*activities.Activity),
		exerciseDefaults: make(map[string]*exercises.Exercise),
	}
}

func (r *repoMock) AddActivity(activity activities.Activity) *activities.Activity {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	r.activityDefaults[activity.ID] = &activity
	return &activity
}

func (r *repoMock) AddExercise(exercise exercises.Exercise) *exercises.Exercise {
	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	r.exerciseDefaults[exercise.ID] = &exercise
	return &exercise
}

func (r *repoMock) GetStatisticByDay(_ context.Context, day time.Time) (*DailyStatistic, error) {
	stat, ok := r.stats[day.Format(DayFormat)]
	if !ok {
		return nil, ErrDayNotFound
	}
	return stat, nil
}

func (r *repoMock) UpsertStatistic(_ context.Context, stat DailyStatistic) (*DailyStatistic, error) {
	key := stat.Day.Format(DayFormat)
	if existing, ok := r.stats[key]; ok {
		stat.ID = existing.ID
		stat.CreatedAt = existing.CreatedAt
	} else {
		stat.ID = uuid.NewString()
		stat.CreatedAt = time.Now()
	}
	r.stats[key] = &stat
	return &stat, nil
}

func (r *repoMock) ensureStatistic(day time.Time) *DailyStatistic {
	key := day.Format(DayFormat)
	if existing, ok := r.stats[key]; ok {
		return existing
	}
	stat := &DailyStatistic{
		ID:        uuid.NewString(),
		Day:       day,
		CreatedAt: time.Now(),
	}
	r.stats[key] = stat
	return stat
}

func (r *repoMock) LogRoutine(ctx context.Context, day time.Time, routineID string) (*RoutineEntry, error) {
	if _, err := r.routinesSrc.Get(ctx, routineID); err != nil {
		return nil, err
	}
	linked, err := r.routinesSrc.ListExercises(ctx, routineID)
	if err != nil {
		return nil, err
	}

	stat := r.ensureStatistic(day)
	entry := &RoutineEntry{
		ID:               uuid.NewString(),
		DailyStatisticID: stat.ID,
		RoutineID:        routineID,
		CreatedAt:        time.Now(),
	}
	r.routineEntries[entry.ID] = entry

	for _, resolved := range routines.ResolveAll(linked) {
		r.snapshots[entry.ID] = append(r.snapshots[entry.ID], &SnapshotExerciseView{
			SnapshotExercise: SnapshotExercise{
				ID:             uuid.NewString(),
				RoutineEntryID: entry.ID,
				GymExerciseID:  resolved.GymExerciseID,
				OrderIndex:     resolved.OrderIndex,
				Sets:           resolved.Sets,
				Reps:           resolved.Reps,
				Weight:         resolved.Weight,
				Comments:       resolved.Comments,
			},
			Title:    resolved.Title,
			BodyPart: resolved.BodyPart,
		})
	}
	return entry, nil
}

func (r *repoMock) DeleteRoutineEntry(_ context.Context, id string) error {
	if _, ok := r.routineEntries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(r.routineEntries, id)
	delete(r.snapshots, id)
	return nil
}

func (r *repoMock) UpdateSnapshotExercise(_ context.Context, snapshot *SnapshotExercise) error {
	for _, entrySnapshots := range r.snapshots {
		for _, existing := range entrySnapshots {
			if existing.ID == snapshot.ID {
				existing.Sets = snapshot.Sets
				existing.Reps = snapshot.Reps
				existing.Weight = snapshot.Weight
				existing.Comments = snapshot.Comments
				return nil
			}
		}
	}
	return ErrEntryNotFound
}

func (r *repoMock) RoutineEntries(ctx context.Context, statisticID string) ([]RoutineEntryView, error) {
	if r.failRoutineEntries {
		return nil, errMockFailure
	}
	views := make([]RoutineEntryView, 0)
	for _, entry := range r.routineEntries {
		if entry.DailyStatisticID != statisticID {
			continue
		}
		view := RoutineEntryView{RoutineEntry: *entry}
		if routine, err := r.routinesSrc.Get(ctx, entry.RoutineID); err == nil {
			view.RoutineName = routine.Name
		}
		views = append(views, view)
	}
	return views, nil
}

func (r *repoMock) SnapshotExercises(_ context.Context, entryID string) ([]SnapshotExerciseView, error) {
	if r.failSnapshots {
		return nil, errMockFailure
	}
	snapshots := make([]SnapshotExerciseView, 0, len(r.snapshots[entryID]))
	for _, snapshot := range r.snapshots[entryID] {
		snapshots = append(snapshots, *snapshot)
	}
	return snapshots, nil
}

func (r *repoMock) AddActivityEntry(_ context.Context, day time.Time, entry ActivityEntry) (*ActivityEntry, error) {
	activity, ok := r.activityDefaults[entry.ActivityID]
	if !ok {
		return nil, &pgconn.PgError{Code: "23503"}
	}

	stat := r.ensureStatistic(day)
	entry.ID = uuid.NewString()
	entry.DailyStatisticID = stat.ID
	entry.CreatedAt = time.Now()
	if entry.TimeMinutes == nil {
		entry.TimeMinutes = activity.TimeMinutes
	}
	if entry.Calories == nil {
		entry.Calories = activity.Calories
	}
	r.activityEntries[entry.ID] = &entry
	return &entry, nil
}

func (r *repoMock) UpdateActivityEntry(_ context.Context, entry *ActivityEntry) error {
	existing, ok := r.activityEntries[entry.ID]
	if !ok {
		return ErrEntryNotFound
	}
	existing.TimeMinutes = entry.TimeMinutes
	existing.Calories = entry.Calories
	return nil
}

func (r *repoMock) DeleteActivityEntry(_ context.Context, id string) error {
	if _, ok := r.activityEntries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(r.activityEntries, id)
	return nil
}

func (r *repoMock) ActivityEntries(_ context.Context, statisticID string) ([]ActivityEntryView, error) {
	if r.failActivityEntries {
		return nil, errMockFailure
	}
	views := make([]ActivityEntryView, 0)
	for _, entry := range r.activityEntries {
		if entry.DailyStatisticID != statisticID {
			continue
		}
		view := ActivityEntryView{ActivityEntry: *entry}
		if activity, ok := r.activityDefaults[entry.ActivityID]; ok {
			view.ActivityTitle = activity.Title
		}
		views = append(views, view)
	}
	return views, nil
}

func (r *repoMock) AddExerciseEntry(_ context.Context, day time.Time, entry ExerciseEntry) (*ExerciseEntry, error) {
	exercise, ok := r.exerciseDefaults[entry.GymExerciseID]
	if !ok {
		return nil, &pgconn.PgError{Code: "23503"}
	}

	stat := r.ensureStatistic(day)
	entry.ID = uuid.NewString()
	entry.DailyStatisticID = stat.ID
	entry.CreatedAt = time.Now()
	if entry.Sets == nil {
		entry.Sets = exercise.Sets
	}
	if entry.Reps == nil {
		entry.Reps = exercise.Reps
	}
	if entry.Weight == nil {
		entry.Weight = exercise.Weight
	}
	r.exerciseEntries[entry.ID] = &entry
	return &entry, nil
}

func (r *repoMock) UpdateExerciseEntry(_ context.Context, entry *ExerciseEntry) error {
	existing, ok := r.exerciseEntries[entry.ID]
	if !ok {
		return ErrEntryNotFound
	}
	existing.Sets = entry.Sets
	existing.Reps = entry.Reps
	existing.Weight = entry.Weight
	return nil
}

func (r *repoMock) DeleteExerciseEntry(_ context.Context, id string) error {
	if _, ok := r.exerciseEntries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(r.exerciseEntries, id)
	return nil
}

func (r *repoMock) ExerciseEntries(_ context.Context, statisticID string) ([]ExerciseEntryView, error) {
	if r.failExerciseEntries {
		return nil, errMockFailure
	}
	views := make([]ExerciseEntryView, 0)
	for _, entry := range r.exerciseEntries {
		if entry.DailyStatisticID != statisticID {
			continue
		}
		view := ExerciseEntryView{ExerciseEntry: *entry}
		if exercise, ok := r.exerciseDefaults[entry.GymExerciseID]; ok {
			view.ExerciseTitle = exercise.Title
			view.BodyPart = exercise.BodyPart
		}
		views = append(views, view)
	}
	return views, nil
}
