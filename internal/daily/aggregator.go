package daily

import (
	"context"
	"sort"
	"time"

	"github.com/2beens/fitjournal/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type dayRepo interface {
	GetStatisticByDay(ctx context.Context, day time.Time) (*DailyStatistic, error)
	RoutineEntries(ctx context.Context, statisticID string) ([]RoutineEntryView, error)
	SnapshotExercises(ctx context.Context, entryID string) ([]SnapshotExerciseView, error)
	ActivityEntries(ctx context.Context, statisticID string) ([]ActivityEntryView, error)
	ExerciseEntries(ctx context.Context, statisticID string) ([]ExerciseEntryView, error)
}

// Aggregator assembles the full view of one day.
type Aggregator struct {
	repo dayRepo
}

func NewAggregator(repo dayRepo) *Aggregator {
	return &Aggregator{
		repo: repo,
	}
}

// Day returns the day's statistic with all its entries. A day without a
// statistic row is ErrDayNotFound. Failed entry lookups degrade to
// empty lists: a day that exists always renders, even partially.
func (a *Aggregator) Day(ctx context.Context, day time.Time) (_ *DayView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "daily.aggregator.day")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", day.Format(DayFormat)))

	stat, err := a.repo.GetStatisticByDay(ctx, day)
	if err != nil {
		return nil, err
	}

	view := &DayView{
		Statistic:  *stat,
		Routines:   make([]RoutineEntryView, 0),
		Activities: make([]ActivityEntryView, 0),
		Exercises:  make([]ExerciseEntryView, 0),
	}

	routineEntries, err := a.repo.RoutineEntries(ctx, stat.ID)
	if err != nil {
		log.Errorf("day %s: get routine entries: %s", day.Format(DayFormat), err)
		routineEntries = []RoutineEntryView{}
	}
	for _, entry := range routineEntries {
		snapshots, err := a.repo.SnapshotExercises(ctx, entry.ID)
		if err != nil {
			log.Errorf("day %s: get snapshot exercises for entry %s: %s", day.Format(DayFormat), entry.ID, err)
			snapshots = []SnapshotExerciseView{}
		}
		sort.SliceStable(snapshots, func(i, j int) bool {
			return snapshots[i].OrderIndex < snapshots[j].OrderIndex
		})
		entry.Exercises = snapshots
		view.Routines = append(view.Routines, entry)
	}

	if activityEntries, err := a.repo.ActivityEntries(ctx, stat.ID); err != nil {
		log.Errorf("day %s: get activity entries: %s", day.Format(DayFormat), err)
	} else {
		view.Activities = activityEntries
	}

	if exerciseEntries, err := a.repo.ExerciseEntries(ctx, stat.ID); err != nil {
		log.Errorf("day %s: get exercise entries: %s", day.Format(DayFormat), err)
	} else {
		view.Exercises = exerciseEntries
	}

	return view, nil
}
