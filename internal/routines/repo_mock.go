package routines

import (
	"context"
	"sort"
	"strings"

	"github.com/2beens/fitjournal/internal/exercises"
	"github.com/2beens/fitjournal/internal/pagination"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type repoMock struct {
	routines      map[string]*Routine
	links         map[string][]*RoutineExercise
	baseExercises map[string]*exercises.Exercise
}

func NewRepoMock() *repoMock {
	return &repoMock{
		routines:      make(map[string]*Routine),
		links:         make(map[string][]*RoutineExercise),
		baseExercises: make(map[string]*exercises.Exercise),
	}
}

// AddBaseExercise registers a gym exercise the mock can join against.
func (r *repoMock) AddBaseExercise(exercise exercises.Exercise) *exercises.Exercise {
	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	r.baseExercises[exercise.ID] = &exercise
	return &exercise
}

func (r *repoMock) Add(_ context.Context, routine Routine) (*Routine, error) {
	routine.ID = uuid.NewString()
	r.routines[routine.ID] = &routine
	return &routine, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Routine, error) {
	routine, ok := r.routines[id]
	if !ok {
		return nil, ErrRoutineNotFound
	}
	return routine, nil
}

func (r *repoMock) Update(ctx context.Context, routine *Routine) error {
	existing, err := r.Get(ctx, routine.ID)
	if err != nil {
		return err
	}
	routine.CreatedAt = existing.CreatedAt
	r.routines[routine.ID] = routine
	return nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	if _, ok := r.routines[id]; !ok {
		return ErrRoutineNotFound
	}
	delete(r.routines, id)
	delete(r.links, id)
	return nil
}

func (r *repoMock) List(_ context.Context, params ListParams) ([]Routine, error) {
	all := make([]Routine, 0)
	query := strings.ToLower(params.Query)
	for _, routine := range r.routines {
		description := ""
		if routine.Description != nil {
			description = *routine.Description
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(routine.Name), query) &&
			!strings.Contains(strings.ToLower(description), query) {
			continue
		}
		all = append(all, *routine)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	from := params.Page * pagination.PageSize
	if from >= len(all) {
		return []Routine{}, nil
	}
	to := from + pagination.PageSize
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], nil
}

func (r *repoMock) AddExercise(_ context.Context, link RoutineExercise) (*RoutineExercise, error) {
	if _, ok := r.baseExercises[link.GymExerciseID]; !ok {
		return nil, &pgconn.PgError{Code: "23503"}
	}
	link.ID = uuid.NewString()
	link.OrderIndex = len(r.links[link.RoutineID])
	r.links[link.RoutineID] = append(r.links[link.RoutineID], &link)
	return &link, nil
}

func (r *repoMock) UpdateExercise(_ context.Context, link *RoutineExercise) error {
	for _, existing := range r.links[link.RoutineID] {
		if existing.ID == link.ID {
			existing.Sets = link.Sets
			existing.Reps = link.Reps
			existing.Weight = link.Weight
			existing.Comments = link.Comments
			return nil
		}
	}
	return ErrRoutineExerciseNotFound
}

func (r *repoMock) RemoveExercise(_ context.Context, routineID, linkID string) error {
	links := r.links[routineID]
	for i, link := range links {
		if link.ID == linkID {
			r.links[routineID] = append(links[:i], links[i+1:]...)
			for j, remaining := range r.links[routineID] {
				remaining.OrderIndex = j
			}
			return nil
		}
	}
	return ErrRoutineExerciseNotFound
}

func (r *repoMock) ListExercises(_ context.Context, routineID string) ([]LinkedExercise, error) {
	links := make([]*RoutineExercise, len(r.links[routineID]))
	copy(links, r.links[routineID])
	sort.Slice(links, func(i, j int) bool {
		return links[i].OrderIndex < links[j].OrderIndex
	})

	linked := make([]LinkedExercise, 0, len(links))
	for _, link := range links {
		base, ok := r.baseExercises[link.GymExerciseID]
		if !ok {
			continue
		}
		linked = append(linked, LinkedExercise{Link: *link, Base: *base})
	}
	return linked, nil
}

func (r *repoMock) Reorder(_ context.Context, routineID string, orderedIDs []string) error {
	links := r.links[routineID]
	byID := make(map[string]*RoutineExercise, len(links))
	for _, link := range links {
		byID[link.ID] = link
	}

	if len(orderedIDs) != len(byID) {
		return ErrOrderMismatch
	}
	for i, id := range orderedIDs {
		link, ok := byID[id]
		if !ok {
			return ErrOrderMismatch
		}
		link.OrderIndex = i
		delete(byID, id)
	}
	return nil
}
