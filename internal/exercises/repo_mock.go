package exercises

import (
	"context"
	"sort"
	"strings"

	"github.com/2beens/fitjournal/internal/pagination"

	"github.com/google/uuid"
)

type repoMock struct {
	exercises map[string]*Exercise
}

func NewRepoMock() *repoMock {
	return &repoMock{
		exercises: make(map[string]*Exercise),
	}
}

func (r *repoMock) Add(_ context.Context, exercise Exercise) (*Exercise, error) {
	exercise.ID = uuid.NewString()
	r.exercises[exercise.ID] = &exercise
	return &exercise, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Exercise, error) {
	exercise, ok := r.exercises[id]
	if !ok {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

func (r *repoMock) Update(ctx context.Context, exercise *Exercise) error {
	existing, err := r.Get(ctx, exercise.ID)
	if err != nil {
		return err
	}
	exercise.CreatedAt = existing.CreatedAt
	r.exercises[exercise.ID] = exercise
	return nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	if _, ok := r.exercises[id]; !ok {
		return ErrExerciseNotFound
	}
	delete(r.exercises, id)
	return nil
}

func (r *repoMock) List(_ context.Context, params ListParams) ([]Exercise, error) {
	matches := func(exercise *Exercise, query string) bool {
		if query == "" {
			return true
		}
		for _, field := range []*string{&exercise.Title, exercise.Description, exercise.BodyPart} {
			if field != nil && strings.Contains(strings.ToLower(*field), query) {
				return true
			}
		}
		return false
	}

	all := make([]Exercise, 0)
	query := strings.ToLower(params.Query)
	for _, exercise := range r.exercises {
		if matches(exercise, query) {
			all = append(all, *exercise)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	from := params.Page * pagination.PageSize
	if from >= len(all) {
		return []Exercise{}, nil
	}
	to := from + pagination.PageSize
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], nil
}
