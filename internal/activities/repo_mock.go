package activities

import (
	"context"
	"sort"
	"strings"

	"github.com/2beens/fitjournal/internal/pagination"

	"github.com/google/uuid"
)

type repoMock struct {
	activities map[string]*Activity
}

func NewRepoMock() *repoMock {
	return &repoMock{
		activities: make(map[string]*Activity),
	}
}

func (r *repoMock) Add(_ context.Context, activity Activity) (*Activity, error) {
	activity.ID = uuid.NewString()
	r.activities[activity.ID] = &activity
	return &activity, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Activity, error) {
	activity, ok := r.activities[id]
	if !ok {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

func (r *repoMock) Update(ctx context.Context, activity *Activity) error {
	existing, err := r.Get(ctx, activity.ID)
	if err != nil {
		return err
	}
	activity.CreatedAt = existing.CreatedAt
	r.activities[activity.ID] = activity
	return nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	if _, ok := r.activities[id]; !ok {
		return ErrActivityNotFound
	}
	delete(r.activities, id)
	return nil
}

func (r *repoMock) List(_ context.Context, params ListParams) ([]Activity, error) {
	all := make([]Activity, 0)
	query := strings.ToLower(params.Query)
	for _, activity := range r.activities {
		description := ""
		if activity.Description != nil {
			description = *activity.Description
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(activity.Title), query) &&
			!strings.Contains(strings.ToLower(description), query) {
			continue
		}
		all = append(all, *activity)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	from := params.Page * pagination.PageSize
	if from >= len(all) {
		return []Activity{}, nil
	}
	to := from + pagination.PageSize
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], nil
}
