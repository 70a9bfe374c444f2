package recipes

import (
	"context"
	"sort"
	"strings"

	"github.com/2beens/fitjournal/internal/pagination"

	"github.com/google/uuid"
)

type repoMock struct {
	recipes map[string]*Recipe
}

func NewRepoMock() *repoMock {
	return &repoMock{
		recipes: make(map[string]*Recipe),
	}
}

func (r *repoMock) Add(_ context.Context, recipe Recipe) (*Recipe, error) {
	recipe.ID = uuid.NewString()
	r.recipes[recipe.ID] = &recipe
	return &recipe, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Recipe, error) {
	recipe, ok := r.recipes[id]
	if !ok {
		return nil, ErrRecipeNotFound
	}
	return recipe, nil
}

func (r *repoMock) Update(ctx context.Context, recipe *Recipe) error {
	existing, err := r.Get(ctx, recipe.ID)
	if err != nil {
		return err
	}
	recipe.CreatedAt = existing.CreatedAt
	r.recipes[recipe.ID] = recipe
	return nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	if _, ok := r.recipes[id]; !ok {
		return ErrRecipeNotFound
	}
	delete(r.recipes, id)
	return nil
}

func (r *repoMock) List(_ context.Context, params ListParams) ([]Recipe, error) {
	all := make([]Recipe, 0)
	query := strings.ToLower(params.Query)
	for _, recipe := range r.recipes {
		if query != "" &&
			!strings.Contains(strings.ToLower(recipe.Title), query) &&
			!strings.Contains(strings.ToLower(recipe.Description), query) {
			continue
		}
		all = append(all, *recipe)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	from := params.Page * pagination.PageSize
	if from >= len(all) {
		return []Recipe{}, nil
	}
	to := from + pagination.PageSize
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], nil
}
