package recipes

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

var ErrRecipeNotFound = errors.New("recipe not found")

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

func (r *Repo) Add(ctx context.Context, recipe Recipe) (_ *Recipe, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.recipes.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	recipe.ID = uuid.NewString()
	_, err = r.db.Exec(
		ctx,
		`INSERT INTO recipe
				(id, title, description, social_media_url, created_at)
				VALUES ($1, $2, $3, $4, $5);`,
		recipe.ID, recipe.Title, recipe.Description, recipe.SocialMediaURL, recipe.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("recipe.id", recipe.ID))
	return &recipe, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Recipe, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.recipes.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	var recipe Recipe
	err = r.db.QueryRow(
		ctx,
		`SELECT id, title, description, social_media_url, created_at FROM recipe WHERE id = $1;`,
		id,
	).Scan(&recipe.ID, &recipe.Title, &recipe.Description, &recipe.SocialMediaURL, &recipe.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}

	return &recipe, nil
}

func (r *Repo) Update(ctx context.Context, recipe *Recipe) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.recipes.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", recipe.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE recipe SET title = $1, description = $2, social_media_url = $3 WHERE id = $4;`,
		recipe.Title, recipe.Description, recipe.SocialMediaURL, recipe.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.recipes.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM recipe WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// List returns one page of recipes, optionally filtered by a
// case-insensitive "contains" match over title and description.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Recipe, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.recipes.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.String("query", params.Query))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, title, description, social_media_url, created_at
			FROM recipe
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

	return rows2recipes(rows)
}

func rows2recipes(rows pgx.Rows) ([]Recipe, error) {
	recipes := make([]Recipe, 0)
	for rows.Next() {
		var recipe Recipe
		if err := rows.Scan(
			&recipe.ID, &recipe.Title, &recipe.Description, &recipe.SocialMediaURL, &recipe.CreatedAt,
		); err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}
