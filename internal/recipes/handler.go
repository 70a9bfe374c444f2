package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/fitjournal/internal/pagination"
	"github.com/2beens/fitjournal/internal/telemetry/metrics"
	"github.com/2beens/fitjournal/internal/telemetry/tracing"
	"github.com/2beens/fitjournal/internal/validation"
	"github.com/2beens/fitjournal/internal/viewcache"
	"github.com/2beens/fitjournal/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type recipesRepo interface {
	Add(ctx context.Context, recipe Recipe) (*Recipe, error)
	Get(ctx context.Context, id string) (*Recipe, error)
	Update(ctx context.Context, recipe *Recipe) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]Recipe, error)
}

type ListResponse struct {
	Recipes []Recipe `json:"recipes"`
	HasMore bool     `json:"hasMore"`
}

type DeleteResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo    recipesRepo
	cache   viewcache.Cache
	metrics *metrics.Manager
}

func NewHandler(repo recipesRepo, cache viewcache.Cache, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/recipes", handler.HandleList).Methods("GET", "OPTIONS").Name("list-recipes")
	router.HandleFunc("/recipes", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-recipe")
	router.HandleFunc("/recipes", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-recipe")
	router.HandleFunc("/recipes/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-recipe")
	router.HandleFunc("/recipes/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-recipe")
}

type recipeRequest struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	SocialMediaURL string `json:"socialMediaUrl"`
}

func recipeRequestFromForm(r *http.Request) recipeRequest {
	return recipeRequest{
		ID:             r.Form.Get("id"),
		Title:          r.Form.Get("title"),
		Description:    r.Form.Get("description"),
		SocialMediaURL: r.Form.Get("socialMediaUrl"),
	}
}

func decodeRecipeRequest(r *http.Request) (recipeRequest, error) {
	var req recipeRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	return recipeRequestFromForm(r), nil
}

func validateRecipeRequest(req recipeRequest, requireID bool) validation.Errors {
	errs := validation.Errors{}
	if requireID {
		validation.CheckUUID(errs, "id", req.ID)
	}
	validation.CheckRequiredString(errs, "title", req.Title, 200)
	validation.CheckOptionalString(errs, "description", req.Description, 5000)
	validation.CheckOptionalString(errs, "socialMediaUrl", req.SocialMediaURL, 500)
	return errs
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.recipes.add")
	defer span.End()

	req, err := decodeRecipeRequest(r)
	if err != nil {
		log.Tracef("new recipe, decode params: %s", err)
		http.Error(w, "add recipe failed", http.StatusBadRequest)
		return
	}

	if errs := validateRecipeRequest(req, false); errs.Any() {
		errs.Write(w)
		return
	}

	addedRecipe, err := handler.repo.Add(ctx, Recipe{
		Title:          req.Title,
		Description:    req.Description,
		SocialMediaURL: validation.OptionalString(req.SocialMediaURL),
		CreatedAt:      time.Now(),
	})
	if err != nil {
		log.Errorf("failed to add new recipe [%s]: %s", req.Title, err)
		pkg.WriteErrorJSON(w, "failed to add recipe", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterRecipes.Inc()
	handler.cache.Bump(ctx, viewcache.NSRecipes)

	recipeJson, err := json.Marshal(addedRecipe)
	if err != nil {
		log.Errorf("failed to marshal added recipe: %s", err)
		pkg.WriteErrorJSON(w, "failed to add recipe", http.StatusInternalServerError)
		return
	}

	log.Debugf("new recipe added: %s", addedRecipe.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, recipeJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.recipes.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	cacheKey := r.URL.RequestURI()
	if cached, ok := handler.cache.Get(ctx, viewcache.NSRecipes, cacheKey); ok {
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cached)
		return
	}

	recipe, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecipeNotFound) {
			http.Error(w, "recipe not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get recipe %s: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to get recipe", http.StatusInternalServerError)
		return
	}

	recipeJson, err := json.Marshal(recipe)
	if err != nil {
		log.Errorf("failed to marshal recipe: %s", err)
		pkg.WriteErrorJSON(w, "failed to get recipe", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(ctx, viewcache.NSRecipes, cacheKey, recipeJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, recipeJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.recipes.list")
	defer span.End()

	cacheKey := r.URL.RequestURI()
	if cached, ok := handler.cache.Get(ctx, viewcache.NSRecipes, cacheKey); ok {
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cached)
		return
	}

	page := 0
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		var err error
		page, err = strconv.Atoi(pageStr)
		if err != nil || page < 0 {
			http.Error(w, "invalid page (has to be a non-negative number)", http.StatusBadRequest)
			return
		}
	}

	recipes, err := handler.repo.List(ctx, ListParams{
		Page:  page,
		Query: r.URL.Query().Get("query"),
	})
	if err != nil {
		log.Errorf("list recipes error: %s", err)
		pkg.WriteErrorJSON(w, "failed to list recipes", http.StatusInternalServerError)
		return
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Recipes: recipes,
		HasMore: pagination.HasMore(len(recipes)),
	})
	if err != nil {
		log.Errorf("marshal recipes error: %s", err)
		pkg.WriteErrorJSON(w, "failed to list recipes", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(ctx, viewcache.NSRecipes, cacheKey, listResponseJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listResponseJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.recipes.update")
	defer span.End()

	req, err := decodeRecipeRequest(r)
	if err != nil {
		log.Tracef("update recipe, decode params: %s", err)
		http.Error(w, "update recipe failed", http.StatusBadRequest)
		return
	}

	if errs := validateRecipeRequest(req, true); errs.Any() {
		errs.Write(w)
		return
	}

	if err := handler.repo.Update(ctx, &Recipe{
		ID:             req.ID,
		Title:          req.Title,
		Description:    req.Description,
		SocialMediaURL: validation.OptionalString(req.SocialMediaURL),
	}); err != nil {
		if errors.Is(err, ErrRecipeNotFound) {
			http.Error(w, "recipe not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update recipe %s: %s", req.ID, err)
		pkg.WriteErrorJSON(w, "failed to update recipe", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSRecipes)

	log.Debugf("recipe updated: %s", req.ID)
	pkg.WriteJSONResponseOK(w, `{"updatedId":"`+req.ID+`"}`)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.recipes.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrRecipeNotFound) {
			http.Error(w, "recipe not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete recipe %s: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to delete recipe", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSRecipes)

	deleteRespJson, err := json.Marshal(DeleteResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		pkg.WriteErrorJSON(w, "failed to delete recipe", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteRespJson)
}
