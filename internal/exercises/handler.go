package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/fitjournal/internal/pagination"
	"github.com/2beens/fitjournal/internal/telemetry/tracing"
	"github.com/2beens/fitjournal/internal/validation"
	"github.com/2beens/fitjournal/internal/viewcache"
	"github.com/2beens/fitjournal/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type exercisesRepo interface {
	Add(ctx context.Context, exercise Exercise) (*Exercise, error)
	Get(ctx context.Context, id string) (*Exercise, error)
	Update(ctx context.Context, exercise *Exercise) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]Exercise, error)
}

type ListResponse struct {
	Exercises []Exercise `json:"exercises"`
	HasMore   bool       `json:"hasMore"`
}

type DeleteResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo  exercisesRepo
	cache viewcache.Cache
}

func NewHandler(repo exercisesRepo, cache viewcache.Cache) *Handler {
	return &Handler{
		repo:  repo,
		cache: cache,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/exercises", handler.HandleList).Methods("GET", "OPTIONS").Name("list-exercises")
	router.HandleFunc("/exercises", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-exercise")
	router.HandleFunc("/exercises", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-exercise")
	router.HandleFunc("/exercises/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-exercise")
	router.HandleFunc("/exercises/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-exercise")
}

type exerciseRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Comments    string `json:"comments"`
	BodyPart    string `json:"bodyPart"`
	Sets        string `json:"sets"`
	Reps        string `json:"reps"`
	Weight      string `json:"weight"`
}

func decodeExerciseRequest(r *http.Request) (exerciseRequest, error) {
	var req exerciseRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	return exerciseRequest{
		ID:          r.Form.Get("id"),
		Title:       r.Form.Get("title"),
		Description: r.Form.Get("description"),
		Comments:    r.Form.Get("comments"),
		BodyPart:    r.Form.Get("bodyPart"),
		Sets:        r.Form.Get("sets"),
		Reps:        r.Form.Get("reps"),
		Weight:      r.Form.Get("weight"),
	}, nil
}

func (req exerciseRequest) toExercise(requireID bool) (*Exercise, validation.Errors) {
	errs := validation.Errors{}
	if requireID {
		validation.CheckUUID(errs, "id", req.ID)
	}
	validation.CheckRequiredString(errs, "title", req.Title, 200)
	validation.CheckOptionalString(errs, "description", req.Description, 5000)
	validation.CheckOptionalString(errs, "comments", req.Comments, 5000)
	validation.CheckOptionalString(errs, "bodyPart", req.BodyPart, 100)

	sets := pkg.ParseOptionalFloat(req.Sets)
	reps := pkg.ParseOptionalFloat(req.Reps)
	weight := pkg.ParseOptionalFloat(req.Weight)
	validation.CheckNonNegative(errs, "sets", sets)
	validation.CheckNonNegative(errs, "reps", reps)
	validation.CheckNonNegative(errs, "weight", weight)

	if errs.Any() {
		return nil, errs
	}

	return &Exercise{
		ID:          req.ID,
		Title:       req.Title,
		Description: validation.OptionalString(req.Description),
		Comments:    validation.OptionalString(req.Comments),
		BodyPart:    validation.OptionalString(req.BodyPart),
		Sets:        sets,
		Reps:        reps,
		Weight:      weight,
	}, nil
}

// bumpCaches invalidates exercise views and also routine views, since
// routine reads resolve against live exercise defaults.
func (handler *Handler) bumpCaches(ctx context.Context) {
	handler.cache.Bump(ctx, viewcache.NSExercises)
	handler.cache.Bump(ctx, viewcache.NSRoutines)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.add")
	defer span.End()

	req, err := decodeExerciseRequest(r)
	if err != nil {
		log.Tracef("new exercise, decode params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}

	exercise, errs := req.toExercise(false)
	if errs.Any() {
		errs.Write(w)
		return
	}
	exercise.CreatedAt = time.Now()

	addedExercise, err := handler.repo.Add(ctx, *exercise)
	if err != nil {
		log.Errorf("failed to add new exercise [%s]: %s", req.Title, err)
		pkg.WriteErrorJSON(w, "failed to add exercise", http.StatusInternalServerError)
		return
	}

	handler.bumpCaches(ctx)

	exerciseJson, err := json.Marshal(addedExercise)
	if err != nil {
		log.Errorf("failed to marshal added exercise: %s", err)
		pkg.WriteErrorJSON(w, "failed to add exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise added: %s", addedExercise.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	cacheKey := r.URL.RequestURI()
	if cached, ok := handler.cache.Get(ctx, viewcache.NSExercises, cacheKey); ok {
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cached)
		return
	}

	exercise, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get exercise %s: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to get exercise", http.StatusInternalServerError)
		return
	}

	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("failed to marshal exercise: %s", err)
		pkg.WriteErrorJSON(w, "failed to get exercise", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(ctx, viewcache.NSExercises, cacheKey, exerciseJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, exerciseJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	cacheKey := r.URL.RequestURI()
	if cached, ok := handler.cache.Get(ctx, viewcache.NSExercises, cacheKey); ok {
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

	exercises, err := handler.repo.List(ctx, ListParams{
		Page:  page,
		Query: r.URL.Query().Get("query"),
	})
	if err != nil {
		log.Errorf("list exercises error: %s", err)
		pkg.WriteErrorJSON(w, "failed to list exercises", http.StatusInternalServerError)
		return
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Exercises: exercises,
		HasMore:   pagination.HasMore(len(exercises)),
	})
	if err != nil {
		log.Errorf("marshal exercises error: %s", err)
		pkg.WriteErrorJSON(w, "failed to list exercises", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(ctx, viewcache.NSExercises, cacheKey, listResponseJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listResponseJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	req, err := decodeExerciseRequest(r)
	if err != nil {
		log.Tracef("update exercise, decode params: %s", err)
		http.Error(w, "update exercise failed", http.StatusBadRequest)
		return
	}

	exercise, errs := req.toExercise(true)
	if errs.Any() {
		errs.Write(w)
		return
	}

	if err := handler.repo.Update(ctx, exercise); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update exercise %s: %s", req.ID, err)
		pkg.WriteErrorJSON(w, "failed to update exercise", http.StatusInternalServerError)
		return
	}

	handler.bumpCaches(ctx)

	log.Debugf("exercise updated: %s", req.ID)
	pkg.WriteJSONResponseOK(w, `{"updatedId":"`+req.ID+`"}`)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete exercise %s: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to delete exercise", http.StatusInternalServerError)
		return
	}

	handler.bumpCaches(ctx)

	deleteRespJson, err := json.Marshal(DeleteResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		pkg.WriteErrorJSON(w, "failed to delete exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteRespJson)
}
