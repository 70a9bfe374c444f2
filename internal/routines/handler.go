package routines

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

type routinesRepo interface {
	Add(ctx context.Context, routine Routine) (*Routine, error)
	Get(ctx context.Context, id string) (*Routine, error)
	Update(ctx context.Context, routine *Routine) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]Routine, error)
	AddExercise(ctx context.Context, link RoutineExercise) (*RoutineExercise, error)
	UpdateExercise(ctx context.Context, link *RoutineExercise) error
	RemoveExercise(ctx context.Context, routineID, linkID string) error
	ListExercises(ctx context.Context, routineID string) ([]LinkedExercise, error)
	Reorder(ctx context.Context, routineID string, orderedIDs []string) error
}

type ListResponse struct {
	Routines []Routine `json:"routines"`
	HasMore  bool      `json:"hasMore"`
}

// RoutineView is the detail response: the routine plus its exercises
// with overrides already resolved against the live exercise defaults.
type RoutineView struct {
	Routine   Routine            `json:"routine"`
	Exercises []ResolvedExercise `json:"exercises"`
}

type DeleteResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo    routinesRepo
	cache   viewcache.Cache
	metrics *metrics.Manager
}

func NewHandler(repo routinesRepo, cache viewcache.Cache, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/routines", handler.HandleList).Methods("GET", "OPTIONS").Name("list-routines")
	router.HandleFunc("/routines", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-routine")
	router.HandleFunc("/routines", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-routine")
	router.HandleFunc("/routines/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-routine")
	router.HandleFunc("/routines/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-routine")
	router.HandleFunc("/routines/{id}/exercises", handler.HandleAddExercise).Methods("POST", "OPTIONS").Name("new-routine-exercise")
	router.HandleFunc("/routines/{id}/exercises/{linkId}", handler.HandleUpdateExercise).Methods("PUT", "OPTIONS").Name("update-routine-exercise")
	router.HandleFunc("/routines/{id}/exercises/{linkId}", handler.HandleRemoveExercise).Methods("DELETE", "OPTIONS").Name("remove-routine-exercise")
	router.HandleFunc("/routines/{id}/reorder", handler.HandleReorder).Methods("POST", "OPTIONS").Name("reorder-routine")
}

type routineRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func decodeRoutineRequest(r *http.Request) (routineRequest, error) {
	var req routineRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	return routineRequest{
		ID:          r.Form.Get("id"),
		Name:        r.Form.Get("name"),
		Description: r.Form.Get("description"),
	}, nil
}

func validateRoutineRequest(req routineRequest, requireID bool) validation.Errors {
	errs := validation.Errors{}
	if requireID {
		validation.CheckUUID(errs, "id", req.ID)
	}
	validation.CheckRequiredString(errs, "name", req.Name, 200)
	validation.CheckOptionalString(errs, "description", req.Description, 5000)
	return errs
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.add")
	defer span.End()

	req, err := decodeRoutineRequest(r)
	if err != nil {
		log.Tracef("new routine, decode params: %s", err)
		http.Error(w, "add routine failed", http.StatusBadRequest)
		return
	}

	if errs := validateRoutineRequest(req, false); errs.Any() {
		errs.Write(w)
		return
	}

	addedRoutine, err := handler.repo.Add(ctx, Routine{
		Name:        req.Name,
		Description: validation.OptionalString(req.Description),
		CreatedAt:   time.Now(),
	})
	if err != nil {
		log.Errorf("failed to add new routine [%s]: %s", req.Name, err)
		pkg.WriteErrorJSON(w, "failed to add routine", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSRoutines)

	routineJson, err := json.Marshal(addedRoutine)
	if err != nil {
		log.Errorf("failed to marshal added routine: %s", err)
		pkg.WriteErrorJSON(w, "failed to add routine", http.StatusInternalServerError)
		return
	}

	log.Debugf("new routine added: %s", addedRoutine.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, routineJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	cacheKey := r.URL.RequestURI()
	if cached, ok := handler.cache.Get(ctx, viewcache.NSRoutines, cacheKey); ok {
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cached)
		return
	}

	routine, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get routine %s: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to get routine", http.StatusInternalServerError)
		return
	}

	linked, err := handler.repo.ListExercises(ctx, id)
	if err != nil {
		log.Errorf("failed to list routine %s exercises: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to get routine", http.StatusInternalServerError)
		return
	}

	viewJson, err := json.Marshal(RoutineView{
		Routine:   *routine,
		Exercises: ResolveAll(linked),
	})
	if err != nil {
		log.Errorf("failed to marshal routine view: %s", err)
		pkg.WriteErrorJSON(w, "failed to get routine", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(ctx, viewcache.NSRoutines, cacheKey, viewJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, viewJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.list")
	defer span.End()

	cacheKey := r.URL.RequestURI()
	if cached, ok := handler.cache.Get(ctx, viewcache.NSRoutines, cacheKey); ok {
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

	routines, err := handler.repo.List(ctx, ListParams{
		Page:  page,
		Query: r.URL.Query().Get("query"),
	})
	if err != nil {
		log.Errorf("list routines error: %s", err)
		pkg.WriteErrorJSON(w, "failed to list routines", http.StatusInternalServerError)
		return
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Routines: routines,
		HasMore:  pagination.HasMore(len(routines)),
	})
	if err != nil {
		log.Errorf("marshal routines error: %s", err)
		pkg.WriteErrorJSON(w, "failed to list routines", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(ctx, viewcache.NSRoutines, cacheKey, listResponseJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listResponseJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.update")
	defer span.End()

	req, err := decodeRoutineRequest(r)
	if err != nil {
		log.Tracef("update routine, decode params: %s", err)
		http.Error(w, "update routine failed", http.StatusBadRequest)
		return
	}

	if errs := validateRoutineRequest(req, true); errs.Any() {
		errs.Write(w)
		return
	}

	if err := handler.repo.Update(ctx, &Routine{
		ID:          req.ID,
		Name:        req.Name,
		Description: validation.OptionalString(req.Description),
	}); err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update routine %s: %s", req.ID, err)
		pkg.WriteErrorJSON(w, "failed to update routine", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSRoutines)

	log.Debugf("routine updated: %s", req.ID)
	pkg.WriteJSONResponseOK(w, `{"updatedId":"`+req.ID+`"}`)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete routine %s: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to delete routine", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSRoutines)

	deleteRespJson, err := json.Marshal(DeleteResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		pkg.WriteErrorJSON(w, "failed to delete routine", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteRespJson)
}

// routineExerciseRequest carries override values as raw strings, same
// normalization rules as everywhere else: blank or junk means absent.
type routineExerciseRequest struct {
	GymExerciseID string `json:"gymExerciseId"`
	Sets          string `json:"sets"`
	Reps          string `json:"reps"`
	Weight        string `json:"weight"`
	Comments      string `json:"comments"`
}

func decodeRoutineExerciseRequest(r *http.Request) (routineExerciseRequest, error) {
	var req routineExerciseRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	return routineExerciseRequest{
		GymExerciseID: r.Form.Get("gymExerciseId"),
		Sets:          r.Form.Get("sets"),
		Reps:          r.Form.Get("reps"),
		Weight:        r.Form.Get("weight"),
		Comments:      r.Form.Get("comments"),
	}, nil
}

func (req routineExerciseRequest) toLink(routineID string, requireExerciseID bool) (*RoutineExercise, validation.Errors) {
	errs := validation.Errors{}
	if requireExerciseID {
		validation.CheckUUID(errs, "gymExerciseId", req.GymExerciseID)
	}
	validation.CheckOptionalString(errs, "comments", req.Comments, 5000)

	sets := pkg.ParseOptionalFloat(req.Sets)
	reps := pkg.ParseOptionalFloat(req.Reps)
	weight := pkg.ParseOptionalFloat(req.Weight)
	validation.CheckNonNegative(errs, "sets", sets)
	validation.CheckNonNegative(errs, "reps", reps)
	validation.CheckNonNegative(errs, "weight", weight)

	if errs.Any() {
		return nil, errs
	}

	return &RoutineExercise{
		RoutineID:     routineID,
		GymExerciseID: req.GymExerciseID,
		Sets:          sets,
		Reps:          reps,
		Weight:        weight,
		Comments:      validation.OptionalString(req.Comments),
	}, nil
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.addExercise")
	defer span.End()

	routineID := mux.Vars(r)["id"]

	req, err := decodeRoutineExerciseRequest(r)
	if err != nil {
		log.Tracef("add routine exercise, decode params: %s", err)
		http.Error(w, "add routine exercise failed", http.StatusBadRequest)
		return
	}

	link, errs := req.toLink(routineID, true)
	if errs.Any() {
		errs.Write(w)
		return
	}

	if _, err := handler.repo.Get(ctx, routineID); err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get routine %s: %s", routineID, err)
		pkg.WriteErrorJSON(w, "failed to add routine exercise", http.StatusInternalServerError)
		return
	}

	addedLink, err := handler.repo.AddExercise(ctx, *link)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			errs := validation.Errors{}
			errs.Add("gymExerciseId", "unknown exercise")
			errs.Write(w)
			return
		}
		log.Errorf("failed to add exercise to routine %s: %s", routineID, err)
		pkg.WriteErrorJSON(w, "failed to add routine exercise", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSRoutines)

	linkJson, err := json.Marshal(addedLink)
	if err != nil {
		log.Errorf("failed to marshal routine exercise: %s", err)
		pkg.WriteErrorJSON(w, "failed to add routine exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, linkJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.updateExercise")
	defer span.End()

	vars := mux.Vars(r)
	routineID, linkID := vars["id"], vars["linkId"]

	req, err := decodeRoutineExerciseRequest(r)
	if err != nil {
		log.Tracef("update routine exercise, decode params: %s", err)
		http.Error(w, "update routine exercise failed", http.StatusBadRequest)
		return
	}

	link, errs := req.toLink(routineID, false)
	if errs.Any() {
		errs.Write(w)
		return
	}
	link.ID = linkID

	if err := handler.repo.UpdateExercise(ctx, link); err != nil {
		if errors.Is(err, ErrRoutineExerciseNotFound) {
			http.Error(w, "routine exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update routine exercise %s: %s", linkID, err)
		pkg.WriteErrorJSON(w, "failed to update routine exercise", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSRoutines)

	pkg.WriteJSONResponseOK(w, `{"updatedId":"`+linkID+`"}`)
}

func (handler *Handler) HandleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.removeExercise")
	defer span.End()

	vars := mux.Vars(r)
	routineID, linkID := vars["id"], vars["linkId"]

	if err := handler.repo.RemoveExercise(ctx, routineID, linkID); err != nil {
		if errors.Is(err, ErrRoutineExerciseNotFound) {
			http.Error(w, "routine exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to remove routine exercise %s: %s", linkID, err)
		pkg.WriteErrorJSON(w, "failed to remove routine exercise", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSRoutines)

	deleteRespJson, err := json.Marshal(DeleteResponse{DeletedID: linkID})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		pkg.WriteErrorJSON(w, "failed to remove routine exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteRespJson)
}

type reorderRequest struct {
	OrderedIDs []string `json:"orderedIds"`
}

func (handler *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.reorder")
	defer span.End()

	routineID := mux.Vars(r)["id"]

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("reorder routine, decode params: %s", err)
		http.Error(w, "reorder routine failed", http.StatusBadRequest)
		return
	}

	if _, err := handler.repo.Get(ctx, routineID); err != nil {
		if errors.Is(err, ErrRoutineNotFound) {
			http.Error(w, "routine not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get routine %s: %s", routineID, err)
		pkg.WriteErrorJSON(w, "failed to reorder routine", http.StatusInternalServerError)
		return
	}

	if err := handler.repo.Reorder(ctx, routineID, req.OrderedIDs); err != nil {
		if errors.Is(err, ErrOrderMismatch) {
			errs := validation.Errors{}
			errs.Add("orderedIds", "must contain each routine exercise exactly once")
			errs.Write(w)
			return
		}
		log.Errorf("failed to reorder routine %s: %s", routineID, err)
		pkg.WriteErrorJSON(w, "failed to reorder routine", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterRoutineReorders.Inc()
	handler.cache.Bump(ctx, viewcache.NSRoutines)

	log.Debugf("routine reordered: %s", routineID)
	pkg.WriteJSONResponseOK(w, `{"reorderedId":"`+routineID+`"}`)
}
