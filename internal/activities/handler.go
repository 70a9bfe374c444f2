package activities

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

type activitiesRepo interface {
	Add(ctx context.Context, activity Activity) (*Activity, error)
	Get(ctx context.Context, id string) (*Activity, error)
	Update(ctx context.Context, activity *Activity) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]Activity, error)
}

type ListResponse struct {
	Activities []Activity `json:"activities"`
	HasMore    bool       `json:"hasMore"`
}

type DeleteResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo  activitiesRepo
	cache viewcache.Cache
}

func NewHandler(repo activitiesRepo, cache viewcache.Cache) *Handler {
	return &Handler{
		repo:  repo,
		cache: cache,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/activities", handler.HandleList).Methods("GET", "OPTIONS").Name("list-activities")
	router.HandleFunc("/activities", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-activity")
	router.HandleFunc("/activities", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-activity")
	router.HandleFunc("/activities/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-activity")
	router.HandleFunc("/activities/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-activity")
}

// activityRequest carries the numeric fields as raw strings so that
// blank and junk input can be normalized to absent instead of zero.
type activityRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TimeMinutes string `json:"timeMinutes"`
	Calories    string `json:"calories"`
}

func decodeActivityRequest(r *http.Request) (activityRequest, error) {
	var req activityRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	return activityRequest{
		ID:          r.Form.Get("id"),
		Title:       r.Form.Get("title"),
		Description: r.Form.Get("description"),
		TimeMinutes: r.Form.Get("timeMinutes"),
		Calories:    r.Form.Get("calories"),
	}, nil
}

func (req activityRequest) toActivity(requireID bool) (*Activity, validation.Errors) {
	errs := validation.Errors{}
	if requireID {
		validation.CheckUUID(errs, "id", req.ID)
	}
	validation.CheckRequiredString(errs, "title", req.Title, 200)
	validation.CheckOptionalString(errs, "description", req.Description, 5000)

	timeMinutes := pkg.ParseOptionalFloat(req.TimeMinutes)
	calories := pkg.ParseOptionalFloat(req.Calories)
	validation.CheckNonNegative(errs, "timeMinutes", timeMinutes)
	validation.CheckNonNegative(errs, "calories", calories)

	if errs.Any() {
		return nil, errs
	}

	return &Activity{
		ID:          req.ID,
		Title:       req.Title,
		Description: validation.OptionalString(req.Description),
		TimeMinutes: timeMinutes,
		Calories:    calories,
	}, nil
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.add")
	defer span.End()

	req, err := decodeActivityRequest(r)
	if err != nil {
		log.Tracef("new activity, decode params: %s", err)
		http.Error(w, "add activity failed", http.StatusBadRequest)
		return
	}

	activity, errs := req.toActivity(false)
	if errs.Any() {
		errs.Write(w)
		return
	}
	activity.CreatedAt = time.Now()

	addedActivity, err := handler.repo.Add(ctx, *activity)
	if err != nil {
		log.Errorf("failed to add new activity [%s]: %s", req.Title, err)
		pkg.WriteErrorJSON(w, "failed to add activity", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSActivities)

	activityJson, err := json.Marshal(addedActivity)
	if err != nil {
		log.Errorf("failed to marshal added activity: %s", err)
		pkg.WriteErrorJSON(w, "failed to add activity", http.StatusInternalServerError)
		return
	}

	log.Debugf("new activity added: %s", addedActivity.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, activityJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	cacheKey := r.URL.RequestURI()
	if cached, ok := handler.cache.Get(ctx, viewcache.NSActivities, cacheKey); ok {
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cached)
		return
	}

	activity, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get activity %s: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to get activity", http.StatusInternalServerError)
		return
	}

	activityJson, err := json.Marshal(activity)
	if err != nil {
		log.Errorf("failed to marshal activity: %s", err)
		pkg.WriteErrorJSON(w, "failed to get activity", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(ctx, viewcache.NSActivities, cacheKey, activityJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, activityJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.list")
	defer span.End()

	cacheKey := r.URL.RequestURI()
	if cached, ok := handler.cache.Get(ctx, viewcache.NSActivities, cacheKey); ok {
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

	activities, err := handler.repo.List(ctx, ListParams{
		Page:  page,
		Query: r.URL.Query().Get("query"),
	})
	if err != nil {
		log.Errorf("list activities error: %s", err)
		pkg.WriteErrorJSON(w, "failed to list activities", http.StatusInternalServerError)
		return
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Activities: activities,
		HasMore:    pagination.HasMore(len(activities)),
	})
	if err != nil {
		log.Errorf("marshal activities error: %s", err)
		pkg.WriteErrorJSON(w, "failed to list activities", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(ctx, viewcache.NSActivities, cacheKey, listResponseJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listResponseJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.update")
	defer span.End()

	req, err := decodeActivityRequest(r)
	if err != nil {
		log.Tracef("update activity, decode params: %s", err)
		http.Error(w, "update activity failed", http.StatusBadRequest)
		return
	}

	activity, errs := req.toActivity(true)
	if errs.Any() {
		errs.Write(w)
		return
	}

	if err := handler.repo.Update(ctx, activity); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update activity %s: %s", req.ID, err)
		pkg.WriteErrorJSON(w, "failed to update activity", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSActivities)

	log.Debugf("activity updated: %s", req.ID)
	pkg.WriteJSONResponseOK(w, `{"updatedId":"`+req.ID+`"}`)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete activity %s: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to delete activity", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSActivities)

	deleteRespJson, err := json.Marshal(DeleteResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		pkg.WriteErrorJSON(w, "failed to delete activity", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteRespJson)
}
