package daily

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/fitjournal/internal/routines"
	"github.com/2beens/fitjournal/internal/telemetry/metrics"
	"github.com/2beens/fitjournal/internal/telemetry/tracing"
	"github.com/2beens/fitjournal/internal/validation"
	"github.com/2beens/fitjournal/internal/viewcache"
	"github.com/2beens/fitjournal/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type dailyRepo interface {
	UpsertStatistic(ctx context.Context, stat DailyStatistic) (*DailyStatistic, error)
	LogRoutine(ctx context.Context, day time.Time, routineID string) (*RoutineEntry, error)
	DeleteRoutineEntry(ctx context.Context, id string) error
	UpdateSnapshotExercise(ctx context.Context, snapshot *SnapshotExercise) error
	AddActivityEntry(ctx context.Context, day time.Time, entry ActivityEntry) (*ActivityEntry, error)
	UpdateActivityEntry(ctx context.Context, entry *ActivityEntry) error
	DeleteActivityEntry(ctx context.Context, id string) error
	AddExerciseEntry(ctx context.Context, day time.Time, entry ExerciseEntry) (*ExerciseEntry, error)
	UpdateExerciseEntry(ctx context.Context, entry *ExerciseEntry) error
	DeleteExerciseEntry(ctx context.Context, id string) error
}

type dayAggregator interface {
	Day(ctx context.Context, day time.Time) (*DayView, error)
}

type DeleteResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo       dailyRepo
	aggregator dayAggregator
	cache      viewcache.Cache
	metrics    *metrics.Manager
}

func NewHandler(repo dailyRepo, aggregator dayAggregator, cache viewcache.Cache, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:       repo,
		aggregator: aggregator,
		cache:      cache,
		metrics:    metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/daily/{date}", handler.HandleGetDay).Methods("GET", "OPTIONS").Name("get-day")
	router.HandleFunc("/daily/{date}", handler.HandleUpsertStatistic).Methods("POST", "OPTIONS").Name("upsert-day")
	router.HandleFunc("/daily/{date}/routines", handler.HandleLogRoutine).Methods("POST", "OPTIONS").Name("log-routine")
	router.HandleFunc("/daily/routines/{entryId}", handler.HandleDeleteRoutineEntry).Methods("DELETE", "OPTIONS").Name("delete-routine-entry")
	router.HandleFunc("/daily/routines/exercises/{id}", handler.HandleUpdateSnapshotExercise).Methods("PUT", "OPTIONS").Name("update-snapshot-exercise")
	router.HandleFunc("/daily/{date}/activities", handler.HandleAddActivityEntry).Methods("POST", "OPTIONS").Name("log-activity")
	router.HandleFunc("/daily/activities/{entryId}", handler.HandleUpdateActivityEntry).Methods("PUT", "OPTIONS").Name("update-activity-entry")
	router.HandleFunc("/daily/activities/{entryId}", handler.HandleDeleteActivityEntry).Methods("DELETE", "OPTIONS").Name("delete-activity-entry")
	router.HandleFunc("/daily/{date}/exercises", handler.HandleAddExerciseEntry).Methods("POST", "OPTIONS").Name("log-exercise")
	router.HandleFunc("/daily/exercises/{entryId}", handler.HandleUpdateExerciseEntry).Methods("PUT", "OPTIONS").Name("update-exercise-entry")
	router.HandleFunc("/daily/exercises/{entryId}", handler.HandleDeleteExerciseEntry).Methods("DELETE", "OPTIONS").Name("delete-exercise-entry")
}

func parseDay(r *http.Request) (time.Time, validation.Errors) {
	errs := validation.Errors{}
	day, err := time.Parse(DayFormat, mux.Vars(r)["date"])
	if err != nil {
		errs.Add("date", "must be a date in format "+DayFormat)
	}
	return day, errs
}

func (handler *Handler) HandleGetDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.getDay")
	defer span.End()

	day, errs := parseDay(r)
	if errs.Any() {
		errs.Write(w)
		return
	}

	cacheKey := r.URL.RequestURI()
	if cached, ok := handler.cache.Get(ctx, viewcache.NSDaily, cacheKey); ok {
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cached)
		return
	}

	view, err := handler.aggregator.Day(ctx, day)
	if err != nil {
		if errors.Is(err, ErrDayNotFound) {
			http.Error(w, "day not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get day %s: %s", day.Format(DayFormat), err)
		pkg.WriteErrorJSON(w, "failed to get day", http.StatusInternalServerError)
		return
	}

	viewJson, err := json.Marshal(view)
	if err != nil {
		log.Errorf("failed to marshal day view: %s", err)
		pkg.WriteErrorJSON(w, "failed to get day", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(ctx, viewcache.NSDaily, cacheKey, viewJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, viewJson)
}

type statisticRequest struct {
	CaloriesIngested string `json:"caloriesIngested"`
	Proteins         string `json:"proteins"`
	Carbs            string `json:"carbs"`
	Fat              string `json:"fat"`
	Steps            string `json:"steps"`
}

func (handler *Handler) HandleUpsertStatistic(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.upsertStatistic")
	defer span.End()

	day, errs := parseDay(r)
	if errs.Any() {
		errs.Write(w)
		return
	}

	var req statisticRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("upsert statistic, decode params: %s", err)
		http.Error(w, "upsert day failed", http.StatusBadRequest)
		return
	}

	stat := DailyStatistic{
		Day:              day,
		CaloriesIngested: pkg.ParseOptionalFloat(req.CaloriesIngested),
		Proteins:         pkg.ParseOptionalFloat(req.Proteins),
		Carbs:            pkg.ParseOptionalFloat(req.Carbs),
		Fat:              pkg.ParseOptionalFloat(req.Fat),
		Steps:            pkg.ParseOptionalFloat(req.Steps),
	}
	validation.CheckNonNegative(errs, "caloriesIngested", stat.CaloriesIngested)
	validation.CheckNonNegative(errs, "proteins", stat.Proteins)
	validation.CheckNonNegative(errs, "carbs", stat.Carbs)
	validation.CheckNonNegative(errs, "fat", stat.Fat)
	validation.CheckNonNegative(errs, "steps", stat.Steps)
	if errs.Any() {
		errs.Write(w)
		return
	}

	upserted, err := handler.repo.UpsertStatistic(ctx, stat)
	if err != nil {
		log.Errorf("failed to upsert day %s: %s", day.Format(DayFormat), err)
		pkg.WriteErrorJSON(w, "failed to upsert day", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterDailyEntries.Inc()
	handler.cache.Bump(ctx, viewcache.NSDaily)

	statJson, err := json.Marshal(upserted)
	if err != nil {
		log.Errorf("failed to marshal day statistic: %s", err)
		pkg.WriteErrorJSON(w, "failed to upsert day", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, statJson)
}

func (handler *Handler) HandleLogRoutine(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.logRoutine")
	defer span.End()

	day, errs := parseDay(r)
	if errs.Any() {
		errs.Write(w)
		return
	}

	var req struct {
		RoutineID string `json:"routineId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("log routine, decode params: %s", err)
		http.Error(w, "log routine failed", http.StatusBadRequest)
		return
	}
	validation.CheckUUID(errs, "routineId", req.RoutineID)
	if errs.Any() {
		errs.Write(w)
		return
	}

	entry, err := handler.repo.LogRoutine(ctx, day, req.RoutineID)
	if err != nil {
		if errors.Is(err, routines.ErrRoutineNotFound) {
			errs.Add("routineId", "unknown routine")
			errs.Write(w)
			return
		}
		log.Errorf("failed to log routine %s on %s: %s", req.RoutineID, day.Format(DayFormat), err)
		pkg.WriteErrorJSON(w, "failed to log routine", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterDailyEntries.Inc()
	handler.cache.Bump(ctx, viewcache.NSDaily)

	entryJson, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("failed to marshal routine entry: %s", err)
		pkg.WriteErrorJSON(w, "failed to log routine", http.StatusInternalServerError)
		return
	}

	log.Debugf("routine %s logged on %s", req.RoutineID, day.Format(DayFormat))
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entryJson, http.StatusCreated)
}

func (handler *Handler) HandleDeleteRoutineEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.deleteRoutineEntry")
	defer span.End()

	entryID := mux.Vars(r)["entryId"]
	if err := handler.repo.DeleteRoutineEntry(ctx, entryID); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete routine entry %s: %s", entryID, err)
		pkg.WriteErrorJSON(w, "failed to delete entry", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSDaily)
	handler.writeDeleted(w, entryID)
}

type snapshotExerciseRequest struct {
	Sets     string `json:"sets"`
	Reps     string `json:"reps"`
	Weight   string `json:"weight"`
	Comments string `json:"comments"`
}

func (handler *Handler) HandleUpdateSnapshotExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.updateSnapshotExercise")
	defer span.End()

	id := mux.Vars(r)["id"]

	var req snapshotExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update snapshot exercise, decode params: %s", err)
		http.Error(w, "update snapshot exercise failed", http.StatusBadRequest)
		return
	}

	errs := validation.Errors{}
	snapshot := SnapshotExercise{
		ID:       id,
		Sets:     pkg.ParseOptionalFloat(req.Sets),
		Reps:     pkg.ParseOptionalFloat(req.Reps),
		Weight:   pkg.ParseOptionalFloat(req.Weight),
		Comments: validation.OptionalString(req.Comments),
	}
	validation.CheckNonNegative(errs, "sets", snapshot.Sets)
	validation.CheckNonNegative(errs, "reps", snapshot.Reps)
	validation.CheckNonNegative(errs, "weight", snapshot.Weight)
	validation.CheckOptionalString(errs, "comments", req.Comments, 5000)
	if errs.Any() {
		errs.Write(w)
		return
	}

	if err := handler.repo.UpdateSnapshotExercise(ctx, &snapshot); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update snapshot exercise %s: %s", id, err)
		pkg.WriteErrorJSON(w, "failed to update snapshot exercise", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSDaily)
	pkg.WriteJSONResponseOK(w, `{"updatedId":"`+id+`"}`)
}

type activityEntryRequest struct {
	ActivityID  string `json:"activityId"`
	TimeMinutes string `json:"timeMinutes"`
	Calories    string `json:"calories"`
}

func (handler *Handler) HandleAddActivityEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.addActivityEntry")
	defer span.End()

	day, errs := parseDay(r)
	if errs.Any() {
		errs.Write(w)
		return
	}

	var req activityEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("log activity, decode params: %s", err)
		http.Error(w, "log activity failed", http.StatusBadRequest)
		return
	}

	entry := ActivityEntry{
		ActivityID:  req.ActivityID,
		TimeMinutes: pkg.ParseOptionalFloat(req.TimeMinutes),
		Calories:    pkg.ParseOptionalFloat(req.Calories),
	}
	validation.CheckUUID(errs, "activityId", req.ActivityID)
	validation.CheckNonNegative(errs, "timeMinutes", entry.TimeMinutes)
	validation.CheckNonNegative(errs, "calories", entry.Calories)
	if errs.Any() {
		errs.Write(w)
		return
	}

	added, err := handler.repo.AddActivityEntry(ctx, day, entry)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			errs.Add("activityId", "unknown activity")
			errs.Write(w)
			return
		}
		log.Errorf("failed to log activity %s on %s: %s", req.ActivityID, day.Format(DayFormat), err)
		pkg.WriteErrorJSON(w, "failed to log activity", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterDailyEntries.Inc()
	handler.cache.Bump(ctx, viewcache.NSDaily)

	entryJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal activity entry: %s", err)
		pkg.WriteErrorJSON(w, "failed to log activity", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entryJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdateActivityEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.updateActivityEntry")
	defer span.End()

	entryID := mux.Vars(r)["entryId"]

	var req activityEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update activity entry, decode params: %s", err)
		http.Error(w, "update activity entry failed", http.StatusBadRequest)
		return
	}

	errs := validation.Errors{}
	entry := ActivityEntry{
		ID:          entryID,
		TimeMinutes: pkg.ParseOptionalFloat(req.TimeMinutes),
		Calories:    pkg.ParseOptionalFloat(req.Calories),
	}
	validation.CheckNonNegative(errs, "timeMinutes", entry.TimeMinutes)
	validation.CheckNonNegative(errs, "calories", entry.Calories)
	if errs.Any() {
		errs.Write(w)
		return
	}

	if err := handler.repo.UpdateActivityEntry(ctx, &entry); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update activity entry %s: %s", entryID, err)
		pkg.WriteErrorJSON(w, "failed to update activity entry", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSDaily)
	pkg.WriteJSONResponseOK(w, `{"updatedId":"`+entryID+`"}`)
}

func (handler *Handler) HandleDeleteActivityEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.deleteActivityEntry")
	defer span.End()

	entryID := mux.Vars(r)["entryId"]
	if err := handler.repo.DeleteActivityEntry(ctx, entryID); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete activity entry %s: %s", entryID, err)
		pkg.WriteErrorJSON(w, "failed to delete entry", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSDaily)
	handler.writeDeleted(w, entryID)
}

type exerciseEntryRequest struct {
	GymExerciseID string `json:"gymExerciseId"`
	Sets          string `json:"sets"`
	Reps          string `json:"reps"`
	Weight        string `json:"weight"`
}

func (handler *Handler) HandleAddExerciseEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.addExerciseEntry")
	defer span.End()

	day, errs := parseDay(r)
	if errs.Any() {
		errs.Write(w)
		return
	}

	var req exerciseEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("log exercise, decode params: %s", err)
		http.Error(w, "log exercise failed", http.StatusBadRequest)
		return
	}

	entry := ExerciseEntry{
		GymExerciseID: req.GymExerciseID,
		Sets:          pkg.ParseOptionalFloat(req.Sets),
		Reps:          pkg.ParseOptionalFloat(req.Reps),
		Weight:        pkg.ParseOptionalFloat(req.Weight),
	}
	validation.CheckUUID(errs, "gymExerciseId", req.GymExerciseID)
	validation.CheckNonNegative(errs, "sets", entry.Sets)
	validation.CheckNonNegative(errs, "reps", entry.Reps)
	validation.CheckNonNegative(errs, "weight", entry.Weight)
	if errs.Any() {
		errs.Write(w)
		return
	}

	added, err := handler.repo.AddExerciseEntry(ctx, day, entry)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			errs.Add("gymExerciseId", "unknown exercise")
			errs.Write(w)
			return
		}
		log.Errorf("failed to log exercise %s on %s: %s", req.GymExerciseID, day.Format(DayFormat), err)
		pkg.WriteErrorJSON(w, "failed to log exercise", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterDailyEntries.Inc()
	handler.cache.Bump(ctx, viewcache.NSDaily)

	entryJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal exercise entry: %s", err)
		pkg.WriteErrorJSON(w, "failed to log exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entryJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdateExerciseEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.updateExerciseEntry")
	defer span.End()

	entryID := mux.Vars(r)["entryId"]

	var req exerciseEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update exercise entry, decode params: %s", err)
		http.Error(w, "update exercise entry failed", http.StatusBadRequest)
		return
	}

	errs := validation.Errors{}
	entry := ExerciseEntry{
		ID:     entryID,
		Sets:   pkg.ParseOptionalFloat(req.Sets),
		Reps:   pkg.ParseOptionalFloat(req.Reps),
		Weight: pkg.ParseOptionalFloat(req.Weight),
	}
	validation.CheckNonNegative(errs, "sets", entry.Sets)
	validation.CheckNonNegative(errs, "reps", entry.Reps)
	validation.CheckNonNegative(errs, "weight", entry.Weight)
	if errs.Any() {
		errs.Write(w)
		return
	}

	if err := handler.repo.UpdateExerciseEntry(ctx, &entry); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update exercise entry %s: %s", entryID, err)
		pkg.WriteErrorJSON(w, "failed to update exercise entry", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSDaily)
	pkg.WriteJSONResponseOK(w, `{"updatedId":"`+entryID+`"}`)
}

func (handler *Handler) HandleDeleteExerciseEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.daily.deleteExerciseEntry")
	defer span.End()

	entryID := mux.Vars(r)["entryId"]
	if err := handler.repo.DeleteExerciseEntry(ctx, entryID); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete exercise entry %s: %s", entryID, err)
		pkg.WriteErrorJSON(w, "failed to delete entry", http.StatusInternalServerError)
		return
	}

	handler.cache.Bump(ctx, viewcache.NSDaily)
	handler.writeDeleted(w, entryID)
}

func (handler *Handler) writeDeleted(w http.ResponseWriter, id string) {
	deleteRespJson, err := json.Marshal(DeleteResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		pkg.WriteErrorJSON(w, "failed to delete entry", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteRespJson)
}
