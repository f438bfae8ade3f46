package plan

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/saltplan/app"
	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/core/runlog"
)

// NewPlanHandler plans the posted batches via POST /api/plan.
func NewPlanHandler(svc Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req app.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		out, err := svc.Plan(r.Context(), req)
		switch {
		case errors.Is(err, planner.ErrNegativeQuantity):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, out)
	})
}

// NewReportHandler returns the stabilization report of the posted batches via
// POST /api/report.
func NewReportHandler(svc Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Batches []model.Batch `json:"batches"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, svc.Report(req.Batches))
	})
}

// NewRunsHandler lists run log records via GET /api/runs. Filters: start and
// end (RFC3339 or YYYY-MM-DD), batch_id and limit.
func NewRunsHandler(svc Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, err := parseRunQuery(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		records, err := svc.Runs(r.Context(), q)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if records == nil {
			records = []runlog.RunRecord{}
		}
		respondJSON(w, http.StatusOK, records)
	})
}

func parseRunQuery(r *http.Request) (runlog.RunQuery, error) {
	v := r.URL.Query()
	q := runlog.RunQuery{BatchID: v.Get("batch_id")}
	var err error
	if q.Start, err = parseTime(v.Get("start")); err != nil {
		return q, err
	}
	if q.End, err = parseTime(v.Get("end")); err != nil {
		return q, err
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
			return q, errors.New("limit must be a non-negative integer")
		}
	}
	return q, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return calendar.Parse(s)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
