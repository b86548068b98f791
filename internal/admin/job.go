package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/petabytecl/jobu/internal/domain"
	"github.com/petabytecl/jobu/internal/store"
)

// JobResponse is the wire shape of an execution, grounded on
// original_source/admin/api/model/job.py's JobResponse.
type JobResponse struct {
	ID            int64           `json:"id"`
	JobID         *int64          `json:"job_id"`
	CronName      string          `json:"cron_name,omitempty"`
	ScheduledTime time.Time       `json:"scheduled_time"`
	Status        domain.Status   `json:"status"`
	HandlerName   string          `json:"handler_name"`
	StartedAt     *time.Time      `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at"`
	RetryCount    int             `json:"retry_count"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func executionToResponse(e domain.Execution, cronName string) JobResponse {
	var result json.RawMessage
	if e.Result != nil && *e.Result != "" {
		result = json.RawMessage(*e.Result)
	}
	return JobResponse{
		ID: e.ID, JobID: e.JobID, CronName: cronName, ScheduledTime: e.ScheduledTime, Status: e.Status,
		HandlerName: e.HandlerName, StartedAt: e.StartedAt, FinishedAt: e.FinishedAt, RetryCount: e.RetryCount,
		ErrorMessage: e.ErrorMessage, Result: result, CreatedAt: e.CreatedAt,
	}
}

// cronNameLookup resolves job_id -> cron name best-effort within the same
// read transaction, caching repeats since many executions share one parent
// cron definition.
type cronNameLookup struct {
	a     *API
	cache map[int64]string
}

func newCronNameLookup(a *API) *cronNameLookup {
	return &cronNameLookup{a: a, cache: make(map[int64]string)}
}

func (c *cronNameLookup) resolve(ctx context.Context, jobID *int64) string {
	if jobID == nil {
		return ""
	}
	if name, ok := c.cache[*jobID]; ok {
		return name
	}
	def, err := store.GetCronDefinition(ctx, c.a.dbName(), *jobID)
	name := ""
	if err == nil {
		name = def.Name
	}
	c.cache[*jobID] = name
	return name
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	page, size := parsePaging(r)
	filter := store.ExecutionListFilter{}
	q := r.URL.Query()
	if v := q.Get("cron_id"); v != "" {
		id, err := parseInt64(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "cron_id must be an integer")
			return
		}
		filter.CronID = &id
	}
	if v := q.Get("status"); v != "" {
		s := domain.Status(v)
		filter.Status = &s
	}
	if v := q.Get("from_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "from_date must be RFC3339")
			return
		}
		filter.FromDate = &t
	}
	if v := q.Get("to_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "to_date must be RFC3339")
			return
		}
		filter.ToDate = &t
	}

	var items []domain.Execution
	var total int
	var resp []JobResponse
	err := store.RunInTransactionReadOnly(r.Context(), func(ctx context.Context) error {
		var err error
		items, total, err = store.ListExecutions(ctx, a.dbName(), filter, store.NewPageParams(page, size))
		if err != nil {
			return err
		}
		lookup := newCronNameLookup(a)
		resp = make([]JobResponse, len(items))
		for i, e := range items {
			resp[i] = executionToResponse(e, lookup.resolve(ctx, e.JobID))
		}
		return nil
	}, a.engine)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(resp, total, page, size))
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var resp JobResponse
	err = store.RunInTransactionReadOnly(r.Context(), func(ctx context.Context) error {
		e, err := store.GetExecution(ctx, a.dbName(), id)
		if err != nil {
			return err
		}
		resp = executionToResponse(e, newCronNameLookup(a).resolve(ctx, e.JobID))
		return nil
	}, a.engine)
	if errors.Is(err, store.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not_found", "job execution not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) retryJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var resp JobResponse
	err = store.RunInTransaction(r.Context(), false, func(ctx context.Context) error {
		if err := store.RetryExecution(ctx, a.dbName(), id); err != nil {
			return err
		}
		e, err := store.GetExecution(ctx, a.dbName(), id)
		if err != nil {
			return err
		}
		resp = executionToResponse(e, newCronNameLookup(a).resolve(ctx, e.JobID))
		return nil
	}, a.engine)

	switch {
	case errors.Is(err, store.ErrNoRows):
		writeError(w, http.StatusNotFound, "not_found", "job execution not found")
	case errors.Is(err, store.ErrInvalidRetryState):
		writeError(w, http.StatusBadRequest, "invalid_state", "only FAILED or TIMEOUT executions may be retried")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (a *API) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	err = store.RunInTransaction(r.Context(), false, func(ctx context.Context) error {
		return store.DeleteExecution(ctx, a.dbName(), id)
	}, a.engine)
	if errors.Is(err, store.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not_found", "job execution not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recentJobs serves the in-memory ring buffer maintained by RecentActivity
// (§6.9): the natural consumer of ExecutionFinished events, beyond spec.md's
// paged GET /jobs.
func (a *API) recentJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.recent.Snapshot())
}

func parseInt64(s string) (int64, error) {
	var v int64
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}
