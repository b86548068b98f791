package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/petabytecl/jobu/internal/cronspec"
	"github.com/petabytecl/jobu/internal/domain"
	"github.com/petabytecl/jobu/internal/store"
)

// CronResponse is the wire shape of a cron definition, grounded on
// original_source/admin/api/model/cron.py's CronResponse.
type CronResponse struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	CronExpression string          `json:"cron_expression"`
	HandlerName    string          `json:"handler_name"`
	HandlerParams  json.RawMessage `json:"handler_params,omitempty"`
	IsEnabled      bool            `json:"is_enabled"`
	AllowOverlap   bool            `json:"allow_overlap"`
	MaxRetry       int             `json:"max_retry"`
	TimeoutSeconds int             `json:"timeout_seconds"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func cronToResponse(d domain.CronDefinition) CronResponse {
	var params json.RawMessage
	if d.HandlerParams != "" {
		params = json.RawMessage(d.HandlerParams)
	}
	return CronResponse{
		ID: d.ID, Name: d.Name, Description: d.Description, CronExpression: d.CronExpression,
		HandlerName: d.HandlerName, HandlerParams: params, IsEnabled: d.IsEnabled, AllowOverlap: d.AllowOverlap,
		MaxRetry: d.MaxRetry, TimeoutSeconds: d.TimeoutSeconds, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

// CronCreateRequest is POST /crons' body, grounded on
// original_source/admin/api/model/cron.py's CronCreateRequest.
type CronCreateRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	CronExpression string          `json:"cron_expression"`
	HandlerName    string          `json:"handler_name"`
	HandlerParams  json.RawMessage `json:"handler_params"`
	IsEnabled      *bool           `json:"is_enabled"`
	AllowOverlap   *bool           `json:"allow_overlap"`
	MaxRetry       *int            `json:"max_retry"`
	TimeoutSeconds *int            `json:"timeout_seconds"`
}

func (r CronCreateRequest) toDomain() domain.CronDefinition {
	d := domain.CronDefinition{
		Name: r.Name, Description: r.Description, CronExpression: r.CronExpression,
		HandlerName: r.HandlerName, IsEnabled: true, AllowOverlap: true,
		MaxRetry: 3, TimeoutSeconds: 3600,
	}
	if len(r.HandlerParams) > 0 {
		d.HandlerParams = string(r.HandlerParams)
	}
	if r.IsEnabled != nil {
		d.IsEnabled = *r.IsEnabled
	}
	if r.AllowOverlap != nil {
		d.AllowOverlap = *r.AllowOverlap
	}
	if r.MaxRetry != nil {
		d.MaxRetry = *r.MaxRetry
	}
	if r.TimeoutSeconds != nil {
		d.TimeoutSeconds = *r.TimeoutSeconds
	}
	return d
}

// CronUpdateRequest is PUT /crons/{id}'s body: every field optional, a nil
// field leaves the existing value unchanged, grounded on
// original_source/admin/api/model/cron.py's CronUpdateRequest /
// CronHandler.update's merge-over-existing logic.
type CronUpdateRequest struct {
	Name           *string         `json:"name"`
	Description    *string         `json:"description"`
	CronExpression *string         `json:"cron_expression"`
	HandlerName    *string         `json:"handler_name"`
	HandlerParams  json.RawMessage `json:"handler_params"`
	IsEnabled      *bool           `json:"is_enabled"`
	AllowOverlap   *bool           `json:"allow_overlap"`
	MaxRetry       *int            `json:"max_retry"`
	TimeoutSeconds *int            `json:"timeout_seconds"`
}

func (r CronUpdateRequest) applyTo(d *domain.CronDefinition) {
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.Description != nil {
		d.Description = *r.Description
	}
	if r.CronExpression != nil {
		d.CronExpression = *r.CronExpression
	}
	if r.HandlerName != nil {
		d.HandlerName = *r.HandlerName
	}
	if r.HandlerParams != nil {
		d.HandlerParams = string(r.HandlerParams)
	}
	if r.IsEnabled != nil {
		d.IsEnabled = *r.IsEnabled
	}
	if r.AllowOverlap != nil {
		d.AllowOverlap = *r.AllowOverlap
	}
	if r.MaxRetry != nil {
		d.MaxRetry = *r.MaxRetry
	}
	if r.TimeoutSeconds != nil {
		d.TimeoutSeconds = *r.TimeoutSeconds
	}
}

// validateCronExpression mirrors CronHandler.validate_cron_expression:
// cronspec.Parse already enforces the minimum-interval invariant, so a
// successful parse is sufficient validation here. The admin API has no
// access to the dispatcher's own runtime-configured minimum (it may run in
// a separate process), so it validates against cronspec.MinInterval, the
// lower bound CronConfig.Validate places on every MinCronInterval value.
func validateCronExpression(expr string) error {
	_, err := cronspec.Parse(expr, cronspec.MinInterval)
	return err
}

func (a *API) listCrons(w http.ResponseWriter, r *http.Request) {
	page, size := parsePaging(r)
	filter := store.CronListFilter{}
	if v := r.URL.Query().Get("is_enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "is_enabled must be a boolean")
			return
		}
		filter.IsEnabled = &b
	}

	var items []domain.CronDefinition
	var total int
	err := store.RunInTransactionReadOnly(r.Context(), func(ctx context.Context) error {
		var err error
		items, total, err = store.ListCronDefinitions(ctx, a.dbName(), filter, store.NewPageParams(page, size))
		return err
	}, a.engine)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
		return
	}

	resp := make([]CronResponse, len(items))
	for i, d := range items {
		resp[i] = cronToResponse(d)
	}
	writeJSON(w, http.StatusOK, newPageResponse(resp, total, page, size))
}

func (a *API) getCron(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var d domain.CronDefinition
	err = store.RunInTransactionReadOnly(r.Context(), func(ctx context.Context) error {
		var err error
		d, err = store.GetCronDefinition(ctx, a.dbName(), id)
		return err
	}, a.engine)
	if errors.Is(err, store.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not_found", "cron definition not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cronToResponse(d))
}

func (a *API) createCron(w http.ResponseWriter, r *http.Request) {
	var req CronCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	d := req.toDomain()
	if err := d.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if err := validateCronExpression(d.CronExpression); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var id int64
	err := store.RunInTransaction(r.Context(), false, func(ctx context.Context) error {
		var err error
		id, err = store.CreateCronDefinition(ctx, a.dbName(), &d)
		return err
	}, a.engine)
	if errors.Is(err, store.ErrDuplicateName) {
		writeError(w, http.StatusConflict, "duplicate", "a cron with this name already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
		return
	}
	d.ID = id
	writeJSON(w, http.StatusCreated, cronToResponse(d))
}

func (a *API) updateCron(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var req CronUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	var updated domain.CronDefinition
	err = store.RunInTransaction(r.Context(), false, func(ctx context.Context) error {
		existing, err := store.GetCronDefinition(ctx, a.dbName(), id)
		if err != nil {
			return err
		}
		req.applyTo(&existing)
		if err := existing.Validate(); err != nil {
			return validationError{err}
		}
		if req.CronExpression != nil {
			if err := validateCronExpression(existing.CronExpression); err != nil {
				return validationError{err}
			}
		}
		if err := store.UpdateCronDefinition(ctx, a.dbName(), &existing); err != nil {
			return err
		}
		updated = existing
		return nil
	}, a.engine)

	switch {
	case errors.Is(err, store.ErrNoRows):
		writeError(w, http.StatusNotFound, "not_found", "cron definition not found")
	case errors.Is(err, store.ErrDuplicateName):
		writeError(w, http.StatusConflict, "duplicate", "a cron with this name already exists")
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
	default:
		writeJSON(w, http.StatusOK, cronToResponse(updated))
	}
}

func (a *API) deleteCron(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	err = store.RunInTransaction(r.Context(), false, func(ctx context.Context) error {
		return store.DeleteCronDefinition(ctx, a.dbName(), id)
	}, a.engine)
	if errors.Is(err, store.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not_found", "cron definition not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) toggleCron(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var d domain.CronDefinition
	err = store.RunInTransaction(r.Context(), false, func(ctx context.Context) error {
		if _, err := store.ToggleCronDefinitionEnabled(ctx, a.dbName(), id); err != nil {
			return err
		}
		var err error
		d, err = store.GetCronDefinition(ctx, a.dbName(), id)
		return err
	}, a.engine)
	if errors.Is(err, store.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not_found", "cron definition not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cronToResponse(d))
}

// validationError wraps a validation failure surfaced from inside a
// RunInTransaction closure, distinguishing it from a storage error at the
// call site without inspecting error strings.
type validationError struct{ err error }

func (v validationError) Error() string { return v.err.Error() }
func (v validationError) Unwrap() error { return v.err }

func isValidationError(err error) bool {
	var v validationError
	return errors.As(err, &v)
}
