package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/PrettySolution/driver-infrastructure/report"
)

type createRequest struct {
	VehicleID string `json:"vehicleId" validate:"required"`
}

type updateRequest struct {
	Type string `json:"type" validate:"required"`
}

type listResponse struct {
	Items            []report.Report `json:"items"`
	Limit            int32           `json:"limit"`
	LastEvaluatedKey string          `json:"lastEvaluatedKey,omitempty"`
}

func (a *API) createReport(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "vehicleId is required")
		return
	}

	created, err := a.reports.Create(r.Context(), caller(r), req.VehicleID)
	if err != nil {
		a.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"msg": "OK", "data": created})
}

func (a *API) getReport(w http.ResponseWriter, r *http.Request) {
	found, err := a.reports.Get(r.Context(), caller(r), pathKey(r))
	if err != nil {
		a.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, found)
}

func (a *API) updateReport(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "type is required")
		return
	}

	updated, err := a.reports.Update(r.Context(), caller(r), pathKey(r), req.Type)
	if err != nil {
		a.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (a *API) deleteReport(w http.ResponseWriter, r *http.Request) {
	if err := a.reports.Delete(r.Context(), caller(r), pathKey(r)); err != nil {
		a.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Report deleted successfully"})
}

func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	var limit int32
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = int32(n)
		}
	}

	items, next, err := a.reports.List(r.Context(), caller(r), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		a.respondFailure(w, r, err)
		return
	}

	if limit <= 0 {
		limit = report.DefaultLimit
	}
	respondJSON(w, http.StatusOK, listResponse{
		Items:            items,
		Limit:            limit,
		LastEvaluatedKey: next,
	})
}

// pathKey returns the addressing key from the route. Sort keys contain '#'
// and '&', so clients send them URL-escaped.
func pathKey(r *http.Request) string {
	raw := chi.URLParam(r, "key")
	key, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return key
}

// respondFailure maps facade errors onto transport responses. Internal
// failures never leak store detail to the caller.
func (a *API) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, report.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "bad request")
	case errors.Is(err, report.ErrNotFound):
		respondError(w, http.StatusNotFound, "Report not found")
	default:
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal failure")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}
