// Package handler exposes the registry over HTTP. Handlers stay thin: decode,
// validate shape, call the service, render. All authorization and chain
// semantics live in the service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"strdep/internal/registry/models"
	"strdep/internal/registry/service"
	dErrors "strdep/pkg/domain-errors"
	"strdep/pkg/platform/httputil"
	"strdep/pkg/requestcontext"
)

// Service is the application surface the handlers call.
type Service interface {
	SubmitArea(ctx context.Context, input service.SubmitAreaInput) (*models.Area, error)
	DeactivateArea(ctx context.Context, areaID string) error
	ListAreas(ctx context.Context, page service.Page) (*service.AreaPage, error)
	CountAreas(ctx context.Context) (int, error)
	GetAreaFile(ctx context.Context, areaID string) (*service.AreaFile, error)

	SubmitActivity(ctx context.Context, input service.SubmitActivityInput) (*models.Activity, error)
	DeactivateActivity(ctx context.Context, activityID string) error
	ListActivities(ctx context.Context, q service.ActivityQuery) (*service.ActivityPage, error)
	CountActivities(ctx context.Context, q service.ActivityQuery) (int, error)
}

// Handler handles registry endpoints.
type Handler struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
}

// New creates a registry Handler.
func New(svc Service, logger *zap.Logger) *Handler {
	return &Handler{
		service:  svc,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts the registry routes on the router. Authentication middleware
// is applied by the caller so tests can inject principals directly.
func (h *Handler) Register(r chi.Router) {
	r.Route("/areas", func(r chi.Router) {
		r.Post("/", h.handleSubmitArea)
		r.Get("/", h.handleListAreas)
		r.Get("/count", h.handleCountAreas)
		r.Delete("/{areaId}", h.handleDeactivateArea)
		r.Get("/{areaId}/file", h.handleGetAreaFile)
	})
	r.Route("/activities", func(r chi.Router) {
		r.Post("/", h.handleSubmitActivity)
		r.Get("/", h.handleListActivities)
		r.Get("/count", h.handleCountActivities)
		r.Delete("/{activityId}", h.handleDeactivateActivity)
	})
}

// decode unmarshals and shape-validates a JSON request body.
func (h *Handler) decode(r *http.Request, into any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return dErrors.New(dErrors.CodeBadRequest, "content type must be application/json")
		}
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(into); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			f := fields[0]
			return dErrors.Newf(dErrors.CodeValidationSyntax, "field %s failed %s validation", f.Field(), f.Tag())
		}
		return dErrors.New(dErrors.CodeValidationSyntax, "invalid request")
	}
	return nil
}

func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestcontext.RequestID(r.Context())),
			zap.Error(err))
	}
	httputil.WriteError(w, err)
}

func (h *Handler) handleSubmitArea(w http.ResponseWriter, r *http.Request) {
	var req submitAreaRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(r, w, err)
		return
	}

	area, err := h.service.SubmitArea(r.Context(), req.toInput())
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, area)
}

func (h *Handler) handleListAreas(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	result, err := h.service.ListAreas(r.Context(), page)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCountAreas(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.CountAreas(r.Context())
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, countResponse{Total: total})
}

func (h *Handler) handleDeactivateArea(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeactivateArea(r.Context(), chi.URLParam(r, "areaId")); err != nil {
		h.writeError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetAreaFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.GetAreaFile(r.Context(), chi.URLParam(r, "areaId"))
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	_, _ = w.Write(file.Data)
}

func (h *Handler) handleSubmitActivity(w http.ResponseWriter, r *http.Request) {
	var req submitActivityRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(r, w, err)
		return
	}

	activity, err := h.service.SubmitActivity(r.Context(), req.toInput())
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, activity)
}

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	q := activityQueryFrom(r)
	q.Page = page
	result, err := h.service.ListActivities(r.Context(), q)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCountActivities(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.CountActivities(r.Context(), activityQueryFrom(r))
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, countResponse{Total: total})
}

func (h *Handler) handleDeactivateActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeactivateActivity(r.Context(), chi.URLParam(r, "activityId")); err != nil {
		h.writeError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type countResponse struct {
	Total int `json:"total"`
}

func activityQueryFrom(r *http.Request) service.ActivityQuery {
	return service.ActivityQuery{
		AreaID:             r.URL.Query().Get("areaId"),
		URL:                r.URL.Query().Get("url"),
		RegistrationNumber: r.URL.Query().Get("registrationNumber"),
		PostalCode:         r.URL.Query().Get("postalCode"),
	}
}

func pageFromQuery(r *http.Request) (service.Page, error) {
	var page service.Page
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, dErrors.New(dErrors.CodeValidationSyntax, "offset must be an integer")
		}
		page.Offset = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, dErrors.New(dErrors.CodeValidationSyntax, "limit must be an integer")
		}
		page.Limit = n
	}
	return page, nil
}
