// Package handler exposes the registry lookup over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"siren/internal/platform/metrics"
	"siren/internal/platform/middleware"
	"siren/internal/registry"
	"siren/internal/registry/models"
	"siren/internal/registry/service"
	id "siren/pkg/domain"
	dErrors "siren/pkg/domain-errors"
	audit "siren/pkg/platform/audit"
	"siren/pkg/platform/httputil"
	"siren/pkg/platform/middleware/admin"
	"siren/pkg/platform/middleware/metadata"
	"siren/pkg/platform/middleware/requesttime"
)

// Messages returned when the registry call cannot be relayed.
const (
	MessageNoData         = "No data found for the provided SIREN number."
	MessageAuthentication = "Failed to authenticate with registry API"
	MessageTransport      = "Error setting up request to registry API."
)

// DefaultRequestTimeout bounds every registry request, retries included.
const DefaultRequestTimeout = 30 * time.Second

// Service defines the interface for registry operations.
type Service interface {
	Lookup(ctx context.Context, siren id.SirenNumber) (*models.Contact, error)
	Import(ctx context.Context, userID id.UserID, siren id.SirenNumber) (*models.BusinessRecord, error)
	ListImports(ctx context.Context, userID id.UserID) ([]*models.BusinessRecord, error)
	GetImport(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.BusinessRecord, error)
	InvalidateToken(ctx context.Context)
	AuditTrail(ctx context.Context, q service.AuditQuery) ([]audit.Event, error)
}

// Handler handles registry endpoints.
type Handler struct {
	logger         *slog.Logger
	service        Service
	metrics        *metrics.Metrics
	jwtValidator   middleware.JWTValidator
	adminToken     string
	requestTimeout time.Duration
}

type Option func(*Handler)

// WithAdminToken enables the operator routes guarded by X-Admin-Token.
func WithAdminToken(token string) Option {
	return func(h *Handler) {
		h.adminToken = token
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// New creates a new registry Handler.
func New(
	service Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	opts ...Option,
) *Handler {
	h := &Handler{
		logger:         logger,
		service:        service,
		metrics:        metrics,
		jwtValidator:   jwtValidator,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger, h.metrics))
		r.Use(middleware.RequestID)
		r.Use(metadata.ClientMetadata)
		r.Use(requesttime.Middleware)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.requestTimeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
			r.Get("/registry/companies/{siren}", h.handleLookup)
			r.Post("/registry/companies/{siren}/import", h.handleImport)
			r.Get("/registry/imports", h.handleListImports)
			r.Get("/registry/imports/{id}", h.handleGetImport)
		})

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
			r.Post("/admin/registry/token/invalidate", h.handleInvalidateToken)
			r.Get("/admin/registry/audit", h.handleAuditTrail)
		})
	})
}

// handleLookup returns the normalized contact for a SIREN number.
func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	siren, ok := h.sirenParam(w, r)
	if !ok {
		return
	}

	contact, err := h.service.Lookup(r.Context(), siren)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, contact)
}

// handleImport looks up a SIREN number and saves it for the caller.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	siren, ok := h.sirenParam(w, r)
	if !ok {
		return
	}

	record, err := h.service.Import(ctx, userID, siren)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

type listImportsResponse struct {
	Records []*models.BusinessRecord `json:"records"`
}

func (h *Handler) handleListImports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListImports(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list imports",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []*models.BusinessRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, listImportsResponse{Records: records})
}

func (h *Handler) handleGetImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.GetImport(ctx, userID, recordID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to load import",
				"error", err,
				"request_id", middleware.GetRequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleInvalidateToken(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateToken(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type auditTrailResponse struct {
	Events []audit.Event `json:"events"`
}

// handleAuditTrail serves ?siren= or ?user_id= from the retained audit events.
func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var q service.AuditQuery
	if v := r.URL.Query().Get("siren"); v != "" {
		siren, err := id.ParseSirenNumber(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		q.Siren = siren
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		userID, err := id.ParseUserID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		q.UserID = userID
	}

	events, err := h.service.AuditTrail(ctx, q)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to read audit trail",
				"error", err,
				"request_id", middleware.GetRequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, auditTrailResponse{Events: events})
}

func (h *Handler) sirenParam(w http.ResponseWriter, r *http.Request) (id.SirenNumber, bool) {
	siren, err := id.ParseSirenNumber(chi.URLParam(r, "siren"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return siren, true
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID := middleware.GetUserID(r)
	if userID.IsNil() {
		// RequireAuth guarantees a user on these routes
		h.logger.ErrorContext(r.Context(), "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.UserID{}, false
	}
	return userID, true
}

// writeLookupError relays upstream answers verbatim and maps every other
// failure to a fixed message.
func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var de *dErrors.Error
	switch {
	case errors.Is(err, registry.ErrNoData):
		writeMessage(w, http.StatusNotFound, "not_found", MessageNoData)
		return
	case errors.Is(err, registry.ErrAuthentication):
		writeMessage(w, http.StatusInternalServerError, "registry_authentication_failed", MessageAuthentication)
		return
	case errors.As(err, &de):
		if de.Code == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "registry request failed",
				"error", err,
				"request_id", middleware.GetRequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	outcome := registry.Classify(err)
	if outcome.Kind == registry.OutcomeUpstreamHTTP {
		httputil.WriteRaw(w, outcome.Status, outcome.ContentType, outcome.Body)
		return
	}
	writeMessage(w, http.StatusInternalServerError, "registry_unavailable", MessageTransport)
}

func writeMessage(w http.ResponseWriter, status int, code, message string) {
	httputil.WriteJSON(w, status, map[string]string{
		"error":             code,
		"error_description": message,
	})
}
