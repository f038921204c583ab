// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

// Package httpapi exposes the account flows over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hellowebapp/hellowebapp/internal/auth"
	"github.com/hellowebapp/hellowebapp/internal/observability"
	"github.com/hellowebapp/hellowebapp/pkg/errutil"
)

// Options configures the router.
type Options struct {
	// AppName and Version are reported by GET /api/version.
	AppName string
	Version string
	// Production enables the https redirect.
	Production bool
	// Origin is the allowed CORS origin, or "true" for any.
	Origin string
	// PublicURL, when set, is the origin used in emailed links.
	PublicURL string
}

// Handler serves the public API.
type Handler struct {
	svc        *auth.Service
	metrics    *observability.Metrics
	logger     *slog.Logger
	opts       Options
	refreshTTL time.Duration
	router     chi.Router
}

// NewHandler builds the API router around svc. A nil metrics disables
// recording; a nil logger uses slog.Default().
func NewHandler(svc *auth.Service, metrics *observability.Metrics, logger *slog.Logger, opts Options) (*Handler, error) {
	if svc == nil {
		return nil, oops.Code("HTTPAPI_CONFIG_INVALID").Errorf("auth service is required")
	}
	if opts.Origin == "" {
		return nil, oops.Code("HTTPAPI_CONFIG_INVALID").Errorf("cors origin is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AppName == "" {
		opts.AppName = auth.DefaultAppName
	}
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")

	h := &Handler{
		svc:        svc,
		metrics:    metrics,
		logger:     logger,
		opts:       opts,
		refreshTTL: svc.Tokens().RefreshTTL(),
	}
	h.router = h.routes()
	return h, nil
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.instrument)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(h.opts.Origin))
	if h.opts.Production {
		r.Use(httpsRedirect)
	}
	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.version)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.signup)
			r.Post("/signin", h.signin)
			r.With(h.requireAccess).Post("/signout", h.signout)
			r.With(h.requireAccess).Delete("/withdraw", h.withdraw)
			r.With(h.requireAccess).Post("/identify", h.sendIdentity)
			r.Get("/verify/identify/{id}/{hash}", h.verifyIdentity)
			r.Post("/reset-password", h.sendReset)
			r.Get("/reset-password/{token}", h.renderReset)
			r.Post("/verify/reset-password", h.submitReset)
			r.With(h.requireRefresh).Get("/refresh", h.refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAccess)
			r.Get("/user", h.profile)
			r.Patch("/user", h.updateProfile)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// fail records the flow outcome and writes the error envelope.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, flow string, err error) {
	h.metrics.RecordFlow(flow, err)
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), h.logger, "request failed", err)
	} else {
		h.logger.InfoContext(r.Context(), "request rejected",
			"flow", flow,
			"status", status,
			"code", errutil.Code(err),
			"message", body.Message,
		)
	}
	writeJSON(w, status, body)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Message: "Not Found. " + r.URL.Path})
}

// linkOrigin is the scheme and host emailed links point at.
func (h *Handler) linkOrigin(r *http.Request) string {
	if h.opts.PublicURL != "" {
		return h.opts.PublicURL
	}
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func userID(r *http.Request) ulid.ULID {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
