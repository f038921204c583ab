// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/oops"

	"github.com/hellowebapp/hellowebapp/internal/auth"
)

const (
	// AccessHeader carries the access token.
	AccessHeader = "x-access-token"
	// RefreshCookie carries the refresh token.
	RefreshCookie = "token"
	// RefreshPath scopes the refresh cookie to the rotation endpoint.
	RefreshPath = "/api/auth/refresh"

	unmatchedRoute = "unmatched"
	anyOrigin      = "true"
)

// instrument logs each request and records it in the request metrics.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		h.metrics.ObserveRequest(r.Method, route, status, elapsed)
		h.logger.InfoContext(r.Context(), "request served",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsHandler allows credentialed requests from origin. The value "true"
// reflects whatever origin the browser sends.
func corsHandler(origin string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Accept", "Content-Type", AccessHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if origin == anyOrigin {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	} else {
		opts.AllowedOrigins = []string{origin}
	}
	return cors.Handler(opts)
}

// httpsRedirect sends plain-HTTP requests that arrived through a proxy to
// the https URL.
func httpsRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "http" {
			http.Redirect(w, r, "https://"+r.Host+r.URL.RequestURI(), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAccess authenticates the request by its access header.
func (h *Handler) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(AccessHeader)
		if token == "" {
			h.fail(w, r, "access", oops.Code(auth.CodeAccessHeaderEmpty).Errorf("request header is invalid"))
			return
		}
		h.logger.DebugContext(r.Context(), "access token received",
			"method", r.Method,
			"path", r.URL.Path,
			"token", auth.Abbreviate(token),
		)

		userID, err := h.svc.Tokens().ValidateAccess(r.Context(), token)
		if err != nil {
			h.fail(w, r, "access", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

// requireRefresh authenticates the request by its refresh cookie.
func (h *Handler) requireRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(RefreshCookie)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			h.fail(w, r, "refresh", oops.Code(auth.CodeRefreshTokenEmpty).Errorf("refresh token not found"))
			return
		}
		h.logger.DebugContext(r.Context(), "refresh token received",
			"method", r.Method,
			"path", r.URL.Path,
			"token", auth.Abbreviate(cookie.Value),
		)

		userID, err := h.svc.Tokens().ValidateRefresh(r.Context(), cookie.Value)
		if err != nil {
			h.fail(w, r, "refresh", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    token,
		Path:     RefreshPath,
		MaxAge:   int(h.refreshTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     RefreshPath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
