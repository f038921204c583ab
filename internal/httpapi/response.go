// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/hellowebapp/hellowebapp/internal/auth"
)

const internalMessage = "internal server error"

// errorBody is the failure envelope: {success:false, message, errors}.
type errorBody struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

// fieldError is one rejected request field.
type fieldError struct {
	Param string `json:"param"`
	Msg   string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may have disconnected
	json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// statusOf maps an error classification to its HTTP status.
func statusOf(kind auth.Kind) int {
	switch kind {
	case auth.KindBadRequest:
		return http.StatusBadRequest
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindForbidden:
		return http.StatusForbidden
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse builds the status and body for err. Internal errors get a
// generic message; the caller logs the original.
func errorResponse(err error) (int, errorBody) {
	kind := auth.KindOf(err)
	body := errorBody{Success: false, Message: internalMessage}
	if kind == auth.KindInternal {
		return statusOf(kind), body
	}

	if oopsErr, ok := oops.AsOops(err); ok {
		body.Message = oopsErr.Error()
		if fields, ok := oopsErr.Context()["errors"].([]fieldError); ok {
			body.Errors = fields
		}
	}
	return statusOf(kind), body
}
