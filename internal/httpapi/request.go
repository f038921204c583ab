// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/samber/oops"

	"github.com/hellowebapp/hellowebapp/internal/auth"
)

const maxBodyBytes = 1 << 20

type validatable interface {
	Validate() error
}

// decode reads a JSON or urlencoded body into dst and validates it.
// The reset form posts urlencoded; everything else sends JSON.
func decode(w http.ResponseWriter, r *http.Request, dst validatable) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := decodeForm(r, dst); err != nil {
			return err
		}
		return dst.Validate()
	}

	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return malformedBody(err)
	}
	return dst.Validate()
}

func decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return malformedBody(err)
	}
	fields := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		fields[key] = r.PostForm.Get(key)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return malformedBody(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return malformedBody(err)
	}
	return nil
}

func malformedBody(err error) error {
	return oops.Code(auth.CodeValidationFailed).
		With("cause", err.Error()).
		Errorf("request body is invalid")
}
