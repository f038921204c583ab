// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package httpapi

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/samber/oops"
)

// SubmitResetPath receives the reset form.
const SubmitResetPath = "/api/auth/verify/reset-password"

var resetFormTemplate = template.Must(template.New("reset-form").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.AppName}} | Reset password</title>
</head>
<body>
<h1>Reset password</h1>
<form method="post" action="{{.Action}}">
<input type="hidden" name="token" value="{{.Token}}">
<input type="hidden" name="email" value="{{.Email}}">
<p><label>New password <input type="password" name="password" required></label></p>
<p><label>Confirm password <input type="password" name="passwordConfirmation" required></label></p>
<p><button type="submit">Reset password</button></p>
</form>
</body>
</html>
`))

type resetForm struct {
	AppName string
	Action  string
	Token   string
	Email   string
}

func writeResetForm(w http.ResponseWriter, form resetForm) error {
	form.Action = SubmitResetPath
	var buf bytes.Buffer
	if err := resetFormTemplate.Execute(&buf, form); err != nil {
		return oops.Code("RESET_FORM_RENDER_FAILED").Wrap(err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may have disconnected
	w.Write(buf.Bytes())
	return nil
}
