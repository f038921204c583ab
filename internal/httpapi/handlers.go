// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hellowebapp/hellowebapp/internal/auth"
)

// Flow names used in logs and the flow metric.
const (
	flowSignup         = "signup"
	flowSignin         = "signin"
	flowSignout        = "signout"
	flowWithdraw       = "withdraw"
	flowIdentitySend   = "identity_send"
	flowIdentityVerify = "identity_verify"
	flowResetSend      = "reset_send"
	flowResetRender    = "reset_render"
	flowResetSubmit    = "reset_submit"
	flowRefresh        = "refresh"
	flowProfileRead    = "profile_read"
	flowProfileUpdate  = "profile_update"
)

func (h *Handler) version(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]any{
		"name":    h.opts.AppName,
		"version": h.opts.Version,
		"isProd":  h.opts.Production,
	})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, flowSignup, err)
		return
	}
	err := h.svc.Signup(r.Context(), auth.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Origin:   h.linkOrigin(r),
	})
	if err != nil {
		h.fail(w, r, flowSignup, err)
		return
	}
	h.metrics.RecordFlow(flowSignup, nil)
	writeOK(w, nil)
}

func (h *Handler) signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, flowSignin, err)
		return
	}
	result, err := h.svc.Signin(r.Context(), auth.SigninInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, flowSignin, err)
		return
	}
	h.metrics.RecordFlow(flowSignin, nil)
	h.setRefreshCookie(w, result.Tokens.RefreshToken)
	writeOK(w, map[string]any{
		"token": result.Tokens.AccessToken,
		"user":  result.Profile,
	})
}

func (h *Handler) signout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Signout(r.Context(), userID(r)); err != nil {
		h.fail(w, r, flowSignout, err)
		return
	}
	h.metrics.RecordFlow(flowSignout, nil)
	clearRefreshCookie(w)
	writeOK(w, nil)
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, flowWithdraw, err)
		return
	}
	if err := h.svc.Withdraw(r.Context(), userID(r), req.Password); err != nil {
		h.fail(w, r, flowWithdraw, err)
		return
	}
	h.metrics.RecordFlow(flowWithdraw, nil)
	clearRefreshCookie(w)
	writeOK(w, nil)
}

func (h *Handler) sendIdentity(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SendIdentity(r.Context(), userID(r), h.linkOrigin(r)); err != nil {
		h.fail(w, r, flowIdentitySend, err)
		return
	}
	h.metrics.RecordFlow(flowIdentitySend, nil)
	writeOK(w, nil)
}

func (h *Handler) verifyIdentity(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	outcome, err := h.svc.VerifyIdentity(r.Context(), chi.URLParam(r, "id"), auth.IdentityRequest{
		RequestURI:  r.URL.RequestURI(),
		Fingerprint: chi.URLParam(r, "hash"),
		Expires:     query.Get("expires"),
		Signature:   query.Get("signature"),
	})
	if err != nil {
		h.fail(w, r, flowIdentityVerify, err)
		return
	}
	h.metrics.RecordFlow(flowIdentityVerify, nil)
	if outcome == auth.IdentityAlreadyVerified {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "the account has been verified",
	})
}

func (h *Handler) sendReset(w http.ResponseWriter, r *http.Request) {
	var req resetSendRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, flowResetSend, err)
		return
	}
	if err := h.svc.SendReset(r.Context(), req.Email, h.linkOrigin(r)); err != nil {
		h.fail(w, r, flowResetSend, err)
		return
	}
	h.metrics.RecordFlow(flowResetSend, nil)
	writeOK(w, nil)
}

func (h *Handler) renderReset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	email := r.URL.Query().Get("email")
	if err := h.svc.CheckReset(r.Context(), email, token); err != nil {
		h.fail(w, r, flowResetRender, err)
		return
	}
	if err := writeResetForm(w, resetForm{AppName: h.opts.AppName, Token: token, Email: email}); err != nil {
		h.fail(w, r, flowResetRender, err)
		return
	}
	h.metrics.RecordFlow(flowResetRender, nil)
}

func (h *Handler) submitReset(w http.ResponseWriter, r *http.Request) {
	var req resetSubmitRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, flowResetSubmit, err)
		return
	}
	err := h.svc.SubmitReset(r.Context(), auth.ResetInput{
		Email:    req.Email,
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, flowResetSubmit, err)
		return
	}
	h.metrics.RecordFlow(flowResetSubmit, nil)
	writeOK(w, map[string]any{
		"message": "the password has been reset, sign in with the new password",
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.svc.Refresh(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, flowRefresh, err)
		return
	}
	h.metrics.RecordFlow(flowRefresh, nil)
	h.setRefreshCookie(w, tokens.RefreshToken)
	writeOK(w, map[string]any{"token": tokens.AccessToken})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Profile(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, flowProfileRead, err)
		return
	}
	h.metrics.RecordFlow(flowProfileRead, nil)
	writeOK(w, map[string]any{"user": profile})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, flowProfileUpdate, err)
		return
	}
	profile, err := h.svc.UpdateProfile(r.Context(), userID(r), auth.ProfileInput{
		Name:   req.Name,
		Email:  req.Email,
		Origin: h.linkOrigin(r),
	})
	if err != nil {
		h.fail(w, r, flowProfileUpdate, err)
		return
	}
	h.metrics.RecordFlow(flowProfileUpdate, nil)
	writeOK(w, map[string]any{"user": profile})
}
