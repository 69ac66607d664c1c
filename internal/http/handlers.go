package http

import (
	"encoding/json"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"

	"github.com/go-chi/chi/v5"
)

// transactionResponse wraps the updated profile after a ledger change.
type transactionResponse struct {
	Message string        `json:"message"`
	User    *core.Profile `json:"user"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil || !json.Valid(body) {
		if err == nil {
			err = errMalformedBody
		}
		writeError(w, r, log.OpPredict, err, "")
		return
	}

	res := s.predictor.Predict(r.Context(), body)
	status := http.StatusOK
	if res.Degraded {
		status = http.StatusInternalServerError
	}
	NewJSONResponse().Status(status).Raw(res.Body).Write(w)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	email, err := pathEmail(r)
	if err != nil {
		writeError(w, r, log.OpFetch, err, "")
		return
	}
	p, err := s.profiles.FetchOrCreate(r.Context(), email)
	if err != nil {
		writeError(w, r, log.OpFetch, err, "Error creating or fetching user")
		return
	}
	NewJSONResponse().JSON(p).Write(w)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err, "")
		return
	}
	p, err := s.profiles.BulkUpdate(r.Context(), req.Email, req.toUpdate())
	if err != nil {
		writeError(w, r, log.OpUpdate, err, "Error updating user data")
		return
	}
	NewJSONResponse().JSON(p).Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpApply, err, "")
		return
	}
	if req.Email == "" || req.Transaction == nil {
		writeError(w, r, log.OpApply, &core.ValidationError{Err: core.ErrMissingFields}, "")
		return
	}

	p, err := s.profiles.AddTransaction(r.Context(), req.Email, *req.Transaction)
	if err != nil {
		writeError(w, r, log.OpApply, err, "")
		return
	}
	NewJSONResponse().JSON(transactionResponse{Message: "Transaction added successfully", User: p}).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	email, err := pathEmail(r)
	if err != nil {
		writeError(w, r, log.OpRetract, err, "")
		return
	}
	index := parseIndex(chi.URLParam(r, "index"))

	p, err := s.profiles.RemoveTransaction(r.Context(), email, index)
	if err != nil {
		writeError(w, r, log.OpRetract, err, "")
		return
	}
	NewJSONResponse().JSON(transactionResponse{Message: "Transaction deleted successfully", User: p}).Write(w)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.Ready(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "not ready", err.Error()).Write(w)
		return
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
