package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/lox/fishingadvice/internal/advice"
	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/validation"
)

const maxRequestBody = 1 << 20

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
	Error  string    `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Time: time.Now().UTC()}
	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status = "error"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req advice.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return
	}
	if err := validation.Struct(&req); err != nil {
		resp := errorResponse{Error: "invalid request"}
		var verr *validation.Error
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	resp, err := s.advisor.Advise(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logging.Ctx(r.Context()).Error().Err(err).Str("venue", req.Venue).Msg("advice failed")
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, advice.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, advice.ErrReportsUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleVenueProfile(w http.ResponseWriter, r *http.Request) {
	venue := chi.URLParam(r, "venue")
	if v, err := url.PathUnescape(venue); err == nil {
		venue = v
	}

	profile, err := s.store.GetVenueProfile(r.Context(), venue)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("venue", venue).Msg("profile lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "profile lookup failed"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no profile for venue"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("write response")
	}
}
