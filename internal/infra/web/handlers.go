package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"prizewheel/internal/domain"
	"prizewheel/internal/domain/model"
	"prizewheel/internal/domain/ports/repository"
)

// codeResponse is the full record view for authorized callers.
type codeResponse struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	PrizeID   string     `json:"prize_id"`
	IsUsed    bool       `json:"is_used"`
	UsedBy    *string    `json:"used_by"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

func toCodeResponse(rec *model.CodeRecord) codeResponse {
	return codeResponse{
		ID:        rec.ID,
		Code:      rec.Code,
		PrizeID:   rec.PrizeID,
		IsUsed:    rec.IsUsed,
		UsedBy:    rec.UsedBy,
		UsedAt:    rec.UsedAt,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// sessionHandler exchanges the API key for a short-lived admin JWT.
func (s *Server) sessionHandler() http.HandlerFunc {
	type request struct {
		APIKey string `json:"api_key"`
	}
	type response struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if s.cfg.Security.APIKey == "" || req.APIKey != s.cfg.Security.APIKey {
			writeError(w, http.StatusForbidden, "invalid api key")
			return
		}
		if s.auth == nil {
			writeError(w, http.StatusInternalServerError, "sessions not configured")
			return
		}
		token, exp, err := s.auth.Mint()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to mint session")
			return
		}
		writeJSON(w, http.StatusOK, response{Token: token, ExpiresAt: exp})
	}
}

func (s *Server) generateHandler() http.HandlerFunc {
	type request struct {
		PrizeID string `json:"prize_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PrizeID == "" {
			writeError(w, http.StatusBadRequest, "prize_id is required")
			return
		}

		rec, err := s.uc.Generate(r.Context(), req.PrizeID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				writeError(w, http.StatusBadRequest, "prize_id is required")
				return
			}
			// ErrGenerationFailed and store faults alike are server-side.
			writeError(w, http.StatusInternalServerError, "failed to generate code")
			return
		}
		writeJSON(w, http.StatusCreated, toCodeResponse(rec))
	}
}

func (s *Server) validateHandler() http.HandlerFunc {
	type response struct {
		Exists  bool `json:"exists"`
		IsValid bool `json:"is_valid"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		res, err := s.uc.Validate(r.Context(), code)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "validation unavailable")
			return
		}
		// Absent codes answer 200 with is_valid=false; the public surface
		// must not distinguish "never issued" from "no longer valid".
		writeJSON(w, http.StatusOK, response{Exists: res.Exists, IsValid: res.IsValid})
	}
}

func (s *Server) redeemHandler() http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		rec, err := s.uc.Redeem(r.Context(), code, req.UserID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrCodeNotFound):
				writeError(w, http.StatusNotFound, "code not found")
			case errors.Is(err, domain.ErrCodeAlreadyUsed):
				writeError(w, http.StatusBadRequest, "already_used")
			case errors.Is(err, domain.ErrCodeExpired):
				writeError(w, http.StatusBadRequest, "expired")
			case errors.Is(err, domain.ErrInvalidArgument):
				writeError(w, http.StatusBadRequest, "user_id is required")
			default:
				writeError(w, http.StatusInternalServerError, "failed to redeem code")
			}
			return
		}
		writeJSON(w, http.StatusOK, toCodeResponse(rec))
	}
}

func (s *Server) detailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		rec, err := s.uc.GetDetails(r.Context(), code)
		if err != nil {
			if errors.Is(err, domain.ErrCodeNotFound) {
				writeError(w, http.StatusNotFound, "code not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load code")
			return
		}
		writeJSON(w, http.StatusOK, toCodeResponse(rec))
	}
}

func (s *Server) listHandler() http.HandlerFunc {
	type response struct {
		Codes      []codeResponse `json:"codes"`
		Total      int            `json:"total"`
		Page       int            `json:"page"`
		TotalPages int            `json:"total_pages"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var filter repository.CodeFilter
		if v := q.Get("prize_id"); v != "" {
			filter.PrizeID = &v
		}
		if v := q.Get("is_used"); v != "" {
			used, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "is_used must be a boolean")
				return
			}
			filter.IsUsed = &used
		}

		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		res, err := s.uc.List(r.Context(), filter, page, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list codes")
			return
		}

		codes := make([]codeResponse, 0, len(res.Records))
		for _, rec := range res.Records {
			codes = append(codes, toCodeResponse(rec))
		}
		writeJSON(w, http.StatusOK, response{
			Codes:      codes,
			Total:      res.Total,
			Page:       res.Page,
			TotalPages: res.TotalPages,
		})
	}
}

func (s *Server) statsHandler() http.HandlerFunc {
	type response struct {
		Active   int `json:"active"`
		Redeemed int `json:"redeemed"`
		Expired  int `json:"expired"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := s.uc.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load stats")
			return
		}
		writeJSON(w, http.StatusOK, response{
			Active:   counts.Active,
			Redeemed: counts.Redeemed,
			Expired:  counts.Expired,
		})
	}
}
