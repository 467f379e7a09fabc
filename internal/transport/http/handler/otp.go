package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/qwiksale/verify-api/internal/application/otp"
	"github.com/qwiksale/verify-api/internal/domain"
	"github.com/qwiksale/verify-api/internal/pkg/validate"
	"github.com/qwiksale/verify-api/internal/transport/http/middleware"
)

// issuedMessage is deliberately identical for known and unknown identifiers.
const issuedMessage = "If this identifier exists, a code has been sent."

// OTPHandler handles code issuance and verification endpoints.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler {
	return &OTPHandler{svc: svc}
}

type requestBody struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type verifyBody struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// Request issues a code. The identifier is taken from the query string first,
// then the JSON body, then the authenticated session's claims.
func (h *OTPHandler) Request(w http.ResponseWriter, r *http.Request) {
	identifier := identifierFromQuery(r)
	if identifier == "" {
		var body requestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			identifier = pick(body.Email, body.Phone)
		}
	}
	if identifier == "" {
		identifier = identifierFromClaims(r)
	}
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "email or phone required")
		return
	}

	if err := h.svc.Issue(r.Context(), identifier, middleware.RealIP(r)); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: issuedMessage})
}

// Verify checks a supplied code. Each outcome keeps its own status so client
// UIs can distinguish "code expired, resend" from "wrong code, retry".
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	identifier := pick(body.Email, body.Phone)
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "email or phone required")
		return
	}

	outcome, err := h.svc.Verify(r.Context(), identifier, body.Code, middleware.RealIP(r))
	if err != nil {
		httpError(w, err)
		return
	}

	switch outcome {
	case domain.OutcomeOK:
		writeJSON(w, http.StatusOK, VerifyEnvelope{Outcome: outcome, Message: "identifier confirmed"})
	case domain.OutcomeExpired:
		writeJSON(w, http.StatusGone, VerifyEnvelope{Outcome: outcome, Error: "code expired, request a new one"})
	case domain.OutcomeMismatch:
		writeJSON(w, http.StatusBadRequest, VerifyEnvelope{Outcome: outcome, Error: "wrong code"})
	default:
		writeJSON(w, http.StatusBadRequest, VerifyEnvelope{Outcome: domain.OutcomeMissing, Error: "no code pending for this identifier"})
	}
}

// httpError maps domain errors to status codes. Throttling gets a distinct
// response with Retry-After; it reveals nothing about account existence.
func httpError(w http.ResponseWriter, err error) {
	var throttled *domain.ThrottledError
	switch {
	case errors.As(err, &throttled):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(throttled.RetryAfter.Seconds())))
		writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func identifierFromQuery(r *http.Request) string {
	return pick(r.URL.Query().Get("email"), r.URL.Query().Get("phone"))
}

func identifierFromClaims(r *http.Request) string {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	if claims.Email != "" {
		return claims.Email
	}
	if claims.Phone != nil {
		return *claims.Phone
	}
	return ""
}

func pick(email, phone string) string {
	if email != "" {
		return email
	}
	return phone
}
