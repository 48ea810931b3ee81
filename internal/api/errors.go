package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/internal/middleware"
)

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error           string       `json:"error"`
	Kind            string       `json:"kind,omitempty"`
	Details         string       `json:"details,omitempty"`
	Check           string       `json:"check,omitempty"`
	TxRef           domain.TxRef `json:"txRef,omitempty"`
	AttestationHash string       `json:"attestationHash,omitempty"`
	CorrelationID   string       `json:"correlationId,omitempty"`
}

// statusFor maps a pipeline error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentialIndex):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthorized), errors.Is(err, domain.ErrOnlyOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusUnprocessableEntity
	}

	switch domain.ErrorKind(err) {
	case domain.ErrKindInput, domain.ErrKindUnknownTestType, domain.ErrKindOutOfRange:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(c *gin.Context, err error) ErrorResponse {
	resp := ErrorResponse{
		Error:         "internal server error",
		CorrelationID: c.GetString(middleware.CorrelationIDKey),
	}

	var ae *domain.AttestationError
	if errors.As(err, &ae) {
		resp.Error = ae.Message
		resp.Kind = ae.Kind
		resp.Details = ae.Details
		resp.Check = ae.Check
	}

	// Ledger revert reasons are surfaced verbatim.
	for _, reason := range []error{domain.ErrInvalidCredentialIndex, domain.ErrNotAuthorized, domain.ErrOnlyOwner, domain.ErrLedgerUnavailable} {
		if errors.Is(err, reason) {
			resp.Details = reason.Error()
			break
		}
	}
	return resp
}

// writeError renders err, attaching the outcome's ledger reference when the
// failure happened after an attestation was built.
func writeError(c *gin.Context, err error, outcome *domain.VerificationOutcome) {
	resp := newErrorResponse(c, err)
	if outcome != nil {
		resp.TxRef = outcome.TxRef
		resp.AttestationHash = outcome.AttestationHash
	}
	c.JSON(statusFor(err), resp)
}
