package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/health-attestation-server/internal/domain"
)

// IdempotencyHeader carries an optional client-chosen deduplication key.
const IdempotencyHeader = "Idempotency-Key"

type verifyRequest struct {
	Verified *bool `json:"verified"`
}

type verifyResponse struct {
	TxRef    domain.TxRef `json:"txRef"`
	Identity string       `json:"identity"`
	Index    int          `json:"index"`
	Verified bool         `json:"verified"`
}

type credentialsResponse struct {
	Count       int                       `json:"count"`
	Credentials []domain.CredentialRecord `json:"credentials"`
}

type submissionsResponse struct {
	Count       int                  `json:"count"`
	Submissions []*domain.Submission `json:"submissions"`
}

type standardsResponse struct {
	Count     int                       `json:"count"`
	Standards []*domain.MedicalStandard `json:"standards"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	cfg := s.configManager.GetConfig()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"ledger":    cfg.Ledger.Backend,
		"store":     cfg.Store.Backend,
		"version":   cfg.MCP.ServerVersion,
	})
}

// handleAttest runs verify-and-submit for one measurement.
func (s *Server) handleAttest(c *gin.Context) {
	var req domain.AttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewInputError("body", "Invalid JSON body: "+err.Error()), nil)
		return
	}
	if key := strings.TrimSpace(c.GetHeader(IdempotencyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	outcome, err := s.workflow.VerifyAndSubmit(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, outcome)
		return
	}
	if outcome.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleSetVerified(c *gin.Context) {
	identity := c.Param("identity")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, domain.NewInputError("index", "index must be an integer"), nil)
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewInputError("body", "Invalid JSON body: "+err.Error()), nil)
		return
	}
	if req.Verified == nil {
		writeError(c, domain.NewInputError("verified", "Missing required fields: verified"), nil)
		return
	}

	txRef, err := s.workflow.SetVerified(c.Request.Context(), identity, index, *req.Verified)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, verifyResponse{
		TxRef:    txRef,
		Identity: identity,
		Index:    index,
		Verified: *req.Verified,
	})
}

func (s *Server) handleCredentials(c *gin.Context) {
	records, err := s.workflow.Credentials(c.Request.Context(), c.Param("identity"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, credentialsResponse{Count: len(records), Credentials: records})
}

func (s *Server) handleSubmissions(c *gin.Context) {
	submissions, err := s.workflow.History(c.Request.Context(), c.Param("identity"), c.Query("testName"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	if submissions == nil {
		submissions = []*domain.Submission{}
	}
	c.JSON(http.StatusOK, submissionsResponse{Count: len(submissions), Submissions: submissions})
}

func (s *Server) handleStandards(c *gin.Context) {
	standards := s.workflow.Standards()
	c.JSON(http.StatusOK, standardsResponse{Count: len(standards), Standards: standards})
}

// handleStandard returns one catalog entry. With a value query parameter it
// also reports the range check and the advisory bands the value falls into.
func (s *Server) handleStandard(c *gin.Context) {
	testName := c.Param("testName")
	standard, ok := s.workflow.Standard(testName)
	if !ok {
		c.JSON(http.StatusNotFound, newErrorResponse(c, domain.NewUnknownTestTypeError(testName)))
		return
	}

	raw, present := c.GetQuery("value")
	if !present {
		c.JSON(http.StatusOK, standard)
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		writeError(c, domain.NewInputError("value", "value must be a finite number"), nil)
		return
	}
	check, err := s.workflow.Check(testName, value)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"standard": standard,
			"check":    check,
			"error":    newErrorResponse(c, err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"standard": standard, "check": check})
}
