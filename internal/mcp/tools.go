package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/health-attestation-server/internal/domain"
)

// Tool names
const (
	ToolValidateMeasurement = "validate_measurement"
	ToolAttestMeasurement   = "attest_measurement"
	ToolListSubmissions     = "list_submissions"
	ToolListCredentials     = "list_credentials"
	ToolListStandards       = "list_standards"
)

// ValidateMeasurementParams defines parameters for the validate_measurement tool
type ValidateMeasurementParams struct {
	TestName string  `json:"testName" jsonschema:"the test type, for example Blood Glucose"`
	Value    float64 `json:"value" jsonschema:"the measured value in the unit of the test type"`
}

// AttestMeasurementParams defines parameters for the attest_measurement tool
type AttestMeasurementParams struct {
	Identity       string   `json:"identity" jsonschema:"the submitter identity credentials are recorded under"`
	TestName       string   `json:"testName" jsonschema:"the test type, for example Blood Glucose"`
	Value          *float64 `json:"value" jsonschema:"the measured value in the unit of the test type"`
	PatientID      string   `json:"patientId" jsonschema:"the patient identifier embedded in the attestation"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty" jsonschema:"optional key that deduplicates retries of the same request"`
}

// IdentityParams defines parameters for the identity-scoped read tools
type IdentityParams struct {
	Identity string `json:"identity" jsonschema:"the submitter identity"`
	TestName string `json:"testName,omitempty" jsonschema:"optional test type filter, ignored by list_credentials"`
}

// ListStandardsParams is empty; list_standards takes no arguments
type ListStandardsParams struct{}

// handleValidateMeasurement handles the validate_measurement tool invocation
func (s *Server) handleValidateMeasurement(ctx context.Context, req *mcp.CallToolRequest, params ValidateMeasurementParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolValidateMeasurement).Info("Tool invoked")

	check, err := s.workflow.Check(params.TestName, params.Value)
	if err != nil {
		return s.createErrorResult("Measurement failed range validation", err, check), nil, nil
	}
	return s.createJSONResult(check)
}

// handleAttestMeasurement handles the attest_measurement tool invocation
func (s *Server) handleAttestMeasurement(ctx context.Context, req *mcp.CallToolRequest, params AttestMeasurementParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolAttestMeasurement).Info("Tool invoked")

	outcome, err := s.workflow.VerifyAndSubmit(ctx, &domain.AttestationRequest{
		Identity:       params.Identity,
		TestName:       params.TestName,
		Value:          params.Value,
		PatientID:      params.PatientID,
		IdempotencyKey: params.IdempotencyKey,
	})
	if err != nil {
		return s.createErrorResult("Attestation failed", err, outcome), nil, nil
	}
	return s.createJSONResult(outcome)
}

// handleListSubmissions handles the list_submissions tool invocation
func (s *Server) handleListSubmissions(ctx context.Context, req *mcp.CallToolRequest, params IdentityParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListSubmissions).Info("Tool invoked")

	submissions, err := s.workflow.History(ctx, params.Identity, params.TestName)
	if err != nil {
		return s.createErrorResult("Failed to list submissions", err, nil), nil, nil
	}
	if submissions == nil {
		submissions = []*domain.Submission{}
	}
	return s.createJSONResult(map[string]interface{}{
		"count":       len(submissions),
		"submissions": submissions,
	})
}

// handleListCredentials handles the list_credentials tool invocation
func (s *Server) handleListCredentials(ctx context.Context, req *mcp.CallToolRequest, params IdentityParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListCredentials).Info("Tool invoked")

	records, err := s.workflow.Credentials(ctx, params.Identity)
	if err != nil {
		return s.createErrorResult("Failed to read credentials", err, nil), nil, nil
	}
	return s.createJSONResult(map[string]interface{}{
		"count":       len(records),
		"credentials": records,
	})
}

func (s *Server) handleListStandards(ctx context.Context, req *mcp.CallToolRequest, _ ListStandardsParams) (*mcp.CallToolResult, any, error) {
	standards := s.workflow.Standards()
	return s.createJSONResult(map[string]interface{}{
		"count":     len(standards),
		"standards": standards,
	})
}

func (s *Server) createJSONResult(v interface{}) (*mcp.CallToolResult, any, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(body)},
		},
	}, nil, nil
}

// createErrorResult reports a tool-level failure. Partial results, such as an
// attestation built before a ledger failure, are appended as JSON.
func (s *Server) createErrorResult(message string, err error, partial interface{}) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	content := []mcp.Content{&mcp.TextContent{Text: errorText}}
	if partial != nil {
		if body, marshalErr := json.Marshal(partial); marshalErr == nil && string(body) != "null" {
			content = append(content, &mcp.TextContent{Text: string(body)})
		}
	}

	s.logger.WithError(err).WithField("kind", domain.ErrorKind(err)).Warn(message)
	return &mcp.CallToolResult{
		Content: content,
		IsError: true,
	}
}
