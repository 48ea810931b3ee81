// Package mcp exposes the attestation workflow as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/internal/service"
)

// Server wraps the MCP SDK server and the workflow its tools call into
type Server struct {
	config    domain.ConfigManager
	workflow  *service.AttestationWorkflow
	mcpServer *mcp.Server
	logger    *logrus.Logger
	tools     []string
}

// NewServer creates a new MCP server instance with all tools registered
func NewServer(configManager domain.ConfigManager, workflow *service.AttestationWorkflow, logger *logrus.Logger) (*Server, error) {
	if workflow == nil {
		return nil, fmt.Errorf("workflow is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	cfg := configManager.GetConfig()
	serverInfo := &mcp.Implementation{
		Name:    cfg.MCP.ServerName,
		Version: cfg.MCP.ServerVersion,
	}

	server := &Server{
		config:    configManager,
		workflow:  workflow,
		mcpServer: mcp.NewServer(serverInfo, nil),
		logger:    logger,
	}

	server.registerTools()
	return server, nil
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves MCP over the given transport
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.WithField("tools", s.tools).Info("Starting MCP server")

	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Tools lists the registered tool names in registration order
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolValidateMeasurement,
		Description: "Check a measurement against the possible range of its test type and report the clinical bands it falls into. Nothing is attested.",
	}, s.handleValidateMeasurement)
	s.tools = append(s.tools, ToolValidateMeasurement)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolAttestMeasurement,
		Description: "Validate a measurement, build its canonical attestation, commit the attestation hashes to the ledger and record the submission.",
	}, s.handleAttestMeasurement)
	s.tools = append(s.tools, ToolAttestMeasurement)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListSubmissions,
		Description: "List the recorded submissions of a submitter identity, optionally filtered by test name.",
	}, s.handleListSubmissions)
	s.tools = append(s.tools, ToolListSubmissions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListCredentials,
		Description: "Read the ledger credentials recorded under a submitter identity.",
	}, s.handleListCredentials)
	s.tools = append(s.tools, ToolListCredentials)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListStandards,
		Description: "List the supported test types with their units, possible ranges and clinical bands.",
	}, s.handleListStandards)
	s.tools = append(s.tools, ToolListStandards)

	s.logger.WithField("tool_count", len(s.tools)).Debug("Registered MCP tools")
}
