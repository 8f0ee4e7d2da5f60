// Package mcpserver exposes the HR operator surface of the exit interview
// engine as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/exit-interview/internal/application"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

type interviewService interface {
	Schedule(ctx context.Context, params application.ScheduleParams) (application.Interview, error)
	Flag(ctx context.Context, params application.FlagParams) (application.Interview, error)
	Status(ctx context.Context, interviewID string) (application.Status, error)
	GetInterview(ctx context.Context, interviewID string) (application.InterviewView, error)
	ListBySubject(ctx context.Context, subjectID string) ([]application.InterviewView, error)
}

// Server adapts the interview service to MCP tool handlers.
type Server struct {
	interviews interviewService
	logger     *slog.Logger
}

func New(interviews interviewService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{interviews: interviews, logger: logger}
}

// MCPServer builds an MCP server with every operator tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("exit-interview", Version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("schedule_interview",
		mcp.WithDescription("Schedule an exit interview for an exit request and notify the departing employee."),
		mcp.WithString("exit_request_id", mcp.Required(), mcp.Description("Exit request identifier")),
	), s.scheduleInterview)

	srv.AddTool(mcp.NewTool("interview_status",
		mcp.WithDescription("Read the current status of an interview: scheduled, ongoing, completed, flagged, expired or not_found."),
		mcp.WithString("interview_id", mcp.Required(), mcp.Description("Interview identifier")),
	), s.interviewStatus)

	srv.AddTool(mcp.NewTool("flag_interview",
		mcp.WithDescription("Flag an interview for HR follow-up with remarks. An interview can only be flagged once."),
		mcp.WithString("interview_id", mcp.Required(), mcp.Description("Interview identifier")),
		mcp.WithString("remarks", mcp.Required(), mcp.Description("Reason for the flag")),
	), s.flagInterview)

	srv.AddTool(mcp.NewTool("get_interview",
		mcp.WithDescription("Return the full interview record including conversation history and final summary."),
		mcp.WithString("interview_id", mcp.Required(), mcp.Description("Interview identifier")),
	), s.getInterview)

	srv.AddTool(mcp.NewTool("list_interviews",
		mcp.WithDescription("List every interview held with a subject, oldest first."),
		mcp.WithString("subject_id", mcp.Required(), mcp.Description("Subject identifier")),
	), s.listInterviews)

	return srv
}

func (s *Server) scheduleInterview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exitRequestID, err := req.RequireString("exit_request_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	interview, err := s.interviews.Schedule(ctx, application.ScheduleParams{ExitRequestID: exitRequestID})
	if err != nil {
		return s.toolError(ctx, "schedule_interview", err), nil
	}
	return jsonResult(map[string]string{"interview_id": interview.ID, "stage": string(interview.Stage)})
}

func (s *Server) interviewStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	interviewID, err := req.RequireString("interview_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := s.interviews.Status(ctx, interviewID)
	if err != nil && !(errors.Is(err, application.ErrNotFound) && status == application.StatusNotFound) {
		return s.toolError(ctx, "interview_status", err), nil
	}
	return jsonResult(map[string]string{"interview_id": interviewID, "status": string(status)})
}

func (s *Server) flagInterview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	interviewID, err := req.RequireString("interview_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	remarks := req.GetString("remarks", "")
	interview, err := s.interviews.Flag(ctx, application.FlagParams{InterviewID: interviewID, Remarks: remarks})
	if err != nil {
		return s.toolError(ctx, "flag_interview", err), nil
	}
	return jsonResult(map[string]string{"interview_id": interview.ID, "stage": string(interview.Stage)})
}

func (s *Server) getInterview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	interviewID, err := req.RequireString("interview_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.interviews.GetInterview(ctx, interviewID)
	if err != nil {
		return s.toolError(ctx, "get_interview", err), nil
	}
	return jsonResult(toRecord(view))
}

func (s *Server) listInterviews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjectID, err := req.RequireString("subject_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	views, err := s.interviews.ListBySubject(ctx, subjectID)
	if err != nil {
		return s.toolError(ctx, "list_interviews", err), nil
	}
	records := make([]record, 0, len(views))
	for _, view := range views {
		records = append(records, toRecord(view))
	}
	return jsonResult(map[string]any{"subject_id": subjectID, "interviews": records})
}

// toolError reports a service failure as a tool-level error result so the
// calling model can read it; protocol errors are reserved for transport faults.
func (s *Server) toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	kind := application.ErrorKind(err)
	s.logger.WarnContext(ctx, "tool call failed", "tool", tool, "error", err, "error_kind", kind)

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return mcp.NewToolResultError(fmt.Sprintf("validation failed: %s", vErr.Error()))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err))
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
