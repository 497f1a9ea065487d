package mcp

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/qtc-mcp-server/internal/domain"
)

// Tool names.
const (
	ToolCalculateQTc    = "calculate_qtc"
	ToolClassifyQTc     = "classify_qtc"
	ToolEvaluateQTc     = "evaluate_qtc"
	ToolListFormulas    = "list_formulas"
	ToolListCriteria    = "list_criteria"
	ToolGetCriterion    = "get_criterion"
	ToolGetEvaluation   = "get_evaluation"
	ToolListEvaluations = "list_evaluations"
)

// NoArgs is the argument type of tools without parameters.
type NoArgs struct{}

// CriterionArgs selects one criterion.
type CriterionArgs struct {
	ID    string `json:"id" jsonschema:"criterion identifier such as aha2009"`
	Units string `json:"units,omitempty" jsonschema:"sec or msec for the cutoffs; the server default is used when empty"`
}

// EvaluationArgs selects one stored evaluation.
type EvaluationArgs struct {
	ID string `json:"id" jsonschema:"evaluation identifier returned by evaluate_qtc"`
}

// ListEvaluationsArgs pages through stored evaluations.
type ListEvaluationsArgs struct {
	Limit  int `json:"limit,omitempty" jsonschema:"page size, 20 when omitted, at most 100"`
	Offset int `json:"offset,omitempty" jsonschema:"number of evaluations to skip"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolCalculateQTc,
		Description: "Correct a measured QT interval for heart rate with a named QTc formula.",
	}, s.handleCalculate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolClassifyQTc,
		Description: "Classify an already corrected QTc against a published clinical criterion.",
	}, s.handleClassify)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolEvaluateQTc,
		Description: "Calculate a QTc and classify it in one step. The result is stored and can be fetched with get_evaluation.",
	}, s.handleEvaluate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListFormulas,
		Description: "List the available QTc formulas with their references and equations.",
	}, s.handleListFormulas)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListCriteria,
		Description: "List the available clinical criteria for judging a QTc.",
	}, s.handleListCriteria)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGetCriterion,
		Description: "Show the cutoffs of one clinical criterion.",
	}, s.handleGetCriterion)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGetEvaluation,
		Description: "Fetch a previous evaluation by identifier.",
	}, s.handleGetEvaluation)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListEvaluations,
		Description: "List previous evaluations, newest first.",
	}, s.handleListEvaluations)

	s.logger.WithField("tool_count", 8).Debug("Registered MCP tools")
}

func (s *Server) handleCalculate(ctx context.Context, _ *mcp.CallToolRequest, args domain.CalculateRequest) (*mcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx, ToolCalculateQTc)
	resp, err := s.service.Calculate(ctx, &args)
	return s.result(ctx, ToolCalculateQTc, resp, err)
}

func (s *Server) handleClassify(ctx context.Context, _ *mcp.CallToolRequest, args domain.ClassifyRequest) (*mcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx, ToolClassifyQTc)
	resp, err := s.service.Classify(ctx, &args)
	return s.result(ctx, ToolClassifyQTc, resp, err)
}

func (s *Server) handleEvaluate(ctx context.Context, _ *mcp.CallToolRequest, args domain.EvaluateRequest) (*mcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx, ToolEvaluateQTc)
	record, err := s.service.Evaluate(ctx, &args)
	return s.result(ctx, ToolEvaluateQTc, record, err)
}

func (s *Server) handleListFormulas(ctx context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx, ToolListFormulas)
	formulas := s.service.ListFormulas()
	return s.result(ctx, ToolListFormulas, map[string]any{"formulas": formulas, "count": len(formulas)}, nil)
}

func (s *Server) handleListCriteria(ctx context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx, ToolListCriteria)
	criteria := s.service.ListCriteria()
	return s.result(ctx, ToolListCriteria, map[string]any{"criteria": criteria, "count": len(criteria)}, nil)
}

func (s *Server) handleGetCriterion(ctx context.Context, _ *mcp.CallToolRequest, args CriterionArgs) (*mcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx, ToolGetCriterion)
	detail, err := s.service.Criterion(args.ID, args.Units)
	return s.result(ctx, ToolGetCriterion, detail, err)
}

func (s *Server) handleGetEvaluation(ctx context.Context, _ *mcp.CallToolRequest, args EvaluationArgs) (*mcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx, ToolGetEvaluation)
	record, err := s.service.GetEvaluation(ctx, args.ID)
	return s.result(ctx, ToolGetEvaluation, record, err)
}

func (s *Server) handleListEvaluations(ctx context.Context, _ *mcp.CallToolRequest, args ListEvaluationsArgs) (*mcp.CallToolResult, any, error) {
	ctx = s.toolContext(ctx, ToolListEvaluations)
	list, err := s.service.ListEvaluations(ctx, args.Limit, args.Offset)
	return s.result(ctx, ToolListEvaluations, list, err)
}

// toolContext tags a tool call with a fresh request ID.
func (s *Server) toolContext(ctx context.Context, tool string) context.Context {
	requestID := uuid.NewString()
	s.logger.WithFields(logrus.Fields{
		"tool":       tool,
		"request_id": requestID,
	}).Info("Tool invoked")
	return domain.WithRequestID(ctx, requestID)
}

// result renders v as JSON text. Failures become IsError results carrying the service error
// envelope, so the client sees them as tool output rather than protocol errors.
func (s *Server) result(ctx context.Context, tool string, v any, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		svcErr := domain.ToServiceError(err, domain.RequestIDFromContext(ctx))
		s.logger.WithError(err).WithFields(logrus.Fields{
			"tool":       tool,
			"code":       svcErr.Code,
			"request_id": svcErr.RequestID,
		}).Warn("Tool call failed")
		return errorResult(svcErr), nil, nil
	}

	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(domain.ToServiceError(err, domain.RequestIDFromContext(ctx))), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, nil, nil
}

func errorResult(svcErr *domain.ServiceError) *mcp.CallToolResult {
	body, err := json.Marshal(svcErr)
	if err != nil {
		body = []byte(svcErr.Error())
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}
}
