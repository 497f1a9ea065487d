package mcp

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	litecfg "github.com/qtc-mcp-server/internal/config"
	"github.com/qtc-mcp-server/internal/domain"
	"github.com/qtc-mcp-server/internal/history"
	"github.com/qtc-mcp-server/internal/service"
	"github.com/qtc-mcp-server/pkg/qtc"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	recent, err := history.NewRecentCache(16)
	require.NoError(t, err)
	svc := service.NewQTcService(testLogger(), qtc.DefaultFormulaRegistry(), qtc.DefaultCriteriaRegistry(),
		service.WithRecentCache(recent))
	return NewServer(ServerInfo{}, svc, testLogger())
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), v))
}

func decodeError(t *testing.T, res *mcp.CallToolResult) domain.ServiceError {
	t.Helper()
	require.True(t, res.IsError)
	var svcErr domain.ServiceError
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &svcErr))
	return svcErr
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)

	assert.NotNil(t, s.MCPServer())
	assert.Equal(t, "qtc-mcp", s.info.Name)
	assert.Equal(t, "v0.1.0", s.info.Version)
}

func TestNewTransport(t *testing.T) {
	tr, err := newTransport("stdio")
	require.NoError(t, err)
	assert.IsType(t, &mcp.StdioTransport{}, tr)

	_, err = newTransport("")
	assert.NoError(t, err)

	_, err = newTransport("carrier-pigeon")
	assert.Error(t, err)
}

func TestCalculateTool(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleCalculate(context.Background(), nil, domain.CalculateRequest{
		Formula:      "qtcBzt",
		QT:           qtc.Float(400),
		IntervalRate: 1000,
	})
	require.NoError(t, err)

	var resp domain.CalculateResponse
	decodeResult(t, res, &resp)
	require.NotNil(t, resp.QTc)
	assert.InDelta(t, 400, *resp.QTc, 1e-9)
}

func TestCalculateTool_Errors(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleCalculate(context.Background(), nil, domain.CalculateRequest{Formula: "qtcNope", QT: qtc.Float(400), IntervalRate: 1000})
	require.NoError(t, err)
	svcErr := decodeError(t, res)
	assert.Equal(t, domain.ErrUndefinedFormula, svcErr.Code)
	assert.NotEmpty(t, svcErr.RequestID)

	res, _, err = s.handleCalculate(context.Background(), nil, domain.CalculateRequest{IntervalRate: 1000})
	require.NoError(t, err)
	assert.Equal(t, domain.ErrQTMissing, decodeError(t, res).Code)
}

func TestClassifyTool(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleClassify(context.Background(), nil, domain.ClassifyRequest{
		Criterion: "esc2005",
		QTc:       qtc.Float(290),
	})
	require.NoError(t, err)

	var resp domain.ClassifyResponse
	decodeResult(t, res, &resp)
	assert.Equal(t, "abnormal", resp.Severity)
	assert.Len(t, resp.MatchedRules, 1)
	assert.Len(t, resp.InsufficientRules, 2)
}

func TestEvaluateAndGetTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, _, err := s.handleEvaluate(ctx, nil, domain.EvaluateRequest{
		Criterion:    "aha2009",
		QT:           qtc.Float(0.48),
		IntervalRate: 1,
		Units:        "sec",
		Sex:          "male",
	})
	require.NoError(t, err)
	var record domain.EvaluationRecord
	decodeResult(t, res, &record)
	assert.Equal(t, "abnormal", record.Severity)
	assert.NotEmpty(t, record.RequestID)

	res, _, err = s.handleGetEvaluation(ctx, nil, EvaluationArgs{ID: record.ID})
	require.NoError(t, err)
	var fetched domain.EvaluationRecord
	decodeResult(t, res, &fetched)
	assert.Equal(t, record.ID, fetched.ID)

	res, _, err = s.handleListEvaluations(ctx, nil, ListEvaluationsArgs{})
	require.NoError(t, err)
	var list domain.EvaluationList
	decodeResult(t, res, &list)
	assert.Equal(t, int64(1), list.Total)

	res, _, err = s.handleGetEvaluation(ctx, nil, EvaluationArgs{ID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, domain.ErrNotFoundCode, decodeError(t, res).Code)
}

func TestCatalogTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, _, err := s.handleListFormulas(ctx, nil, NoArgs{})
	require.NoError(t, err)
	var formulas struct {
		Formulas []domain.FormulaInfo `json:"formulas"`
		Count    int                  `json:"count"`
	}
	decodeResult(t, res, &formulas)
	assert.Equal(t, qtc.DefaultFormulaRegistry().Len(), formulas.Count)

	res, _, err = s.handleListCriteria(ctx, nil, NoArgs{})
	require.NoError(t, err)
	var criteria struct {
		Criteria []domain.CriterionSummary `json:"criteria"`
		Count    int                       `json:"count"`
	}
	decodeResult(t, res, &criteria)
	assert.Equal(t, qtc.DefaultCriteriaRegistry().Len(), criteria.Count)

	res, _, err = s.handleGetCriterion(ctx, nil, CriterionArgs{ID: "goldenberg2006"})
	require.NoError(t, err)
	var detail domain.CriterionDetail
	decodeResult(t, res, &detail)
	assert.True(t, detail.RequiresAge)
	assert.Len(t, detail.Cutoffs, 6)
}

func TestNewLiteServer(t *testing.T) {
	cfg := litecfg.DefaultLiteConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "qtc")

	s, err := NewLiteServer(cfg, WithLogger(testLogger()))
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, cfg.HistoryDBPath())

	res, _, err := s.Server().handleEvaluate(context.Background(), nil, domain.EvaluateRequest{QT: qtc.Float(400), IntervalRate: 1000, Sex: "female"})
	require.NoError(t, err)
	var record domain.EvaluationRecord
	decodeResult(t, res, &record)

	stored, err := s.Store().Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "normal", stored.Severity)
}

func TestNewLiteServer_BadDefaults(t *testing.T) {
	cfg := litecfg.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()
	cfg.DefaultFormula = "qtcNope"

	_, err := NewLiteServer(cfg, WithLogger(testLogger()))
	assert.ErrorIs(t, err, qtc.ErrUndefinedFormula)

	_, err = NewLiteServer(cfg, WithLogger(nil))
	assert.Error(t, err)
}
