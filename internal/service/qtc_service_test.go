package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtc-mcp-server/internal/domain"
	"github.com/qtc-mcp-server/internal/history"
	"github.com/qtc-mcp-server/pkg/qtc"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(opts ...Option) *QTcService {
	return NewQTcService(quietLogger(), qtc.DefaultFormulaRegistry(), qtc.DefaultCriteriaRegistry(), opts...)
}

func newRecent(t *testing.T) *history.RecentCache {
	t.Helper()
	recent, err := history.NewRecentCache(16)
	require.NoError(t, err)
	return recent
}

type failingStore struct {
	history.Store
	saves int
}

func (f *failingStore) Save(ctx context.Context, record *domain.EvaluationRecord) error {
	f.saves++
	return errors.New("disk full")
}

type mapCache struct {
	records map[string]*domain.EvaluationRecord
}

func (m *mapCache) Set(ctx context.Context, record *domain.EvaluationRecord) error {
	m.records[record.ID] = record
	return nil
}

func (m *mapCache) Get(ctx context.Context, id string) (*domain.EvaluationRecord, bool, error) {
	r, ok := m.records[id]
	return r, ok, nil
}

func TestQTcService_Calculate(t *testing.T) {
	svc := newTestService()

	resp, err := svc.Calculate(context.Background(), &domain.CalculateRequest{
		QT:           qtc.Float(400),
		IntervalRate: 1000,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.QTc)
	assert.InDelta(t, 400, *resp.QTc, 1e-9)
	assert.Equal(t, "qtcBzt", resp.Formula.ID)
	assert.Equal(t, "msec", resp.Units)
	assert.Empty(t, resp.NonFinite)
}

func TestQTcService_CalculateRate(t *testing.T) {
	svc := newTestService()

	// 60 bpm is an RR interval of one second
	resp, err := svc.Calculate(context.Background(), &domain.CalculateRequest{
		Formula:      "qtcFrd",
		QT:           qtc.Float(0.4),
		IntervalRate: 60,
		Type:         "rate",
		Units:        "sec",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.QTc)
	assert.InDelta(t, 0.4, *resp.QTc, 1e-9)
	assert.Equal(t, "sec", resp.Units)
}

func TestQTcService_CalculateNonFinite(t *testing.T) {
	svc := newTestService()

	resp, err := svc.Calculate(context.Background(), &domain.CalculateRequest{
		QT:           qtc.Float(400),
		IntervalRate: 0,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.QTc)
	assert.Equal(t, "+Inf", resp.NonFinite)
}

func TestQTcService_CalculateErrors(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Calculate(ctx, &domain.CalculateRequest{Formula: "qtcNope", QT: qtc.Float(400), IntervalRate: 1000})
	assert.ErrorIs(t, err, qtc.ErrUndefinedFormula)

	_, err = svc.Calculate(ctx, &domain.CalculateRequest{IntervalRate: 1000})
	assert.ErrorIs(t, err, qtc.ErrQTMissing)

	_, err = svc.Calculate(ctx, &domain.CalculateRequest{QT: qtc.Float(400), IntervalRate: 1000, Units: "minutes"})
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "units", valErr.Field)
}

func TestQTcService_Classify(t *testing.T) {
	svc := newTestService()

	resp, err := svc.Classify(context.Background(), &domain.ClassifyRequest{
		Criterion: "aha2009",
		QTc:       qtc.Float(455),
		Sex:       "male",
	})
	require.NoError(t, err)
	assert.Equal(t, "abnormal", resp.Severity)
	assert.True(t, resp.IsAbnormal)
	require.Len(t, resp.MatchedRules, 1)
	assert.Equal(t, "male", resp.MatchedRules[0].Sex)
	assert.Empty(t, resp.InsufficientRules)
}

func TestQTcService_ClassifyInsufficientData(t *testing.T) {
	svc := newTestService()

	resp, err := svc.Classify(context.Background(), &domain.ClassifyRequest{
		Criterion: "aha2009",
		QTc:       qtc.Float(420),
	})
	require.NoError(t, err)
	assert.Equal(t, "undefined", resp.Severity)
	assert.False(t, resp.IsAbnormal)
	assert.Empty(t, resp.MatchedRules)
	assert.Len(t, resp.InsufficientRules, 2)
}

func TestQTcService_ClassifyUnknownCriterion(t *testing.T) {
	svc := newTestService()

	_, err := svc.Classify(context.Background(), &domain.ClassifyRequest{Criterion: "who1999", QTc: qtc.Float(420)})
	assert.ErrorIs(t, err, qtc.ErrUndefinedCriterion)
}

func TestQTcService_EvaluatePersists(t *testing.T) {
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	svc := newTestService(WithStore(store), WithRecentCache(newRecent(t)))
	ctx := domain.WithRequestID(context.Background(), "req-1")

	record, err := svc.Evaluate(ctx, &domain.EvaluateRequest{
		Criterion:    "fda2005",
		QT:           qtc.Float(490),
		IntervalRate: 1000,
		Sex:          "female",
		Age:          intPtr(52),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "req-1", record.RequestID)
	assert.Equal(t, "moderate", record.Severity)
	assert.True(t, record.IsAbnormal)
	assert.Len(t, record.MatchedRules, 2)

	// a fresh service without the recent cache must read it back from the store
	other := newTestService(WithStore(store))
	stored, err := other.GetEvaluation(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Severity, stored.Severity)
	assert.Equal(t, "female", stored.Sex)
	require.NotNil(t, stored.Age)
	assert.Equal(t, 52, *stored.Age)
}

func TestQTcService_EvaluateNonFinite(t *testing.T) {
	svc := newTestService()

	record, err := svc.Evaluate(context.Background(), &domain.EvaluateRequest{
		QT:           qtc.Float(400),
		IntervalRate: 0,
		Sex:          "male",
	})
	require.NoError(t, err)
	assert.Nil(t, record.QTc)
	assert.Equal(t, "+Inf", record.NonFinite)
	assert.Equal(t, "undefined", record.Severity)
	assert.False(t, record.IsAbnormal)
	assert.Empty(t, record.MatchedRules)
}

func TestQTcService_EvaluateStoreFailure(t *testing.T) {
	store := &failingStore{}
	svc := newTestService(WithStore(store), WithRecentCache(newRecent(t)))

	record, err := svc.Evaluate(context.Background(), &domain.EvaluateRequest{QT: qtc.Float(400), IntervalRate: 1000, Sex: "male"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "normal", record.Severity)

	cached, err := svc.GetEvaluation(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, cached.ID)
}

func TestQTcService_EvaluateRejectsBeforeCalculating(t *testing.T) {
	svc := newTestService()

	_, err := svc.Evaluate(context.Background(), &domain.EvaluateRequest{Criterion: "who1999", IntervalRate: 1000})
	assert.ErrorIs(t, err, qtc.ErrUndefinedCriterion)
}

func TestQTcService_SharedCache(t *testing.T) {
	shared := &mapCache{records: map[string]*domain.EvaluationRecord{}}
	svc := newTestService(WithSharedCache(shared))

	record, err := svc.Evaluate(context.Background(), &domain.EvaluateRequest{QT: qtc.Float(400), IntervalRate: 1000})
	require.NoError(t, err)
	assert.Contains(t, shared.records, record.ID)

	other := newTestService(WithSharedCache(shared))
	got, err := other.GetEvaluation(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
}

func TestQTcService_GetEvaluationNotFound(t *testing.T) {
	svc := newTestService(WithRecentCache(newRecent(t)))

	_, err := svc.GetEvaluation(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetEvaluation(context.Background(), " ")
	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestQTcService_ListEvaluationsFromRecent(t *testing.T) {
	svc := newTestService(WithRecentCache(newRecent(t)))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		record, err := svc.Evaluate(ctx, &domain.EvaluateRequest{QT: qtc.Float(400 + float64(i)), IntervalRate: 1000})
		require.NoError(t, err)
		ids = append(ids, record.ID)
	}

	list, err := svc.ListEvaluations(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Evaluations, 2)
	assert.Equal(t, ids[2], list.Evaluations[0].ID)
	assert.Equal(t, ids[1], list.Evaluations[1].ID)

	list, err = svc.ListEvaluations(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, list.Evaluations, 1)
	assert.Equal(t, ids[0], list.Evaluations[0].ID)
}

func TestQTcService_GetEvaluationLeavesRecentAlone(t *testing.T) {
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.EvaluationRecord{
		ID:        "archived",
		Formula:   "qtcBzt",
		Criterion: "aha2009",
		QT:        400,
		Units:     "msec",
		Type:      "interval",
		QTc:       qtc.Float(400),
		Severity:  "normal",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))

	recent := newRecent(t)
	svc := newTestService(WithStore(store), WithRecentCache(recent))
	fresh, err := svc.Evaluate(ctx, &domain.EvaluateRequest{QT: qtc.Float(410), IntervalRate: 1000})
	require.NoError(t, err)

	got, err := svc.GetEvaluation(ctx, "archived")
	require.NoError(t, err)
	assert.Equal(t, "archived", got.ID)

	require.Equal(t, 1, recent.Len())
	newest := recent.Recent(10)
	require.Len(t, newest, 1)
	assert.Equal(t, fresh.ID, newest[0].ID)
}

func TestQTcService_ListEvaluationsPaging(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	list, err := svc.ListEvaluations(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, list.Limit)
	assert.NotNil(t, list.Evaluations)

	list, err = svc.ListEvaluations(ctx, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, list.Limit)

	_, err = svc.ListEvaluations(ctx, 10, -1)
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "offset", valErr.Field)
}

func TestQTcService_Catalogs(t *testing.T) {
	svc := newTestService()

	formulas := svc.ListFormulas()
	assert.Len(t, formulas, qtc.DefaultFormulaRegistry().Len())
	assert.Equal(t, "qtcBzt", formulas[0].ID)

	f, err := svc.Formula("qtcFrd")
	require.NoError(t, err)
	assert.Equal(t, "qtcFrd", f.ID)

	_, err = svc.Formula("qtcNope")
	assert.ErrorIs(t, err, qtc.ErrUndefinedFormula)

	criteria := svc.ListCriteria()
	assert.Len(t, criteria, qtc.DefaultCriteriaRegistry().Len())

	detail, err := svc.Criterion("esc2005", "sec")
	require.NoError(t, err)
	assert.True(t, detail.RequiresSex)
	for _, c := range detail.Cutoffs {
		assert.Equal(t, "sec", c.Units)
	}

	detail, err = svc.Criterion("esc2005", "")
	require.NoError(t, err)
	assert.Equal(t, "msec", detail.Cutoffs[0].Units)

	_, err = svc.Criterion("esc2005", "minutes")
	assert.Error(t, err)

	_, err = svc.Criterion("who1999", "")
	assert.ErrorIs(t, err, qtc.ErrUndefinedCriterion)
}

func TestQTcService_Defaults(t *testing.T) {
	svc := newTestService(WithDefaults(Defaults{Formula: qtc.QTcFrd, Criterion: qtc.ESC2005, Units: qtc.Sec}))

	record, err := svc.Evaluate(context.Background(), &domain.EvaluateRequest{QT: qtc.Float(0.47), IntervalRate: 1, Sex: "male"})
	require.NoError(t, err)
	assert.Equal(t, "qtcFrd", record.Formula)
	assert.Equal(t, "esc2005", record.Criterion)
	assert.Equal(t, "sec", record.Units)
	assert.Equal(t, "abnormal", record.Severity)
}

func intPtr(v int) *int { return &v }
