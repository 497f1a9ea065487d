// Package service implements the QTc calculation and classification workflow shared by the
// HTTP API, the MCP server and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/qtc-mcp-server/internal/domain"
	"github.com/qtc-mcp-server/internal/history"
	"github.com/qtc-mcp-server/pkg/qtc"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SharedCache is a cache of evaluation records visible to every server instance.
type SharedCache interface {
	Set(ctx context.Context, record *domain.EvaluationRecord) error
	Get(ctx context.Context, id string) (*domain.EvaluationRecord, bool, error)
}

// Defaults fill in requests that omit a formula, criterion or units.
type Defaults struct {
	Formula   qtc.FormulaID
	Criterion qtc.CriterionID
	Units     qtc.Units
}

// Option configures a QTcService.
type Option func(*QTcService)

// WithStore persists evaluations in store.
func WithStore(store history.Store) Option {
	return func(s *QTcService) { s.store = store }
}

// WithRecentCache keeps recent evaluations in memory.
func WithRecentCache(recent *history.RecentCache) Option {
	return func(s *QTcService) { s.recent = recent }
}

// WithSharedCache shares recent evaluations between instances.
func WithSharedCache(shared SharedCache) Option {
	return func(s *QTcService) { s.shared = shared }
}

// WithDefaults overrides the built-in request defaults.
func WithDefaults(d Defaults) Option {
	return func(s *QTcService) { s.defaults = d }
}

// QTcService implements domain.EvaluationService.
type QTcService struct {
	logger   *logrus.Logger
	formulas domain.FormulaCatalog
	criteria domain.CriteriaCatalog
	store    history.Store
	recent   *history.RecentCache
	shared   SharedCache
	defaults Defaults
}

var _ domain.EvaluationService = (*QTcService)(nil)

// NewQTcService creates a service over the given formula and criteria catalogs.
func NewQTcService(logger *logrus.Logger, formulas domain.FormulaCatalog, criteria domain.CriteriaCatalog, opts ...Option) *QTcService {
	if logger == nil {
		logger = logrus.New()
	}
	s := &QTcService{
		logger:   logger,
		formulas: formulas,
		criteria: criteria,
		defaults: Defaults{
			Formula:   qtc.QTcBzt,
			Criterion: qtc.AHA2009,
			Units:     qtc.Msec,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate computes a QTc.
func (s *QTcService) Calculate(ctx context.Context, req *domain.CalculateRequest) (*domain.CalculateResponse, error) {
	formula, err := s.resolveFormula(req.Formula)
	if err != nil {
		return nil, err
	}
	in, err := req.ToInput(s.defaults.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid calculation request: %w", err)
	}

	value, err := formula.Calculate(in)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate %s: %w", formula.ID, err)
	}

	resp := &domain.CalculateResponse{
		Formula: domain.NewFormulaInfo(formula),
		Units:   in.Units.String(),
	}
	resp.QTc, resp.NonFinite = domain.FiniteValue(value)

	s.logger.WithFields(logrus.Fields{
		"request_id": domain.RequestIDFromContext(ctx),
		"formula":    formula.ID,
		"units":      resp.Units,
		"non_finite": resp.NonFinite,
	}).Debug("QTc calculated")

	return resp, nil
}

// Classify resolves the severity of an already computed QTc.
func (s *QTcService) Classify(ctx context.Context, req *domain.ClassifyRequest) (*domain.ClassifyResponse, error) {
	rs, err := s.resolveCriterion(req.Criterion)
	if err != nil {
		return nil, err
	}
	m, err := req.ToMeasurement(s.defaults.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid classification request: %w", err)
	}

	verdict := rs.Evaluate(m)
	resp := &domain.ClassifyResponse{
		Criterion:         string(rs.ID),
		CriterionName:     rs.Name,
		QTc:               m.Value,
		Units:             m.Units.String(),
		Severity:          verdict.Severity.String(),
		IsAbnormal:        verdict.Severity.IsAbnormal(),
		MatchedRules:      domain.NewRuleInfos(verdict.Matched),
		InsufficientRules: domain.NewRuleInfos(verdict.Insufficient),
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": domain.RequestIDFromContext(ctx),
		"criterion":  rs.ID,
		"severity":   resp.Severity,
		"matched":    len(verdict.Matched),
	}).Debug("QTc classified")

	return resp, nil
}

// Evaluate calculates and classifies in one step and records the result.
func (s *QTcService) Evaluate(ctx context.Context, req *domain.EvaluateRequest) (*domain.EvaluationRecord, error) {
	formula, err := s.resolveFormula(req.Formula)
	if err != nil {
		return nil, err
	}
	rs, err := s.resolveCriterion(req.Criterion)
	if err != nil {
		return nil, err
	}
	in, err := req.CalculateRequest().ToInput(s.defaults.Units)
	if err != nil {
		return nil, fmt.Errorf("invalid evaluation request: %w", err)
	}

	value, err := formula.Calculate(in)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate %s: %w", formula.ID, err)
	}

	record := &domain.EvaluationRecord{
		ID:           uuid.NewString(),
		Formula:      string(formula.ID),
		Criterion:    string(rs.ID),
		QT:           *in.QT,
		IntervalRate: in.IntervalRate,
		Type:         in.Type.String(),
		Units:        in.Units.String(),
		Sex:          in.Sex.String(),
		Age:          req.Age,
		Severity:     qtc.SeverityUndefined.String(),
		RequestID:    domain.RequestIDFromContext(ctx),
		CreatedAt:    time.Now().UTC(),
	}
	record.QTc, record.NonFinite = domain.FiniteValue(value)

	// a non-finite QTc cannot be compared against any cutoff
	if record.QTc != nil {
		verdict := rs.Evaluate(qtc.Measurement{Value: value, Units: in.Units, Sex: in.Sex, Age: in.Age})
		record.Severity = verdict.Severity.String()
		record.IsAbnormal = verdict.Severity.IsAbnormal()
		for _, rule := range verdict.Matched {
			record.MatchedRules = append(record.MatchedRules, rule.String())
		}
	}

	s.remember(ctx, record)

	s.logger.WithFields(logrus.Fields{
		"request_id":    record.RequestID,
		"evaluation_id": record.ID,
		"formula":       record.Formula,
		"criterion":     record.Criterion,
		"severity":      record.Severity,
		"is_abnormal":   record.IsAbnormal,
	}).Info("QTc evaluation completed")

	return record, nil
}

// remember stores record in every configured cache and store. Storage failures are logged and
// do not fail the evaluation.
func (s *QTcService) remember(ctx context.Context, record *domain.EvaluationRecord) {
	if s.recent != nil {
		s.recent.Add(record)
	}
	if s.shared != nil {
		if err := s.shared.Set(ctx, record); err != nil {
			s.logger.WithError(err).WithField("evaluation_id", record.ID).Warn("Failed to share evaluation")
		}
	}
	if s.store != nil {
		if err := s.store.Save(ctx, record); err != nil {
			s.logger.WithError(err).WithField("evaluation_id", record.ID).Warn("Failed to persist evaluation")
		}
	}
}

// GetEvaluation looks an evaluation up in the recent cache, the shared cache, then the store.
func (s *QTcService) GetEvaluation(ctx context.Context, id string) (*domain.EvaluationRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", "is required", id)
	}
	if s.recent != nil {
		if record, ok := s.recent.Get(id); ok {
			return record, nil
		}
	}
	if s.shared != nil {
		record, ok, err := s.shared.Get(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("evaluation_id", id).Warn("Shared cache lookup failed")
		} else if ok {
			return record, nil
		}
	}
	if s.store == nil {
		return nil, fmt.Errorf("evaluation %s: %w", id, domain.ErrNotFound)
	}

	record, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStorageUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return record, nil
}

// ListEvaluations pages through history, newest first. Without a store it lists the recent cache.
func (s *QTcService) ListEvaluations(ctx context.Context, limit, offset int) (*domain.EvaluationList, error) {
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative", offset)
	}
	if limit < 0 {
		return nil, domain.NewValidationError("limit", "must not be negative", limit)
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	list := &domain.EvaluationList{Limit: limit, Offset: offset, Evaluations: []*domain.EvaluationRecord{}}

	if s.store != nil {
		records, err := s.store.List(ctx, limit, offset)
		if err != nil {
			return nil, storageError(err)
		}
		total, err := s.store.Count(ctx)
		if err != nil {
			return nil, storageError(err)
		}
		if records != nil {
			list.Evaluations = records
		}
		list.Total = total
		return list, nil
	}

	if s.recent != nil {
		recent := s.recent.Recent(offset + limit)
		list.Total = int64(s.recent.Len())
		if offset < len(recent) {
			list.Evaluations = recent[offset:]
		}
	}
	return list, nil
}

// ListFormulas describes every formula in registration order.
func (s *QTcService) ListFormulas() []domain.FormulaInfo {
	all := s.formulas.All()
	infos := make([]domain.FormulaInfo, 0, len(all))
	for _, f := range all {
		infos = append(infos, domain.NewFormulaInfo(f))
	}
	return infos
}

// Formula describes one formula.
func (s *QTcService) Formula(id string) (*domain.FormulaInfo, error) {
	f, err := s.formulas.Formula(qtc.FormulaID(id))
	if err != nil {
		return nil, err
	}
	info := domain.NewFormulaInfo(f)
	return &info, nil
}

// ListCriteria summarizes every criterion in registration order.
func (s *QTcService) ListCriteria() []domain.CriterionSummary {
	all := s.criteria.All()
	summaries := make([]domain.CriterionSummary, 0, len(all))
	for _, rs := range all {
		summaries = append(summaries, domain.NewCriterionSummary(rs))
	}
	return summaries
}

// Criterion describes one criterion with cutoffs in units (default units when empty).
func (s *QTcService) Criterion(id string, units string) (*domain.CriterionDetail, error) {
	rs, err := qtc.LookupCriterion(s.criteria, qtc.CriterionID(id))
	if err != nil {
		return nil, err
	}
	u := s.defaults.Units
	if strings.TrimSpace(units) != "" {
		u, err = qtc.ParseUnits(units)
		if err != nil {
			return nil, domain.NewValidationError("units", "must be sec or msec", units)
		}
	}
	return domain.NewCriterionDetail(rs, u), nil
}

func (s *QTcService) resolveFormula(id string) (*qtc.FormulaDescriptor, error) {
	fid := qtc.FormulaID(strings.TrimSpace(id))
	if fid == "" {
		fid = s.defaults.Formula
	}
	return s.formulas.Formula(fid)
}

func (s *QTcService) resolveCriterion(id string) (*qtc.RuleSet, error) {
	cid := qtc.CriterionID(strings.TrimSpace(id))
	if cid == "" {
		cid = s.defaults.Criterion
	}
	return qtc.LookupCriterion(s.criteria, cid)
}

func storageError(err error) error {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
