package domain

import (
	"context"

	"github.com/qtc-mcp-server/pkg/qtc"
)

// FormulaCatalog is a formula source that can also enumerate its formulas.
type FormulaCatalog interface {
	qtc.FormulaSource
	All() []*qtc.FormulaDescriptor
}

// CriteriaCatalog is a criteria source that can also enumerate its criteria.
type CriteriaCatalog interface {
	qtc.CriteriaSource
	All() []*qtc.RuleSet
}

// EvaluationService runs the calculate and classify workflow for the HTTP and MCP front ends.
type EvaluationService interface {
	Calculate(ctx context.Context, req *CalculateRequest) (*CalculateResponse, error)
	Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResponse, error)
	Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluationRecord, error)
	GetEvaluation(ctx context.Context, id string) (*EvaluationRecord, error)
	ListEvaluations(ctx context.Context, limit, offset int) (*EvaluationList, error)
	ListFormulas() []FormulaInfo
	Formula(id string) (*FormulaInfo, error)
	ListCriteria() []CriterionSummary
	Criterion(id string, units string) (*CriterionDetail, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
