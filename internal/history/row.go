package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qtc-mcp-server/internal/domain"
)

// columns is the column list shared by every SELECT, in scanRecord order.
const columns = `id, formula, criterion, qt, interval_rate, type, units, sex, age,
	qtc, non_finite, severity, is_abnormal, matched_rules, request_id, created_at`

// prepare fills the ID and timestamp of a record about to be saved.
func prepare(record *domain.EvaluationRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

// args returns the record's values in column order.
func args(record *domain.EvaluationRecord) ([]interface{}, error) {
	matched, err := json.Marshal(record.MatchedRules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode matched rules: %w", err)
	}

	var age sql.NullInt64
	if record.Age != nil {
		age = sql.NullInt64{Int64: int64(*record.Age), Valid: true}
	}
	var qtcValue sql.NullFloat64
	if record.QTc != nil {
		qtcValue = sql.NullFloat64{Float64: *record.QTc, Valid: true}
	}

	return []interface{}{
		record.ID,
		record.Formula,
		record.Criterion,
		record.QT,
		record.IntervalRate,
		record.Type,
		record.Units,
		record.Sex,
		age,
		qtcValue,
		record.NonFinite,
		record.Severity,
		record.IsAbnormal,
		string(matched),
		record.RequestID,
		record.CreatedAt,
	}, nil
}

// scanRecord scans a row into an EvaluationRecord.
func scanRecord(s scanner) (*domain.EvaluationRecord, error) {
	record := &domain.EvaluationRecord{}
	var (
		age      sql.NullInt64
		qtcValue sql.NullFloat64
		matched  string
	)

	err := s.Scan(
		&record.ID, &record.Formula, &record.Criterion,
		&record.QT, &record.IntervalRate, &record.Type, &record.Units, &record.Sex, &age,
		&qtcValue, &record.NonFinite, &record.Severity, &record.IsAbnormal,
		&matched, &record.RequestID, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if age.Valid {
		years := int(age.Int64)
		record.Age = &years
	}
	if qtcValue.Valid {
		v := qtcValue.Float64
		record.QTc = &v
	}
	if matched != "" && matched != "null" {
		if err := json.Unmarshal([]byte(matched), &record.MatchedRules); err != nil {
			return nil, fmt.Errorf("failed to decode matched rules: %w", err)
		}
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}
