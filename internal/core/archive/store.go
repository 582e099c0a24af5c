// Package archive stores finished analyses per patient in a graph:
// (:Patient)-[:SUBMITTED]->(:Analysis)-[:HAS_FINDING]->(:Finding).
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/driver"
	"github.com/agenthands/medscan/internal/logging"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var (
	ErrNotFound       = errors.New("analysis not found")
	ErrMissingPatient = errors.New("patient id is required")
)

const DefaultListLimit = 50

type Store struct {
	driver driver.GraphDriver
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(d driver.GraphDriver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{driver: d, logger: logger, now: time.Now}
}

// Save writes the analysis and its findings and returns its uuid. A
// missing uuid or timestamp is filled in.
func (s *Store) Save(ctx context.Context, a *model.ArchivedAnalysis) (string, error) {
	if a.PatientID == "" {
		return "", ErrMissingPatient
	}
	if a.UUID == "" {
		a.UUID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}

	recs := make([]any, len(a.Recommendations))
	for i, r := range a.Recommendations {
		recs[i] = r
	}
	findings := make([]any, len(a.Findings))
	for i, f := range a.Findings {
		findings[i] = map[string]any{
			"position":   int64(i),
			"condition":  f.Condition,
			"confidence": f.Confidence,
		}
	}

	_, err := s.driver.ExecuteQuery(ctx, driver.SaveAnalysisQuery, map[string]any{
		"uuid":            a.UUID,
		"patient_id":      a.PatientID,
		"kind":            string(a.Kind),
		"title":           a.Title,
		"status":          a.Status,
		"created_at":      a.CreatedAt.Format(time.RFC3339Nano),
		"recommendations": recs,
		"payload":         a.Payload,
		"findings":        findings,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save analysis: %w", err)
	}

	s.logger.Debug("analysis archived", "uuid", a.UUID, "kind", a.Kind, "findings", len(a.Findings))
	return a.UUID, nil
}

// Ping reports whether the graph is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("archive unreachable: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.ArchivedAnalysis, error) {
	res, err := s.driver.ExecuteQuery(ctx, driver.GetAnalysisQuery, map[string]any{"uuid": id})
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, ErrNotFound
	}
	a := fromRecord(res.Records[0])

	fres, err := s.driver.ExecuteQuery(ctx, driver.GetAnalysisFindingsQuery, map[string]any{"uuid": id})
	if err != nil {
		return nil, fmt.Errorf("failed to load findings: %w", err)
	}
	for _, rec := range fres.Records {
		a.Findings = append(a.Findings, model.ArchivedFinding{
			Condition:  str(rec, "condition"),
			Confidence: number(rec, "confidence"),
		})
	}
	return a, nil
}

// ListByPatient returns the newest analyses first, without findings.
func (s *Store) ListByPatient(ctx context.Context, patientID string, limit int) ([]model.ArchivedAnalysis, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	res, err := s.driver.ExecuteQuery(ctx, driver.ListPatientAnalysesQuery, map[string]any{
		"patient_id": patientID,
		"limit":      int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	out := make([]model.ArchivedAnalysis, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, *fromRecord(rec))
	}
	return out, nil
}

func fromRecord(rec *neo4j.Record) *model.ArchivedAnalysis {
	a := &model.ArchivedAnalysis{
		UUID:      str(rec, "uuid"),
		PatientID: str(rec, "patient_id"),
		Kind:      model.AnalysisKind(str(rec, "kind")),
		Title:     str(rec, "title"),
		Status:    str(rec, "status"),
		Payload:   str(rec, "payload"),
	}
	if t, err := time.Parse(time.RFC3339Nano, str(rec, "created_at")); err == nil {
		a.CreatedAt = t
	}
	if list, ok := get(rec, "recommendations").([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				a.Recommendations = append(a.Recommendations, s)
			}
		}
	}
	return a
}

func get(rec *neo4j.Record, key string) any {
	v, _ := rec.Get(key)
	return v
}

func str(rec *neo4j.Record, key string) string {
	s, _ := get(rec, key).(string)
	return s
}

func number(rec *neo4j.Record, key string) float64 {
	switch v := get(rec, key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}
