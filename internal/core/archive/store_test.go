package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/driver"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var analysisKeys = []string{"uuid", "patient_id", "kind", "title", "status", "created_at", "recommendations", "payload"}

func fixedStore(d driver.GraphDriver) *Store {
	s := NewStore(d, nil)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestSave(t *testing.T) {
	mock := &driver.MockDriver{}
	s := fixedStore(mock)

	a := &model.ArchivedAnalysis{
		PatientID:       "p-1",
		Kind:            model.KindScan,
		Title:           "Heart Scan: h.png",
		Status:          "Abnormal",
		Findings:        []model.ArchivedFinding{{Condition: "Cardiomegaly detected", Confidence: 0.81}, {Condition: "Hypertrophy", Confidence: 0.74}},
		Recommendations: []string{"Cardiologist evaluation"},
	}

	id, err := s.Save(context.Background(), a)
	require.NoError(t, err)

	assert.NotEmpty(t, id)
	assert.Equal(t, id, a.UUID)
	require.Len(t, mock.Queries, 1)

	q := mock.Queries[0]
	assert.Equal(t, driver.SaveAnalysisQuery, q.Query)
	assert.Equal(t, "p-1", q.Params["patient_id"])
	assert.Equal(t, "scan", q.Params["kind"])
	assert.Equal(t, "2026-03-01T10:00:00Z", q.Params["created_at"])
	assert.Equal(t, []any{"Cardiologist evaluation"}, q.Params["recommendations"])

	assert.Equal(t, id, q.Params["uuid"])
	assert.Equal(t, []any{
		map[string]any{"position": int64(0), "condition": "Cardiomegaly detected", "confidence": 0.81},
		map[string]any{"position": int64(1), "condition": "Hypertrophy", "confidence": 0.74},
	}, q.Params["findings"])
}

func TestSave_FailureWritesNothingElse(t *testing.T) {
	boom := errors.New("transaction aborted")
	mock := &driver.MockDriver{Err: boom}
	a := &model.ArchivedAnalysis{
		PatientID: "p-1",
		Findings:  []model.ArchivedFinding{{Condition: "a"}, {Condition: "b"}},
	}

	_, err := fixedStore(mock).Save(context.Background(), a)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, mock.Queries, 1)
}

func TestSave_NoFindings(t *testing.T) {
	mock := &driver.MockDriver{}
	_, err := fixedStore(mock).Save(context.Background(), &model.ArchivedAnalysis{PatientID: "p-1"})
	require.NoError(t, err)
	require.Len(t, mock.Queries, 1)
	assert.Equal(t, []any{}, mock.Queries[0].Params["findings"])
}

func TestSave_Errors(t *testing.T) {
	_, err := fixedStore(&driver.MockDriver{}).Save(context.Background(), &model.ArchivedAnalysis{})
	assert.ErrorIs(t, err, ErrMissingPatient)

	boom := errors.New("connection refused")
	_, err = fixedStore(&driver.MockDriver{Err: boom}).Save(context.Background(), &model.ArchivedAnalysis{PatientID: "p"})
	assert.ErrorIs(t, err, boom)
}

func TestGet(t *testing.T) {
	mock := &driver.MockDriver{Results: map[string]neo4j.EagerResult{
		driver.GetAnalysisQuery: {Records: []*neo4j.Record{
			driver.Record(analysisKeys, "a-1", "p-1", "risk", "Risk assessment", "Anxious",
				"2026-03-01T10:00:00Z", []any{"Talk to someone"}, `{"risk_level":"Anxious"}`),
		}},
		driver.GetAnalysisFindingsQuery: {Records: []*neo4j.Record{
			driver.Record([]string{"condition", "confidence"}, "Anxious", 0.7),
			driver.Record([]string{"condition", "confidence"}, "Other", int64(1)),
		}},
	}}

	a, err := fixedStore(mock).Get(context.Background(), "a-1")
	require.NoError(t, err)

	assert.Equal(t, "a-1", a.UUID)
	assert.Equal(t, model.KindRisk, a.Kind)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), a.CreatedAt)
	assert.Equal(t, []string{"Talk to someone"}, a.Recommendations)
	assert.Equal(t, []model.ArchivedFinding{{Condition: "Anxious", Confidence: 0.7}, {Condition: "Other", Confidence: 1}}, a.Findings)
	assert.Equal(t, `{"risk_level":"Anxious"}`, a.Payload)
}

func TestGet_NotFound(t *testing.T) {
	_, err := fixedStore(&driver.MockDriver{}).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByPatient(t *testing.T) {
	mock := &driver.MockDriver{Results: map[string]neo4j.EagerResult{
		driver.ListPatientAnalysesQuery: {Records: []*neo4j.Record{
			driver.Record(analysisKeys, "a-2", "p-1", "report", "Report: r.pdf", "Low", "2026-03-02T10:00:00Z", nil, ""),
			driver.Record(analysisKeys, "a-1", "p-1", "risk", "Risk assessment", "Normal", "2026-03-01T10:00:00Z", nil, ""),
		}},
	}}

	list, err := fixedStore(mock).ListByPatient(context.Background(), "p-1", 0)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "a-2", list[0].UUID)
	assert.Equal(t, int64(DefaultListLimit), mock.Queries[0].Params["limit"])
}

func TestFromScan(t *testing.T) {
	r := &model.ScanResult{
		ScanType:         "Heart Scan",
		Status:           model.StatusAbnormal,
		Conditions:       []string{"Cardiomegaly detected"},
		ConfidenceScores: map[string]float64{"Cardiomegaly": 0.81},
		Recommendations:  []string{"Cardiologist evaluation"},
	}

	a := FromScan("p-1", "heart.png", r)

	assert.Equal(t, model.KindScan, a.Kind)
	assert.Equal(t, "Heart Scan: heart.png", a.Title)
	assert.Equal(t, "Abnormal", a.Status)
	assert.Equal(t, []model.ArchivedFinding{{Condition: "Cardiomegaly detected", Confidence: 0.81}}, a.Findings)
	assert.Contains(t, a.Payload, `"detected_conditions":["Cardiomegaly detected"]`)
}

func TestFromRiskAndReport(t *testing.T) {
	risk := FromRisk("p", model.RiskResult{RiskLevel: "Depressed", Confidence: 0.8, Method: "keyword"})
	assert.Equal(t, "Depressed", risk.Status)
	assert.Equal(t, []model.ArchivedFinding{{Condition: "Depressed", Confidence: 0.8}}, risk.Findings)

	rep := FromReport("p", &model.ReportResult{Filename: "r.pdf", Analysis: model.ReportAnalysis{
		KeyValues:   []string{"Glucose: 180 mg/dL"},
		Suggestions: []string{"Monitor blood sugar"},
		RiskLevel:   model.RiskHigh,
		Confidence:  0.7,
	}})
	assert.Equal(t, "High", rep.Status)
	assert.Equal(t, "Report: r.pdf", rep.Title)
	assert.Equal(t, []string{"Monitor blood sugar"}, rep.Recommendations)
}

func TestPing(t *testing.T) {
	graph := &driver.MockDriver{}
	s := NewStore(graph, nil)
	assert.NoError(t, s.Ping(context.Background()))

	graph.PingErr = errors.New("refused")
	assert.ErrorContains(t, s.Ping(context.Background()), "refused")
}
