package services

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
	apperrors "github.com/zatekoja/sisma-inspection/pkg/errors"
)

type MockReportGenerator struct {
	mock.Mock
}

func (m *MockReportGenerator) GenerateReport(ctx context.Context, submission *entities.ChecklistSubmission) (*entities.Report, error) {
	args := m.Called(ctx, submission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Report), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 123000000, time.UTC)

func newTestChecklistService(gen *MockReportGenerator) *ChecklistService {
	var svc *ChecklistService
	if gen == nil {
		svc = NewChecklistService(nil, nil)
	} else {
		svc = NewChecklistService(gen, nil)
	}
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "11111111-2222-3333-4444-555555555555" }
	return svc
}

func strPtr(s string) *string { return &s }

func TestChecklistService_Evaluate_GeneratorFailureFallsBack(t *testing.T) {
	gen := new(MockReportGenerator)
	gen.On("GenerateReport", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	svc := newTestChecklistService(gen)

	raw := []byte(`{
		"inspection_id": "insp-1",
		"equipment_id": "ext-42",
		"inspector_id": "ana",
		"answers": [
			{"question_id": "q1", "value": 2},
			{"question_id": "q2", "value": 1, "photo": "http://x/p.jpg"}
		]
	}`)

	eval, err := svc.Evaluate(context.Background(), raw)
	require.NoError(t, err)

	assert.True(t, eval.Fallback)
	assert.InDelta(t, 50.0, eval.ComplianceScore, 1e-9)

	report := eval.Report
	require.NotNil(t, report)
	assert.Equal(t, "fallback-11111111-2222-3333-4444-555555555555", report.ReportID)
	assert.True(t, strings.HasPrefix(report.ReportID, entities.FallbackReportPrefix))
	assert.Equal(t, "ext-42", report.EquipmentID)
	assert.Equal(t, "ana", report.InspectorID)
	assert.Equal(t, "2026-03-14T09:30:00.123Z", report.Timestamp)
	require.Len(t, report.NonConformities, 1)
	assert.Equal(t, "q2", report.NonConformities[0].QuestionID)
	assert.Equal(t, entities.SeverityCritical, report.NonConformities[0].Severity)
	assert.Equal(t, fallbackSuggestedAction, report.NonConformities[0].SuggestedAction)
	assert.Equal(t, []string{"http://x/p.jpg"}, report.Attachments)
	assert.Equal(t, fallbackSummary, report.Summary)
	assert.Equal(t, fallbackPDFURL, report.PDFURL)
	require.Len(t, report.Answers, 2)
	gen.AssertNumberOfCalls(t, "GenerateReport", 1)
}

func TestChecklistService_Evaluate_GeneratedReportReturnedAsIs(t *testing.T) {
	generated := &entities.Report{
		ReportID:    "7f6c",
		InspectorID: "ana",
		Timestamp:   "2026-03-14T09:30:00Z",
		Summary:     "Válvula com vazamento.",
		NonConformities: []entities.NonConformity{
			{QuestionID: "q2", Severity: entities.SeverityMedium, SuggestedAction: "Trocar vedação."},
		},
		Attachments: []string{},
		PDFURL:      "https://example.com/r.pdf",
	}
	gen := new(MockReportGenerator)
	gen.On("GenerateReport", mock.Anything, mock.MatchedBy(func(s *entities.ChecklistSubmission) bool {
		return s.InspectionID == "insp-2" && len(s.Answers) == 2
	})).Return(generated, nil)
	svc := newTestChecklistService(gen)

	eval, err := svc.Evaluate(context.Background(), []byte(`{"inspection_id":"insp-2","answers":[{"question_id":"q1","value":2},{"question_id":"q2","value":1}]}`))
	require.NoError(t, err)

	assert.False(t, eval.Fallback)
	assert.Same(t, generated, eval.Report)
	assert.Equal(t, entities.SeverityMedium, eval.Report.NonConformities[0].Severity)
	gen.AssertExpectations(t)
}

func TestChecklistService_Evaluate_NilReportFallsBack(t *testing.T) {
	gen := new(MockReportGenerator)
	gen.On("GenerateReport", mock.Anything, mock.Anything).Return(nil, nil)
	svc := newTestChecklistService(gen)

	eval, err := svc.Evaluate(context.Background(), []byte(`{"answers":[]}`))
	require.NoError(t, err)
	assert.True(t, eval.Fallback)
	assert.Equal(t, 100.0, eval.ComplianceScore)
	assert.Empty(t, eval.Report.NonConformities)
	assert.NotNil(t, eval.Report.NonConformities)
	assert.NotNil(t, eval.Report.Attachments)
}

func TestChecklistService_Evaluate_NoGeneratorConfigured(t *testing.T) {
	svc := newTestChecklistService(nil)

	eval, err := svc.Evaluate(context.Background(), []byte(`{"answers":[{"question_id":"q1","value":1}]}`))
	require.NoError(t, err)
	assert.True(t, eval.Fallback)
	require.Len(t, eval.Report.NonConformities, 1)
}

func TestChecklistService_Evaluate_MissingAnswersRejectedWithoutCall(t *testing.T) {
	gen := new(MockReportGenerator)
	svc := newTestChecklistService(gen)

	for _, raw := range []string{
		`{"inspection_id":"insp-1","equipment_id":"e","inspector_id":"i"}`,
		`{"answers":null}`,
		`not json`,
		``,
	} {
		eval, err := svc.Evaluate(context.Background(), []byte(raw))
		assert.Nil(t, eval, raw)
		require.Error(t, err, raw)
		assert.True(t, apperrors.IsValidation(err), raw)
	}

	gen.AssertNotCalled(t, "GenerateReport", mock.Anything, mock.Anything)
}

func TestChecklistService_EvaluateSubmission_RejectsNilAnswers(t *testing.T) {
	gen := new(MockReportGenerator)
	svc := newTestChecklistService(gen)

	_, err := svc.EvaluateSubmission(context.Background(), &entities.ChecklistSubmission{InspectorID: "ana"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.EvaluateSubmission(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))
	gen.AssertNotCalled(t, "GenerateReport", mock.Anything, mock.Anything)
}

func TestBuildFallbackReport_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	photos := []string{"http://x/a.jpg", "http://x/b.jpg", ""}

	for i := 0; i < 300; i++ {
		n := rng.Intn(25)
		submission := &entities.ChecklistSubmission{EquipmentID: "e", InspectorID: "i", Answers: make([]entities.ChecklistAnswer, n)}
		var wantNC []string
		wantAttachments := []string{}
		for j := 0; j < n; j++ {
			a := entities.ChecklistAnswer{QuestionID: "q" + string(rune('a'+j)), Value: entities.AnswerValue(rng.Intn(3))}
			if rng.Intn(2) == 0 {
				p := photos[rng.Intn(len(photos))]
				a.Photo = &p
				if p != "" {
					wantAttachments = append(wantAttachments, p)
				}
			}
			if a.Value == entities.AnswerNonConforming {
				wantNC = append(wantNC, a.QuestionID)
			}
			submission.Answers[j] = a
		}

		report := BuildFallbackReport(submission, fixedNow, "id")

		var gotNC []string
		for _, nc := range report.NonConformities {
			gotNC = append(gotNC, nc.QuestionID)
			assert.Equal(t, entities.SeverityCritical, nc.Severity)
		}
		assert.Equal(t, wantNC, gotNC)
		assert.Equal(t, wantAttachments, report.Attachments)
		assert.Equal(t, submission.Answers, report.Answers)
	}
}

func TestChecklistService_EvaluateSubmission_CallerCancellationDoesNotAbortGeneration(t *testing.T) {
	generated := &entities.Report{ReportID: "9a0b", Summary: "Sem pendências."}
	gen := new(MockReportGenerator)
	gen.On("GenerateReport", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(generated, nil)
	svc := newTestChecklistService(gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eval, err := svc.EvaluateSubmission(ctx, &entities.ChecklistSubmission{
		InspectionID: "insp-9",
		Answers:      []entities.ChecklistAnswer{{QuestionID: "q1", Value: entities.AnswerConforms}},
	})
	require.NoError(t, err)

	assert.False(t, eval.Fallback)
	assert.Same(t, generated, eval.Report)
	gen.AssertExpectations(t)
}

func TestParseSubmission(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "valid", raw: `{"inspection_id":"a","answers":[{"question_id":"q1","value":0,"comment":"ok"}]}`},
		{name: "numeric ids", raw: `{"inspection_id":17,"equipment_id":3.5,"answers":[]}`},
		{name: "array root", raw: `[]`, wantErr: "invalid checklist payload"},
		{name: "answers not list", raw: `{"answers":{"q1":2}}`, wantErr: "answers must be a list"},
		{name: "missing question id", raw: `{"answers":[{"value":2}]}`, wantErr: "question_id is required"},
		{name: "missing value", raw: `{"answers":[{"question_id":"q1"}]}`, wantErr: "value is required"},
		{name: "value out of range", raw: `{"answers":[{"question_id":"q1","value":3}]}`, wantErr: "value must be 0, 1 or 2"},
		{name: "fractional value", raw: `{"answers":[{"question_id":"q1","value":1.5}]}`, wantErr: "value must be 0, 1 or 2"},
		{name: "huge integral value", raw: `{"answers":[{"question_id":"q1","value":1e300}]}`, wantErr: "value must be 0, 1 or 2"},
		{name: "negative value", raw: `{"answers":[{"question_id":"q1","value":-1}]}`, wantErr: "value must be 0, 1 or 2"},
		{name: "duplicate question", raw: `{"answers":[{"question_id":"q1","value":2},{"question_id":"q1","value":1}]}`, wantErr: "already answered"},
		{name: "object id", raw: `{"inspector_id":{"name":"ana"},"answers":[]}`, wantErr: "inspector_id must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := ParseSubmission([]byte(tt.raw))
			if tt.wantErr == "" {
				require.NoError(t, err)
				require.NotNil(t, sub)
				assert.NotNil(t, sub.Answers)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseSubmission_IntegralFloatValues(t *testing.T) {
	sub, err := ParseSubmission([]byte(`{"answers":[{"question_id":"q1","value":2.0},{"question_id":"q2","value":2e0},{"question_id":"q3","value":1.0},{"question_id":"q4","value":0.0}]}`))
	require.NoError(t, err)
	require.Len(t, sub.Answers, 4)

	assert.Equal(t, entities.AnswerConforms, sub.Answers[0].Value)
	assert.Equal(t, entities.AnswerConforms, sub.Answers[1].Value)
	assert.Equal(t, entities.AnswerNonConforming, sub.Answers[2].Value)
	assert.Equal(t, entities.AnswerNotApplicable, sub.Answers[3].Value)
}

func TestParseSubmission_PreservesOptionalFields(t *testing.T) {
	sub, err := ParseSubmission([]byte(`{"inspection_id":17,"equipment_id":"ext","answers":[{"question_id":"q1","value":1,"comment":"vazando","photo":"http://x/p.jpg"},{"question_id":"q2","value":2,"photo":null}]}`))
	require.NoError(t, err)

	assert.Equal(t, "17", sub.InspectionID)
	assert.Equal(t, "ext", sub.EquipmentID)
	assert.Equal(t, strPtr("vazando"), sub.Answers[0].Comment)
	assert.Equal(t, strPtr("http://x/p.jpg"), sub.Answers[0].Photo)
	assert.Nil(t, sub.Answers[1].Photo)
	assert.Equal(t, entities.AnswerConforms, sub.Answers[1].Value)
}
