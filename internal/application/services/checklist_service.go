package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	fallbackSuggestedAction = "Ação de fallback: Isolar área, comunicar manutenção, registrar ordem de serviço e substituir peça em até 24h."
	fallbackSummary         = "Relatório de fallback: Inspeção concluída com não conformidades críticas identificadas. Ação imediata é necessária."
	fallbackPDFURL          = "https://example.com/fallback_report.pdf"

	// reportTimestampLayout is ISO-8601 UTC with millisecond precision.
	reportTimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	ErrGeneratorUnavailable = errors.New("report generator not configured")
	ErrEmptyGeneratedReport = errors.New("report generator returned no report")
)

// ChecklistService scores checklist submissions and produces their reports.
type ChecklistService struct {
	generator providers.ReportGenerator
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
}

// NewChecklistService creates a checklist service. A nil generator is
// allowed; every report is then synthesized locally.
func NewChecklistService(generator providers.ReportGenerator, metrics *observability.Metrics) *ChecklistService {
	return &ChecklistService{
		generator: generator,
		metrics:   metrics,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Evaluate parses a raw submission, scores it and attaches a report.
func (s *ChecklistService) Evaluate(ctx context.Context, raw []byte) (*entities.Evaluation, error) {
	submission, err := ParseSubmission(raw)
	if err != nil {
		return nil, err
	}
	return s.EvaluateSubmission(ctx, submission)
}

// EvaluateSubmission scores an already decoded submission and attaches a report.
func (s *ChecklistService) EvaluateSubmission(ctx context.Context, submission *entities.ChecklistSubmission) (*entities.Evaluation, error) {
	if err := ValidateSubmission(submission); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "checklist.evaluate")
	defer span.End()

	score := ComplianceScore(submission.Answers)
	report, fallback := s.GenerateReport(ctx, submission)

	outcome := observability.ReportOutcomeDelivered
	if fallback {
		outcome = observability.ReportOutcomeFallback
	}
	observability.SetSpanAttributes(span,
		attribute.String("checklist.inspection_id", submission.InspectionID),
		attribute.Int("checklist.answers", len(submission.Answers)),
		attribute.Float64("checklist.compliance_score", score),
		attribute.String("report.outcome", outcome),
	)
	observability.RecordReportOutcome(ctx, s.metrics, outcome, score)

	return &entities.Evaluation{
		ComplianceScore: score,
		Fallback:        fallback,
		Report:          report,
	}, nil
}

// GenerateReport makes a single attempt at the generator and falls back to
// local synthesis on any failure. The second return value reports whether
// the fallback was used. The submission must already be valid.
func (s *ChecklistService) GenerateReport(ctx context.Context, submission *entities.ChecklistSubmission) (*entities.Report, bool) {
	report, err := s.generate(ctx, submission)
	if err == nil {
		return report, false
	}

	observability.LoggerFromContext(ctx).Warn().
		Err(err).
		Str("inspection_id", submission.InspectionID).
		Str("equipment_id", submission.EquipmentID).
		Msg("report generation failed, using fallback report")

	return BuildFallbackReport(submission, s.now(), s.newID()), true
}

func (s *ChecklistService) generate(ctx context.Context, submission *entities.ChecklistSubmission) (*entities.Report, error) {
	if s.generator == nil {
		return nil, ErrGeneratorUnavailable
	}
	// A disconnected caller does not abort a paid generation. OPENAI_TIMEOUT
	// is the only bound.
	report, err := s.generator.GenerateReport(context.WithoutCancel(ctx), submission)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrEmptyGeneratedReport
	}
	return report, nil
}

// BuildFallbackReport synthesizes a report without the generator. Every
// non-conforming answer becomes a CRITICAL non-conformity.
func BuildFallbackReport(submission *entities.ChecklistSubmission, now time.Time, id string) *entities.Report {
	nonConformities := make([]entities.NonConformity, 0)
	for _, a := range submission.NonConformingAnswers() {
		nonConformities = append(nonConformities, entities.NonConformity{
			QuestionID:      a.QuestionID,
			Severity:        entities.SeverityCritical,
			SuggestedAction: fallbackSuggestedAction,
		})
	}

	return &entities.Report{
		ReportID:        entities.FallbackReportPrefix + id,
		EquipmentID:     submission.EquipmentID,
		InspectorID:     submission.InspectorID,
		Timestamp:       now.UTC().Format(reportTimestampLayout),
		Answers:         submission.Answers,
		Summary:         fallbackSummary,
		NonConformities: nonConformities,
		Attachments:     submission.PhotoURLs(),
		PDFURL:          fallbackPDFURL,
	}
}
