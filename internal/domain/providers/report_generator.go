package providers

import (
	"context"

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
)

// ReportGenerator produces a structured compliance report for a submission.
// Any returned error means the caller should fall back to local synthesis.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, submission *entities.ChecklistSubmission) (*entities.Report, error)
}
