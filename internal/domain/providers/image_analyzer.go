package providers

import (
	"context"

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
)

// ImageAnalyzer detects safety hazards in an inspection photo.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (*entities.ImageAnalysisResult, error)
}
