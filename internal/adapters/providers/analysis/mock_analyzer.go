package analysis

import (
	"context"
	"time"

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
)

const noHelmetAction = "Interromper atividade, comunicar supervisor e registrar ocorrência de segurança."

// MockAnalyzer simulates a hazard detection model. It always reports one
// worker without a helmet after a fixed delay.
type MockAnalyzer struct {
	delay time.Duration
}

// NewMockAnalyzer creates a mock analyzer that answers after delay
func NewMockAnalyzer(delay time.Duration) providers.ImageAnalyzer {
	return &MockAnalyzer{delay: delay}
}

// Analyze returns the canned detection (mock implementation)
func (m *MockAnalyzer) Analyze(ctx context.Context, image []byte) (*entities.ImageAnalysisResult, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return &entities.ImageAnalysisResult{
		Detections: []entities.Detection{
			{
				Class: "no_helmet",
				BBox:  entities.BoundingBox{150, 80, 250, 180},
				Score: 0.82,
			},
		},
		Flagged:         true,
		SuggestedAction: noHelmetAction,
	}, nil
}
