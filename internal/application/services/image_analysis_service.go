package services

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/sisma-inspection/pkg/errors"
)

var ErrAnalyzerUnavailable = errors.New("image analyzer not configured")

// ImageAnalysisService validates inspection photos and runs hazard detection.
type ImageAnalysisService struct {
	analyzer providers.ImageAnalyzer
	maxBytes int
	metrics  *observability.Metrics
}

// NewImageAnalysisService creates an image analysis service
func NewImageAnalysisService(analyzer providers.ImageAnalyzer, maxBytes int, metrics *observability.Metrics) *ImageAnalysisService {
	return &ImageAnalysisService{
		analyzer: analyzer,
		maxBytes: maxBytes,
		metrics:  metrics,
	}
}

// MaxBytes is the largest accepted image.
func (s *ImageAnalysisService) MaxBytes() int {
	return s.maxBytes
}

// Analyze checks that image is a plausible photo and returns its detections.
func (s *ImageAnalysisService) Analyze(ctx context.Context, image []byte) (*entities.ImageAnalysisResult, error) {
	if len(image) == 0 {
		return nil, apperrors.NewValidationError("image is required")
	}
	if s.maxBytes > 0 && len(image) > s.maxBytes {
		return nil, apperrors.NewValidationError("image is too large")
	}
	if contentType := http.DetectContentType(image); !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewValidationErrorf("unsupported content type %s", contentType)
	}
	if s.analyzer == nil {
		return nil, apperrors.NewExternalError("image analysis unavailable", ErrAnalyzerUnavailable)
	}

	result, err := s.analyzer.Analyze(ctx, image)
	if err != nil {
		return nil, apperrors.NewExternalError("image analysis failed", err)
	}
	if result == nil {
		return nil, apperrors.NewExternalError("image analysis failed", errors.New("analyzer returned no result"))
	}
	if result.Detections == nil {
		result.Detections = []entities.Detection{}
	}

	observability.RecordAnalysis(ctx, s.metrics, result.Flagged)
	return result, nil
}

// DecodeBase64Image accepts raw base64 or a data URL such as
// "data:image/jpeg;base64,...".
func DecodeBase64Image(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.IndexByte(encoded, ','); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	if encoded == "" {
		return nil, apperrors.NewValidationError("image is required")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.NewValidationError("image is not valid base64")
	}
	return data, nil
}
