package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/zatekoja/sisma-inspection/internal/application/services"
	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
)

// HazardAnalyzer defines the image analysis operations used by the handler.
type HazardAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (*entities.ImageAnalysisResult, error)
	MaxBytes() int
}

// ImageHandler handles hazard image uploads
type ImageHandler struct {
	service HazardAnalyzer
}

// NewImageHandler creates a new image handler
func NewImageHandler(service HazardAnalyzer) *ImageHandler {
	return &ImageHandler{service: service}
}

type imageRequest struct {
	ImageBase64 string `json:"image_base64"`
}

// AnalyzeImage handles POST /api/images/analyze. It accepts a multipart
// upload in the "image" field or a JSON body with a base64 image.
func (h *ImageHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	image, status, msg := h.readImage(w, r)
	if status != 0 {
		respondWithError(w, status, msg)
		return
	}

	result, err := h.service.Analyze(r.Context(), image)
	if err != nil {
		respondWithAppError(w, err, "failed to analyze image")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ImageHandler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, int, string) {
	maxBytes := int64(h.service.MaxBytes())
	// base64 inflates by 4/3 and multipart adds headers
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes*4/3+64<<10)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("image")
		if err != nil {
			if isTooLarge(err) {
				return nil, http.StatusRequestEntityTooLarge, "image is too large"
			}
			return nil, http.StatusBadRequest, "image file is required"
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			return nil, http.StatusBadRequest, "failed to read image"
		}
		return data, 0, ""
	}

	var payload imageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if isTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, "image is too large"
		}
		return nil, http.StatusBadRequest, "invalid request payload"
	}
	data, err := services.DecodeBase64Image(payload.ImageBase64)
	if err != nil {
		return nil, http.StatusBadRequest, "image_base64 must be a base64 image"
	}
	return data, 0, ""
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
