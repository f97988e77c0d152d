package entities

// BoundingBox is [x1, y1, x2, y2] in image pixel coordinates.
type BoundingBox [4]float64

// Detection is one hazard found in an image.
type Detection struct {
	Class string      `json:"class"`
	BBox  BoundingBox `json:"bbox"`
	Score float64     `json:"score"`
}

// ImageAnalysisResult is the outcome of a hazard image analysis.
type ImageAnalysisResult struct {
	Detections      []Detection `json:"detections"`
	Flagged         bool        `json:"flagged"`
	SuggestedAction string      `json:"suggested_action"`
}
