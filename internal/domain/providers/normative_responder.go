package providers

import "context"

// NormativeResponder answers free-text questions about fire-safety regulations.
type NormativeResponder interface {
	Answer(ctx context.Context, question string) (string, error)
}
