package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/sisma-inspection/pkg/errors"
)

const (
	maxQuestionLength = 2000
	normativeCacheKey = "assistant:answer:"

	parkingWidthTrigger = "largura mínima"
	parkingWidthAnswer  = `A largura mínima para a faixa de estacionamento de viaturas é de 8 metros.

Fonte: NT 010/08 CBMCE, seção 4 (página 3).
Recomendação: Realize a medição com uma trena métrica e documente com uma fotografia panorâmica da área.
Disclaimer: Isto é orientação técnica — não substitui parecer legal/engenheiro responsável.`
)

var ErrResponderUnavailable = errors.New("normative responder not configured")

// NormativeService answers regulatory questions for inspectors.
type NormativeService struct {
	responder providers.NormativeResponder
	cache     providers.CacheProvider
	cacheTTL  time.Duration
	metrics   *observability.Metrics
}

// NewNormativeService creates a normative assistant. cache may be nil.
func NewNormativeService(responder providers.NormativeResponder, cache providers.CacheProvider, cacheTTL time.Duration, metrics *observability.Metrics) *NormativeService {
	return &NormativeService{
		responder: responder,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
	}
}

// Ask returns an answer for question.
func (s *NormativeService) Ask(ctx context.Context, question string) (*entities.NormativeAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.NewValidationError("question is required")
	}
	if utf8.RuneCountInString(question) > maxQuestionLength {
		return nil, apperrors.NewValidationError("question is too long")
	}

	if strings.Contains(strings.ToLower(question), parkingWidthTrigger) {
		return &entities.NormativeAnswer{
			Question: question,
			Answer:   parkingWidthAnswer,
			Source:   entities.NormativeSourceCanned,
		}, nil
	}

	key := normativeCacheKey + questionFingerprint(question)
	if cached, ok := s.lookup(ctx, key); ok {
		return &entities.NormativeAnswer{
			Question: question,
			Answer:   cached,
			Source:   entities.NormativeSourceGenerated,
			Cached:   true,
		}, nil
	}

	if s.responder == nil {
		return nil, apperrors.NewExternalError("failed to communicate with the generative AI model", ErrResponderUnavailable)
	}

	answer, err := s.responder.Answer(ctx, question)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("normative responder failed")
		return nil, apperrors.NewExternalError("failed to communicate with the generative AI model", err)
	}

	s.store(ctx, key, answer)
	return &entities.NormativeAnswer{
		Question: question,
		Answer:   answer,
		Source:   entities.NormativeSourceGenerated,
	}, nil
}

func (s *NormativeService) lookup(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("assistant cache read failed")
		}
		observability.RecordCacheMiss(ctx, s.metrics, "assistant")
		return "", false
	}
	observability.RecordCacheHit(ctx, s.metrics, "assistant")
	return string(data), true
}

func (s *NormativeService) store(ctx context.Context, key, answer string) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, []byte(answer), int(s.cacheTTL.Seconds())); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("assistant cache write failed")
	}
}

// questionFingerprint folds case and whitespace so trivially different
// phrasings share a cache entry.
func questionFingerprint(question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
