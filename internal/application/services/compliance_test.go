package services

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
)

func answersOf(values ...entities.AnswerValue) []entities.ChecklistAnswer {
	out := make([]entities.ChecklistAnswer, len(values))
	for i, v := range values {
		out[i] = entities.ChecklistAnswer{QuestionID: fmt.Sprintf("q%d", i+1), Value: v}
	}
	return out
}

func TestComplianceScore(t *testing.T) {
	tests := []struct {
		name    string
		answers []entities.ChecklistAnswer
		want    float64
	}{
		{name: "no answers", answers: nil, want: 100},
		{name: "only not applicable", answers: answersOf(0, 0, 0), want: 100},
		{name: "fully conforming", answers: answersOf(2, 2, 0), want: 100},
		{name: "mixed", answers: answersOf(2, 1, 2, 0), want: 200.0 / 3.0},
		{name: "all non-conforming", answers: answersOf(1, 1, 0), want: 0},
		{name: "half", answers: answersOf(2, 1), want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComplianceScore(tt.answers), 1e-9)
		})
	}
}

func TestComplianceScore_MixedRoundsTo6667(t *testing.T) {
	score := ComplianceScore(answersOf(2, 1, 2, 0))
	assert.InDelta(t, 66.67, score, 0.005)
}

func TestComplianceScore_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := rng.Intn(40)
		values := make([]entities.AnswerValue, n)
		applicable := false
		for j := range values {
			values[j] = entities.AnswerValue(rng.Intn(3))
			if values[j] != entities.AnswerNotApplicable {
				applicable = true
			}
		}
		answers := answersOf(values...)

		score := ComplianceScore(answers)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
		assert.Equal(t, score, ComplianceScore(answers), "scoring must be deterministic")
		if !applicable {
			assert.Equal(t, 100.0, score)
		}
	}
}
