package services

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
	apperrors "github.com/zatekoja/sisma-inspection/pkg/errors"
)

type submissionPayload struct {
	InspectionID json.RawMessage `json:"inspection_id"`
	EquipmentID  json.RawMessage `json:"equipment_id"`
	InspectorID  json.RawMessage `json:"inspector_id"`
	Answers      json.RawMessage `json:"answers"`
}

type answerPayload struct {
	QuestionID *string      `json:"question_id"`
	Value      *json.Number `json:"value"`
	Comment    *string      `json:"comment"`
	Photo      *string      `json:"photo"`
}

// ParseSubmission decodes and validates a checklist submission. Every failure
// is a validation error; nothing downstream runs on a rejected payload.
func ParseSubmission(data []byte) (*entities.ChecklistSubmission, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperrors.NewValidationError("checklist payload is empty")
	}

	var payload submissionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, apperrors.NewValidationErrorf("invalid checklist payload: %v", err)
	}

	submission := &entities.ChecklistSubmission{}
	var err error
	if submission.InspectionID, err = opaqueID("inspection_id", payload.InspectionID); err != nil {
		return nil, err
	}
	if submission.EquipmentID, err = opaqueID("equipment_id", payload.EquipmentID); err != nil {
		return nil, err
	}
	if submission.InspectorID, err = opaqueID("inspector_id", payload.InspectorID); err != nil {
		return nil, err
	}

	if isAbsent(payload.Answers) {
		return nil, apperrors.NewValidationError("answers is required")
	}

	var answers []answerPayload
	if err := json.Unmarshal(payload.Answers, &answers); err != nil {
		return nil, apperrors.NewValidationError("answers must be a list of answer objects")
	}

	submission.Answers = make([]entities.ChecklistAnswer, 0, len(answers))
	seen := make(map[string]int, len(answers))
	for i, a := range answers {
		answer, err := toAnswer(i, a)
		if err != nil {
			return nil, err
		}
		if first, dup := seen[answer.QuestionID]; dup {
			return nil, apperrors.NewValidationErrorf("answers[%d]: question_id %q already answered at answers[%d]", i, answer.QuestionID, first)
		}
		seen[answer.QuestionID] = i
		submission.Answers = append(submission.Answers, answer)
	}

	return submission, nil
}

// ValidateSubmission checks a submission built in code rather than decoded.
func ValidateSubmission(s *entities.ChecklistSubmission) error {
	if s == nil {
		return apperrors.NewValidationError("checklist submission is required")
	}
	if s.Answers == nil {
		return apperrors.NewValidationError("answers is required")
	}
	seen := make(map[string]struct{}, len(s.Answers))
	for i, a := range s.Answers {
		if a.QuestionID == "" {
			return apperrors.NewValidationErrorf("answers[%d]: question_id is required", i)
		}
		if !a.Value.Valid() {
			return apperrors.NewValidationErrorf("answers[%d]: value must be 0, 1 or 2", i)
		}
		if _, dup := seen[a.QuestionID]; dup {
			return apperrors.NewValidationErrorf("answers[%d]: question_id %q already answered", i, a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
	}
	return nil
}

func toAnswer(i int, a answerPayload) (entities.ChecklistAnswer, error) {
	if a.QuestionID == nil || *a.QuestionID == "" {
		return entities.ChecklistAnswer{}, apperrors.NewValidationErrorf("answers[%d]: question_id is required", i)
	}
	if a.Value == nil {
		return entities.ChecklistAnswer{}, apperrors.NewValidationErrorf("answers[%d]: value is required", i)
	}
	// 2.0 and 2e0 are the same JSON number as 2.
	f, err := a.Value.Float64()
	if err != nil || f != math.Trunc(f) || f < 0 || f > 2 || !entities.AnswerValue(int(f)).Valid() {
		return entities.ChecklistAnswer{}, apperrors.NewValidationErrorf("answers[%d]: value must be 0, 1 or 2", i)
	}
	n := int(f)

	return entities.ChecklistAnswer{
		QuestionID: *a.QuestionID,
		Value:      entities.AnswerValue(n),
		Comment:    a.Comment,
		Photo:      a.Photo,
	}, nil
}

// opaqueID accepts a string or a number and returns its text. Identifiers are
// echoed, never interpreted.
func opaqueID(field string, raw json.RawMessage) (string, error) {
	if isAbsent(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, perr := strconv.ParseFloat(n.String(), 64); perr == nil {
			return n.String(), nil
		}
	}
	return "", apperrors.NewValidationErrorf("%s must be a string", field)
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
