package entities

// AnswerValue is the tri-state outcome of one inspection question.
type AnswerValue int

const (
	AnswerNotApplicable AnswerValue = 0
	AnswerNonConforming AnswerValue = 1
	AnswerConforms      AnswerValue = 2
)

// Valid reports whether v is one of the three known outcomes.
func (v AnswerValue) Valid() bool {
	return v == AnswerNotApplicable || v == AnswerNonConforming || v == AnswerConforms
}

// ChecklistAnswer is one answer to one inspection question.
type ChecklistAnswer struct {
	QuestionID string      `json:"question_id"`
	Value      AnswerValue `json:"value"`
	Comment    *string     `json:"comment,omitempty"`
	Photo      *string     `json:"photo,omitempty"`
}

// HasPhoto reports whether the answer carries a non-empty evidence URL.
func (a ChecklistAnswer) HasPhoto() bool {
	return a.Photo != nil && *a.Photo != ""
}

// ChecklistSubmission is the root input of a checklist evaluation.
type ChecklistSubmission struct {
	InspectionID string            `json:"inspection_id"`
	EquipmentID  string            `json:"equipment_id"`
	InspectorID  string            `json:"inspector_id"`
	Answers      []ChecklistAnswer `json:"answers"`
}

// NonConformingAnswers returns the answers whose value is AnswerNonConforming, in order.
func (s *ChecklistSubmission) NonConformingAnswers() []ChecklistAnswer {
	out := make([]ChecklistAnswer, 0)
	for _, a := range s.Answers {
		if a.Value == AnswerNonConforming {
			out = append(out, a)
		}
	}
	return out
}

// PhotoURLs returns the photo of every answer that has one, in order and
// without deduplication.
func (s *ChecklistSubmission) PhotoURLs() []string {
	out := make([]string, 0)
	for _, a := range s.Answers {
		if a.HasPhoto() {
			out = append(out, *a.Photo)
		}
	}
	return out
}
