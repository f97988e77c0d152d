package entities

// NormativeAnswer is the assistant's reply to a free-text regulatory question.
type NormativeAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
	Cached   bool   `json:"cached"`
}

const (
	NormativeSourceCanned    = "canned"
	NormativeSourceGenerated = "generated"
)
