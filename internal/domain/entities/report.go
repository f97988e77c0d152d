package entities

// Severity grades a non-conformity.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// NonConformity is derived from one answer with value 1.
type NonConformity struct {
	QuestionID      string   `json:"question_id"`
	Severity        Severity `json:"severity"`
	SuggestedAction string   `json:"suggested_action"`
}

// Report is the compliance report produced for a checklist submission.
type Report struct {
	ReportID        string            `json:"report_id"`
	EquipmentID     string            `json:"equipment_id"`
	InspectorID     string            `json:"inspector_id"`
	Timestamp       string            `json:"timestamp"`
	Answers         []ChecklistAnswer `json:"answers"`
	Summary         string            `json:"summary"`
	NonConformities []NonConformity   `json:"non_conformities"`
	Attachments     []string          `json:"attachments"`
	PDFURL          string            `json:"pdf_url"`
}

// FallbackReportPrefix marks report ids synthesized locally.
const FallbackReportPrefix = "fallback-"

// ReportRequiredFields lists the keys a generated report must carry.
var ReportRequiredFields = []string{
	"report_id",
	"inspector_id",
	"timestamp",
	"answers",
	"summary",
	"non_conformities",
	"attachments",
	"pdf_url",
}

// Evaluation pairs the locally computed compliance score with the report.
type Evaluation struct {
	ComplianceScore float64 `json:"compliance_score"`
	Fallback        bool    `json:"fallback"`
	Report          *Report `json:"report"`
}
