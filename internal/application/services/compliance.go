package services

import "github.com/zatekoja/sisma-inspection/internal/domain/entities"

// ComplianceScore returns the percentage of applicable answers that fully
// conform. Not-applicable answers are ignored; a checklist with no applicable
// answers scores 100.
func ComplianceScore(answers []entities.ChecklistAnswer) float64 {
	applicable, conforming := 0, 0
	for _, a := range answers {
		if a.Value == entities.AnswerNotApplicable {
			continue
		}
		applicable++
		if a.Value == entities.AnswerConforms {
			conforming++
		}
	}

	if applicable == 0 {
		return 100.0
	}
	return 100.0 * float64(conforming) / float64(applicable)
}
