package openai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
)

const reportSystemPrompt = `Você é o gerador de relatórios de inspeção do sistema SISMA.
Gere um relatório completo em formato JSON, seguindo estritamente o schema fornecido.
- O 'summary' deve ser um parágrafo curto descrevendo o resultado da inspeção.
- Identifique todas as 'answers' com 'value' igual a 1 como uma não conformidade, na mesma ordem.
- Para cada não conformidade, determine uma 'severity' (CRITICAL, HIGH, MEDIUM, LOW). Se a pergunta envolver itens de segurança críticos como válvulas ou pressão, a severidade deve ser 'CRITICAL'.
- Para cada não conformidade, crie uma 'suggested_action' clara e objetiva.
- Copie 'answers' sem alterações.
- Popule o campo 'attachments' com qualquer URL de foto encontrada nas respostas, na ordem.
- Gere um UUID para 'report_id' e use o timestamp atual em formato ISO8601.
- O 'pdf_url' deve ser um placeholder.`

const normativeSystemPrompt = `Você é um assistente técnico especialista no sistema SISMA.
Responda à consulta sobre normas de segurança contra incêndio, baseando-se em conhecimento técnico hipotético.

Formato da Resposta:
1. Resposta curta e direta.
2. Citação da fonte (ex: "NT 010/08 CBMCE, seção 4 (página 3)").
3. Recomendação prática (1-2 frases).
4. Disclaimer legal obrigatório.`

func buildReportUserPrompt(submission *entities.ChecklistSubmission) (string, error) {
	data, err := json.MarshalIndent(submission, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode checklist: %w", err)
	}
	return "Dados do Checklist:\n" + string(data), nil
}

func buildNormativeUserPrompt(question string) string {
	return fmt.Sprintf("Consulta do usuário: %q", question)
}

func stringProp(description string) map[string]interface{} {
	p := map[string]interface{}{"type": "string"}
	if description != "" {
		p["description"] = description
	}
	return p
}

func nullableString() map[string]interface{} {
	return map[string]interface{}{"type": []string{"string", "null"}}
}

// reportSchema mirrors entities.Report.
func reportSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"report_id":    stringProp("Um UUID v4 para o relatório."),
			"equipment_id": map[string]interface{}{"type": []string{"string", "null"}, "description": "ID do equipamento inspecionado."},
			"inspector_id": stringProp("ID do inspetor."),
			"timestamp":    stringProp("Timestamp ISO8601 da geração do relatório."),
			"answers": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question_id": stringProp(""),
						"value":       map[string]interface{}{"type": "integer", "enum": []int{0, 1, 2}},
						"comment":     nullableString(),
						"photo":       nullableString(),
					},
					"required": []string{"question_id", "value"},
				},
			},
			"summary": stringProp("Um resumo conciso do estado geral do equipamento e da inspeção."),
			"non_conformities": map[string]interface{}{
				"type":        "array",
				"description": "Lista de todas as não conformidades encontradas (respostas com valor 1).",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question_id":      stringProp("O ID da pergunta não conforme."),
						"severity":         map[string]interface{}{"type": "string", "enum": []string{"CRITICAL", "HIGH", "MEDIUM", "LOW"}},
						"suggested_action": stringProp("Uma ação corretiva clara e passo a passo."),
					},
					"required": []string{"question_id", "severity", "suggested_action"},
				},
			},
			"attachments": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Lista de URLs de anexos, como fotos.",
			},
			"pdf_url": stringProp("Um link simulado para o PDF do relatório gerado."),
		},
		"required": entities.ReportRequiredFields,
	}
}

// parseReportPayload decodes a generated report and checks that every
// required field is present and non-null.
func parseReportPayload(data []byte) (*entities.Report, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse report payload: %w", err)
	}
	for _, key := range entities.ReportRequiredFields {
		raw, ok := fields[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, fmt.Errorf("report payload missing %s", key)
		}
	}

	var report entities.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report payload: %w", err)
	}
	return &report, nil
}
