package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"github.com/zatekoja/sisma-inspection/internal/domain/entities"
	"github.com/zatekoja/sisma-inspection/pkg/config"
)

var metricReader = sdkmetric.NewManualReader()

func TestMain(m *testing.M) {
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader)))
	os.Exit(m.Run())
}

// counterTotal sums every data point of the named int64 counter.
func counterTotal(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, metricReader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.OpenAIConfig{
		APIKey:       "sk-test",
		Model:        "gpt-test",
		BaseURL:      server.URL + "/",
		RateLimitRPM: -1,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func writeOutputText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(responseEnvelope{
		Output: []responseOutput{{Content: []responseContent{{Type: "output_text", Text: text}}}},
	})
}

const generatedReport = `{
	"report_id": "5b1e",
	"equipment_id": null,
	"inspector_id": "ana",
	"timestamp": "2026-03-14T09:30:00Z",
	"answers": [{"question_id": "q2", "value": 1, "photo": "http://x/p.jpg"}],
	"summary": "Válvula de alívio com vazamento.",
	"non_conformities": [{"question_id": "q2", "severity": "HIGH", "suggested_action": "Substituir válvula."}],
	"attachments": ["http://x/p.jpg"],
	"pdf_url": "https://example.com/r.pdf"
}`

func testSubmission() *entities.ChecklistSubmission {
	photo := "http://x/p.jpg"
	return &entities.ChecklistSubmission{
		InspectionID: "insp-1",
		InspectorID:  "ana",
		Answers:      []entities.ChecklistAnswer{{QuestionID: "q2", Value: entities.AnswerNonConforming, Photo: &photo}},
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)
	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestClient_GenerateReport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req responsesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.NotNil(t, req.Text)
		assert.Equal(t, "json_schema", req.Text.Format.Type)
		assert.Equal(t, "inspection_report", req.Text.Format.Name)
		require.Len(t, req.Input, 2)
		assert.Contains(t, req.Input[1].Content, `"question_id": "q2"`)
		assert.Contains(t, req.Input[1].Content, `"inspection_id": "insp-1"`)

		writeOutputText(w, "```json\n"+generatedReport+"\n```")
	})

	report, err := client.GenerateReport(context.Background(), testSubmission())
	require.NoError(t, err)

	assert.Equal(t, "5b1e", report.ReportID)
	assert.Equal(t, "", report.EquipmentID)
	assert.Equal(t, entities.SeverityHigh, report.NonConformities[0].Severity)
	assert.Equal(t, []string{"http://x/p.jpg"}, report.Attachments)
}

func TestClient_GenerateReport_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream", http.StatusBadGateway)
			},
			wantErr: "status 502",
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeOutputText(w, "Desculpe, não consigo gerar o relatório.")
			},
			wantErr: "failed to parse openai response",
		},
		{
			name: "missing required field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeOutputText(w, strings.Replace(generatedReport, `"summary"`, `"resumo"`, 1))
			},
			wantErr: "missing summary",
		},
		{
			name: "null required field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeOutputText(w, strings.Replace(generatedReport, `"attachments": ["http://x/p.jpg"]`, `"attachments": null`, 1))
			},
			wantErr: "missing attachments",
		},
		{
			name: "empty output",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"output":[]}`))
			},
			wantErr: "missing output text",
		},
		{
			name: "wrong answer shape",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeOutputText(w, strings.Replace(generatedReport, `"value": 1`, `"value": "um"`, 1))
			},
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			report, err := client.GenerateReport(context.Background(), testSubmission())
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClient_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Answer(context.Background(), "Qual a pressão de teste?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestClient_Answer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req responsesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.Text)
		assert.Equal(t, normativeSystemPrompt, req.Input[0].Content)
		assert.Contains(t, req.Input[1].Content, "hidrante")

		writeOutputText(w, "  Resposta: 30 metros.\nFonte: NT 006.  ")
	})

	answer, err := client.Answer(context.Background(), "Qual o alcance do hidrante?")
	require.NoError(t, err)
	assert.Equal(t, "Resposta: 30 metros.\nFonte: NT 006.", answer)
}

func TestClient_ContextCancelledBeforeSend(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GenerateReport(ctx, testSubmission())
	assert.Error(t, err)
	assert.False(t, called)
}

func TestReportSchema_RequiresReportFields(t *testing.T) {
	schema := reportSchema()
	assert.Equal(t, entities.ReportRequiredFields, schema["required"])

	props := schema["properties"].(map[string]interface{})
	for _, key := range []string{"report_id", "equipment_id", "inspector_id", "timestamp", "answers", "summary", "non_conformities", "attachments", "pdf_url"} {
		assert.Contains(t, props, key)
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(` {"a":1} `))
}

func TestTokenBucket(t *testing.T) {
	assert.Nil(t, newTokenBucket(-1, 0))

	bucket := newTokenBucket(60, 2)
	defer bucket.Stop()
	require.NoError(t, bucket.Wait(context.Background()))
	require.NoError(t, bucket.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, bucket.Wait(ctx))
	bucket.Stop()
}

func TestClient_GenerateReport_ParseFailureCountedOnce(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeOutputText(w, "Desculpe, não consigo gerar o relatório.")
	})

	requestsBefore := counterTotal(t, "ai.openai.request.count")
	errorsBefore := counterTotal(t, "ai.openai.request.errors")
	parseBefore := counterTotal(t, "ai.openai.response.parse_errors")

	_, err := client.GenerateReport(context.Background(), testSubmission())
	require.Error(t, err)

	assert.Equal(t, int64(1), counterTotal(t, "ai.openai.request.count")-requestsBefore)
	assert.Equal(t, int64(0), counterTotal(t, "ai.openai.request.errors")-errorsBefore)
	assert.Equal(t, int64(1), counterTotal(t, "ai.openai.response.parse_errors")-parseBefore)
}
