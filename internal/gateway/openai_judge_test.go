package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciler/internal/domain"
	"invoice-reconciler/internal/gateway"
)

// judgeServer fakes the chat-completions endpoint, answering every request
// with the given assistant message content.
func judgeServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func testTransaction() domain.Transaction {
	return domain.Transaction{
		ID:          "wise_001",
		Source:      "wise",
		Amount:      decimal.NewFromInt(15000),
		Currency:    "HUF",
		ValueDate:   day(2024, 3, 7),
		Description: "partner transfer",
	}
}

func testCandidates() []domain.Invoice {
	return []domain.Invoice{{
		Number:    "E-NNTCH-2024-001",
		Amount:    decimal.NewFromInt(15000),
		Currency:  "HUF",
		IssueDate: day(2024, 3, 5),
	}}
}

func TestOpenAIJudge_ParsesVerdict(t *testing.T) {
	server := judgeServer(t, `{"matched_invoice": "e-nntch-2024-001", "confidence": 85, "reasoning": "amount and date align"}`)
	defer server.Close()

	judge := gateway.NewOpenAIJudge("test-key", "gpt-4o-mini", server.URL+"/v1")
	judgment, err := judge.Judge(context.Background(), testTransaction(), testCandidates())
	require.NoError(t, err)

	// Invoice numbers normalize to upper case for direct comparison.
	assert.Equal(t, "E-NNTCH-2024-001", judgment.InvoiceNumber)
	assert.Equal(t, 85, judgment.Confidence)
	assert.Equal(t, "amount and date align", judgment.Reasoning)
}

func TestOpenAIJudge_StripsCodeFences(t *testing.T) {
	server := judgeServer(t, "```json\n{\"matched_invoice\": \"E-NNTCH-2024-001\", \"confidence\": 75, \"reasoning\": \"ok\"}\n```")
	defer server.Close()

	judge := gateway.NewOpenAIJudge("test-key", "gpt-4o-mini", server.URL+"/v1")
	judgment, err := judge.Judge(context.Background(), testTransaction(), testCandidates())
	require.NoError(t, err)
	assert.Equal(t, 75, judgment.Confidence)
}

func TestOpenAIJudge_NoMatchVerdict(t *testing.T) {
	server := judgeServer(t, `{"matched_invoice": "", "confidence": 0, "reasoning": "nothing plausible"}`)
	defer server.Close()

	judge := gateway.NewOpenAIJudge("test-key", "gpt-4o-mini", server.URL+"/v1")
	judgment, err := judge.Judge(context.Background(), testTransaction(), testCandidates())
	require.NoError(t, err)
	assert.Empty(t, judgment.InvoiceNumber)
}

func TestOpenAIJudge_MalformedResponseIsAnError(t *testing.T) {
	server := judgeServer(t, "I think invoice one matches best.")
	defer server.Close()

	judge := gateway.NewOpenAIJudge("test-key", "gpt-4o-mini", server.URL+"/v1")
	_, err := judge.Judge(context.Background(), testTransaction(), testCandidates())
	assert.Error(t, err)
}

func TestOpenAIJudge_ConfidenceOutOfRange(t *testing.T) {
	server := judgeServer(t, `{"matched_invoice": "E-NNTCH-2024-001", "confidence": 150, "reasoning": "overconfident"}`)
	defer server.Close()

	judge := gateway.NewOpenAIJudge("test-key", "gpt-4o-mini", server.URL+"/v1")
	_, err := judge.Judge(context.Background(), testTransaction(), testCandidates())
	assert.Error(t, err)
}

func TestOpenAIJudge_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	judge := gateway.NewOpenAIJudge("test-key", "gpt-4o-mini", server.URL+"/v1")
	_, err := judge.Judge(context.Background(), testTransaction(), testCandidates())
	assert.Error(t, err)
}
