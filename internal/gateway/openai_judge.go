package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"invoice-reconciler/internal/domain"
	"invoice-reconciler/internal/usecase"
)

const judgeSystemPrompt = "You are a bookkeeping assistant that matches bank transactions to issued invoices. Respond with JSON only."

// OpenAIJudge implements the MatchJudge port on the OpenAI chat-completions
// API. Every call covers one transaction against a bounded candidate list and
// must come back as a structured JSON verdict.
type OpenAIJudge struct {
	client *openai.Client
	model  string
}

// NewOpenAIJudge builds a judge. baseURL overrides the API endpoint, which
// tests use to point at a local server.
func NewOpenAIJudge(apiKey, model, baseURL string) *OpenAIJudge {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIJudge{client: openai.NewClientWithConfig(cfg), model: model}
}

// judgeVerdict mirrors the JSON shape the prompt asks for.
type judgeVerdict struct {
	MatchedInvoice string `json:"matched_invoice"`
	Confidence     int    `json:"confidence"`
	Reasoning      string `json:"reasoning"`
}

// Judge asks the model to pick the invoice the transaction most likely pays.
func (j *OpenAIJudge) Judge(ctx context.Context, txn domain.Transaction, candidates []domain.Invoice) (usecase.Judgment, error) {
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       j.model,
		Temperature: 0.1,
		MaxTokens:   1000,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildJudgePrompt(txn, candidates)},
		},
	})
	if err != nil {
		return usecase.Judgment{}, fmt.Errorf("judge request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return usecase.Judgment{}, fmt.Errorf("judge returned no choices")
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return usecase.Judgment{}, err
	}
	return usecase.Judgment{
		InvoiceNumber: strings.ToUpper(strings.TrimSpace(verdict.MatchedInvoice)),
		Confidence:    verdict.Confidence,
		Reasoning:     verdict.Reasoning,
	}, nil
}

func buildJudgePrompt(txn domain.Transaction, candidates []domain.Invoice) string {
	var b strings.Builder
	b.WriteString("Task: Match this bank transaction with the correct invoice.\n\n")
	fmt.Fprintf(&b, "Bank transaction:\n- Amount: %s %s\n- Date: %s\n- Description: %q\n- Source: %s\n\n",
		txn.Amount.String(), txn.Currency, txn.ValueDate.Format("2006-01-02"), txn.Description, txn.Source)

	b.WriteString("Available invoices:\n")
	for _, inv := range candidates {
		customer := inv.CustomerName
		if customer == "" {
			customer = "N/A"
		}
		fmt.Fprintf(&b, "- %s: %s %s, %s, %s\n",
			inv.Number, inv.Amount.String(), inv.Currency, inv.IssueDate.Format("2006-01-02"), customer)
	}

	b.WriteString(`
Rules:
1. Look for an invoice reference in the description (E-NNTCH-YYYY-1234 or E-FRDLT-YYYY-1234 format)
2. Check amount match (within 1% tolerance)
3. Consider date proximity (within 30 days)
4. If uncertain, give low confidence

Respond in JSON:
{"matched_invoice": "<invoice number or empty string>", "confidence": 0-100, "reasoning": "<explanation>"}
`)
	return b.String()
}

// parseVerdict decodes the model output, tolerating markdown code fences.
func parseVerdict(text string) (judgeVerdict, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return judgeVerdict{}, fmt.Errorf("parse judge JSON: %w", err)
	}
	if verdict.Confidence < 0 || verdict.Confidence > 100 {
		return judgeVerdict{}, fmt.Errorf("judge confidence %d out of range", verdict.Confidence)
	}
	return verdict, nil
}
