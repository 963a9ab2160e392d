package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciler/internal/domain"
)

const wiseDefaultURL = "https://api.wise.com"

// WiseSource fetches incoming transfers from the Wise API for the first
// business profile on the account.
type WiseSource struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewWiseSource(token, baseURL string) *WiseSource {
	if baseURL == "" {
		baseURL = wiseDefaultURL
	}
	return &WiseSource{
		token:   token,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *WiseSource) Name() string { return "wise" }

type wiseProfile struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type wiseTransaction struct {
	ReferenceNumber string `json:"referenceNumber"`
	Date            string `json:"date"`
	Details         struct {
		Description string `json:"description"`
	} `json:"details"`
	Amount struct {
		Value    json.Number `json:"value"`
		Currency string      `json:"currency"`
	} `json:"amount"`
}

type wiseStatement struct {
	Transactions []wiseTransaction `json:"transactions"`
}

// FetchTransactions lists transfers received within the period.
func (s *WiseSource) FetchTransactions(ctx context.Context, period domain.Period) ([]domain.Transaction, error) {
	profileID, err := s.firstProfile(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/profiles/%d/statement?intervalStart=%sT00:00:00Z&intervalEnd=%sT23:59:59Z",
		s.baseURL, profileID,
		period.Start().Format(time.DateOnly), period.End().Format(time.DateOnly))
	var statement wiseStatement
	if err := s.get(ctx, url, &statement); err != nil {
		return nil, err
	}

	transactions := make([]domain.Transaction, 0, len(statement.Transactions))
	for _, raw := range statement.Transactions {
		amount, err := decimal.NewFromString(raw.Amount.Value.String())
		if err != nil {
			continue
		}
		valueDate, _ := time.Parse(time.RFC3339, raw.Date)
		transactions = append(transactions, domain.Transaction{
			ID:          raw.ReferenceNumber,
			Source:      s.Name(),
			Amount:      amount,
			Currency:    raw.Amount.Currency,
			ValueDate:   valueDate,
			Description: raw.Details.Description,
		})
	}
	return transactions, nil
}

func (s *WiseSource) firstProfile(ctx context.Context) (int64, error) {
	var profiles []wiseProfile
	if err := s.get(ctx, s.baseURL+"/v1/profiles", &profiles); err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		return 0, fmt.Errorf("wise: no profiles on account")
	}
	return profiles[0].ID, nil
}

func (s *WiseSource) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("wise: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("wise: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("wise: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wise: API returned %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("wise: decode response: %w", err)
	}
	return nil
}
