package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciler/internal/domain"
)

const myposDefaultURL = "https://api.mypos.com"

// MyPOSSource fetches card settlements from the MyPOS API. MyPOS reports
// amounts in minor units; normalization divides by 100.
type MyPOSSource struct {
	clientID string
	secret   string
	baseURL  string
	client   *http.Client
}

func NewMyPOSSource(clientID, secret, baseURL string) *MyPOSSource {
	if baseURL == "" {
		baseURL = myposDefaultURL
	}
	return &MyPOSSource{
		clientID: clientID,
		secret:   secret,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *MyPOSSource) Name() string { return "mypos" }

type myposTransaction struct {
	TrnID       string `json:"trn_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	BookedAt    string `json:"booked_at"`
	Reference   string `json:"reference"`
}

type myposPage struct {
	Transactions []myposTransaction `json:"transactions"`
}

// FetchTransactions lists settlements booked within the period.
func (s *MyPOSSource) FetchTransactions(ctx context.Context, period domain.Period) ([]domain.Transaction, error) {
	q := url.Values{}
	q.Set("from_date", period.Start().Format(time.DateOnly))
	q.Set("to_date", period.End().Format(time.DateOnly))

	endpoint := fmt.Sprintf("%s/v1/transactions?%s", s.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("mypos: create request: %w", err)
	}
	req.SetBasicAuth(s.clientID, s.secret)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mypos: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mypos: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mypos: API returned %d: %s", resp.StatusCode, body)
	}

	var page myposPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("mypos: decode response: %w", err)
	}

	transactions := make([]domain.Transaction, 0, len(page.Transactions))
	for _, raw := range page.Transactions {
		valueDate, _ := time.Parse(time.DateOnly, strings.TrimSpace(raw.BookedAt))
		transactions = append(transactions, domain.Transaction{
			ID:          raw.TrnID,
			Source:      s.Name(),
			Amount:      decimal.New(raw.AmountMinor, -2),
			Currency:    raw.Currency,
			ValueDate:   valueDate,
			Description: raw.Reference,
		})
	}
	return transactions, nil
}
