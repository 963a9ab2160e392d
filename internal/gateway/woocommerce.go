package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciler/internal/domain"
)

const wooPageSize = 100

// WooCommerceSource fetches webshop orders from the WooCommerce REST API
// using consumer key/secret basic auth. Orders are persisted for audit; they
// do not participate in matching.
type WooCommerceSource struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	client         *http.Client
}

func NewWooCommerceSource(baseURL, consumerKey, consumerSecret string) *WooCommerceSource {
	return &WooCommerceSource{
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		client:         &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *WooCommerceSource) Name() string { return "woocommerce" }

type wooOrder struct {
	ID          int64  `json:"id"`
	Number      string `json:"number"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	DateCreated string `json:"date_created"`
	Billing     struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"billing"`
}

// FetchOrders pages through orders created within the period.
func (s *WooCommerceSource) FetchOrders(ctx context.Context, period domain.Period) ([]domain.Order, error) {
	var orders []domain.Order
	for page := 1; ; page++ {
		batch, err := s.fetchPage(ctx, period, page)
		if err != nil {
			return nil, err
		}
		for _, raw := range batch {
			total, err := decimal.NewFromString(raw.Total)
			if err != nil {
				total = decimal.Zero
			}
			createdAt, _ := time.Parse("2006-01-02T15:04:05", raw.DateCreated)
			name := raw.Billing.FirstName + " " + raw.Billing.LastName
			orders = append(orders, domain.Order{
				ID:           strconv.FormatInt(raw.ID, 10),
				Number:       raw.Number,
				Total:        total,
				Currency:     raw.Currency,
				Status:       raw.Status,
				CreatedAt:    createdAt,
				CustomerName: name,
			})
		}
		if len(batch) < wooPageSize {
			return orders, nil
		}
	}
}

func (s *WooCommerceSource) fetchPage(ctx context.Context, period domain.Period, page int) ([]wooOrder, error) {
	q := url.Values{}
	q.Set("after", period.Start().Format(time.RFC3339))
	q.Set("before", period.End().Add(24*time.Hour-time.Second).Format(time.RFC3339))
	q.Set("per_page", strconv.Itoa(wooPageSize))
	q.Set("page", strconv.Itoa(page))

	endpoint := fmt.Sprintf("%s/wp-json/wc/v3/orders?%s", s.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: create request: %w", err)
	}
	req.SetBasicAuth(s.consumerKey, s.consumerSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("woocommerce: API returned %d: %s", resp.StatusCode, body)
	}

	var batch []wooOrder
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("woocommerce: decode response: %w", err)
	}
	return batch, nil
}
