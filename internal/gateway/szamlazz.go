package gateway

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"invoice-reconciler/internal/domain"
)

const szamlazzDefaultURL = "https://www.szamlazz.hu/szamla/"

// SzamlazzSource queries the Szamlazz.hu agent API for invoices issued in a
// date range and normalizes them into canonical invoices.
type SzamlazzSource struct {
	agentKey string
	baseURL  string
	client   *http.Client
	log      *zap.Logger
}

func NewSzamlazzSource(agentKey, baseURL string, log *zap.Logger) *SzamlazzSource {
	if baseURL == "" {
		baseURL = szamlazzDefaultURL
	}
	return &SzamlazzSource{
		agentKey: agentKey,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

func (s *SzamlazzSource) Name() string { return "szamlazz" }

type szamlazzQuery struct {
	XMLName  xml.Name             `xml:"xmlszamlaxml"`
	Xmlns    string               `xml:"xmlns,attr"`
	Settings szamlazzSettings     `xml:"beallitasok"`
	Request  szamlazzQueryRequest `xml:"szamlaKeres"`
}

type szamlazzSettings struct {
	AgentKey        string `xml:"szamlaagentkulcs"`
	EInvoice        bool   `xml:"eszamla"`
	DownloadInvoice bool   `xml:"szamlaLetoltes"`
	ResponseVersion int    `xml:"valaszVerzio"`
}

type szamlazzQueryRequest struct {
	IssuedFrom string `xml:"keltDatumTol"`
	IssuedTo   string `xml:"keltDatumIg"`
}

type szamlazzResponse struct {
	XMLName  xml.Name          `xml:"szamlak"`
	Invoices []szamlazzInvoice `xml:"szamla"`
}

type szamlazzInvoice struct {
	Number       string `xml:"szamlaszam"`
	GrossTotal   string `xml:"brutto"`
	Currency     string `xml:"penznem"`
	IssueDate    string `xml:"keltDatum"`
	CustomerName string `xml:"vevonev"`
}

// FetchInvoices queries invoices issued within the period.
func (s *SzamlazzSource) FetchInvoices(ctx context.Context, period domain.Period) ([]domain.Invoice, error) {
	query := szamlazzQuery{
		Xmlns: "http://www.szamlazz.hu/xmlszamlaxml",
		Settings: szamlazzSettings{
			AgentKey:        s.agentKey,
			EInvoice:        true,
			DownloadInvoice: true,
			ResponseVersion: 1,
		},
		Request: szamlazzQueryRequest{
			IssuedFrom: period.Start().Format(time.DateOnly),
			IssuedTo:   period.End().Format(time.DateOnly),
		},
	}

	body, err := xml.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal invoice query: %w", err)
	}
	payload := append([]byte(xml.Header), body...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoice query: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read invoice response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invoice query returned %d: %s", resp.StatusCode, respBody)
	}

	var parsed szamlazzResponse
	if err := xml.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode invoice response: %w", err)
	}

	invoices := make([]domain.Invoice, 0, len(parsed.Invoices))
	for _, raw := range parsed.Invoices {
		amount, err := decimal.NewFromString(raw.GrossTotal)
		if err != nil {
			s.log.Warn("invoice with unparseable amount skipped",
				zap.String("number", raw.Number), zap.String("amount", raw.GrossTotal))
			continue
		}
		issueDate, _ := time.Parse(time.DateOnly, raw.IssueDate)
		invoices = append(invoices, domain.Invoice{
			Number:       raw.Number,
			Amount:       amount,
			Currency:     raw.Currency,
			IssueDate:    issueDate,
			CustomerName: raw.CustomerName,
		})
	}
	return invoices, nil
}
