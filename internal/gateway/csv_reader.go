package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"invoice-reconciler/internal/domain"
)

// CSVTransactionSource reads uploaded statement files for one channel instead
// of hitting that channel's live API. Format: comma-separated UTF-8, header
// row discarded, columns [date, amount, description, ...]; extra columns are
// ignored. Parsing is lenient: short rows are skipped and a bad amount
// becomes zero, so one malformed row never aborts the batch.
type CSVTransactionSource struct {
	channel  string
	path     string
	currency string
	log      *zap.Logger
}

func NewCSVTransactionSource(channel, path, currency string, log *zap.Logger) *CSVTransactionSource {
	return &CSVTransactionSource{channel: channel, path: path, currency: currency, log: log}
}

func (s *CSVTransactionSource) Name() string { return s.channel }

// FetchTransactions parses the uploaded file into canonical transactions.
// The period parameter is unused: an uploaded file stands for the period the
// operator chose to upload it for.
func (s *CSVTransactionSource) FetchTransactions(ctx context.Context, _ domain.Period) ([]domain.Transaction, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open statement file %s: %w", s.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read statement file %s: %w", s.path, err)
	}

	var transactions []domain.Transaction
	for i, row := range rows {
		if i == 0 {
			// Header row.
			continue
		}
		if len(row) < 3 {
			s.log.Debug("skipping short row",
				zap.String("channel", s.channel), zap.Int("row", i+1))
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(row[1]))
		if err != nil {
			amount = decimal.Zero
		}
		valueDate := parseStatementDate(strings.TrimSpace(row[0]))

		transactions = append(transactions, domain.Transaction{
			ID:          fmt.Sprintf("%s_%d", s.channel, i),
			Source:      s.channel,
			Amount:      amount,
			Currency:    s.currency,
			ValueDate:   valueDate,
			Description: strings.TrimSpace(row[2]),
		})
	}
	return transactions, nil
}

// parseStatementDate accepts the date layouts seen across exported bank
// statements. An unparseable date is left zero rather than failing the row.
func parseStatementDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "2006.01.02.", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
