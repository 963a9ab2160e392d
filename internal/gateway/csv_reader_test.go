package gateway_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invoice-reconciler/internal/domain"
	"invoice-reconciler/internal/gateway"
)

func writeStatement(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVTransactionSource_FetchTransactions(t *testing.T) {
	period := domain.Period{Year: 2024, Month: 3}

	tests := []struct {
		name    string
		content string
		want    []domain.Transaction
		wantErr bool
	}{
		{
			name: "valid file with header",
			content: "date,amount,description\n" +
				"2024-03-05,15000,E-NNTCH-2024-001 payment\n" +
				"2024-03-12,4200.50,webshop order\n",
			want: []domain.Transaction{
				{
					ID:          "wise_1",
					Source:      "wise",
					Amount:      decimal.NewFromInt(15000),
					Currency:    "HUF",
					ValueDate:   day(2024, 3, 5),
					Description: "E-NNTCH-2024-001 payment",
				},
				{
					ID:          "wise_2",
					Source:      "wise",
					Amount:      decimal.RequireFromString("4200.50"),
					Currency:    "HUF",
					ValueDate:   day(2024, 3, 12),
					Description: "webshop order",
				},
			},
		},
		{
			name: "short rows are skipped, not fatal",
			content: "date,amount,description\n" +
				"2024-03-05,15000\n" +
				"2024-03-06,100,kept row\n",
			want: []domain.Transaction{
				{
					ID:          "wise_2",
					Source:      "wise",
					Amount:      decimal.NewFromInt(100),
					Currency:    "HUF",
					ValueDate:   day(2024, 3, 6),
					Description: "kept row",
				},
			},
		},
		{
			name: "unparseable amount defaults to zero",
			content: "date,amount,description\n" +
				"2024-03-05,not-a-number,mystery payment\n",
			want: []domain.Transaction{
				{
					ID:          "wise_1",
					Source:      "wise",
					Amount:      decimal.Zero,
					Currency:    "HUF",
					ValueDate:   day(2024, 3, 5),
					Description: "mystery payment",
				},
			},
		},
		{
			name: "extra columns ignored",
			content: "date,amount,description,balance,fee\n" +
				"2024-03-05,15000,payment,99999,0\n",
			want: []domain.Transaction{
				{
					ID:          "wise_1",
					Source:      "wise",
					Amount:      decimal.NewFromInt(15000),
					Currency:    "HUF",
					ValueDate:   day(2024, 3, 5),
					Description: "payment",
				},
			},
		},
		{
			name:    "header only yields nothing",
			content: "date,amount,description\n",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := gateway.NewCSVTransactionSource("wise", writeStatement(t, tt.content), "HUF", zap.NewNop())
			got, err := src.FetchTransactions(context.Background(), period)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].ID, got[i].ID)
				assert.Equal(t, tt.want[i].Description, got[i].Description)
				assert.Equal(t, tt.want[i].ValueDate, got[i].ValueDate)
				assert.True(t, tt.want[i].Amount.Equal(got[i].Amount),
					"amount: want %s got %s", tt.want[i].Amount, got[i].Amount)
			}
		})
	}
}

func TestCSVTransactionSource_MissingFile(t *testing.T) {
	src := gateway.NewCSVTransactionSource("wise", "/nonexistent/statement.csv", "HUF", zap.NewNop())
	_, err := src.FetchTransactions(context.Background(), domain.Period{Year: 2024, Month: 3})
	assert.Error(t, err)
}
