// Package report turns stored transactions into an XLSX workbook suitable
// for a BI tool. Dollar amounts get a parallel peso column converted at the
// current exchange rate.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	bq "cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tpoblete/bancomail/internal/infra/bigquery"
)

const sheetName = "transactions"

var header = []string{
	"id", "mail_timestamp_utc", "transaction_timestamp_local", "sender",
	"currency", "amount", "amount_clp", "transaction_type", "payment_reason",
	"transferation_type", "transferation_source", "transferation_destination",
	"category", "user_email",
}

// RateFetcher reads the current USD to CLP rate from an exchange rate API.
type RateFetcher struct {
	httpClient *http.Client
	url        string
}

// NewRateFetcher creates a fetcher against the given endpoint. The endpoint
// must return the open.er-api.com response shape.
func NewRateFetcher(url string) *RateFetcher {
	return &RateFetcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		url:        url,
	}
}

// USDToCLP returns how many pesos one dollar buys right now.
func (f *RateFetcher) USDToCLP(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("report: build rate request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("report: fetch exchange rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("report: fetch exchange rate: status %s", resp.Status)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("report: decode exchange rate: %w", err)
	}

	rate, ok := payload.Rates["CLP"]
	if !ok || rate <= 0 {
		return decimal.Decimal{}, fmt.Errorf("report: exchange rate response has no CLP rate")
	}
	return decimal.NewFromFloat(rate), nil
}

// Build renders the rows into a workbook. usdToCLP converts dollar amounts
// into the amount_clp column; peso amounts pass through unchanged.
func Build(rows []*bigquery.TransactionRow, usdToCLP decimal.Decimal) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("report: rename sheet: %w", err)
	}

	for col, name := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("report: header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return nil, fmt.Errorf("report: write header: %w", err)
		}
	}

	for i, row := range rows {
		amount := decimal.NewFromBigRat(row.Amount, 2)
		amountCLP := amount
		if row.Currency == "USD" {
			amountCLP = amount.Mul(usdToCLP).Round(0)
		}

		values := []any{
			row.ID,
			row.MailTimestampUTC.Format(time.RFC3339),
			row.TransactionTimestampLocal.String(),
			row.Sender,
			row.Currency,
			amount.InexactFloat64(),
			amountCLP.InexactFloat64(),
			row.TransactionType,
			nullable(row.PaymentReason),
			nullable(row.TransferType),
			nullable(row.TransferSource),
			nullable(row.TransferDestination),
			nullable(row.Category),
			row.UserEmail,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("report: data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("report: write row %d: %w", i+1, err)
			}
		}
	}

	return f, nil
}

func nullable(s bq.NullString) any {
	if s.Valid {
		return s.StringVal
	}
	return ""
}
