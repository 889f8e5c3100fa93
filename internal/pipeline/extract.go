package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tpoblete/bancomail/internal/rules"
)

// Patterns over the whitespace-collapsed body text. Amounts use the Chilean
// convention ($12.345,67) unless the US marker is present, in which case the
// value reads as US formatted (US$1,234.56).
var (
	moneyRE          = regexp.MustCompile(`(US)?\$\s?([0-9.,]+)`)
	purchaseTimeRE   = regexp.MustCompile(`(\d{2}/\d{2}/\d{4} \d{2}:\d{2})`)
	purchaseReasonRE = regexp.MustCompile(`\*{4}\d{4} en (.*?) el \d{2}/\d{2}/\d{4}`)

	transferDestRE      = regexp.MustCompile(`fondos a ([A-Za-zÁÉÍÓÚÜÑáéíóúüñ ]+)`)
	transferNamedDestRE = regexp.MustCompile(`Destino Nombre y Apellido (.*?) Rut \d+-[\dkK]`)
	transferSourceRE    = regexp.MustCompile(`(\d.*?) Destino`)

	paymentMoneyRE = regexp.MustCompile(`Monto (?:(USD)\s*([0-9.,]+)|\$\s?([0-9.,]+))`)
)

const purchaseTimeLayout = "02/01/2006 15:04"

// ErrNoMoney is returned when a recognized notification body carries no
// extractable amount.
var ErrNoMoney = errors.New("pipeline: body has no amount")

// Extractor pulls the shape-specific fields out of a body text.
type Extractor struct {
	rules *rules.Ruleset
}

// NewExtractor creates an extractor over the given ruleset.
func NewExtractor(rs *rules.Ruleset) Extractor {
	return Extractor{rules: rs}
}

// purchase extracts amount, merchant descriptor and embedded transaction
// time from a card purchase body. Amount and time are required; a missing
// merchant descriptor falls back to the notification subject so a purchase
// is never dropped for an unusual body layout.
func (e Extractor) purchase(content, subject string) (purchaseFields, error) {
	var f purchaseFields

	money, err := findMoney(content)
	if err != nil {
		return f, err
	}
	f.money = money

	ts := purchaseTimeRE.FindStringSubmatch(content)
	if ts == nil {
		return f, fmt.Errorf("pipeline: purchase body has no transaction time")
	}
	// The embedded time is already local wall-clock time; parse it as-is.
	t, err := time.Parse(purchaseTimeLayout, ts[1])
	if err != nil {
		return f, fmt.Errorf("pipeline: parse purchase time %q: %w", ts[1], err)
	}
	f.occurredAt = civil.DateTimeOf(t)

	if reason := purchaseReasonRE.FindStringSubmatch(content); reason != nil {
		f.reason = strings.TrimSpace(reason[1])
	}
	if f.reason == "" {
		f.reason = strings.TrimSpace(subject)
	}

	return f, nil
}

// transfer extracts the amount and, when present, the counterparty fields
// from a transfer body. Source and destination are best-effort.
func (e Extractor) transfer(content string) (transferFields, error) {
	var f transferFields

	money, err := findMoney(content)
	if err != nil {
		return f, err
	}
	f.money = money

	if m := transferDestRE.FindStringSubmatch(content); m != nil {
		f.destination = trimmedPtr(m[1])
	} else if m := transferNamedDestRE.FindStringSubmatch(content); m != nil {
		f.destination = trimmedPtr(m[1])
	}
	if m := transferSourceRE.FindStringSubmatch(content); m != nil {
		f.source = trimmedPtr(m[1])
	}

	return f, nil
}

// payment extracts the amount from a card bill payment body. The currency is
// fixed by the notification subject, not sniffed from the body: the
// international variant reads the USD amount, the national one the peso
// amount.
func (e Extractor) payment(content string, international bool) (paymentFields, error) {
	var f paymentFields

	m := paymentMoneyRE.FindStringSubmatch(content)
	if m == nil {
		return f, ErrNoMoney
	}

	raw := m[3]
	currency := CurrencyCLP
	if international {
		raw = m[2]
		currency = CurrencyUSD
	}
	if raw == "" {
		return f, fmt.Errorf("pipeline: payment amount does not match subject currency")
	}

	amount, err := parseAmount(raw)
	if err != nil {
		return f, err
	}
	f.money = Money{Currency: currency, Amount: amount}
	f.international = international

	return f, nil
}

// localDateTime converts a UTC instant into naive wall-clock time in the
// bank's timezone.
func (e Extractor) localDateTime(t time.Time) civil.DateTime {
	return civil.DateTimeOf(t.In(e.rules.Location()))
}

// findMoney locates the first amount in the body and derives its currency
// from the US marker.
func findMoney(content string) (Money, error) {
	m := moneyRE.FindStringSubmatch(content)
	if m == nil {
		return Money{}, ErrNoMoney
	}
	currency := CurrencyCLP
	if m[1] == "US" {
		currency = CurrencyUSD
	}
	amount, err := parseAmount(m[2])
	if err != nil {
		return Money{}, err
	}
	return Money{Currency: currency, Amount: amount}, nil
}

// parseAmount normalizes a formatted amount to a decimal. The bank formats
// every amount the Chilean way regardless of currency: "." separates
// thousands and "," marks decimals.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimRight(raw, ".,")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("pipeline: parse amount %q: %w", raw, err)
	}
	return d, nil
}

func trimmedPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
