package domain

import (
	"bills/pkg/money"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxBillNumberLength   = 50
	maxCustomerNameLength = 200
	currencyLength        = 3
)

// ValidatedBill is an immutable bill aggregate. Its subtotal and total are
// computed once by NewBill and never recomputed.
type ValidatedBill struct {
	number       string
	issuedAt     time.Time
	customerName string
	currency     string
	tax          decimal.Decimal
	lines        []ValidatedBillLine
	subtotal     decimal.Decimal
	total        decimal.Decimal
}

// ValidateHeader checks the header fields of a bill on their own. The
// orchestrator uses it to report header problems together with line problems
// when some lines could not be built.
func ValidateHeader(number string, issuedAt time.Time, customerName, currency string, tax decimal.Decimal) FieldErrors {
	errs := FieldErrors{}

	number = strings.TrimSpace(number)
	switch {
	case number == "":
		errs.Add(FieldBillNumber, MsgBillNumberRequired)
	case !ValidText(number):
		errs.Add(FieldBillNumber, MsgBillNumberBadText)
	case utf8.RuneCountInString(number) > maxBillNumberLength:
		errs.Add(FieldBillNumber, MsgBillNumberTooLong)
	}

	if issuedAt.IsZero() {
		errs.Add(FieldIssuedAt, MsgIssuedAtRequired)
	}

	customerName = strings.TrimSpace(customerName)
	switch {
	case customerName == "":
		errs.Add(FieldCustomerName, MsgCustomerNameRequired)
	case !ValidText(customerName):
		errs.Add(FieldCustomerName, MsgCustomerNameBadText)
	case utf8.RuneCountInString(customerName) > maxCustomerNameLength:
		errs.Add(FieldCustomerName, MsgCustomerNameTooLong)
	}

	if !isCurrencyCode(normalizeCurrency(currency)) {
		errs.Add(FieldCurrency, MsgCurrencyInvalid)
	}

	switch {
	case tax.IsNegative():
		errs.Add(FieldTax, MsgTaxNegative)
	case !money.Fits(tax, money.AmountDigits):
		errs.Add(FieldTax, MsgTaxOutOfRange)
	}

	return errs
}

// NewBill validates the header and assembles the aggregate from already
// validated lines. All rule violations are collected before returning a
// *ValidationError.
func NewBill(
	number string,
	issuedAt time.Time,
	customerName, currency string,
	tax decimal.Decimal,
	lines []ValidatedBillLine,
) (ValidatedBill, error) {
	errs := ValidateHeader(number, issuedAt, customerName, currency, tax)
	if len(lines) == 0 {
		errs.Add(FieldLines, MsgLinesRequired)
	}
	if err := errs.Err(); err != nil {
		return ValidatedBill{}, err
	}

	amounts := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		amounts[i] = l.Amount()
	}
	subtotal := money.Sum(amounts...)
	tax = money.Normalize(tax)
	total := money.Sum(subtotal, tax)
	if !money.Fits(total, money.AmountDigits) {
		errs.Add(FieldLines, MsgTotalOutOfRange)

		return ValidatedBill{}, errs.Err()
	}

	return ValidatedBill{
		number:       strings.TrimSpace(number),
		issuedAt:     DateOf(issuedAt),
		customerName: strings.TrimSpace(customerName),
		currency:     normalizeCurrency(currency),
		tax:          tax,
		lines:        slices.Clone(lines),
		subtotal:     subtotal,
		total:        total,
	}, nil
}

func (b ValidatedBill) Number() string { return b.number }

// IssuedAt is the calendar date of the bill, at midnight UTC.
func (b ValidatedBill) IssuedAt() time.Time { return b.issuedAt }

func (b ValidatedBill) CustomerName() string { return b.customerName }

// Currency is the upper-cased 3-letter code.
func (b ValidatedBill) Currency() string { return b.currency }

func (b ValidatedBill) Tax() decimal.Decimal { return b.tax }

func (b ValidatedBill) Subtotal() decimal.Decimal { return b.subtotal }

func (b ValidatedBill) Total() decimal.Decimal { return b.total }

// Lines returns a copy of the ordered lines.
func (b ValidatedBill) Lines() []ValidatedBillLine { return slices.Clone(b.lines) }

// PersistedBill is a stored bill as handed back by the repository. It is a
// plain value: callers receive copies.
type PersistedBill struct {
	ID           int64
	CreatedAt    time.Time
	BillNumber   string
	IssuedAt     time.Time
	CustomerName string
	Currency     string
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	Lines        []ValidatedBillLine
}

// NewPersistedBill attaches the storage-assigned identity to bill. Amounts
// mirror the validated bill and are not recomputed.
func NewPersistedBill(bill ValidatedBill, id int64, createdAt time.Time) PersistedBill {
	return PersistedBill{
		ID:           id,
		CreatedAt:    createdAt,
		BillNumber:   bill.number,
		IssuedAt:     bill.issuedAt,
		CustomerName: bill.customerName,
		Currency:     bill.currency,
		Subtotal:     bill.subtotal,
		Tax:          bill.tax,
		Total:        bill.total,
		Lines:        bill.Lines(),
	}
}

// BillSummary is the read model returned by the bill listing.
type BillSummary struct {
	ID         int64
	BillNumber string
	IssuedAt   time.Time
	Total      decimal.Decimal
	Currency   string
}

// DateOf drops the clock part of t, keeping its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidText reports whether s is valid UTF-8 without NUL characters, the
// text a PostgreSQL column accepts.
func ValidText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

func normalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

func isCurrencyCode(c string) bool {
	if utf8.RuneCountInString(c) != currencyLength {
		return false
	}
	for _, r := range c {
		if !unicode.IsLetter(r) {
			return false
		}
	}

	return true
}
