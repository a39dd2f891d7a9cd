package domain_test

import (
	"bills/pkg/domain"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var issued = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func mustLine(t *testing.T, pos int, concept, qty, unit string) domain.ValidatedBillLine {
	t.Helper()

	l, err := domain.NewLine(pos, concept, dec(qty), dec(unit))
	require.NoError(t, err)

	return l
}

func TestNewBill_Totals(t *testing.T) {
	lines := []domain.ValidatedBillLine{mustLine(t, 1, "Widget", "3", "9.995")}

	b, err := domain.NewBill(" INV-100 ", issued, " ACME ", " usd ", dec("1.00"), lines)
	require.NoError(t, err)

	require.Equal(t, "INV-100", b.Number())
	require.Equal(t, "ACME", b.CustomerName())
	require.Equal(t, "USD", b.Currency())
	require.Equal(t, issued, b.IssuedAt())
	require.Equal(t, "29.99", b.Subtotal().StringFixed(2))
	require.Equal(t, "1.00", b.Tax().StringFixed(2))
	require.Equal(t, "30.99", b.Total().StringFixed(2))
	require.Len(t, b.Lines(), 1)
}

func TestNewBill_TotalInvariantHolds(t *testing.T) {
	cases := [][][2]string{
		{{"1", "0.005"}, {"2", "0.005"}, {"3", "0.005"}},
		{{"0.333", "3"}, {"7", "1.115"}},
		{{"10", "0"}, {"1.5", "2.25"}},
	}

	for i, raw := range cases {
		lines := make([]domain.ValidatedBillLine, len(raw))
		want := decimal.Zero
		for j, qu := range raw {
			lines[j] = mustLine(t, j+1, "item", qu[0], qu[1])
			want = want.Add(dec(qu[0]).Mul(dec(qu[1])).Round(2))
		}
		tax := dec("0.125")
		want = want.Round(2).Add(tax.Round(2)).Round(2)

		b, err := domain.NewBill("INV", issued, "c", "EUR", tax, lines)
		require.NoError(t, err, "case %d", i)
		require.True(t, b.Total().Equal(want), "case %d: %s != %s", i, b.Total(), want)
		require.True(t, b.Total().Equal(b.Subtotal().Add(b.Tax())), "case %d", i)
	}
}

func TestNewBill_TimeOfDayDropped(t *testing.T) {
	at := time.Date(2025, 3, 14, 23, 15, 0, 0, time.UTC)
	b, err := domain.NewBill("INV", at, "c", "EUR", decimal.Zero, []domain.ValidatedBillLine{mustLine(t, 1, "x", "1", "1")})
	require.NoError(t, err)
	require.Equal(t, issued, b.IssuedAt())
}

func TestNewBill_NoLines(t *testing.T) {
	_, err := domain.NewBill("INV", issued, "c", "EUR", decimal.Zero, nil)
	require.Equal(t, domain.FieldErrors{
		domain.FieldLines: {domain.MsgLinesRequired},
	}, fieldErrors(t, err))
}

func TestNewBill_Currency(t *testing.T) {
	lines := []domain.ValidatedBillLine{mustLine(t, 1, "x", "1", "1")}

	for _, c := range []string{"US", "USDX", "", "U5D", "   "} {
		_, err := domain.NewBill("INV", issued, "c", c, decimal.Zero, lines)
		require.Equal(t, domain.FieldErrors{
			domain.FieldCurrency: {domain.MsgCurrencyInvalid},
		}, fieldErrors(t, err), "currency %q", c)
	}

	b, err := domain.NewBill("INV", issued, "c", " eur", decimal.Zero, lines)
	require.NoError(t, err)
	require.Equal(t, "EUR", b.Currency())
}

func TestNewBill_CollectsHeaderErrors(t *testing.T) {
	_, err := domain.NewBill(strings.Repeat("9", 51), time.Time{}, "", "EURO", dec("-0.01"), nil)

	require.Equal(t, domain.FieldErrors{
		domain.FieldBillNumber:   {domain.MsgBillNumberTooLong},
		domain.FieldIssuedAt:     {domain.MsgIssuedAtRequired},
		domain.FieldCustomerName: {domain.MsgCustomerNameRequired},
		domain.FieldCurrency:     {domain.MsgCurrencyInvalid},
		domain.FieldTax:          {domain.MsgTaxNegative},
		domain.FieldLines:        {domain.MsgLinesRequired},
	}, fieldErrors(t, err))
}

func TestValidateHeader_Valid(t *testing.T) {
	require.True(t, domain.ValidateHeader("INV-1", issued, "ACME", "usd", decimal.Zero).Empty())
	require.Equal(t, domain.FieldErrors{
		domain.FieldBillNumber:   {domain.MsgBillNumberRequired},
		domain.FieldCustomerName: {domain.MsgCustomerNameTooLong},
	}, domain.ValidateHeader("  ", issued, strings.Repeat("n", 201), "usd", decimal.Zero))
}

func TestLinesReturnsCopy(t *testing.T) {
	b, err := domain.NewBill("INV", issued, "c", "EUR", decimal.Zero, []domain.ValidatedBillLine{mustLine(t, 1, "x", "1", "1")})
	require.NoError(t, err)

	lines := b.Lines()
	lines[0] = mustLine(t, 9, "changed", "5", "5")
	require.Equal(t, "x", b.Lines()[0].Concept())
}

func TestNewPersistedBill(t *testing.T) {
	b, err := domain.NewBill("INV", issued, "c", "EUR", dec("2"), []domain.ValidatedBillLine{mustLine(t, 1, "x", "2", "3")})
	require.NoError(t, err)

	created := time.Now()
	p := domain.NewPersistedBill(b, 42, created)
	require.Equal(t, int64(42), p.ID)
	require.Equal(t, created, p.CreatedAt)
	require.Equal(t, "INV", p.BillNumber)
	require.Equal(t, "8.00", p.Total.StringFixed(2))
	require.Len(t, p.Lines, 1)
}

func TestFieldErrors_MergeAndErr(t *testing.T) {
	a := domain.FieldErrors{}
	require.NoError(t, a.Err())

	a.Add(domain.FieldLineConcept, domain.MsgLineConceptRequired)
	a.Merge(domain.FieldErrors{
		domain.FieldLineConcept: {domain.MsgLineConceptTooLong},
		domain.FieldTax:         {domain.MsgTaxNegative},
	})

	require.Equal(t, domain.FieldErrors{
		domain.FieldLineConcept: {domain.MsgLineConceptRequired, domain.MsgLineConceptTooLong},
		domain.FieldTax:         {domain.MsgTaxNegative},
	}, a)
	require.EqualError(t, a.Err(), "validation failed: lines.concept, tax")
}

func TestValidateHeader_InvalidText(t *testing.T) {
	errs := domain.ValidateHeader("INV-\xff\xfe", issued, "AC\x00ME", "EUR", decimal.Zero)
	require.Equal(t, domain.FieldErrors{
		domain.FieldBillNumber:   {domain.MsgBillNumberBadText},
		domain.FieldCustomerName: {domain.MsgCustomerNameBadText},
	}, errs)
}

func TestValidateHeader_TaxOutOfRange(t *testing.T) {
	for _, tax := range []string{"1e12", "1e20000000", "10000000000"} {
		errs := domain.ValidateHeader("INV", issued, "c", "EUR", dec(tax))
		require.Equal(t, domain.FieldErrors{
			domain.FieldTax: {domain.MsgTaxOutOfRange},
		}, errs, tax)
	}

	require.Empty(t, domain.ValidateHeader("INV", issued, "c", "EUR", dec("9999999999.99")))
}

func TestNewBill_TotalOutOfRange(t *testing.T) {
	lines := []domain.ValidatedBillLine{
		mustLine(t, 1, "x", "1", "9999999999"),
		mustLine(t, 2, "y", "1", "1"),
	}

	_, err := domain.NewBill("INV", issued, "c", "EUR", decimal.Zero, lines)
	require.Equal(t, domain.FieldErrors{
		domain.FieldLines: {domain.MsgTotalOutOfRange},
	}, fieldErrors(t, err))
}
