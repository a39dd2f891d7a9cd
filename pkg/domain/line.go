package domain

import (
	"bills/pkg/money"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxConceptLength = 200

// BillLine is a line item as submitted by a client, before validation.
type BillLine struct {
	Concept    string
	Quantity   decimal.Decimal
	UnitAmount decimal.Decimal
}

// ValidatedBillLine is an immutable, already valid line item.
type ValidatedBillLine struct {
	number     int
	concept    string
	quantity   decimal.Decimal
	unitAmount decimal.Decimal
	amount     decimal.Decimal
}

// NewLine validates a single line at the given 1-based position. All rule
// violations are collected before returning a *ValidationError.
//
// The line amount is the normalized product of the submitted quantity and
// unit amount; quantity and unit amount are normalized on their own.
func NewLine(position int, concept string, quantity, unitAmount decimal.Decimal) (ValidatedBillLine, error) {
	errs := FieldErrors{}

	if position <= 0 {
		errs.Add(FieldLineNo, MsgLineNoInvalid)
	}

	concept = strings.TrimSpace(concept)
	switch {
	case concept == "":
		errs.Add(FieldLineConcept, MsgLineConceptRequired)
	case !ValidText(concept):
		errs.Add(FieldLineConcept, MsgLineConceptBadText)
	case utf8.RuneCountInString(concept) > maxConceptLength:
		errs.Add(FieldLineConcept, MsgLineConceptTooLong)
	}

	switch {
	case !quantity.IsPositive():
		errs.Add(FieldLineQuantity, MsgLineQuantityInvalid)
	case !money.Fits(quantity, money.QuantityDigits):
		errs.Add(FieldLineQuantity, MsgLineQuantityOutOfRange)
	}
	switch {
	case unitAmount.IsNegative():
		errs.Add(FieldLineUnitAmount, MsgLineUnitAmountNegative)
	case !money.Fits(unitAmount, money.AmountDigits):
		errs.Add(FieldLineUnitAmount, MsgLineUnitAmountTooLarge)
	}

	if err := errs.Err(); err != nil {
		return ValidatedBillLine{}, err
	}

	amount := money.Normalize(quantity.Mul(unitAmount))
	if !money.Fits(amount, money.AmountDigits) {
		errs.Add(FieldLineUnitAmount, MsgLineAmountOutOfRange)

		return ValidatedBillLine{}, errs.Err()
	}

	return ValidatedBillLine{
		number:     position,
		concept:    concept,
		quantity:   money.Normalize(quantity),
		unitAmount: money.Normalize(unitAmount),
		amount:     amount,
	}, nil
}

// Number is the 1-based position of the line within its bill.
func (l ValidatedBillLine) Number() int { return l.number }

func (l ValidatedBillLine) Concept() string { return l.concept }

func (l ValidatedBillLine) Quantity() decimal.Decimal { return l.quantity }

func (l ValidatedBillLine) UnitAmount() decimal.Decimal { return l.unitAmount }

// Amount is quantity x unit amount, normalized.
func (l ValidatedBillLine) Amount() decimal.Decimal { return l.amount }
