package domain

import (
	"maps"
	"slices"
	"strings"
)

// Field paths used as keys in FieldErrors. They are part of the public error
// payload and must not change.
const (
	FieldBillNumber   = "billNumber"
	FieldIssuedAt     = "issuedAt"
	FieldCustomerName = "customerName"
	FieldCurrency     = "currency"
	FieldTax          = "tax"
	FieldLines        = "lines"

	FieldLineNo         = "lines.lineNo"
	FieldLineConcept    = "lines.concept"
	FieldLineQuantity   = "lines.quantity"
	FieldLineUnitAmount = "lines.unitAmount"
)

// Validation messages returned to clients verbatim.
const (
	MsgBillNumberRequired   = "Bill number is required."
	MsgBillNumberTooLong    = "Bill number max length is 50."
	MsgBillNumberBadText    = "Bill number must be valid UTF-8 text."
	MsgIssuedAtRequired     = "Issued date is required."
	MsgCustomerNameRequired = "Customer name is required."
	MsgCustomerNameTooLong  = "Customer name max length is 200."
	MsgCustomerNameBadText  = "Customer name must be valid UTF-8 text."
	MsgCurrencyInvalid      = "Currency must be a 3-letter ISO code."
	MsgTaxNegative          = "Tax cannot be negative."
	MsgTaxOutOfRange        = "Tax is out of range."
	MsgLinesRequired        = "At least one line is required."
	MsgTotalOutOfRange      = "Bill total is out of range."

	MsgLineNoInvalid          = "Line number must be greater than zero."
	MsgLineConceptRequired    = "Line concept is required."
	MsgLineConceptTooLong     = "Line concept max length is 200."
	MsgLineConceptBadText     = "Line concept must be valid UTF-8 text."
	MsgLineQuantityInvalid    = "Line quantity must be greater than zero."
	MsgLineQuantityOutOfRange = "Line quantity is out of range."
	MsgLineUnitAmountNegative = "Line unit amount cannot be negative."
	MsgLineUnitAmountTooLarge = "Line unit amount is out of range."
	MsgLineAmountOutOfRange   = "Line amount is out of range."
)

// FieldErrors maps a field path to its ordered list of messages. An empty
// mapping means no rule was violated.
type FieldErrors map[string][]string

// Add appends msg to the messages of field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Merge appends every message of other to f, preserving order per field.
func (f FieldErrors) Merge(other FieldErrors) {
	for field, msgs := range other {
		f[field] = append(f[field], msgs...)
	}
}

// Empty reports whether no field has a message.
func (f FieldErrors) Empty() bool { return len(f) == 0 }

// Err returns a *ValidationError holding f, or nil when f is empty.
func (f FieldErrors) Err() error {
	if f.Empty() {
		return nil
	}

	return &ValidationError{Fields: f}
}

// ValidationError is returned by the constructors when one or more rules fail.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(slices.Sorted(maps.Keys(e.Fields)), ", ")
}
