package v1handler

import (
	"bills/internal/billing"
	"bills/pkg/domain"
	"bills/pkg/money"
	"bills/pkg/serrors"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/ogen-go/ogen/json"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Request-level messages that are not produced by the domain rules.
const (
	FieldRequest         = "request"
	MsgInvalidJSON       = "Invalid JSON payload."
	MsgIssuedAtBadFormat = "Issued date must use format YYYY-MM-DD."
)

// DecodeCreateBill parses a create-bill request body. Numbers are read from
// their literal text so no precision is lost. A body that is not a JSON
// object of the expected shape fails with a "request" field error and an
// unparseable issue date with an "issuedAt" one. Missing or null members are
// left zero for the domain rules to reject.
func DecodeCreateBill(data []byte) (billing.CreateCommand, error) {
	var (
		cmd      billing.CreateCommand
		issuedAt string
	)

	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "billNumber":
			cmd.BillNumber, err = decodeString(d)
		case "issuedAt":
			issuedAt, err = decodeString(d)
		case "customerName":
			cmd.CustomerName, err = decodeString(d)
		case "currency":
			cmd.Currency, err = decodeString(d)
		case "tax":
			cmd.Tax, err = decodeDecimal(d)
		case "lines":
			cmd.Lines, err = decodeLines(d)
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}

		return nil
	}); err != nil {
		return billing.CreateCommand{}, serrors.Invalid(
			map[string][]string{FieldRequest: {MsgInvalidJSON}},
			"invalid create bill request: %v", err)
	}

	if issuedAt != "" {
		t, err := time.Parse(dateLayout, issuedAt)
		if err != nil {
			return billing.CreateCommand{}, serrors.Invalid(
				map[string][]string{domain.FieldIssuedAt: {MsgIssuedAtBadFormat}},
				"invalid issue date %q", issuedAt)
		}
		cmd.IssuedAt = t
	}

	return cmd, nil
}

func decodeLines(d *jx.Decoder) ([]domain.BillLine, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}

	var lines []domain.BillLine
	err := d.Arr(func(d *jx.Decoder) error {
		var line domain.BillLine
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "concept":
				line.Concept, err = decodeString(d)
			case "quantity":
				line.Quantity, err = decodeDecimal(d)
			case "unitAmount":
				line.UnitAmount, err = decodeDecimal(d)
			default:
				err = d.Skip()
			}

			if err != nil {
				return errors.Wrapf(err, "decode %q", key)
			}

			return nil
		}); err != nil {
			return err
		}
		lines = append(lines, line)

		return nil
	})

	return lines, err
}

func decodeString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}

	return d.Str()
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch tt := d.Next(); tt {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}

		return money.Parse(n.String())
	default:
		return decimal.Zero, errors.Errorf("expected number, got %s", tt)
	}
}

// EncodeCreatedBill writes the body answered for a stored bill.
func EncodeCreatedBill(e *jx.Encoder, b *domain.PersistedBill) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(b.ID)
	e.FieldStart("billNumber")
	e.Str(b.BillNumber)
	e.FieldStart("issuedAt")
	json.EncodeDate(e, b.IssuedAt)
	e.FieldStart("subtotal")
	encodeAmount(e, b.Subtotal)
	e.FieldStart("tax")
	encodeAmount(e, b.Tax)
	e.FieldStart("total")
	encodeAmount(e, b.Total)
	e.FieldStart("currency")
	e.Str(b.Currency)
	e.ObjEnd()
}

// EncodeBillSummaries writes the bill listing as a JSON array, which is
// empty rather than null when there are no bills.
func EncodeBillSummaries(e *jx.Encoder, items []domain.BillSummary) {
	e.ArrStart()
	for _, s := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(s.ID)
		e.FieldStart("billNumber")
		e.Str(s.BillNumber)
		e.FieldStart("issuedAt")
		json.EncodeDate(e, s.IssuedAt)
		e.FieldStart("total")
		encodeAmount(e, s.Total)
		e.FieldStart("currency")
		e.Str(s.Currency)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeAmount(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(money.String(d)))
}
