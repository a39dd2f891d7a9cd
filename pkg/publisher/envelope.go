package publisher

import (
	"bills/pkg/domain"
	"bills/pkg/money"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/ogen-go/ogen/json"
	"github.com/shopspring/decimal"
)

// ContentType of encoded envelopes.
const ContentType = "application/json"

// Envelope wraps an event on the wire:
//
//	{"eventName":"bill.created","occurredAtUtc":"...","payload":{...}}
type Envelope struct {
	EventName  string
	OccurredAt time.Time
	Payload    domain.BillCreatedEvent
}

// EncodeEnvelope encodes event inside its envelope. Amounts are written as
// JSON numbers with exactly two fractional digits and the issue date as
// YYYY-MM-DD.
func EncodeEnvelope(event domain.BillCreatedEvent) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("eventName")
	e.Str(domain.BillCreatedEventName)
	e.FieldStart("occurredAtUtc")
	json.EncodeDateTime(e, event.OccurredAt.UTC())
	e.FieldStart("payload")
	encodePayload(e, event)
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

func encodePayload(e *jx.Encoder, event domain.BillCreatedEvent) {
	e.ObjStart()
	e.FieldStart("billId")
	e.Int64(event.BillID)
	e.FieldStart("billNumber")
	e.Str(event.BillNumber)
	e.FieldStart("issuedAt")
	json.EncodeDate(e, event.IssuedAt)
	e.FieldStart("subtotal")
	e.Num(jx.Num(money.String(event.Subtotal)))
	e.FieldStart("tax")
	e.Num(jx.Num(money.String(event.Tax)))
	e.FieldStart("total")
	e.Num(jx.Num(money.String(event.Total)))
	e.FieldStart("currency")
	e.Str(event.Currency)
	e.FieldStart("occurredAtUtc")
	json.EncodeDateTime(e, event.OccurredAt.UTC())
	e.FieldStart("source")
	e.Str(event.Source)
	e.ObjEnd()
}

// DecodeEnvelope parses an envelope produced by EncodeEnvelope. Unknown
// fields are skipped.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "eventName":
			env.EventName, err = d.Str()
		case "occurredAtUtc":
			env.OccurredAt, err = json.DecodeDateTime(d)
		case "payload":
			env.Payload, err = decodePayload(d)
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}

		return nil
	}); err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}

	return env, nil
}

func decodePayload(d *jx.Decoder) (domain.BillCreatedEvent, error) {
	var ev domain.BillCreatedEvent
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "billId":
			ev.BillID, err = d.Int64()
		case "billNumber":
			ev.BillNumber, err = d.Str()
		case "issuedAt":
			ev.IssuedAt, err = json.DecodeDate(d)
		case "subtotal":
			ev.Subtotal, err = decodeAmount(d)
		case "tax":
			ev.Tax, err = decodeAmount(d)
		case "total":
			ev.Total, err = decodeAmount(d)
		case "currency":
			ev.Currency, err = d.Str()
		case "occurredAtUtc":
			ev.OccurredAt, err = json.DecodeDateTime(d)
		case "source":
			ev.Source, err = d.Str()
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}

		return nil
	})

	return ev, err
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}

	return money.Parse(n.String())
}
