package postgres

import (
	"bills/pkg/domain"
	"time"

	"github.com/shopspring/decimal"
)

// PgBill is a row of the bill table.
type PgBill struct {
	ID           int64           `db:"id"            goqu:"skipinsert"`
	BillNumber   string          `db:"bill_number"`
	IssuedAt     time.Time       `db:"issued_at"`
	CustomerName string          `db:"customer_name"`
	Currency     string          `db:"currency"`
	Subtotal     decimal.Decimal `db:"subtotal"`
	Tax          decimal.Decimal `db:"tax"`
	Total        decimal.Decimal `db:"total"`
	CreatedAt    time.Time       `db:"created_at"    goqu:"skipinsert"`
}

// PgBillLine is a row of the bill_line table.
type PgBillLine struct {
	ID         int64           `db:"id"          goqu:"skipinsert"`
	BillID     int64           `db:"bill_id"`
	LineNo     int             `db:"line_no"`
	Concept    string          `db:"concept"`
	Quantity   decimal.Decimal `db:"quantity"`
	UnitAmount decimal.Decimal `db:"unit_amount"`
	LineAmount decimal.Decimal `db:"line_amount"`
}

// PgBillSummary is a row of the bill listing query.
type PgBillSummary struct {
	ID         int64           `db:"id"`
	BillNumber string          `db:"bill_number"`
	IssuedAt   time.Time       `db:"issued_at"`
	Total      decimal.Decimal `db:"total"`
	Currency   string          `db:"currency"`
}

// pgInsertedBill holds the columns generated by the database on insert.
type pgInsertedBill struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

func (p *PgBill) FromDomain(bill domain.ValidatedBill) {
	*p = PgBill{
		BillNumber:   bill.Number(),
		IssuedAt:     bill.IssuedAt(),
		CustomerName: bill.CustomerName(),
		Currency:     bill.Currency(),
		Subtotal:     bill.Subtotal(),
		Tax:          bill.Tax(),
		Total:        bill.Total(),
	}
}

func domainLinesToPg(billID int64, lines []domain.ValidatedBillLine) []PgBillLine {
	out := make([]PgBillLine, len(lines))
	for i, l := range lines {
		out[i] = PgBillLine{
			BillID:     billID,
			LineNo:     l.Number(),
			Concept:    l.Concept(),
			Quantity:   l.Quantity(),
			UnitAmount: l.UnitAmount(),
			LineAmount: l.Amount(),
		}
	}

	return out
}

func (p *PgBillSummary) ToDomain() domain.BillSummary {
	return domain.BillSummary{
		ID:         p.ID,
		BillNumber: p.BillNumber,
		IssuedAt:   domain.DateOf(p.IssuedAt),
		Total:      p.Total,
		Currency:   p.Currency,
	}
}

func pgSummariesToDomain(rows []PgBillSummary) []domain.BillSummary {
	out := make([]domain.BillSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}

	return out
}
