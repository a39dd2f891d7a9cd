package postgres

import (
	"bills/pkg/domain"
	"bills/pkg/storage"
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
)

const (
	billsTable     = "bill"
	billLinesTable = "bill_line"
)

// BillExistsByNumber looks the bill number up on its unique index.
func (p *PgSQL) BillExistsByNumber(ctx context.Context, number string) (bool, error) {
	count, err := p.Builder.From(billsTable).
		Where(goqu.C("bill_number").Eq(number)).
		CountContext(ctx)
	if err != nil {
		return false, fmt.Errorf("could not check bill number in pg: %w", err)
	}

	return count > 0, nil
}

// CreateBill inserts the header and all lines. Outside a transaction it opens
// its own so that a header is never visible without its lines.
func (p *PgSQL) CreateBill(ctx context.Context, bill domain.ValidatedBill) (*domain.PersistedBill, error) {
	if _, inTx := p.DB.(*sql.Tx); !inTx {
		var created *domain.PersistedBill
		if err := p.WithTx(ctx, func(tx storage.AllStorage) error {
			var err error
			created, err = tx.CreateBill(ctx, bill)

			return err
		}); err != nil {
			return nil, err
		}

		return created, nil
	}

	var header PgBill
	header.FromDomain(bill)

	var inserted pgInsertedBill
	if _, err := p.Builder.Insert(billsTable).
		Rows(header).
		Returning(goqu.C("id"), goqu.C("created_at")).
		Executor().ScanStructContext(ctx, &inserted); err != nil {
		return nil, fmt.Errorf("could not store bill into pg: %w", translateError(err))
	}

	if _, err := p.Builder.Insert(billLinesTable).
		Rows(domainLinesToPg(inserted.ID, bill.Lines())).
		Executor().ExecContext(ctx); err != nil {
		return nil, fmt.Errorf("could not store bill lines into pg: %w", translateError(err))
	}

	persisted := domain.NewPersistedBill(bill, inserted.ID, inserted.CreatedAt)

	return &persisted, nil
}

// BillSummaries recomputes every total from the stored line amounts:
//
//	SELECT b.id, b.bill_number, b.issued_at, COALESCE(SUM(bl.line_amount), 0) + b.tax AS total, b.currency
//	FROM bill b LEFT JOIN bill_line bl ON bl.bill_id = b.id
//	GROUP BY b.id ORDER BY b.id
func (p *PgSQL) BillSummaries(ctx context.Context) ([]domain.BillSummary, error) {
	ds := p.Builder.From(goqu.T(billsTable).As("b")).
		LeftJoin(goqu.T(billLinesTable).As("bl"), goqu.On(goqu.I("bl.bill_id").Eq(goqu.I("b.id")))).
		Select(
			goqu.I("b.id"),
			goqu.I("b.bill_number"),
			goqu.I("b.issued_at"),
			goqu.L(`COALESCE(SUM("bl"."line_amount"), 0) + "b"."tax"`).As("total"),
			goqu.I("b.currency"),
		).
		GroupBy(goqu.I("b.id")).
		Order(goqu.I("b.id").Asc())

	var rows []PgBillSummary
	if err := ds.ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch bill summaries from pg: %w", err)
	}

	return pgSummariesToDomain(rows), nil
}
