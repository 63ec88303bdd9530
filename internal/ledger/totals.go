package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/models"
)

// Totals folds a project's ledger entries into the figures the release and
// refund procedures check against.
type Totals struct {
	Escrow   *models.Transaction
	Release  *models.Transaction
	Escrowed decimal.Decimal
	// Released is the gross of completed releases, fee included.
	Released decimal.Decimal
	Refunded decimal.Decimal
}

func Summarize(txs []models.Transaction) Totals {
	var t Totals
	for i := range txs {
		tx := txs[i]
		switch tx.Type {
		case models.TransactionEscrow:
			if tx.Status == models.TransactionFailed {
				continue
			}
			if t.Escrow == nil {
				t.Escrow = &tx
			}
			t.Escrowed = t.Escrowed.Add(tx.Amount)
		case models.TransactionRelease:
			if tx.Status != models.TransactionCompleted {
				continue
			}
			if t.Release == nil {
				t.Release = &tx
			}
			t.Released = t.Released.Add(tx.Amount)
		case models.TransactionRefund:
			if tx.Status != models.TransactionCompleted {
				continue
			}
			t.Refunded = t.Refunded.Add(tx.NetAmount)
		}
	}
	return t
}

// Remaining is the escrowed amount not yet released or refunded.
func (t Totals) Remaining() decimal.Decimal {
	return t.Escrowed.Sub(t.Released).Sub(t.Refunded)
}
