package ledger

import "github.com/Inthesearch/budgetTracker/internal/models"

// Effect is the pair of signed balance deltas (in cents) a transaction
// applies to its from and to accounts. ToDelta is zero for single-account
// transaction types.
type Effect struct {
	FromDelta int64
	ToDelta   int64
}

// EffectOf maps a transaction type and its positive amount to account
// deltas: income adds to the source account, expense subtracts from it,
// transfer moves the amount from source to destination. Unknown types yield
// a zero effect; callers validate the type before applying.
func EffectOf(txType string, amountCent int64) Effect {
	switch txType {
	case models.TransactionTypeIncome:
		return Effect{FromDelta: amountCent}
	case models.TransactionTypeExpense:
		return Effect{FromDelta: -amountCent}
	case models.TransactionTypeTransfer:
		return Effect{FromDelta: -amountCent, ToDelta: amountCent}
	}
	return Effect{}
}

// Reversed returns the effect that undoes e. Reversing twice gives back the
// original effect.
func (e Effect) Reversed() Effect {
	return Effect{FromDelta: -e.FromDelta, ToDelta: -e.ToDelta}
}
