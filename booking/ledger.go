/*
ledger.go - Balance transfers between client and agency accounts

PURPOSE:
  The Ledger is the only component allowed to change account balances.
  Every payment and refund is one debit paired with one matching credit,
  persisted together, and recorded in an append-only transfer log.

CONSERVATION INVARIANT:
  For every transfer: oldPayer + oldPayee == newPayer + newPayee.

TRUST MODEL:
  The ledger does not reject a transfer that drives the payer negative.
  Callers validate sufficient balance first (see agency/reservations.go);
  the ledger trusts them. This mirrors the single-operator trust model of
  the back office.

FAILURE MODEL:
  A persistence failure surfaces as StorageError. In-memory balances are
  NOT rolled back: after such a failure the loaded snapshot may disagree
  with the store, and the operator must be told rather than the call
  silently retried. Callers must persist the ledger result before mutating
  dependent reservation state.

SEE ALSO:
  - store.go: AccountStore and TransferLog contracts
  - errors.go: StorageError
*/
package booking

import (
	"context"

	"github.com/google/uuid"
)

// =============================================================================
// TRANSFER DIRECTION
// =============================================================================

// TransferDirection selects which of the two supplied accounts is logically
// the payer. The arithmetic is always one debit plus one matching credit.
type TransferDirection string

const (
	// DirectionPayment moves money client -> agency.
	DirectionPayment TransferDirection = "payment"
	// DirectionRefund moves money agency -> client.
	DirectionRefund TransferDirection = "refund"
)

// TransferRecord is one completed transfer in the audit log.
type TransferRecord struct {
	ID        string
	PayerID   AccountID
	PayeeID   AccountID
	Amount    Money
	Direction TransferDirection
	Date      Date
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger moves money between a client account and the agency account.
type Ledger struct {
	accounts AccountStore
	log      TransferLog
	clock    Clock
}

func NewLedger(accounts AccountStore, log TransferLog, clock Clock) *Ledger {
	return &Ledger{accounts: accounts, log: log, clock: clock}
}

// Transfer debits the payer and credits the payee by amount, then persists
// both balances together and appends an audit record. The direction decides
// which of (client, agency) pays:
//
//	DirectionPayment: client pays agency
//	DirectionRefund:  agency pays client
//
// amount must be >= 0. Sufficient payer balance is the caller's
// responsibility.
func (l *Ledger) Transfer(ctx context.Context, client, agency *Account, amount Money, direction TransferDirection) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}

	payer, payee := client, agency
	if direction == DirectionRefund {
		payer, payee = agency, client
	}

	payer.Balance = payer.Balance.Sub(amount)
	payee.Balance = payee.Balance.Add(amount)

	if err := l.accounts.UpdateBalances(ctx, payer, payee); err != nil {
		return &StorageError{Op: "transfer balance update", Err: err}
	}

	if l.log != nil {
		rec := TransferRecord{
			ID:        uuid.NewString(),
			PayerID:   payer.ID,
			PayeeID:   payee.ID,
			Amount:    amount,
			Direction: direction,
			Date:      l.clock.Today(),
		}
		if err := l.log.AppendTransfer(ctx, rec); err != nil {
			return &StorageError{Op: "transfer log append", Err: err}
		}
	}
	return nil
}
