/*
arrangements.go - Agency-initiated arrangement management

PURPOSE:
  ArrangementManager covers the admin side: putting new trips on offer and
  pulling an arrangement from offer entirely. Pulling an arrangement
  cascades: every reservation that is not already canceled is refunded in
  full, the affected clients are flagged for a next-session alert, and the
  reservations, the arrangement and its accommodation are removed.

OUTCOME REPORTING:
  Cancellation with no refundable reservations is a distinct successful
  outcome ("no money lost") from one that issued refunds; the operator is
  told which happened and how much the agency paid back.

SEE ALSO:
  - booking/reservation.go: IsRefundable
  - reconcile.go: Delivers the pending alerts recorded here
*/
package agency

import (
	"context"

	"github.com/google/uuid"

	"github.com/tripline/agency-engine/booking"
)

// ArrangementManager orchestrates agency-side arrangement changes.
type ArrangementManager struct {
	store  booking.Store
	ledger *booking.Ledger
	clock  booking.Clock
}

func NewArrangementManager(store booking.Store, ledger *booking.Ledger, clock booking.Clock) *ArrangementManager {
	return &ArrangementManager{store: store, ledger: ledger, clock: clock}
}

// =============================================================================
// CANCELLATION OUTCOME
// =============================================================================

// CancelOutcome reports what an arrangement cancellation did.
type CancelOutcome struct {
	RefundsIssued   int
	TotalRefunded   booking.Money
	AffectedClients []booking.ClientID
}

// MoneyLost reports whether the agency paid anything back.
func (o *CancelOutcome) MoneyLost() bool { return o.RefundsIssued > 0 }

// =============================================================================
// OPERATIONS
// =============================================================================

// AddArrangement puts a new trip on offer. An empty ID is assigned; an
// attached accommodation without an ID gets one too.
func (m *ArrangementManager) AddArrangement(ctx context.Context, arr *booking.Arrangement) error {
	if arr.ID == "" {
		arr.ID = booking.ArrangementID(uuid.NewString())
	}
	if arr.Accommodation != nil && arr.Accommodation.ID == "" {
		arr.Accommodation.ID = booking.AccommodationID(uuid.NewString())
	}
	if err := m.store.InsertArrangement(ctx, arr); err != nil {
		return &booking.StorageError{Op: "insert arrangement", Err: err}
	}
	return nil
}

// AgencyMoneyLost previews the total the agency would refund if the
// arrangement were canceled now.
func (m *ArrangementManager) AgencyMoneyLost(ctx context.Context, arr *booking.Arrangement) (booking.Money, error) {
	today := m.clock.Today()
	reservations, err := m.store.ReservationsByArrangement(ctx, arr.ID)
	if err != nil {
		return booking.Money{}, &booking.StorageError{Op: "load reservations", Err: err}
	}

	var sum booking.Money
	for _, res := range reservations {
		if res.IsRefundable(arr, today) {
			sum = sum.Add(res.PaidAmount)
		}
	}
	return sum, nil
}

// CancelArrangement pulls the arrangement from offer. Every refundable
// reservation is refunded in full from the agency account, the affected
// client is flagged in the pending-alert registry, and finally the
// reservations, the arrangement and its accommodation are removed.
//
// A storage failure mid-refund aborts the cascade before cleanup; already
// issued refunds stand (their reservations remain and will be skipped as
// canceled on a retry because their paid amount is zero).
func (m *ArrangementManager) CancelArrangement(ctx context.Context, arr *booking.Arrangement) (*CancelOutcome, error) {
	today := m.clock.Today()
	outcome := &CancelOutcome{}

	reservations, err := m.store.ReservationsByArrangement(ctx, arr.ID)
	if err != nil {
		return nil, &booking.StorageError{Op: "load reservations", Err: err}
	}
	agency, err := m.store.AgencyAccount(ctx)
	if err != nil {
		return nil, err
	}

	for _, res := range reservations {
		if !res.IsRefundable(arr, today) {
			continue
		}
		client, err := m.store.ClientByID(ctx, res.ClientID)
		if err != nil {
			return outcome, err
		}
		account, err := m.store.AccountByID(ctx, client.AccountID)
		if err != nil {
			return outcome, err
		}

		refund := res.PaidAmount
		if err := m.ledger.Transfer(ctx, account, agency, refund, booking.DirectionRefund); err != nil {
			return outcome, err
		}
		res.PaidAmount = booking.Money{}
		if err := m.store.UpdateReservationPaidAmount(ctx, res.ClientID, res.ArrangementID, res.PaidAmount); err != nil {
			return outcome, &booking.StorageError{Op: "update paid amount", Err: err}
		}

		if err := m.store.RecordPendingAlert(ctx, client.Username); err != nil {
			return outcome, &booking.StorageError{Op: "record pending alert", Err: err}
		}

		outcome.RefundsIssued++
		outcome.TotalRefunded = outcome.TotalRefunded.Add(refund)
		outcome.AffectedClients = append(outcome.AffectedClients, res.ClientID)
	}

	if err := m.store.DeleteReservationsForArrangement(ctx, arr.ID); err != nil {
		return outcome, &booking.StorageError{Op: "delete reservations", Err: err}
	}
	if err := m.store.DeleteArrangement(ctx, arr.ID); err != nil {
		return outcome, &booking.StorageError{Op: "delete arrangement", Err: err}
	}
	if arr.Accommodation != nil {
		if err := m.store.DeleteAccommodation(ctx, arr.Accommodation.ID); err != nil {
			return outcome, &booking.StorageError{Op: "delete accommodation", Err: err}
		}
	}
	return outcome, nil
}
