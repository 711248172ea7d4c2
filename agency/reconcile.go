/*
reconcile.go - Session-start deadline reconciliation

PURPOSE:
  The application is not always running, so a reservation can cross the
  full-payment deadline while its client is absent: partially paid and now
  past the boundary means implicitly canceled. The Reconciler catches up on
  those crossings at the start of each client session and settles the
  consequences retroactively.

ALGORITHM (one pass per session start):
  1. Read the client's checkpoint (lastSeen); zero value means far past.
  2. For every reservation canceled by deadline expiry (derived predicates,
     not the cached status) whose deadline boundary was crossed strictly
     inside the (lastSeen, today] window: refund the full paid amount
     agency -> client, zero the paid amount, persist.
  3. Refresh the cached statuses.
  4. Advance the checkpoint to today.
  5. Surface the one-shot notifications: payment-due warning and the
     agency-cancellation alert (consumed from the registry).

IDEMPOTENCE:
  Two guards make repeated runs safe. The boundary-crossing check fails
  once lastSeen == today, and a refunded reservation has paid amount zero,
  which makes it canceled-by-client and filters it from step 2. Running the
  pass twice with the same interval issues no second refund.

RESUMABILITY:
  The checkpoint advances only after every refund persisted. If the pass
  dies halfway, the next session repeats it; refunds already applied are
  filtered by the zero-paid guard, the rest are picked up.

REFUND POLICY:
  The full paid amount is returned on deadline-expiry cancellation. The
  deposit is not withheld; idempotence rests on the checkpoint interval
  rather than on comparisons against a half-price snapshot.

SEE ALSO:
  - booking/store.go: CheckpointStore, AlertStore
  - arrangements.go: Records the alerts consumed here
*/
package agency

import (
	"context"

	"github.com/tripline/agency-engine/booking"
)

// Reconciler catches up deadline crossings that happened between sessions.
type Reconciler struct {
	store  booking.Store
	ledger *booking.Ledger
	clock  booking.Clock
}

func NewReconciler(store booking.Store, ledger *booking.Ledger, clock booking.Clock) *Reconciler {
	return &Reconciler{store: store, ledger: ledger, clock: clock}
}

// =============================================================================
// SESSION REPORT
// =============================================================================

// DeadlineRefund is one retroactive refund issued by the pass.
type DeadlineRefund struct {
	ArrangementID booking.ArrangementID
	Amount        booking.Money
}

// SessionReport is what the session layer shows the client after catch-up.
type SessionReport struct {
	LastSeen booking.Date
	Today    booking.Date

	Refunds []DeadlineRefund

	// PaymentDue is set when any reservation is inside the warning window
	// and not fully paid.
	PaymentDue bool

	// ArrangementCanceled is set when the agency canceled an arrangement
	// the client had reserved since the last session. One-shot.
	ArrangementCanceled bool
}

// =============================================================================
// THE PASS
// =============================================================================

// RunSession reconciles one client at session start and returns the report.
// The pass completes fully or returns an error with the checkpoint
// unadvanced, making it resumable.
func (r *Reconciler) RunSession(ctx context.Context, client *booking.Client) (*SessionReport, error) {
	lastSeen, err := r.store.LastSeen(ctx, client.Username)
	if err != nil {
		return nil, &booking.StorageError{Op: "read checkpoint", Err: err}
	}
	today := r.clock.Today()
	report := &SessionReport{LastSeen: lastSeen, Today: today}

	reservations, err := r.store.ReservationsByClient(ctx, client.ID)
	if err != nil {
		return nil, &booking.StorageError{Op: "load reservations", Err: err}
	}
	account, err := r.store.AccountByID(ctx, client.AccountID)
	if err != nil {
		return nil, err
	}
	agency, err := r.store.AgencyAccount(ctx)
	if err != nil {
		return nil, err
	}

	for _, res := range reservations {
		arr, err := r.store.ArrangementByID(ctx, res.ArrangementID)
		if err != nil {
			return nil, err
		}

		// Only deadline-expiry cancellations still holding money.
		if !res.IsCanceled(arr, today) || res.IsCanceledByClient() {
			continue
		}
		if !crossedDeadline(lastSeen, today, arr) {
			continue
		}

		refund := res.PaidAmount
		if err := r.ledger.Transfer(ctx, account, agency, refund, booking.DirectionRefund); err != nil {
			return nil, err
		}
		res.PaidAmount = booking.Money{}
		if err := r.store.UpdateReservationPaidAmount(ctx, res.ClientID, res.ArrangementID, res.PaidAmount); err != nil {
			return nil, &booking.StorageError{Op: "update paid amount", Err: err}
		}

		report.Refunds = append(report.Refunds, DeadlineRefund{
			ArrangementID: arr.ID,
			Amount:        refund,
		})
	}

	if err := reclassifyClient(ctx, r.store, client.ID, today); err != nil {
		return nil, err
	}

	if err := r.store.SetLastSeen(ctx, client.Username, today); err != nil {
		return nil, &booking.StorageError{Op: "advance checkpoint", Err: err}
	}

	// One-shot notifications.
	reservations, err = r.store.ReservationsByClient(ctx, client.ID)
	if err != nil {
		return nil, &booking.StorageError{Op: "load reservations", Err: err}
	}
	for _, res := range reservations {
		arr, err := r.store.ArrangementByID(ctx, res.ArrangementID)
		if err != nil {
			return nil, err
		}
		if res.NeedsPaymentAlert(arr, today) {
			report.PaymentDue = true
			break
		}
	}

	canceled, err := r.store.ConsumePendingAlert(ctx, client.Username)
	if err != nil {
		return nil, &booking.StorageError{Op: "consume pending alert", Err: err}
	}
	report.ArrangementCanceled = canceled

	return report, nil
}

// crossedDeadline reports whether the full-payment boundary fell strictly
// between the checkpoint and today. A zero lastSeen (no checkpoint yet)
// lies in the far past, so any trip now inside the boundary counts.
func crossedDeadline(lastSeen, today booking.Date, arr *booking.Arrangement) bool {
	diffAtLastSeen := booking.DaysBetween(lastSeen, arr.TripDate)
	diffToday := booking.DaysBetween(today, arr.TripDate)
	return diffAtLastSeen >= booking.DeadlineEndDays && diffToday < booking.DeadlineEndDays
}
