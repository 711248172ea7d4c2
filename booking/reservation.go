/*
reservation.go - Reservation lifecycle classification

PURPOSE:
  A Reservation links one client to one arrangement and tracks how much of
  the snapshotted total price has been paid. Its lifecycle state is DERIVED
  from (PaidAmount, TotalPrice, trip date); the Status field is only a
  cached projection of that derivation, refreshed before anything reads it.

CLASSIFICATION RULES:
  totally paid     paidAmount == totalPrice
  canceled-by-client  paidAmount == 0
  canceled         canceled-by-client OR (not totally paid AND past deadline)
  past             totally paid AND trip already departed

MODELING LIMITATION (intentional, inherited from the domain):
  A reservation whose entire payment was refunded on client cancellation is
  indistinguishable from one that never received any money - both have
  paidAmount == 0. IsCanceledByClient conflates the two.

INVARIANTS:
  - 0 <= PaidAmount <= TotalPrice at all times.
  - TotalPrice is snapshotted at booking and never recomputed, even if the
    arrangement's accommodation price later changes.
  - Reservations are never deleted individually, only as part of
    whole-arrangement removal.

SEE ALSO:
  - arrangement.go: Deadline predicates consulted here
  - agency/reconcile.go: Eliminates cached-status drift after time passes
*/
package booking

// Reservation links a client to an arrangement with a price snapshot.
type Reservation struct {
	ClientID      ClientID
	ArrangementID ArrangementID

	// TotalPrice is the arrangement's total price at booking time.
	TotalPrice Money
	PaidAmount Money

	// Status is a denormalized projection of Classify. Refresh before use.
	Status ReservationStatus
}

// IsTotallyPaid reports whether the full price has been settled.
func (r *Reservation) IsTotallyPaid() bool {
	return r.PaidAmount.Equal(r.TotalPrice)
}

// IsCanceledByClient reports whether the reservation holds no money.
// See the modeling limitation in the file comment.
func (r *Reservation) IsCanceledByClient() bool {
	return r.PaidAmount.IsZero()
}

// IsCanceled reports whether the reservation is canceled, either explicitly
// by the client or implicitly because the full-payment deadline passed while
// it was still partially unpaid.
func (r *Reservation) IsCanceled(arr *Arrangement, today Date) bool {
	return r.IsCanceledByClient() || (!r.IsTotallyPaid() && arr.IsPastDeadline(today))
}

// IsPast reports whether this is a completed, fully settled trip that has
// already occurred.
func (r *Reservation) IsPast(arr *Arrangement, today Date) bool {
	return r.IsTotallyPaid() && !arr.IsOnOffer(today)
}

// UnpaidAmount is the remainder still owed.
func (r *Reservation) UnpaidAmount() Money {
	return r.TotalPrice.Sub(r.PaidAmount)
}

// IsCancellationAvailable reports whether the client may still cancel:
// the trip is at least DeadlineEndDays away and the cached status is ACTIVE.
func (r *Reservation) IsCancellationAvailable(arr *Arrangement, today Date) bool {
	return arr.DaysUntilTrip(today) >= DeadlineEndDays && r.Status == StatusActive
}

// IsRefundable reports whether this reservation must be refunded when the
// given arrangement is pulled from offer: it belongs to that arrangement and
// is not already canceled.
func (r *Reservation) IsRefundable(arr *Arrangement, today Date) bool {
	return r.ArrangementID == arr.ID && !r.IsCanceled(arr, today)
}

// NeedsPaymentAlert reports whether the client should be warned to complete
// payment: the reservation is active, not fully paid, and the trip is inside
// the warning window.
func (r *Reservation) NeedsPaymentAlert(arr *Arrangement, today Date) bool {
	return r.Status == StatusActive && !r.IsTotallyPaid() && arr.InWarningWindow(today)
}

// Classify derives the lifecycle status from amounts and dates. PAST wins
// over CANCELED, which wins over ACTIVE.
func (r *Reservation) Classify(arr *Arrangement, today Date) ReservationStatus {
	switch {
	case r.IsPast(arr, today):
		return StatusPast
	case r.IsCanceled(arr, today):
		return StatusCanceled
	default:
		return StatusActive
	}
}
