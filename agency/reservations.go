/*
Package agency orchestrates the travel-agency back office on top of the
booking engine: booking and paying reservations, client and agency
cancellations, revenue reporting, and the session-start deadline
reconciliation pass.

PURPOSE OF THIS FILE (reservations.go):
  ReservationManager drives the client-facing reservation lifecycle:

    Book    create a reservation with the deposit (or full amount) paid
    Pay     apply an installment, clamped to the remaining amount
    Cancel  client-initiated cancellation with a full refund
    Reclassify  refresh the cached status projection
    TotalSpent / TotalOwed  client money reports

ORDERING CONTRACT:
  Every precondition is checked before any mutation or ledger call, and the
  ledger result is persisted before reservation state is touched. A storage
  failure mid-operation therefore never leaves a reservation believing
  money moved when it did not.

SEE ALSO:
  - booking/reservation.go: The classification predicates consulted here
  - arrangements.go: Agency-initiated cancellation
  - reconcile.go: Session-start catch-up
*/
package agency

import (
	"context"

	"github.com/tripline/agency-engine/booking"
)

// ReservationManager orchestrates booking, installment payment and
// client-initiated cancellation.
type ReservationManager struct {
	store  booking.Store
	ledger *booking.Ledger
	clock  booking.Clock
}

func NewReservationManager(store booking.Store, ledger *booking.Ledger, clock booking.Clock) *ReservationManager {
	return &ReservationManager{store: store, ledger: ledger, clock: clock}
}

// =============================================================================
// BOOKING
// =============================================================================

// Book creates an ACTIVE reservation for the client with the required
// payment already made: the deposit outside the deadline, the full price
// inside it. The total price is snapshotted at this moment and never
// recomputed.
//
// Rebooking over a canceled reservation replaces the old row. When the old
// row is a deadline-expiry cancellation still holding an unreconciled
// deposit, that refund is settled here first; replacing the row would
// otherwise erase the obligation before a session pass could pay it out.
//
// Fails with ErrArrangementNotOnOffer, ErrDuplicateReservation or
// ErrInsufficientFunds before any of the client's new money moves.
func (m *ReservationManager) Book(ctx context.Context, client *booking.Client, arr *booking.Arrangement) (*booking.Reservation, error) {
	today := m.clock.Today()

	if !arr.IsOnOffer(today) {
		return nil, booking.ErrArrangementNotOnOffer
	}

	existing, err := m.store.ReservationsByClient(ctx, client.ID)
	if err != nil {
		return nil, &booking.StorageError{Op: "load reservations", Err: err}
	}
	var pending *booking.Reservation
	for _, res := range existing {
		if res.ArrangementID != arr.ID {
			continue
		}
		if !res.IsCanceled(arr, today) {
			return nil, booking.ErrDuplicateReservation
		}
		if !res.IsCanceledByClient() {
			pending = res
		}
	}

	required := arr.RequiredPaymentOnBooking(today)

	account, err := m.store.AccountByID(ctx, client.AccountID)
	if err != nil {
		return nil, err
	}
	agency, err := m.store.AgencyAccount(ctx)
	if err != nil {
		return nil, err
	}

	if pending != nil {
		if err := m.ledger.Transfer(ctx, account, agency, pending.PaidAmount, booking.DirectionRefund); err != nil {
			return nil, err
		}
		pending.PaidAmount = booking.Money{}
		if err := m.store.UpdateReservationPaidAmount(ctx, pending.ClientID, pending.ArrangementID, pending.PaidAmount); err != nil {
			return nil, &booking.StorageError{Op: "update paid amount", Err: err}
		}
	}

	if account.Balance.LessThan(required) {
		return nil, &booking.InsufficientFundsError{
			AccountID: account.ID,
			Available: account.Balance,
			Required:  required,
		}
	}

	// Money first, then the reservation row.
	if err := m.ledger.Transfer(ctx, account, agency, required, booking.DirectionPayment); err != nil {
		return nil, err
	}

	res := &booking.Reservation{
		ClientID:      client.ID,
		ArrangementID: arr.ID,
		TotalPrice:    arr.TotalPrice(),
		PaidAmount:    required,
		Status:        booking.StatusActive,
	}
	if err := m.store.InsertReservation(ctx, res); err != nil {
		return nil, &booking.StorageError{Op: "insert reservation", Err: err}
	}
	return res, nil
}

// =============================================================================
// PAYMENT
// =============================================================================

// Pay applies an installment to the reservation. Overpayment is clamped to
// the unpaid remainder, never rejected; paying into a fully paid
// reservation is a no-op. Returns the amount actually transferred.
//
// The precondition is derived, not read from the cached status: a
// reservation that crossed the deadline since the last refresh cannot be
// rescued by a late payment.
//
// Fails with ErrReservationNotActive or ErrInsufficientFunds.
func (m *ReservationManager) Pay(ctx context.Context, res *booking.Reservation, amount booking.Money) (booking.Money, error) {
	if amount.IsNegative() {
		return booking.Money{}, booking.ErrNegativeAmount
	}
	arr, err := m.store.ArrangementByID(ctx, res.ArrangementID)
	if err != nil {
		return booking.Money{}, err
	}
	if res.Classify(arr, m.clock.Today()) != booking.StatusActive {
		return booking.Money{}, booking.ErrReservationNotActive
	}

	clamped := amount.Min(res.UnpaidAmount())
	if clamped.IsZero() {
		return booking.Money{}, nil
	}

	client, err := m.store.ClientByID(ctx, res.ClientID)
	if err != nil {
		return booking.Money{}, err
	}
	account, err := m.store.AccountByID(ctx, client.AccountID)
	if err != nil {
		return booking.Money{}, err
	}
	agency, err := m.store.AgencyAccount(ctx)
	if err != nil {
		return booking.Money{}, err
	}
	if account.Balance.LessThan(clamped) {
		return booking.Money{}, &booking.InsufficientFundsError{
			AccountID: account.ID,
			Available: account.Balance,
			Required:  clamped,
		}
	}

	if err := m.ledger.Transfer(ctx, account, agency, clamped, booking.DirectionPayment); err != nil {
		return booking.Money{}, err
	}

	res.PaidAmount = res.PaidAmount.Add(clamped)
	if err := m.store.UpdateReservationPaidAmount(ctx, res.ClientID, res.ArrangementID, res.PaidAmount); err != nil {
		return booking.Money{}, &booking.StorageError{Op: "update paid amount", Err: err}
	}
	return clamped, nil
}

// =============================================================================
// CLIENT CANCELLATION
// =============================================================================

// Cancel performs a client-initiated cancellation: the full paid amount is
// refunded, the paid amount drops to zero and the cached status becomes
// CANCELED. Only available while the trip is at least DeadlineEndDays away
// and the reservation is ACTIVE.
//
// Returns the refunded amount, or ErrCancellationUnavailable.
func (m *ReservationManager) Cancel(ctx context.Context, res *booking.Reservation) (booking.Money, error) {
	arr, err := m.store.ArrangementByID(ctx, res.ArrangementID)
	if err != nil {
		return booking.Money{}, err
	}
	today := m.clock.Today()

	if !res.IsCancellationAvailable(arr, today) {
		return booking.Money{}, booking.ErrCancellationUnavailable
	}

	client, err := m.store.ClientByID(ctx, res.ClientID)
	if err != nil {
		return booking.Money{}, err
	}
	account, err := m.store.AccountByID(ctx, client.AccountID)
	if err != nil {
		return booking.Money{}, err
	}
	agency, err := m.store.AgencyAccount(ctx)
	if err != nil {
		return booking.Money{}, err
	}

	refund := res.PaidAmount
	if err := m.ledger.Transfer(ctx, account, agency, refund, booking.DirectionRefund); err != nil {
		return booking.Money{}, err
	}

	res.PaidAmount = booking.Money{}
	res.Status = booking.StatusCanceled
	if err := m.store.UpdateReservationPaidAmount(ctx, res.ClientID, res.ArrangementID, res.PaidAmount); err != nil {
		return booking.Money{}, &booking.StorageError{Op: "update paid amount", Err: err}
	}
	if err := m.store.UpdateReservationStatus(ctx, res.ClientID, res.ArrangementID, res.Status); err != nil {
		return booking.Money{}, &booking.StorageError{Op: "update status", Err: err}
	}
	return refund, nil
}

// =============================================================================
// STATUS REFRESH
// =============================================================================

// Reclassify recomputes the cached status of every reservation the client
// holds. Must run before anything reads cached statuses; they are a
// materialized view, not kept continuously current.
func (m *ReservationManager) Reclassify(ctx context.Context, clientID booking.ClientID) error {
	return reclassifyClient(ctx, m.store, clientID, m.clock.Today())
}

// reclassifyClient is shared with the reconciliation pass.
func reclassifyClient(ctx context.Context, store booking.Store, clientID booking.ClientID, today booking.Date) error {
	reservations, err := store.ReservationsByClient(ctx, clientID)
	if err != nil {
		return &booking.StorageError{Op: "load reservations", Err: err}
	}
	for _, res := range reservations {
		arr, err := store.ArrangementByID(ctx, res.ArrangementID)
		if err != nil {
			return err
		}
		derived := res.Classify(arr, today)
		if derived == res.Status {
			continue
		}
		res.Status = derived
		if err := store.UpdateReservationStatus(ctx, res.ClientID, res.ArrangementID, derived); err != nil {
			return &booking.StorageError{Op: "update status", Err: err}
		}
	}
	return nil
}

// =============================================================================
// CLIENT MONEY REPORTS
// =============================================================================

// TotalSpent sums the client's payments. A CANCELED reservation still
// holding money was canceled by deadline expiry and not yet reconciled; it
// contributes the forfeitable deposit (half price) instead of its raw paid
// amount. Refreshes cached statuses first.
func (m *ReservationManager) TotalSpent(ctx context.Context, clientID booking.ClientID) (booking.Money, error) {
	if err := m.Reclassify(ctx, clientID); err != nil {
		return booking.Money{}, err
	}
	reservations, err := m.store.ReservationsByClient(ctx, clientID)
	if err != nil {
		return booking.Money{}, &booking.StorageError{Op: "load reservations", Err: err}
	}

	var sum booking.Money
	for _, res := range reservations {
		if res.Status == booking.StatusCanceled && !res.PaidAmount.IsZero() {
			arr, err := m.store.ArrangementByID(ctx, res.ArrangementID)
			if err != nil {
				return booking.Money{}, err
			}
			sum = sum.Add(arr.HalfPrice())
			continue
		}
		sum = sum.Add(res.PaidAmount)
	}
	return sum, nil
}

// TotalOwed sums the unpaid remainder over the client's ACTIVE
// reservations. Refreshes cached statuses first.
func (m *ReservationManager) TotalOwed(ctx context.Context, clientID booking.ClientID) (booking.Money, error) {
	if err := m.Reclassify(ctx, clientID); err != nil {
		return booking.Money{}, err
	}
	reservations, err := m.store.ReservationsByClient(ctx, clientID)
	if err != nil {
		return booking.Money{}, &booking.StorageError{Op: "load reservations", Err: err}
	}

	var sum booking.Money
	for _, res := range reservations {
		if res.Status == booking.StatusActive {
			sum = sum.Add(res.UnpaidAmount())
		}
	}
	return sum, nil
}

// Reservations returns the client's reservations with refreshed statuses.
func (m *ReservationManager) Reservations(ctx context.Context, clientID booking.ClientID) ([]*booking.Reservation, error) {
	if err := m.Reclassify(ctx, clientID); err != nil {
		return nil, err
	}
	reservations, err := m.store.ReservationsByClient(ctx, clientID)
	if err != nil {
		return nil, &booking.StorageError{Op: "load reservations", Err: err}
	}
	return reservations, nil
}
