package agency

import (
	"context"
	"fmt"

	"github.com/tripline/agency-engine/booking"
)

// RevenueViewer answers the agency-side money questions: how much is still
// outstanding across all clients and who reserved a given arrangement.
type RevenueViewer struct {
	store booking.Store
	clock booking.Clock
}

func NewRevenueViewer(store booking.Store, clock booking.Clock) *RevenueViewer {
	return &RevenueViewer{store: store, clock: clock}
}

// OutstandingTotal sums the unpaid remainder over every reservation that is
// not canceled, across all clients.
func (v *RevenueViewer) OutstandingTotal(ctx context.Context) (booking.Money, error) {
	today := v.clock.Today()
	reservations, err := v.store.Reservations(ctx)
	if err != nil {
		return booking.Money{}, &booking.StorageError{Op: "load reservations", Err: err}
	}

	var sum booking.Money
	for _, res := range reservations {
		arr, err := v.store.ArrangementByID(ctx, res.ArrangementID)
		if err != nil {
			return booking.Money{}, err
		}
		if !res.IsCanceled(arr, today) {
			sum = sum.Add(res.UnpaidAmount())
		}
	}
	return sum, nil
}

// ClientsFor lists the clients holding a reservation for the arrangement.
func (v *RevenueViewer) ClientsFor(ctx context.Context, arr *booking.Arrangement) ([]*booking.Client, error) {
	reservations, err := v.store.ReservationsByArrangement(ctx, arr.ID)
	if err != nil {
		return nil, &booking.StorageError{Op: "load reservations", Err: err}
	}

	var clients []*booking.Client
	for _, res := range reservations {
		client, err := v.store.ClientByID(ctx, res.ClientID)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, nil
}

// ReservationReport describes one reservation's settlement state for the
// admin revenue screen.
func (v *RevenueViewer) ReservationReport(ctx context.Context, res *booking.Reservation) (string, error) {
	arr, err := v.store.ArrangementByID(ctx, res.ArrangementID)
	if err != nil {
		return "", err
	}
	client, err := v.store.ClientByID(ctx, res.ClientID)
	if err != nil {
		return "", err
	}
	today := v.clock.Today()

	switch {
	case res.IsTotallyPaid():
		return fmt.Sprintf("client %s paid the arrangement in full", client.Username), nil
	case res.IsCanceledByClient():
		return fmt.Sprintf("client %s canceled the reservation", client.Username), nil
	case res.IsCanceled(arr, today):
		return fmt.Sprintf("reservation canceled: client %s did not pay on time", client.Username), nil
	case arr.InWarningWindow(today):
		return fmt.Sprintf("paid %s, unpaid %s, payment deadline approaching", res.PaidAmount, res.UnpaidAmount()), nil
	default:
		return fmt.Sprintf("paid %s, unpaid %s", res.PaidAmount, res.UnpaidAmount()), nil
	}
}
