/*
arrangement.go - Pricing and deadline model

PURPOSE:
  An Arrangement is an immutable trip descriptor. Everything the rest of the
  engine needs from it is derived, never stored: total price, deposit
  threshold, days until departure, and the payment-deadline windows.

DEADLINE MODEL:
  Payment happens in two installments. A deposit (half the total price) is
  due at booking while the trip is more than DeadlineEndDays away. The
  remainder is due before the trip is DeadlineEndDays out; once inside that
  boundary a new booking must pay in full, and a partially paid reservation
  is treated as canceled by deadline expiry (see reservation.go).

  Between DeadlineStartDays and DeadlineEndDays before departure clients
  with an unfinished payment are warned.

        booking open          warning window        full payment required
  <-----------------------|======================|---------------------> trip
                       16 days               14 days

INVARIANTS:
  - Trip date is immutable after creation.
  - TotalPrice is only meaningful while the arrangement exists; reservations
    snapshot it at booking time.

SEE ALSO:
  - reservation.go: Classification built on these predicates
  - agency/reservations.go: Booking orchestration
*/
package booking

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Days before the trip that bound the payment warning window. Once fewer
// than DeadlineEndDays remain, a deposit is no longer enough.
const (
	DeadlineStartDays = 16
	DeadlineEndDays   = 14
)

// Arrangement is a bookable trip offering with a fixed schedule and price.
type Arrangement struct {
	ID            ArrangementID
	Name          string
	Destination   string
	Transport     Transport
	TripDate      Date // departure
	ArrivalDate   Date // return
	BasePrice     Money
	Accommodation *Accommodation // nil when the trip has no lodging
}

// Nights is the number of billable nights: days between departure and
// return, minus one.
func (a *Arrangement) Nights() int {
	return DaysBetween(a.TripDate, a.ArrivalDate) - 1
}

// TotalPrice is base price plus nights times the nightly rate.
func (a *Arrangement) TotalPrice() Money {
	if a.Accommodation == nil {
		return a.BasePrice
	}
	nights := decimal.NewFromInt(int64(a.Nights()))
	return a.BasePrice.Add(a.Accommodation.NightlyRate.Mul(nights))
}

// HalfPrice is the deposit due at booking time outside the deadline.
func (a *Arrangement) HalfPrice() Money {
	return a.TotalPrice().Half()
}

// DaysUntilTrip counts whole days from today to departure. Negative once the
// trip has departed.
func (a *Arrangement) DaysUntilTrip(today Date) int {
	return DaysBetween(today, a.TripDate)
}

// IsOnOffer reports whether the arrangement may still be booked: the trip
// date is strictly after today.
func (a *Arrangement) IsOnOffer(today Date) bool {
	return a.TripDate.After(today)
}

// IsPastDeadline reports whether the full-payment deadline has passed.
func (a *Arrangement) IsPastDeadline(today Date) bool {
	return a.DaysUntilTrip(today) < DeadlineEndDays
}

// RequiredPaymentOnBooking is the amount a new reservation must pay at
// creation: the full price inside the deadline, the deposit outside it.
func (a *Arrangement) RequiredPaymentOnBooking(today Date) Money {
	if a.IsPastDeadline(today) {
		return a.TotalPrice()
	}
	return a.HalfPrice()
}

// InWarningWindow reports whether today falls in the window where clients
// with unfinished payments should be warned.
func (a *Arrangement) InWarningWindow(today Date) bool {
	days := a.DaysUntilTrip(today)
	return days >= DeadlineEndDays && days <= DeadlineStartDays
}

// =============================================================================
// SORTING - Listing order for offer screens
// =============================================================================

func SortByTotalPrice(arrangements []*Arrangement, ascending bool) {
	sort.SliceStable(arrangements, func(i, j int) bool {
		less := arrangements[i].TotalPrice().LessThan(arrangements[j].TotalPrice())
		if ascending {
			return less
		}
		return arrangements[j].TotalPrice().LessThan(arrangements[i].TotalPrice())
	})
}

func SortByTripDate(arrangements []*Arrangement, ascending bool) {
	sort.SliceStable(arrangements, func(i, j int) bool {
		if ascending {
			return arrangements[i].TripDate.Before(arrangements[j].TripDate)
		}
		return arrangements[j].TripDate.Before(arrangements[i].TripDate)
	})
}
