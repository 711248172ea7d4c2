package agency_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripline/agency-engine/booking"
)

// =============================================================================
// DEADLINE REFUND TESTS
// =============================================================================

func TestRunSession_DeadlineCrossed_RefundsOnce(t *testing.T) {
	// GIVEN: 500 paid of 1000 toward a trip 20 days out, session checkpoint
	//        set today
	// WHEN: The client returns 10 days later (trip now 10 days out)
	// THEN: Exactly one refund of 500 is issued and the reservation ends up
	//       CANCELED holding nothing

	today := booking.NewDate(2025, time.June, 1)
	f := newFixture(t, today)
	client := f.addClient(t, "pera", booking.MoneyFromInt(600))
	arr := f.addTrip(t, "arr-1", today.AddDays(20), 1000)

	ctx := context.Background()
	_, err := f.reconciler.RunSession(ctx, client) // checkpoint at day 0
	require.NoError(t, err)

	res, err := f.reservations.Book(ctx, client, arr) // pays 500
	require.NoError(t, err)
	require.True(t, f.balance(t, client.AccountID).Equal(booking.MoneyFromInt(100)))

	f.clock.Advance(10)
	report, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)

	require.Len(t, report.Refunds, 1)
	assert.Equal(t, arr.ID, report.Refunds[0].ArrangementID)
	assert.True(t, report.Refunds[0].Amount.Equal(booking.MoneyFromInt(500)))
	assert.True(t, f.balance(t, client.AccountID).Equal(booking.MoneyFromInt(600)),
		"the full paid amount comes back")

	stored, err := f.store.Reservation(ctx, res.ClientID, res.ArrangementID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCanceled, stored.Status)
	assert.True(t, stored.PaidAmount.IsZero())
}

func TestRunSession_Idempotent(t *testing.T) {
	// GIVEN: A session already issued the deadline refund
	// WHEN: The client opens more sessions
	// THEN: No second refund, no extra transfers

	today := booking.NewDate(2025, time.June, 1)
	f := newFixture(t, today)
	client := f.addClient(t, "pera", booking.MoneyFromInt(600))
	arr := f.addTrip(t, "arr-1", today.AddDays(20), 1000)

	ctx := context.Background()
	_, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	_, err = f.reservations.Book(ctx, client, arr)
	require.NoError(t, err)

	f.clock.Advance(10)
	_, err = f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	after := f.transferCount(t)

	report, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	assert.Empty(t, report.Refunds)

	f.clock.Advance(3)
	report, err = f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	assert.Empty(t, report.Refunds)

	assert.Equal(t, after, f.transferCount(t), "exactly one refund, ever")
	assert.True(t, f.balance(t, client.AccountID).Equal(booking.MoneyFromInt(600)))
}

func TestRunSession_NoCheckpoint_RefundsOverdueReservation(t *testing.T) {
	// GIVEN: A client who has never opened a session, holding a half-paid
	//        reservation already inside the deadline
	// WHEN: Their first session runs
	// THEN: The missing checkpoint counts as the far past, so the refund
	//       is issued

	today := booking.NewDate(2025, time.June, 1)
	f := newFixture(t, today)
	client := f.addClient(t, "pera", booking.MoneyFromInt(600))
	arr := f.addTrip(t, "arr-1", today.AddDays(10), 1000)

	ctx := context.Background()
	require.NoError(t, f.store.InsertReservation(ctx, &booking.Reservation{
		ClientID:      client.ID,
		ArrangementID: arr.ID,
		TotalPrice:    booking.MoneyFromInt(1000),
		PaidAmount:    booking.MoneyFromInt(500),
		Status:        booking.StatusActive,
	}))

	report, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)

	require.Len(t, report.Refunds, 1)
	assert.True(t, report.Refunds[0].Amount.Equal(booking.MoneyFromInt(500)))
	assert.True(t, report.LastSeen.IsZero())
}

func TestRunSession_MultipleArrangements_AllRefunded(t *testing.T) {
	// GIVEN: Two half-paid trips whose deadlines both fell inside the gap
	// WHEN: One session runs
	// THEN: Both refunds are issued in the same pass

	today := booking.NewDate(2025, time.June, 1)
	f := newFixture(t, today)
	client := f.addClient(t, "pera", booking.MoneyFromInt(2000))
	near := f.addTrip(t, "arr-near", today.AddDays(16), 600)
	far := f.addTrip(t, "arr-far", today.AddDays(20), 1000)

	ctx := context.Background()
	_, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	_, err = f.reservations.Book(ctx, client, near) // pays 300
	require.NoError(t, err)
	_, err = f.reservations.Book(ctx, client, far) // pays 500
	require.NoError(t, err)
	require.True(t, f.balance(t, client.AccountID).Equal(booking.MoneyFromInt(1200)))

	f.clock.Advance(10) // 6 and 10 days out now
	report, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)

	assert.Len(t, report.Refunds, 2)
	assert.True(t, f.balance(t, client.AccountID).Equal(booking.MoneyFromInt(2000)))
}

func TestRunSession_FullyPaid_NoRefund(t *testing.T) {
	// GIVEN: A fully paid reservation crossing the deadline
	// THEN: Nothing to reconcile; the trip is simply going ahead

	today := booking.NewDate(2025, time.June, 1)
	f := newFixture(t, today)
	client := f.addClient(t, "pera", booking.MoneyFromInt(2000))
	arr := f.addTrip(t, "arr-1", today.AddDays(20), 1000)

	ctx := context.Background()
	_, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	res, err := f.reservations.Book(ctx, client, arr)
	require.NoError(t, err)
	_, err = f.reservations.Pay(ctx, res, booking.MoneyFromInt(500))
	require.NoError(t, err)

	f.clock.Advance(10)
	report, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)

	assert.Empty(t, report.Refunds)
	stored, err := f.store.Reservation(ctx, res.ClientID, res.ArrangementID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusActive, stored.Status)
}

// =============================================================================
// CHECKPOINT TESTS
// =============================================================================

func TestRunSession_AdvancesCheckpoint(t *testing.T) {
	today := booking.NewDate(2025, time.June, 1)
	f := newFixture(t, today)
	client := f.addClient(t, "pera", booking.MoneyFromInt(100))

	ctx := context.Background()
	report, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	assert.True(t, report.LastSeen.IsZero(), "first session has no checkpoint")
	assert.Equal(t, "2025-06-01", report.Today.String())

	f.clock.Advance(4)
	report, err = f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", report.LastSeen.String())
	assert.Equal(t, "2025-06-05", report.Today.String())
}

// =============================================================================
// NOTIFICATION TESTS
// =============================================================================

func TestRunSession_PaymentDue_InsideWarningWindow(t *testing.T) {
	// GIVEN: A half-paid trip 15 days out
	// THEN: The session warns that the remainder is due soon

	today := booking.NewDate(2025, time.June, 1)
	f := newFixture(t, today)
	client := f.addClient(t, "pera", booking.MoneyFromInt(2000))
	arr := f.addTrip(t, "arr-1", today.AddDays(20), 1000)

	ctx := context.Background()
	_, err := f.reservations.Book(ctx, client, arr)
	require.NoError(t, err)

	f.clock.Advance(5) // 15 days out
	report, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	assert.True(t, report.PaymentDue)

	// Fully paid: no warning.
	res, err := f.store.Reservation(ctx, client.ID, arr.ID)
	require.NoError(t, err)
	_, err = f.reservations.Pay(ctx, res, booking.MoneyFromInt(500))
	require.NoError(t, err)

	report, err = f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	assert.False(t, report.PaymentDue)
}

func TestRunSession_ArrangementCanceledAlert_OneShot(t *testing.T) {
	// GIVEN: The agency canceled a trip the client had reserved
	// WHEN: The client opens their next two sessions
	// THEN: The first reports it, the second does not

	today := booking.NewDate(2025, time.June, 1)
	f := newFixture(t, today)
	client := f.addClient(t, "pera", booking.MoneyFromInt(1000))
	arr := f.addTrip(t, "arr-1", today.AddDays(30), 800)

	ctx := context.Background()
	_, err := f.reservations.Book(ctx, client, arr)
	require.NoError(t, err)
	_, err = f.arrangements.CancelArrangement(ctx, arr)
	require.NoError(t, err)

	report, err := f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	assert.True(t, report.ArrangementCanceled)

	report, err = f.reconciler.RunSession(ctx, client)
	require.NoError(t, err)
	assert.False(t, report.ArrangementCanceled, "the alert fires once")
}
