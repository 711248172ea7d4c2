/*
handlers_test.go - HTTP-level tests for the booking API

Exercises the full stack below the router: chi routing, JSON codecs, the
managers and the in-memory store, with a fixed clock driving the calendar.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tripline/agency-engine/api"
	"github.com/tripline/agency-engine/booking"
	"github.com/tripline/agency-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testAPI struct {
	router http.Handler
	store  *memory.Store
	clock  *booking.FixedClock
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	clock := booking.NewFixedClock(booking.NewDate(2025, time.June, 1))

	require.NoError(t, store.InsertAccount(context.Background(), &booking.Account{
		ID: "acct-agency", Owner: "agency", Agency: true,
		Balance: booking.MoneyFromInt(10000),
	}))

	handler := api.NewHandler(store, clock, zap.NewNop().Sugar())
	return &testAPI{router: api.NewRouter(handler), store: store, clock: clock}
}

func (a *testAPI) addClient(t *testing.T, username string, balance int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, a.store.InsertAccount(ctx, &booking.Account{
		ID: booking.AccountID("acct-" + username), Owner: username,
		Balance: booking.MoneyFromInt(balance),
	}))
	require.NoError(t, a.store.InsertClient(ctx, &booking.Client{
		ID:        booking.ClientID("cl-" + username),
		Username:  username,
		AccountID: booking.AccountID("acct-" + username),
	}))
}

func (a *testAPI) addTrip(t *testing.T, id string, daysOut, total int) {
	t.Helper()
	trip := a.clock.Today().AddDays(daysOut)
	require.NoError(t, a.store.InsertArrangement(context.Background(), &booking.Arrangement{
		ID: booking.ArrangementID(id), Name: "Trip " + id, Destination: "Rome",
		Transport: booking.TransportPlane,
		TripDate:  trip, ArrivalDate: trip.AddDays(1),
		BasePrice: booking.MoneyFromInt(total),
	}))
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// =============================================================================
// ARRANGEMENT ENDPOINTS
// =============================================================================

func TestListArrangements(t *testing.T) {
	a := newTestAPI(t)
	a.addTrip(t, "arr-1", 20, 1000)

	rec := a.do(t, http.MethodGet, "/api/arrangements", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]api.ArrangementDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "arr-1", list[0].ID)
	assert.Equal(t, "1000", list[0].TotalPrice)
	assert.Equal(t, "500", list[0].HalfPrice)
	assert.True(t, list[0].OnOffer)
	assert.False(t, list[0].PastDeadline)
}

func TestListArrangements_Sorted(t *testing.T) {
	// GIVEN two arrangements with distinct prices and departure dates
	a := newTestAPI(t)
	a.addTrip(t, "arr-cheap", 30, 400)
	a.addTrip(t, "arr-dear", 20, 1000)

	// WHEN listing sorted by price descending
	rec := a.do(t, http.MethodGet, "/api/arrangements?sort=price&order=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN the dearer arrangement comes first
	list := decode[[]api.ArrangementDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "arr-dear", list[0].ID)

	// WHEN listing sorted by departure date ascending
	rec = a.do(t, http.MethodGet, "/api/arrangements?sort=date", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN the earlier departure comes first
	list = decode[[]api.ArrangementDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "arr-dear", list[0].ID)
}

func TestAddArrangement(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/admin/arrangements", api.AddArrangementRequest{
		Name: "Seaside Week", Destination: "Budva", Transport: "bus",
		TripDate: "2025-07-10", ArrivalDate: "2025-07-15", BasePrice: "400",
		Accommodation: &api.AccommodationDTO{
			Name: "Hotel Avala", Stars: 4, RoomType: "double", NightlyRate: "150",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	dto := decode[api.ArrangementDTO](t, rec)
	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, "1000", dto.TotalPrice, "400 base + 4 nights x 150")
}

func TestAddArrangement_BadDate(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/admin/arrangements", api.AddArrangementRequest{
		Name: "Broken", Destination: "Nowhere", Transport: "bus",
		TripDate: "10/07/2025", ArrivalDate: "2025-07-15", BasePrice: "400",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelArrangement_ReportsRefunds(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 2000)
	a.addTrip(t, "arr-1", 20, 1000)

	rec := a.do(t, http.MethodPost, "/api/reservations", api.CreateReservationRequest{
		Username: "pera", ArrangementID: "arr-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/admin/arrangements/arr-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	outcome := decode[api.CancelArrangementDTO](t, rec)
	assert.Equal(t, 1, outcome.RefundsIssued)
	assert.Equal(t, "500", outcome.TotalRefunded)
	assert.True(t, outcome.MoneyLost)
}

// =============================================================================
// RESERVATION ENDPOINTS
// =============================================================================

func TestCreateReservation_PaysDeposit(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 800)
	a.addTrip(t, "arr-1", 20, 1000)

	rec := a.do(t, http.MethodPost, "/api/reservations", api.CreateReservationRequest{
		Username: "pera", ArrangementID: "arr-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	dto := decode[api.ReservationDTO](t, rec)
	assert.Equal(t, "cl-pera", dto.ClientID)
	assert.Equal(t, "500", dto.PaidAmount)
	assert.Equal(t, "500", dto.UnpaidAmount)
	assert.Equal(t, "active", dto.Status)
}

func TestCreateReservation_Duplicate_Conflict(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 5000)
	a.addTrip(t, "arr-1", 20, 1000)

	body := api.CreateReservationRequest{Username: "pera", ArrangementID: "arr-1"}
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/reservations", body).Code)
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPost, "/api/reservations", body).Code)
}

func TestCreateReservation_InsufficientFunds_PaymentRequired(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 100)
	a.addTrip(t, "arr-1", 20, 1000)

	rec := a.do(t, http.MethodPost, "/api/reservations", api.CreateReservationRequest{
		Username: "pera", ArrangementID: "arr-1",
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestCreateReservation_UnknownArrangement_NotFound(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 1000)

	rec := a.do(t, http.MethodPost, "/api/reservations", api.CreateReservationRequest{
		Username: "pera", ArrangementID: "ghost",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitPayment_ClampsOverpayment(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 5000)
	a.addTrip(t, "arr-1", 20, 1000)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/reservations",
		api.CreateReservationRequest{Username: "pera", ArrangementID: "arr-1"}).Code)

	rec := a.do(t, http.MethodPost, "/api/reservations/cl-pera/arr-1/payments",
		api.PaymentRequest{Amount: "9000"})
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.PaymentDTO](t, rec)
	assert.Equal(t, "500", dto.Applied)
	assert.Equal(t, "0", dto.Reservation.UnpaidAmount)
}

func TestCancelReservation_Refunds(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 1000)
	a.addTrip(t, "arr-1", 20, 600)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/reservations",
		api.CreateReservationRequest{Username: "pera", ArrangementID: "arr-1"}).Code)

	rec := a.do(t, http.MethodPost, "/api/reservations/cl-pera/arr-1/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.CancelReservationDTO](t, rec)
	assert.Equal(t, "300", dto.Refunded)
	assert.Equal(t, "canceled", dto.Reservation.Status)
}

func TestCancelReservation_PastWindow_BadRequest(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 1000)
	a.addTrip(t, "arr-1", 20, 600)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/reservations",
		api.CreateReservationRequest{Username: "pera", ArrangementID: "arr-1"}).Code)

	a.clock.Advance(7) // 13 days out
	rec := a.do(t, http.MethodPost, "/api/reservations/cl-pera/arr-1/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SESSION AND SUMMARY ENDPOINTS
// =============================================================================

func TestStartSession_ReportsDeadlineRefund(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 600)
	a.addTrip(t, "arr-1", 20, 1000)

	require.Equal(t, http.StatusOK,
		a.do(t, http.MethodPost, "/api/clients/pera/session", nil).Code)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/reservations",
		api.CreateReservationRequest{Username: "pera", ArrangementID: "arr-1"}).Code)

	a.clock.Advance(10)
	rec := a.do(t, http.MethodPost, "/api/clients/pera/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	report := decode[api.SessionReportDTO](t, rec)
	require.Len(t, report.Refunds, 1)
	assert.Equal(t, "arr-1", report.Refunds[0].ArrangementID)
	assert.Equal(t, "500", report.Refunds[0].Amount)
	assert.Equal(t, "2025-06-01", report.LastSeen)
	assert.Equal(t, "2025-06-11", report.Today)
}

func TestStartSession_UnknownClient_NotFound(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodPost, "/api/clients/nobody/session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetClientSummary(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 2000)
	a.addTrip(t, "arr-1", 20, 1000)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/reservations",
		api.CreateReservationRequest{Username: "pera", ArrangementID: "arr-1"}).Code)

	rec := a.do(t, http.MethodGet, "/api/clients/pera/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.ClientSummaryDTO](t, rec)
	assert.Equal(t, "pera", dto.Username)
	assert.Equal(t, "1500", dto.Balance)
	assert.Equal(t, "500", dto.TotalSpent)
	assert.Equal(t, "500", dto.TotalOwed)
	require.Len(t, dto.Reservations, 1)
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

func TestGetOutstanding(t *testing.T) {
	a := newTestAPI(t)
	a.addClient(t, "pera", 2000)
	a.addTrip(t, "arr-1", 20, 1000)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/reservations",
		api.CreateReservationRequest{Username: "pera", ArrangementID: "arr-1"}).Code)

	rec := a.do(t, http.MethodGet, "/api/admin/outstanding", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.OutstandingDTO](t, rec)
	assert.Equal(t, "500", dto.Outstanding)
}
