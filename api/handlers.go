/*
handlers.go - HTTP API handlers for the agency back office

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Clients:
    POST   /api/clients/{username}/session  Start a session (reconcile first)
    GET    /api/clients/{username}/summary  Money position + reservations

  Arrangements:
    GET    /api/arrangements                List trips on offer

  Reservations:
    POST   /api/reservations                Book an arrangement
    POST   /api/reservations/{client}/{arrangement}/payments  Pay in
    POST   /api/reservations/{client}/{arrangement}/cancel    Client cancel

  Admin:
    POST   /api/admin/arrangements          Put a new trip on offer
    DELETE /api/admin/arrangements/{id}     Cancel an arrangement (refunds)
    GET    /api/admin/outstanding           Agency-wide unpaid remainder

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (managers, reconciler, revenue viewer)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, precondition violations
  - 402: Insufficient funds
  - 404: Entity not found
  - 409: Duplicate reservation
  - 500: Storage failures

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tripline/agency-engine/agency"
	"github.com/tripline/agency-engine/booking"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store booking.Store
	Clock booking.Clock
	Log   *zap.SugaredLogger

	reservations *agency.ReservationManager
	arrangements *agency.ArrangementManager
	reconciler   *agency.Reconciler
	revenue      *agency.RevenueViewer
}

// NewHandler wires the managers over the given store and clock.
func NewHandler(store booking.Store, clock booking.Clock, log *zap.SugaredLogger) *Handler {
	ledger := booking.NewLedger(store, store, clock)
	return &Handler{
		Store:        store,
		Clock:        clock,
		Log:          log,
		reservations: agency.NewReservationManager(store, ledger, clock),
		arrangements: agency.NewArrangementManager(store, ledger, clock),
		reconciler:   agency.NewReconciler(store, ledger, clock),
		revenue:      agency.NewRevenueViewer(store, clock),
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// StartSession reconciles the client's reservations up to today and returns
// the session report.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	client, err := h.Store.ClientByUsername(r.Context(), username)
	if err != nil {
		h.writeDomainError(w, "Failed to start session", err)
		return
	}

	report, err := h.reconciler.RunSession(r.Context(), client)
	if err != nil {
		h.writeDomainError(w, "Failed to reconcile session", err)
		return
	}

	dto := SessionReportDTO{
		Today:               report.Today.String(),
		Refunds:             make([]RefundDTO, 0, len(report.Refunds)),
		PaymentDue:          report.PaymentDue,
		ArrangementCanceled: report.ArrangementCanceled,
	}
	if !report.LastSeen.IsZero() {
		dto.LastSeen = report.LastSeen.String()
	}
	for _, refund := range report.Refunds {
		dto.Refunds = append(dto.Refunds, RefundDTO{
			ArrangementID: string(refund.ArrangementID),
			Amount:        refund.Amount.String(),
		})
	}

	writeJSON(w, http.StatusOK, dto)
}

// GetClientSummary returns the client's balance, totals and reservations.
func (h *Handler) GetClientSummary(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	ctx := r.Context()

	client, err := h.Store.ClientByUsername(ctx, username)
	if err != nil {
		h.writeDomainError(w, "Failed to load client", err)
		return
	}
	account, err := h.Store.AccountByID(ctx, client.AccountID)
	if err != nil {
		h.writeDomainError(w, "Failed to load account", err)
		return
	}

	spent, err := h.reservations.TotalSpent(ctx, client.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to compute total spent", err)
		return
	}
	owed, err := h.reservations.TotalOwed(ctx, client.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to compute total owed", err)
		return
	}
	list, err := h.reservations.Reservations(ctx, client.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to load reservations", err)
		return
	}

	dto := ClientSummaryDTO{
		Username:     client.Username,
		Balance:      account.Balance.String(),
		TotalSpent:   spent.String(),
		TotalOwed:    owed.String(),
		Reservations: make([]ReservationDTO, 0, len(list)),
	}
	for _, res := range list {
		dto.Reservations = append(dto.Reservations, toReservationDTO(res))
	}

	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// ARRANGEMENT HANDLERS
// =============================================================================

// ListArrangements returns all trip offerings with derived pricing.
func (h *Handler) ListArrangements(w http.ResponseWriter, r *http.Request) {
	arrangements, err := h.Store.Arrangements(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list arrangements", err)
		return
	}

	ascending := r.URL.Query().Get("order") != "desc"
	switch r.URL.Query().Get("sort") {
	case "price":
		booking.SortByTotalPrice(arrangements, ascending)
	case "date":
		booking.SortByTripDate(arrangements, ascending)
	}

	today := h.Clock.Today()
	dtos := make([]ArrangementDTO, 0, len(arrangements))
	for _, arr := range arrangements {
		dtos = append(dtos, toArrangementDTO(arr, today))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// AddArrangement puts a new trip on offer.
func (h *Handler) AddArrangement(w http.ResponseWriter, r *http.Request) {
	var req AddArrangementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tripDate, err := booking.ParseDate(req.TripDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid trip_date format (use YYYY-MM-DD)", err)
		return
	}
	arrivalDate, err := booking.ParseDate(req.ArrivalDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid arrival_date format (use YYYY-MM-DD)", err)
		return
	}
	basePrice, err := parseMoney(req.BasePrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base_price", err)
		return
	}

	arr := &booking.Arrangement{
		Name:        req.Name,
		Destination: req.Destination,
		Transport:   booking.Transport(req.Transport),
		TripDate:    tripDate,
		ArrivalDate: arrivalDate,
		BasePrice:   basePrice,
	}
	if req.Accommodation != nil {
		rate, err := parseMoney(req.Accommodation.NightlyRate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid nightly_rate", err)
			return
		}
		arr.Accommodation = &booking.Accommodation{
			ID:          booking.AccommodationID(req.Accommodation.ID),
			Name:        req.Accommodation.Name,
			Stars:       req.Accommodation.Stars,
			RoomType:    booking.RoomType(req.Accommodation.RoomType),
			NightlyRate: rate,
		}
	}

	if err := h.arrangements.AddArrangement(r.Context(), arr); err != nil {
		h.writeDomainError(w, "Failed to add arrangement", err)
		return
	}

	h.Log.Infow("arrangement added", "id", arr.ID, "destination", arr.Destination)
	writeJSON(w, http.StatusCreated, toArrangementDTO(arr, h.Clock.Today()))
}

// CancelArrangement pulls an arrangement off offer, refunding every
// refundable reservation in full.
func (h *Handler) CancelArrangement(w http.ResponseWriter, r *http.Request) {
	id := booking.ArrangementID(chi.URLParam(r, "id"))

	arr, err := h.Store.ArrangementByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to load arrangement", err)
		return
	}

	outcome, err := h.arrangements.CancelArrangement(r.Context(), arr)
	if err != nil {
		h.writeDomainError(w, "Failed to cancel arrangement", err)
		return
	}

	h.Log.Infow("arrangement canceled",
		"id", id, "refunds", outcome.RefundsIssued, "total_refunded", outcome.TotalRefunded.String())

	dto := CancelArrangementDTO{
		RefundsIssued:   outcome.RefundsIssued,
		TotalRefunded:   outcome.TotalRefunded.String(),
		AffectedClients: make([]string, 0, len(outcome.AffectedClients)),
		MoneyLost:       outcome.MoneyLost(),
	}
	for _, clientID := range outcome.AffectedClients {
		dto.AffectedClients = append(dto.AffectedClients, string(clientID))
	}

	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// RESERVATION HANDLERS
// =============================================================================

// CreateReservation books an arrangement for a client.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	client, err := h.Store.ClientByUsername(ctx, req.Username)
	if err != nil {
		h.writeDomainError(w, "Failed to load client", err)
		return
	}
	arr, err := h.Store.ArrangementByID(ctx, booking.ArrangementID(req.ArrangementID))
	if err != nil {
		h.writeDomainError(w, "Failed to load arrangement", err)
		return
	}

	res, err := h.reservations.Book(ctx, client, arr)
	if err != nil {
		h.writeDomainError(w, "Failed to book reservation", err)
		return
	}

	h.Log.Infow("reservation booked",
		"client", client.Username, "arrangement", arr.ID, "paid", res.PaidAmount.String())
	writeJSON(w, http.StatusCreated, toReservationDTO(res))
}

// SubmitPayment pays into a reservation. Overpayment is clamped to the
// unpaid remainder; the applied amount is echoed back.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	res, ok := h.loadReservation(w, r)
	if !ok {
		return
	}

	applied, err := h.reservations.Pay(r.Context(), res, amount)
	if err != nil {
		h.writeDomainError(w, "Failed to apply payment", err)
		return
	}

	writeJSON(w, http.StatusOK, PaymentDTO{
		Applied:     applied.String(),
		Reservation: toReservationDTO(res),
	})
}

// CancelReservation cancels a reservation at the client's request, refunding
// the full paid amount when the cancellation window is still open.
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	res, ok := h.loadReservation(w, r)
	if !ok {
		return
	}

	refunded, err := h.reservations.Cancel(r.Context(), res)
	if err != nil {
		h.writeDomainError(w, "Failed to cancel reservation", err)
		return
	}

	h.Log.Infow("reservation canceled",
		"client", res.ClientID, "arrangement", res.ArrangementID, "refunded", refunded.String())

	writeJSON(w, http.StatusOK, CancelReservationDTO{
		Refunded:    refunded.String(),
		Reservation: toReservationDTO(res),
	})
}

func (h *Handler) loadReservation(w http.ResponseWriter, r *http.Request) (*booking.Reservation, bool) {
	clientID := booking.ClientID(chi.URLParam(r, "client"))
	arrangementID := booking.ArrangementID(chi.URLParam(r, "arrangement"))

	res, err := h.Store.Reservation(r.Context(), clientID, arrangementID)
	if err != nil {
		h.writeDomainError(w, "Failed to load reservation", err)
		return nil, false
	}
	return res, true
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// GetOutstanding returns the unpaid remainder summed across all clients.
func (h *Handler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	outstanding, err := h.revenue.OutstandingTotal(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to compute outstanding total", err)
		return
	}
	writeJSON(w, http.StatusOK, OutstandingDTO{Outstanding: outstanding.String()})
}

// =============================================================================
// DTO MAPPING
// =============================================================================

func toArrangementDTO(arr *booking.Arrangement, today booking.Date) ArrangementDTO {
	dto := ArrangementDTO{
		ID:           string(arr.ID),
		Name:         arr.Name,
		Destination:  arr.Destination,
		Transport:    string(arr.Transport),
		TripDate:     arr.TripDate.String(),
		ArrivalDate:  arr.ArrivalDate.String(),
		BasePrice:    arr.BasePrice.String(),
		TotalPrice:   arr.TotalPrice().String(),
		HalfPrice:    arr.HalfPrice().String(),
		OnOffer:      arr.IsOnOffer(today),
		PastDeadline: arr.IsPastDeadline(today),
	}
	if arr.Accommodation != nil {
		dto.Accommodation = &AccommodationDTO{
			ID:          string(arr.Accommodation.ID),
			Name:        arr.Accommodation.Name,
			Stars:       arr.Accommodation.Stars,
			RoomType:    string(arr.Accommodation.RoomType),
			NightlyRate: arr.Accommodation.NightlyRate.String(),
		}
	}
	return dto
}

func toReservationDTO(res *booking.Reservation) ReservationDTO {
	return ReservationDTO{
		ClientID:      string(res.ClientID),
		ArrangementID: string(res.ArrangementID),
		TotalPrice:    res.TotalPrice.String(),
		PaidAmount:    res.PaidAmount.String(),
		UnpaidAmount:  res.UnpaidAmount().String(),
		Status:        string(res.Status),
	}
}

func parseMoney(s string) (booking.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return booking.Money{}, err
	}
	return booking.Money{Value: d}, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain error kinds onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, booking.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, booking.ErrDuplicateReservation):
		status = http.StatusConflict
	case booking.IsNotFound(err):
		status = http.StatusNotFound
	case booking.IsClientError(err):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.Log.Errorw(message, "error", err)
	}
	writeError(w, status, message, err)
}
