/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Monetary amounts cross the wire as decimal strings ("1250.5"), never as
  floats. Handlers parse them with shopspring/decimal.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// ARRANGEMENTS
// =============================================================================

// AccommodationDTO represents lodging attached to an arrangement.
type AccommodationDTO struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Stars       int    `json:"stars"`
	RoomType    string `json:"room_type"`
	NightlyRate string `json:"nightly_rate"`
}

// ArrangementDTO represents a trip offering in API responses.
type ArrangementDTO struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Destination   string            `json:"destination"`
	Transport     string            `json:"transport"`
	TripDate      string            `json:"trip_date"`
	ArrivalDate   string            `json:"arrival_date"`
	BasePrice     string            `json:"base_price"`
	TotalPrice    string            `json:"total_price"`
	HalfPrice     string            `json:"half_price"`
	OnOffer       bool              `json:"on_offer"`
	PastDeadline  bool              `json:"past_deadline"`
	Accommodation *AccommodationDTO `json:"accommodation,omitempty"`
}

// AddArrangementRequest creates a new trip offering.
type AddArrangementRequest struct {
	Name          string            `json:"name"`
	Destination   string            `json:"destination"`
	Transport     string            `json:"transport"`
	TripDate      string            `json:"trip_date"`
	ArrivalDate   string            `json:"arrival_date"`
	BasePrice     string            `json:"base_price"`
	Accommodation *AccommodationDTO `json:"accommodation,omitempty"`
}

// CancelArrangementDTO reports what an agency-side cancellation did.
type CancelArrangementDTO struct {
	RefundsIssued   int      `json:"refunds_issued"`
	TotalRefunded   string   `json:"total_refunded"`
	AffectedClients []string `json:"affected_clients"`
	MoneyLost       bool     `json:"money_lost"`
}

// =============================================================================
// RESERVATIONS
// =============================================================================

// ReservationDTO represents one client/arrangement reservation.
type ReservationDTO struct {
	ClientID      string `json:"client_id"`
	ArrangementID string `json:"arrangement_id"`
	TotalPrice    string `json:"total_price"`
	PaidAmount    string `json:"paid_amount"`
	UnpaidAmount  string `json:"unpaid_amount"`
	Status        string `json:"status"`
}

// CreateReservationRequest books an arrangement for a client.
type CreateReservationRequest struct {
	Username      string `json:"username"`
	ArrangementID string `json:"arrangement_id"`
}

// PaymentRequest pays into an existing reservation.
type PaymentRequest struct {
	Amount string `json:"amount"`
}

// PaymentDTO reports the amount actually applied after clamping.
type PaymentDTO struct {
	Applied     string         `json:"applied"`
	Reservation ReservationDTO `json:"reservation"`
}

// CancelReservationDTO reports the refund issued on client cancellation.
type CancelReservationDTO struct {
	Refunded    string         `json:"refunded"`
	Reservation ReservationDTO `json:"reservation"`
}

// =============================================================================
// SESSIONS AND SUMMARIES
// =============================================================================

// RefundDTO is one retroactive refund issued during session catch-up.
type RefundDTO struct {
	ArrangementID string `json:"arrangement_id"`
	Amount        string `json:"amount"`
}

// SessionReportDTO is returned at session start after reconciliation.
type SessionReportDTO struct {
	LastSeen            string      `json:"last_seen,omitempty"`
	Today               string      `json:"today"`
	Refunds             []RefundDTO `json:"refunds"`
	PaymentDue          bool        `json:"payment_due"`
	ArrangementCanceled bool        `json:"arrangement_canceled"`
}

// ClientSummaryDTO aggregates one client's money position.
type ClientSummaryDTO struct {
	Username     string           `json:"username"`
	Balance      string           `json:"balance"`
	TotalSpent   string           `json:"total_spent"`
	TotalOwed    string           `json:"total_owed"`
	Reservations []ReservationDTO `json:"reservations"`
}

// OutstandingDTO is the agency-wide unpaid remainder.
type OutstandingDTO struct {
	Outstanding string `json:"outstanding"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
