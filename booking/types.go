/*
Package booking provides the core reservation and settlement engine for a
travel-agency back office.

PURPOSE:
  This package contains the domain types and invariant-bearing logic:
  arrangements (trips) with calendar-driven pricing and payment deadlines,
  reservations with derived lifecycle classification, accounts, and a ledger
  that moves money between client and agency accounts in matched
  debit/credit pairs.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A monetary amount backed by decimal.Decimal
  - Account: A client or agency bank account with a persisted balance
  - Client: A customer identity linked to an account
  - Accommodation: Optional lodging attached to an arrangement
  - ReservationStatus: The cached ACTIVE/PAST/CANCELED projection

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors in money
  2. Derived truth: Reservation status is computed from amounts and dates;
     the cached status field is a projection refreshed on demand
  3. Type Safety: Strong typing for IDs prevents mixing client/arrangement IDs
  4. Single writer: one operator session mutates the dataset at a time

SEE ALSO:
  - arrangement.go: Pricing and deadline model
  - reservation.go: Lifecycle classification predicates
  - ledger.go: Balance transfers between accounts
*/
package booking

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Monetary amount with decimal precision
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func MoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

// MustParseMoney panics on a malformed decimal. Test and seed data only.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("bad money literal: " + s)
	}
	return Money{Value: d}
}

func (m Money) Add(other Money) Money          { return Money{Value: m.Value.Add(other.Value)} }
func (m Money) Sub(other Money) Money          { return Money{Value: m.Value.Sub(other.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money    { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) Equal(other Money) bool         { return m.Value.Equal(other.Value) }
func (m Money) LessThan(other Money) bool      { return m.Value.LessThan(other.Value) }
func (m Money) GreaterThan(other Money) bool   { return m.Value.GreaterThan(other.Value) }
func (m Money) String() string                 { return m.Value.String() }

// Min returns the smaller of the two amounts.
func (m Money) Min(other Money) Money {
	if m.LessThan(other) {
		return m
	}
	return other
}

// Half returns m divided by two. Used for deposit calculation.
func (m Money) Half() Money { return m.Div(decimal.NewFromInt(2)) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID string
type ArrangementID string
type AccountID string
type AccommodationID string

// =============================================================================
// ENUMS
// =============================================================================

type Transport string

const (
	TransportBus   Transport = "bus"
	TransportPlane Transport = "plane"
	TransportTrain Transport = "train"
)

type RoomType string

const (
	RoomSingle    RoomType = "single"
	RoomDouble    RoomType = "double"
	RoomTriple    RoomType = "triple"
	RoomApartment RoomType = "apartment"
)

// ReservationStatus is the cached lifecycle projection. It is recomputed
// from (PaidAmount, TotalPrice, trip date) via the predicates in
// reservation.go; drift between the cached value and the derived
// classification is a defect that reclassification eliminates.
type ReservationStatus string

const (
	StatusActive   ReservationStatus = "active"
	StatusPast     ReservationStatus = "past"
	StatusCanceled ReservationStatus = "canceled"
)

// =============================================================================
// ENTITIES
// =============================================================================

// Accommodation is optional lodging attached to an arrangement.
// NightlyRate feeds into Arrangement.TotalPrice.
type Accommodation struct {
	ID          AccommodationID
	Name        string
	Stars       int
	RoomType    RoomType
	NightlyRate Money
}

// Account is a client or agency bank account. The agency holds exactly one
// distinguished account (Agency == true). Balance changes only through the
// Ledger, always as one debit paired with one matching credit.
type Account struct {
	ID      AccountID
	Owner   string // username of the owner; "agency" for the agency account
	Agency  bool
	Balance Money
}

// Client is a customer identity. Credentials and registration are handled
// outside this engine.
type Client struct {
	ID        ClientID
	Username  string
	AccountID AccountID
}
