/*
store.go - Persistence interfaces for the booking engine

PURPOSE:
  Defines the contract between the domain logic and the persistence layer.
  The engine never touches a database directly; managers receive these
  interfaces so tests can run against in-memory fixtures and production runs
  against SQLite.

KEY INTERFACES:
  AccountStore:     Account lookup and balance persistence
  ClientStore:      Client identity lookup
  ArrangementStore: Trip offerings and their accommodations
  ReservationStore: Reservation rows keyed by (client, arrangement)
  CheckpointStore:  Per-client last-seen date bounding reconciliation
  AlertStore:       Pending next-session notifications
  TransferLog:      Append-only audit trail of balance transfers

SINGLE-WRITER CONTRACT:
  Balance updates are last-writer-wins with no optimistic concurrency
  token. One operator session drives one snapshot at a time.

IMPLEMENTATIONS:
  - store/memory: In-memory, for tests and development
  - store/sqlite: Production SQLite

SEE ALSO:
  - ledger.go: Uses AccountStore and TransferLog
  - agency package: Orchestration over these interfaces
*/
package booking

import "context"

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountStore interface {
	Accounts(ctx context.Context) ([]*Account, error)

	// AccountByID returns ErrAccountNotFound when missing.
	AccountByID(ctx context.Context, id AccountID) (*Account, error)

	// AgencyAccount returns the one distinguished agency account.
	AgencyAccount(ctx context.Context) (*Account, error)

	InsertAccount(ctx context.Context, account *Account) error

	// UpdateBalance overwrites one persisted balance unconditionally.
	UpdateBalance(ctx context.Context, id AccountID, balance Money) error

	// UpdateBalances persists both sides of a transfer together. Either
	// both balances are written or neither is.
	UpdateBalances(ctx context.Context, a, b *Account) error
}

// =============================================================================
// CLIENTS
// =============================================================================

type ClientStore interface {
	Clients(ctx context.Context) ([]*Client, error)
	ClientByID(ctx context.Context, id ClientID) (*Client, error)
	ClientByUsername(ctx context.Context, username string) (*Client, error)
	InsertClient(ctx context.Context, client *Client) error
}

// =============================================================================
// ARRANGEMENTS
// =============================================================================

type ArrangementStore interface {
	Arrangements(ctx context.Context) ([]*Arrangement, error)

	// ArrangementByID returns ErrArrangementNotFound when missing.
	ArrangementByID(ctx context.Context, id ArrangementID) (*Arrangement, error)

	InsertArrangement(ctx context.Context, arr *Arrangement) error
	DeleteArrangement(ctx context.Context, id ArrangementID) error
	DeleteAccommodation(ctx context.Context, id AccommodationID) error
}

// =============================================================================
// RESERVATIONS
// =============================================================================

type ReservationStore interface {
	Reservations(ctx context.Context) ([]*Reservation, error)
	ReservationsByClient(ctx context.Context, id ClientID) ([]*Reservation, error)
	ReservationsByArrangement(ctx context.Context, id ArrangementID) ([]*Reservation, error)

	// Reservation returns ErrReservationNotFound when missing.
	Reservation(ctx context.Context, clientID ClientID, arrangementID ArrangementID) (*Reservation, error)

	InsertReservation(ctx context.Context, res *Reservation) error
	UpdateReservationPaidAmount(ctx context.Context, clientID ClientID, arrangementID ArrangementID, paid Money) error
	UpdateReservationStatus(ctx context.Context, clientID ClientID, arrangementID ArrangementID, status ReservationStatus) error
	DeleteReservationsForArrangement(ctx context.Context, id ArrangementID) error
}

// =============================================================================
// RECONCILIATION CHECKPOINTS
// =============================================================================

type CheckpointStore interface {
	// LastSeen returns the zero Date when no checkpoint is recorded.
	LastSeen(ctx context.Context, username string) (Date, error)
	SetLastSeen(ctx context.Context, username string, d Date) error
}

// =============================================================================
// PENDING ALERTS
// =============================================================================

// AlertStore is the pending-alert registry: clients affected by an agency
// cancellation are flagged here and notified once on their next session.
type AlertStore interface {
	RecordPendingAlert(ctx context.Context, username string) error

	// ConsumePendingAlert reports and clears the flag in one step.
	ConsumePendingAlert(ctx context.Context, username string) (bool, error)
}

// =============================================================================
// TRANSFER LOG
// =============================================================================

// TransferLog records every completed transfer. Append-only: corrections are
// new transfers in the opposite direction, never edits.
type TransferLog interface {
	AppendTransfer(ctx context.Context, rec TransferRecord) error
	Transfers(ctx context.Context) ([]TransferRecord, error)
}

// =============================================================================
// AGGREGATE STORE
// =============================================================================

// Store is the full persistence surface the agency back office needs.
type Store interface {
	AccountStore
	ClientStore
	ArrangementStore
	ReservationStore
	CheckpointStore
	AlertStore
	TransferLog
}
