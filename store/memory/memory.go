// Package memory provides an in-memory booking.Store for tests and
// development. Mirrors the SQLite store's behavior, including copy-on-read
// so callers never alias the store's internal state.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tripline/agency-engine/booking"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu sync.RWMutex

	accounts     map[booking.AccountID]*booking.Account
	clients      map[booking.ClientID]*booking.Client
	arrangements map[booking.ArrangementID]*booking.Arrangement
	reservations map[reservationKey]*booking.Reservation
	checkpoints  map[string]booking.Date
	alerts       map[string]bool
	transfers    []booking.TransferRecord
}

type reservationKey struct {
	ClientID      booking.ClientID
	ArrangementID booking.ArrangementID
}

func New() *Store {
	return &Store{
		accounts:     make(map[booking.AccountID]*booking.Account),
		clients:      make(map[booking.ClientID]*booking.Client),
		arrangements: make(map[booking.ArrangementID]*booking.Arrangement),
		reservations: make(map[reservationKey]*booking.Reservation),
		checkpoints:  make(map[string]booking.Date),
		alerts:       make(map[string]bool),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) Accounts(_ context.Context) ([]*booking.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*booking.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, copyAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AccountByID(_ context.Context, id booking.AccountID) (*booking.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, booking.ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (s *Store) AgencyAccount(_ context.Context) (*booking.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Agency {
			return copyAccount(a), nil
		}
	}
	return nil, booking.ErrAccountNotFound
}

func (s *Store) InsertAccount(_ context.Context, account *booking.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *Store) UpdateBalance(_ context.Context, id booking.AccountID, balance booking.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return booking.ErrAccountNotFound
	}
	a.Balance = balance
	return nil
}

func (s *Store) UpdateBalances(_ context.Context, a, b *booking.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	first, ok := s.accounts[a.ID]
	if !ok {
		return booking.ErrAccountNotFound
	}
	second, ok := s.accounts[b.ID]
	if !ok {
		return booking.ErrAccountNotFound
	}
	first.Balance = a.Balance
	second.Balance = b.Balance
	return nil
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Store) Clients(_ context.Context) ([]*booking.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*booking.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, copyClient(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ClientByID(_ context.Context, id booking.ClientID) (*booking.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, booking.ErrClientNotFound
	}
	return copyClient(c), nil
}

func (s *Store) ClientByUsername(_ context.Context, username string) (*booking.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if c.Username == username {
			return copyClient(c), nil
		}
	}
	return nil, booking.ErrClientNotFound
}

func (s *Store) InsertClient(_ context.Context, client *booking.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = copyClient(client)
	return nil
}

// =============================================================================
// ARRANGEMENTS
// =============================================================================

func (s *Store) Arrangements(_ context.Context) ([]*booking.Arrangement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*booking.Arrangement, 0, len(s.arrangements))
	for _, a := range s.arrangements {
		out = append(out, copyArrangement(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ArrangementByID(_ context.Context, id booking.ArrangementID) (*booking.Arrangement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.arrangements[id]
	if !ok {
		return nil, booking.ErrArrangementNotFound
	}
	return copyArrangement(a), nil
}

func (s *Store) InsertArrangement(_ context.Context, arr *booking.Arrangement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arrangements[arr.ID] = copyArrangement(arr)
	return nil
}

func (s *Store) DeleteArrangement(_ context.Context, id booking.ArrangementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.arrangements, id)
	return nil
}

func (s *Store) DeleteAccommodation(_ context.Context, id booking.AccommodationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Detach from any arrangement still referencing it.
	for _, a := range s.arrangements {
		if a.Accommodation != nil && a.Accommodation.ID == id {
			a.Accommodation = nil
		}
	}
	return nil
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (s *Store) Reservations(_ context.Context) ([]*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*booking.Reservation) bool { return true }), nil
}

func (s *Store) ReservationsByClient(_ context.Context, id booking.ClientID) ([]*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r *booking.Reservation) bool { return r.ClientID == id }), nil
}

func (s *Store) ReservationsByArrangement(_ context.Context, id booking.ArrangementID) ([]*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r *booking.Reservation) bool { return r.ArrangementID == id }), nil
}

func (s *Store) Reservation(_ context.Context, clientID booking.ClientID, arrangementID booking.ArrangementID) (*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[reservationKey{clientID, arrangementID}]
	if !ok {
		return nil, booking.ErrReservationNotFound
	}
	out := *r
	return &out, nil
}

func (s *Store) InsertReservation(_ context.Context, res *booking.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *res
	s.reservations[reservationKey{res.ClientID, res.ArrangementID}] = &copied
	return nil
}

func (s *Store) UpdateReservationPaidAmount(_ context.Context, clientID booking.ClientID, arrangementID booking.ArrangementID, paid booking.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[reservationKey{clientID, arrangementID}]
	if !ok {
		return booking.ErrReservationNotFound
	}
	r.PaidAmount = paid
	return nil
}

func (s *Store) UpdateReservationStatus(_ context.Context, clientID booking.ClientID, arrangementID booking.ArrangementID, status booking.ReservationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[reservationKey{clientID, arrangementID}]
	if !ok {
		return booking.ErrReservationNotFound
	}
	r.Status = status
	return nil
}

func (s *Store) DeleteReservationsForArrangement(_ context.Context, id booking.ArrangementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.reservations {
		if k.ArrangementID == id {
			delete(s.reservations, k)
		}
	}
	return nil
}

func (s *Store) collect(match func(*booking.Reservation) bool) []*booking.Reservation {
	var out []*booking.Reservation
	for _, r := range s.reservations {
		if match(r) {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClientID != out[j].ClientID {
			return out[i].ClientID < out[j].ClientID
		}
		return out[i].ArrangementID < out[j].ArrangementID
	})
	return out
}

// =============================================================================
// CHECKPOINTS
// =============================================================================

func (s *Store) LastSeen(_ context.Context, username string) (booking.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoints[username], nil
}

func (s *Store) SetLastSeen(_ context.Context, username string, d booking.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[username] = d
	return nil
}

// =============================================================================
// PENDING ALERTS
// =============================================================================

func (s *Store) RecordPendingAlert(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[username] = true
	return nil
}

func (s *Store) ConsumePendingAlert(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.alerts[username]
	delete(s.alerts, username)
	return pending, nil
}

// =============================================================================
// TRANSFER LOG
// =============================================================================

func (s *Store) AppendTransfer(_ context.Context, rec booking.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, rec)
	return nil
}

func (s *Store) Transfers(_ context.Context) ([]booking.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]booking.TransferRecord, len(s.transfers))
	copy(out, s.transfers)
	return out, nil
}

// =============================================================================
// COPY HELPERS
// =============================================================================

func copyAccount(a *booking.Account) *booking.Account {
	out := *a
	return &out
}

func copyClient(c *booking.Client) *booking.Client {
	out := *c
	return &out
}

func copyArrangement(a *booking.Arrangement) *booking.Arrangement {
	out := *a
	if a.Accommodation != nil {
		acc := *a.Accommodation
		out.Accommodation = &acc
	}
	return &out
}
