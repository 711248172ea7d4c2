/*
Package sqlite provides the SQLite-backed booking.Store.

PURPOSE:
  Implements the full persistence surface (accounts, clients, arrangements,
  reservations, checkpoints, pending alerts, transfer log) on SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  accounts:       Client and agency balances
  clients:        Customer identities
  accommodations: Lodging attached to arrangements
  arrangements:   Trip offerings
  reservations:   One row per (client, arrangement): price snapshot + paid
  checkpoints:    Per-client last reconciled session date
  alerts:         Pending next-session notifications
  transfers:      Append-only transfer audit log

MONEY AND DATES:
  Monetary amounts are stored as decimal strings to keep exact precision;
  dates as ISO day strings (YYYY-MM-DD). Empty string decodes to the zero
  Date (no checkpoint yet).

ATOMICITY:
  UpdateBalances writes both sides of a transfer in one SQL transaction -
  the unit of atomicity the ledger relies on.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency
  and crash recovery.

USAGE:
  store, err := sqlite.New("./agency.db")   // ":memory:" for tests
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - booking/store.go: Interface definitions
  - store/memory: In-memory implementation with the same semantics
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/tripline/agency-engine/booking"
)

// Store implements booking.Store using SQLite.
type Store struct {
	db *sql.DB
}

var _ booking.Store = (*Store)(nil)

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		is_agency INTEGER NOT NULL DEFAULT 0,
		balance TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		account_id TEXT NOT NULL REFERENCES accounts(id)
	);

	CREATE TABLE IF NOT EXISTS accommodations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		stars INTEGER NOT NULL,
		room_type TEXT NOT NULL,
		nightly_rate TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS arrangements (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		destination TEXT NOT NULL,
		transport TEXT NOT NULL,
		trip_date TEXT NOT NULL,
		arrival_date TEXT NOT NULL,
		base_price TEXT NOT NULL,
		accommodation_id TEXT REFERENCES accommodations(id)
	);

	CREATE TABLE IF NOT EXISTS reservations (
		client_id TEXT NOT NULL REFERENCES clients(id),
		arrangement_id TEXT NOT NULL,
		total_price TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (client_id, arrangement_id)
	);

	CREATE INDEX IF NOT EXISTS idx_reservations_arrangement
		ON reservations(arrangement_id);

	CREATE TABLE IF NOT EXISTS checkpoints (
		username TEXT PRIMARY KEY,
		last_seen TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		username TEXT PRIMARY KEY
	);

	-- Append-only transfer audit log. No UPDATE or DELETE, ever.
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		payer_id TEXT NOT NULL,
		payee_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		direction TEXT NOT NULL,
		transfer_date TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CODEC HELPERS
// =============================================================================

func encodeMoney(m booking.Money) string { return m.Value.String() }

func decodeMoney(s string) (booking.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return booking.Money{}, fmt.Errorf("bad money value %q: %w", s, err)
	}
	return booking.Money{Value: d}, nil
}

func encodeDate(d booking.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func decodeDate(s string) (booking.Date, error) {
	if s == "" {
		return booking.Date{}, nil
	}
	return booking.ParseDate(s)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) Accounts(ctx context.Context) ([]*booking.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, is_agency, balance FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*booking.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AccountByID(ctx context.Context, id booking.AccountID) (*booking.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner, is_agency, balance FROM accounts WHERE id = ?`, string(id))
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, booking.ErrAccountNotFound
	}
	return a, err
}

func (s *Store) AgencyAccount(ctx context.Context) (*booking.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner, is_agency, balance FROM accounts WHERE is_agency = 1`)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, booking.ErrAccountNotFound
	}
	return a, err
}

func (s *Store) InsertAccount(ctx context.Context, account *booking.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, owner, is_agency, balance) VALUES (?, ?, ?, ?)`,
		string(account.ID), account.Owner, boolToInt(account.Agency), encodeMoney(account.Balance))
	return err
}

func (s *Store) UpdateBalance(ctx context.Context, id booking.AccountID, balance booking.Money) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`, encodeMoney(balance), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrAccountNotFound
	}
	return nil
}

// UpdateBalances persists both sides of a transfer in one SQL transaction.
func (s *Store) UpdateBalances(ctx context.Context, a, b *booking.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, account := range []*booking.Account{a, b} {
		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = ? WHERE id = ?`,
			encodeMoney(account.Balance), string(account.ID))
		if err != nil {
			tx.Rollback()
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			tx.Rollback()
			return err
		}
		if n == 0 {
			tx.Rollback()
			return booking.ErrAccountNotFound
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*booking.Account, error) {
	var (
		id, owner, balance string
		isAgency           int
	)
	if err := row.Scan(&id, &owner, &isAgency, &balance); err != nil {
		return nil, err
	}
	m, err := decodeMoney(balance)
	if err != nil {
		return nil, err
	}
	return &booking.Account{
		ID:      booking.AccountID(id),
		Owner:   owner,
		Agency:  isAgency != 0,
		Balance: m,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Store) Clients(ctx context.Context) ([]*booking.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, account_id FROM clients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*booking.Client
	for rows.Next() {
		var id, username, accountID string
		if err := rows.Scan(&id, &username, &accountID); err != nil {
			return nil, err
		}
		out = append(out, &booking.Client{
			ID:        booking.ClientID(id),
			Username:  username,
			AccountID: booking.AccountID(accountID),
		})
	}
	return out, rows.Err()
}

func (s *Store) ClientByID(ctx context.Context, id booking.ClientID) (*booking.Client, error) {
	return s.clientWhere(ctx, `id = ?`, string(id))
}

func (s *Store) ClientByUsername(ctx context.Context, username string) (*booking.Client, error) {
	return s.clientWhere(ctx, `username = ?`, username)
}

func (s *Store) clientWhere(ctx context.Context, where string, arg any) (*booking.Client, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, account_id FROM clients WHERE `+where, arg)

	var id, username, accountID string
	if err := row.Scan(&id, &username, &accountID); err != nil {
		if err == sql.ErrNoRows {
			return nil, booking.ErrClientNotFound
		}
		return nil, err
	}
	return &booking.Client{
		ID:        booking.ClientID(id),
		Username:  username,
		AccountID: booking.AccountID(accountID),
	}, nil
}

func (s *Store) InsertClient(ctx context.Context, client *booking.Client) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, username, account_id) VALUES (?, ?, ?)`,
		string(client.ID), client.Username, string(client.AccountID))
	return err
}

// =============================================================================
// ARRANGEMENTS
// =============================================================================

const arrangementSelect = `
	SELECT a.id, a.name, a.destination, a.transport, a.trip_date, a.arrival_date,
	       a.base_price, a.accommodation_id,
	       ac.name, ac.stars, ac.room_type, ac.nightly_rate
	FROM arrangements a
	LEFT JOIN accommodations ac ON ac.id = a.accommodation_id`

func (s *Store) Arrangements(ctx context.Context) ([]*booking.Arrangement, error) {
	rows, err := s.db.QueryContext(ctx, arrangementSelect+` ORDER BY a.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*booking.Arrangement
	for rows.Next() {
		arr, err := scanArrangement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, arr)
	}
	return out, rows.Err()
}

func (s *Store) ArrangementByID(ctx context.Context, id booking.ArrangementID) (*booking.Arrangement, error) {
	row := s.db.QueryRowContext(ctx, arrangementSelect+` WHERE a.id = ?`, string(id))
	arr, err := scanArrangement(row)
	if err == sql.ErrNoRows {
		return nil, booking.ErrArrangementNotFound
	}
	return arr, err
}

func scanArrangement(row rowScanner) (*booking.Arrangement, error) {
	var (
		id, name, destination, transport string
		tripDate, arrivalDate, basePrice string
		accommodationID                  sql.NullString
		accName, accRoomType             sql.NullString
		accStars                         sql.NullInt64
		accNightlyRate                   sql.NullString
	)
	err := row.Scan(&id, &name, &destination, &transport, &tripDate, &arrivalDate,
		&basePrice, &accommodationID, &accName, &accStars, &accRoomType, &accNightlyRate)
	if err != nil {
		return nil, err
	}

	trip, err := decodeDate(tripDate)
	if err != nil {
		return nil, err
	}
	arrival, err := decodeDate(arrivalDate)
	if err != nil {
		return nil, err
	}
	price, err := decodeMoney(basePrice)
	if err != nil {
		return nil, err
	}

	arr := &booking.Arrangement{
		ID:          booking.ArrangementID(id),
		Name:        name,
		Destination: destination,
		Transport:   booking.Transport(transport),
		TripDate:    trip,
		ArrivalDate: arrival,
		BasePrice:   price,
	}
	if accommodationID.Valid {
		rate, err := decodeMoney(accNightlyRate.String)
		if err != nil {
			return nil, err
		}
		arr.Accommodation = &booking.Accommodation{
			ID:          booking.AccommodationID(accommodationID.String),
			Name:        accName.String,
			Stars:       int(accStars.Int64),
			RoomType:    booking.RoomType(accRoomType.String),
			NightlyRate: rate,
		}
	}
	return arr, nil
}

func (s *Store) InsertArrangement(ctx context.Context, arr *booking.Arrangement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var accommodationID any
	if arr.Accommodation != nil {
		acc := arr.Accommodation
		_, err := tx.ExecContext(ctx,
			`INSERT INTO accommodations (id, name, stars, room_type, nightly_rate)
			 VALUES (?, ?, ?, ?, ?)`,
			string(acc.ID), acc.Name, acc.Stars, string(acc.RoomType), encodeMoney(acc.NightlyRate))
		if err != nil {
			tx.Rollback()
			return err
		}
		accommodationID = string(acc.ID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO arrangements
		 (id, name, destination, transport, trip_date, arrival_date, base_price, accommodation_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(arr.ID), arr.Name, arr.Destination, string(arr.Transport),
		encodeDate(arr.TripDate), encodeDate(arr.ArrivalDate),
		encodeMoney(arr.BasePrice), accommodationID)
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) DeleteArrangement(ctx context.Context, id booking.ArrangementID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM arrangements WHERE id = ?`, string(id))
	return err
}

func (s *Store) DeleteAccommodation(ctx context.Context, id booking.AccommodationID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE arrangements SET accommodation_id = NULL WHERE accommodation_id = ?`, string(id)); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM accommodations WHERE id = ?`, string(id)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// =============================================================================
// RESERVATIONS
// =============================================================================

const reservationSelect = `
	SELECT client_id, arrangement_id, total_price, paid_amount, status
	FROM reservations`

func (s *Store) Reservations(ctx context.Context) ([]*booking.Reservation, error) {
	return s.reservationsWhere(ctx, ` ORDER BY client_id, arrangement_id`)
}

func (s *Store) ReservationsByClient(ctx context.Context, id booking.ClientID) ([]*booking.Reservation, error) {
	return s.reservationsWhere(ctx, ` WHERE client_id = ? ORDER BY arrangement_id`, string(id))
}

func (s *Store) ReservationsByArrangement(ctx context.Context, id booking.ArrangementID) ([]*booking.Reservation, error) {
	return s.reservationsWhere(ctx, ` WHERE arrangement_id = ? ORDER BY client_id`, string(id))
}

func (s *Store) reservationsWhere(ctx context.Context, clause string, args ...any) ([]*booking.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, reservationSelect+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*booking.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *Store) Reservation(ctx context.Context, clientID booking.ClientID, arrangementID booking.ArrangementID) (*booking.Reservation, error) {
	row := s.db.QueryRowContext(ctx,
		reservationSelect+` WHERE client_id = ? AND arrangement_id = ?`,
		string(clientID), string(arrangementID))
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, booking.ErrReservationNotFound
	}
	return res, err
}

func scanReservation(row rowScanner) (*booking.Reservation, error) {
	var clientID, arrangementID, totalPrice, paidAmount, status string
	if err := row.Scan(&clientID, &arrangementID, &totalPrice, &paidAmount, &status); err != nil {
		return nil, err
	}
	total, err := decodeMoney(totalPrice)
	if err != nil {
		return nil, err
	}
	paid, err := decodeMoney(paidAmount)
	if err != nil {
		return nil, err
	}
	return &booking.Reservation{
		ClientID:      booking.ClientID(clientID),
		ArrangementID: booking.ArrangementID(arrangementID),
		TotalPrice:    total,
		PaidAmount:    paid,
		Status:        booking.ReservationStatus(status),
	}, nil
}

// InsertReservation upserts: rebooking after a cancellation replaces the
// canceled row for the same (client, arrangement).
func (s *Store) InsertReservation(ctx context.Context, res *booking.Reservation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reservations (client_id, arrangement_id, total_price, paid_amount, status)
		 VALUES (?, ?, ?, ?, ?)`,
		string(res.ClientID), string(res.ArrangementID),
		encodeMoney(res.TotalPrice), encodeMoney(res.PaidAmount), string(res.Status))
	return err
}

func (s *Store) UpdateReservationPaidAmount(ctx context.Context, clientID booking.ClientID, arrangementID booking.ArrangementID, paid booking.Money) error {
	return s.updateReservation(ctx,
		`UPDATE reservations SET paid_amount = ? WHERE client_id = ? AND arrangement_id = ?`,
		encodeMoney(paid), string(clientID), string(arrangementID))
}

func (s *Store) UpdateReservationStatus(ctx context.Context, clientID booking.ClientID, arrangementID booking.ArrangementID, status booking.ReservationStatus) error {
	return s.updateReservation(ctx,
		`UPDATE reservations SET status = ? WHERE client_id = ? AND arrangement_id = ?`,
		string(status), string(clientID), string(arrangementID))
}

func (s *Store) updateReservation(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrReservationNotFound
	}
	return nil
}

func (s *Store) DeleteReservationsForArrangement(ctx context.Context, id booking.ArrangementID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM reservations WHERE arrangement_id = ?`, string(id))
	return err
}

// =============================================================================
// CHECKPOINTS
// =============================================================================

func (s *Store) LastSeen(ctx context.Context, username string) (booking.Date, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT last_seen FROM checkpoints WHERE username = ?`, username)

	var lastSeen string
	if err := row.Scan(&lastSeen); err != nil {
		if err == sql.ErrNoRows {
			return booking.Date{}, nil
		}
		return booking.Date{}, err
	}
	return decodeDate(lastSeen)
}

func (s *Store) SetLastSeen(ctx context.Context, username string, d booking.Date) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (username, last_seen) VALUES (?, ?)
		 ON CONFLICT(username) DO UPDATE SET last_seen = excluded.last_seen`,
		username, encodeDate(d))
	return err
}

// =============================================================================
// PENDING ALERTS
// =============================================================================

func (s *Store) RecordPendingAlert(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (username) VALUES (?) ON CONFLICT(username) DO NOTHING`, username)
	return err
}

func (s *Store) ConsumePendingAlert(ctx context.Context, username string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE username = ?`, username)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// =============================================================================
// TRANSFER LOG
// =============================================================================

func (s *Store) AppendTransfer(ctx context.Context, rec booking.TransferRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transfers (id, payer_id, payee_id, amount, direction, transfer_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.PayerID), string(rec.PayeeID),
		encodeMoney(rec.Amount), string(rec.Direction), encodeDate(rec.Date))
	return err
}

func (s *Store) Transfers(ctx context.Context) ([]booking.TransferRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payer_id, payee_id, amount, direction, transfer_date
		 FROM transfers ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.TransferRecord
	for rows.Next() {
		var id, payerID, payeeID, amount, direction, transferDate string
		if err := rows.Scan(&id, &payerID, &payeeID, &amount, &direction, &transferDate); err != nil {
			return nil, err
		}
		m, err := decodeMoney(amount)
		if err != nil {
			return nil, err
		}
		d, err := decodeDate(transferDate)
		if err != nil {
			return nil, err
		}
		out = append(out, booking.TransferRecord{
			ID:        id,
			PayerID:   booking.AccountID(payerID),
			PayeeID:   booking.AccountID(payeeID),
			Amount:    m,
			Direction: booking.TransferDirection(direction),
			Date:      d,
		})
	}
	return out, rows.Err()
}
