package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// Querier groups the reads available both inside and outside a
// transaction.
type Querier interface {
	RoomByID(ctx context.Context, id uint64) (model.Room, error)
	// ReservationsForRoom returns the non-cancelled reservations of a room
	// whose stay intersects [from, to).
	ReservationsForRoom(ctx context.Context, roomID uint64, from, to time.Time) ([]model.Reservation, error)
	ReservationByID(ctx context.Context, id uint64) (model.Reservation, error)
	GuestDetailsByReservation(ctx context.Context, reservationID uint64) (model.GuestDetails, error)
	TicketByReservation(ctx context.Context, reservationID uint64) (model.Ticket, error)
	AccountByID(ctx context.Context, id uint64) (model.Account, error)
	DishByID(ctx context.Context, id uint64) (model.Dish, error)
	RestaurantOrderByID(ctx context.Context, id uint64) (model.RestaurantOrder, error)
}

// Tx is the unit of work handed to InTx callbacks.  Lock methods take a
// row lock (SELECT ... FOR UPDATE) that is held until the transaction
// ends.
type Tx interface {
	Querier
	LockRoom(ctx context.Context, id uint64) (model.Room, error)
	LockReservation(ctx context.Context, id uint64) (model.Reservation, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	InsertGuestDetails(ctx context.Context, g *model.GuestDetails) error
	// UpdateReservationStatus moves r to status if r.Version still matches
	// the stored row, and returns ErrConflict otherwise.  On success r is
	// updated in place.
	UpdateReservationStatus(ctx context.Context, r *model.Reservation, status model.ReservationStatus) error
	InsertTicket(ctx context.Context, t *model.Ticket) error
	InsertRestaurantOrder(ctx context.Context, o *model.RestaurantOrder) error
}

// Store is the persistence boundary used by the service layer.
type Store interface {
	Querier
	InTx(ctx context.Context, fn func(tx Tx) error) error
	ListRooms(ctx context.Context) ([]model.Room, error)
	ListDishes(ctx context.Context, onlyAvailable bool) ([]model.Dish, error)
	ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	// SetTicketFile records the stored document path if none is set yet.
	// It reports whether the row was updated.
	SetTicketFile(ctx context.Context, ticketID uint64, file string) (bool, error)
	SetRestaurantOrderFile(ctx context.Context, orderID uint64, file string) (bool, error)
	CompletedWithoutTicket(ctx context.Context, limit int) ([]uint64, error)
	TicketsWithoutFile(ctx context.Context, limit int) ([]model.Ticket, error)
	// CompletedByCheckIn and CompletedByCheckOut list completed stays
	// arriving or leaving on day.
	CompletedByCheckIn(ctx context.Context, day time.Time) ([]model.Reservation, error)
	CompletedByCheckOut(ctx context.Context, day time.Time) ([]model.Reservation, error)
}

// conn implements the statements shared by SQLStore and sqlTx on top of
// either a *sqlx.DB or a *sqlx.Tx.  Queries are written with '?'
// placeholders and rebound for the active driver.
type conn struct {
	ext sqlx.ExtContext
}

func (c conn) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return classify(sqlx.GetContext(ctx, c.ext, dest, c.ext.Rebind(query), args...))
}

func (c conn) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return classify(sqlx.SelectContext(ctx, c.ext, dest, c.ext.Rebind(query), args...))
}

func (c conn) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := c.ext.ExecContext(ctx, c.ext.Rebind(query), args...)
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}

// insert runs an INSERT and returns the generated id.  Postgres has no
// LastInsertId so the statement is extended with RETURNING there.
func (c conn) insert(ctx context.Context, query string, args ...interface{}) (uint64, error) {
	if c.ext.DriverName() == "postgres" {
		var id uint64
		err := c.ext.QueryRowxContext(ctx, c.ext.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, classify(err)
	}
	res, err := c.ext.ExecContext(ctx, c.ext.Rebind(query), args...)
	if err != nil {
		return 0, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SQLStore is the database/sql backed Store.
type SQLStore struct {
	conn
	db *sqlx.DB
}

// NewSQLStore returns a Store bound to db.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{conn: conn{ext: db}, db: db}
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sqlx.DB { return s.db }

// InTx runs fn inside a transaction.  The transaction is committed when fn
// returns nil and rolled back otherwise.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", classify(err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{conn: conn{ext: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	committed = true
	return nil
}

type sqlTx struct {
	conn
}

var (
	_ Store = (*SQLStore)(nil)
	_ Tx    = (*sqlTx)(nil)
)
