package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/resort-reservation/internal/cart"
	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/notify"
	"github.com/iliyamo/resort-reservation/internal/repository"
)

// memData is an in-memory database.  Methods do not lock; memStore
// serializes access and InTx restores a snapshot on error.
type memData struct {
	nextID       uint64
	rooms        map[uint64]model.Room
	reservations map[uint64]model.Reservation
	guests       map[uint64]model.GuestDetails // by reservation
	tickets      map[uint64]model.Ticket       // by reservation
	accounts     map[uint64]model.Account
	dishes       map[uint64]model.Dish
	orders       map[uint64]model.RestaurantOrder

	faults *memFaults // shared across snapshots
}

type memFaults struct {
	ticketConflicts int // next N ticket inserts fail with ErrConflict
	ticketInserts   int
	dishErr         error // returned by every DishByID

	// interleaved runs once inside the named write, standing in for a
	// concurrent transaction that commits between the caller's read and
	// its write.  Its effect survives the caller's rollback.
	interleaved map[string]func(d *memData)
	committed   []func(d *memData)
}

func (d *memData) interleave(op string) {
	f := d.faults.interleaved[op]
	if f == nil {
		return
	}
	delete(d.faults.interleaved, op)
	f(d)
	d.faults.committed = append(d.faults.committed, f)
}

func newMemData() *memData {
	return &memData{
		rooms:        map[uint64]model.Room{},
		reservations: map[uint64]model.Reservation{},
		guests:       map[uint64]model.GuestDetails{},
		tickets:      map[uint64]model.Ticket{},
		accounts:     map[uint64]model.Account{},
		dishes:       map[uint64]model.Dish{},
		orders:       map[uint64]model.RestaurantOrder{},
		faults:       &memFaults{interleaved: map[string]func(*memData){}},
	}
}

func (d *memData) clone() *memData {
	c := *d
	c.rooms = copyMap(d.rooms)
	c.reservations = copyMap(d.reservations)
	c.guests = copyMap(d.guests)
	c.tickets = copyMap(d.tickets)
	c.accounts = copyMap(d.accounts)
	c.dishes = copyMap(d.dishes)
	c.orders = copyMap(d.orders)
	return &c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memData) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *memData) RoomByID(_ context.Context, id uint64) (model.Room, error) {
	r, ok := d.rooms[id]
	if !ok {
		return r, repository.ErrNotFound
	}
	return r, nil
}

func (d *memData) ReservationsForRoom(_ context.Context, roomID uint64, from, to time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range d.reservations {
		if r.RoomID == roomID && r.Overlaps(from, to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (d *memData) ReservationByID(_ context.Context, id uint64) (model.Reservation, error) {
	r, ok := d.reservations[id]
	if !ok {
		return r, repository.ErrNotFound
	}
	return r, nil
}

func (d *memData) GuestDetailsByReservation(_ context.Context, id uint64) (model.GuestDetails, error) {
	g, ok := d.guests[id]
	if !ok {
		return g, repository.ErrNotFound
	}
	return g, nil
}

func (d *memData) TicketByReservation(_ context.Context, id uint64) (model.Ticket, error) {
	t, ok := d.tickets[id]
	if !ok {
		return t, repository.ErrNotFound
	}
	return t, nil
}

func (d *memData) AccountByID(_ context.Context, id uint64) (model.Account, error) {
	a, ok := d.accounts[id]
	if !ok {
		return a, repository.ErrNotFound
	}
	return a, nil
}

func (d *memData) DishByID(_ context.Context, id uint64) (model.Dish, error) {
	if d.faults.dishErr != nil {
		return model.Dish{}, d.faults.dishErr
	}
	x, ok := d.dishes[id]
	if !ok {
		return x, repository.ErrNotFound
	}
	return x, nil
}

func (d *memData) RestaurantOrderByID(_ context.Context, id uint64) (model.RestaurantOrder, error) {
	o, ok := d.orders[id]
	if !ok {
		return o, repository.ErrNotFound
	}
	return o, nil
}

func (d *memData) LockRoom(ctx context.Context, id uint64) (model.Room, error) {
	return d.RoomByID(ctx, id)
}

func (d *memData) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return d.ReservationByID(ctx, id)
}

func (d *memData) InsertReservation(_ context.Context, r *model.Reservation) error {
	d.interleave("insert-reservation")
	// Overlapping stays are rejected the way an exclusion constraint
	// would reject them.
	for _, o := range d.reservations {
		if o.RoomID == r.RoomID && o.Status != model.StatusCancelled &&
			o.CheckIn.Before(r.EffectiveCheckOut()) && o.EffectiveCheckOut().After(r.CheckIn) {
			return repository.ErrConflict
		}
	}
	r.ID = d.id()
	r.CheckOut = r.EffectiveCheckOut()
	r.Version = 1
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	d.reservations[r.ID] = *r
	return nil
}

func (d *memData) InsertGuestDetails(_ context.Context, g *model.GuestDetails) error {
	if _, dup := d.guests[g.ReservationID]; dup {
		return repository.ErrConflict
	}
	g.ID = d.id()
	d.guests[g.ReservationID] = *g
	return nil
}

func (d *memData) UpdateReservationStatus(_ context.Context, r *model.Reservation, status model.ReservationStatus) error {
	d.interleave("status")
	cur, ok := d.reservations[r.ID]
	if !ok || cur.Version != r.Version {
		return repository.ErrConflict
	}
	r.Status = status
	r.Version++
	r.UpdatedAt = time.Now().UTC()
	d.reservations[r.ID] = *r
	return nil
}

func (d *memData) InsertTicket(_ context.Context, t *model.Ticket) error {
	d.faults.ticketInserts++
	if d.faults.ticketConflicts > 0 {
		d.faults.ticketConflicts--
		return fmt.Errorf("%w: duplicate number", repository.ErrConflict)
	}
	if _, dup := d.tickets[t.ReservationID]; dup {
		return repository.ErrConflict
	}
	for _, other := range d.tickets {
		if other.Number == t.Number {
			return repository.ErrConflict
		}
	}
	t.ID = d.id()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	d.tickets[t.ReservationID] = *t
	return nil
}

func (d *memData) InsertRestaurantOrder(_ context.Context, o *model.RestaurantOrder) error {
	o.ID = d.id()
	o.CreatedAt = time.Now().UTC()
	for i := range o.Items {
		o.Items[i].ID = d.id()
		o.Items[i].OrderID = o.ID
	}
	d.orders[o.ID] = *o
	return nil
}

type memTx struct {
	*memData
}

type memStore struct {
	mu sync.Mutex
	d  *memData
}

func newMemStore() *memStore { return &memStore{d: newMemData()} }

func (s *memStore) InTx(_ context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.d.clone()
	err := fn(memTx{s.d})
	if err != nil {
		s.d = snapshot
		for _, f := range s.d.faults.committed {
			f(s.d)
		}
	}
	s.d.faults.committed = nil
	return err
}

func (s *memStore) RoomByID(ctx context.Context, id uint64) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.RoomByID(ctx, id)
}

func (s *memStore) ReservationsForRoom(ctx context.Context, roomID uint64, from, to time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.ReservationsForRoom(ctx, roomID, from, to)
}

func (s *memStore) ReservationByID(ctx context.Context, id uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.ReservationByID(ctx, id)
}

func (s *memStore) GuestDetailsByReservation(ctx context.Context, id uint64) (model.GuestDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.GuestDetailsByReservation(ctx, id)
}

func (s *memStore) TicketByReservation(ctx context.Context, id uint64) (model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.TicketByReservation(ctx, id)
}

func (s *memStore) AccountByID(ctx context.Context, id uint64) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.AccountByID(ctx, id)
}

func (s *memStore) DishByID(ctx context.Context, id uint64) (model.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.DishByID(ctx, id)
}

func (s *memStore) RestaurantOrderByID(ctx context.Context, id uint64) (model.RestaurantOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.RestaurantOrderByID(ctx, id)
}

func (s *memStore) ListRooms(context.Context) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Room
	for _, r := range s.d.rooms {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) ListDishes(_ context.Context, onlyAvailable bool) ([]model.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Dish
	for _, x := range s.d.dishes {
		if !onlyAvailable || x.Available {
			out = append(out, x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) ListReservationsByUser(_ context.Context, userID uint64) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.d.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) SetTicketFile(_ context.Context, ticketID uint64, file string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.d.tickets {
		if t.ID == ticketID {
			if t.File != nil {
				return false, nil
			}
			f := file
			t.File = &f
			s.d.tickets[k] = t
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) SetRestaurantOrderFile(_ context.Context, orderID uint64, file string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.d.orders[orderID]
	if !ok || o.File != nil {
		return false, nil
	}
	f := file
	o.File = &f
	s.d.orders[orderID] = o
	return true, nil
}

func (s *memStore) CompletedWithoutTicket(_ context.Context, limit int) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for id, r := range s.d.reservations {
		if _, ok := s.d.tickets[id]; !ok && r.Status == model.StatusCompleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *memStore) TicketsWithoutFile(_ context.Context, limit int) ([]model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Ticket
	for _, t := range s.d.tickets {
		if t.File == nil {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) completedBy(day time.Time, checkIn bool) []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.d.reservations {
		d := r.EffectiveCheckOut()
		if checkIn {
			d = model.Day(r.CheckIn)
		}
		if r.Status == model.StatusCompleted && d.Equal(model.Day(day)) {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) CompletedByCheckIn(_ context.Context, day time.Time) ([]model.Reservation, error) {
	return s.completedBy(day, true), nil
}

func (s *memStore) CompletedByCheckOut(_ context.Context, day time.Time) ([]model.Reservation, error) {
	return s.completedBy(day, false), nil
}

// seed helpers

func (s *memStore) addRoom(r model.Room) model.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.d.id()
	}
	s.d.rooms[r.ID] = r
	return r
}

func (s *memStore) putReservation(r model.Reservation) model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.d.id()
	}
	if r.Version == 0 {
		r.Version = 1
	}
	s.d.reservations[r.ID] = r
	return r
}

func (s *memStore) putGuest(g model.GuestDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.guests[g.ReservationID] = g
}

func (s *memStore) putDish(x model.Dish) model.Dish {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x.ID == 0 {
		x.ID = s.d.id()
	}
	s.d.dishes[x.ID] = x
	return x
}

func (s *memStore) putAccount(a model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.accounts[a.ID] = a
}

func (s *memStore) ticketCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.d.tickets)
}

// interleave registers a concurrent commit for the next op write.
func (s *memStore) interleave(op string, f func(d *memData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.faults.interleaved[op] = f
}

func (s *memStore) setDishErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.faults.dishErr = err
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.d.orders)
}

func (s *memStore) setTicketConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.faults.ticketConflicts = n
}

var (
	_ repository.Store = (*memStore)(nil)
	_ repository.Tx    = memTx{}
)

// collaborators

type fakeRenderer struct{ fail bool }

func (f fakeRenderer) Ticket(t model.Ticket) ([]byte, error) {
	if f.fail {
		return nil, fmt.Errorf("render failed")
	}
	return []byte("%PDF-ticket " + t.Number + " " + t.RoomName), nil
}

func (f fakeRenderer) Order(o model.RestaurantOrder) ([]byte, error) {
	if f.fail {
		return nil, fmt.Errorf("render failed")
	}
	return []byte("%PDF-order " + o.Number), nil
}

type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiles() *memFiles { return &memFiles{files: map[string][]byte{}} }

func (m *memFiles) Save(_ context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = data
	return key, nil
}

func (m *memFiles) Open(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("no such document %s", key)
	}
	return b, nil
}

type sentMail struct {
	To, Subject string
	Attachments []notify.Attachment
}

type fakeMailer struct {
	mu   sync.Mutex
	ok   bool
	sent []sentMail
}

func (f *fakeMailer) SendEmail(to, subject, _ string, att ...notify.Attachment) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Attachments: att})
	return f.ok
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type published struct {
	Topic string
	Event interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, ev interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic, ev})
	return p.err
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}

type memCarts struct {
	mu    sync.Mutex
	carts map[string]cart.CartState
}

func newMemCarts() *memCarts { return &memCarts{carts: map[string]cart.CartState{}} }

func (m *memCarts) Load(_ context.Context, session string) (cart.CartState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[session], nil
}

func (m *memCarts) Save(_ context.Context, session string, c cart.CartState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[session] = c
	return nil
}

func (m *memCarts) Take(_ context.Context, session string) (cart.CartState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.carts[session]
	delete(m.carts, session)
	return c, nil
}

func (m *memCarts) Delete(_ context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, session)
	return nil
}

func (s *memStore) ticketInserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.faults.ticketInserts
}
