package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/resort-reservation/internal/cart"
	"github.com/iliyamo/resort-reservation/internal/document"
	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/notify"
	"github.com/iliyamo/resort-reservation/internal/repository"
)

// RestaurantService manages the session cart and turns it into table
// orders.
type RestaurantService struct {
	store    repository.Store
	carts    cart.Store
	numbers  *NumberGenerator
	renderer DocumentRenderer
	files    DocumentStore
	mailer   notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewRestaurantService(store repository.Store, carts cart.Store, deps TicketDeps) *RestaurantService {
	if deps.Mailer == nil {
		deps.Mailer = notify.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &RestaurantService{
		store:    store,
		carts:    carts,
		numbers:  NewNumberGenerator(RestaurantTicketPrefix),
		renderer: deps.Renderer,
		files:    deps.Files,
		mailer:   deps.Mailer,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Menu lists the dishes that can be ordered.
func (s *RestaurantService) Menu(ctx context.Context) ([]model.Dish, error) {
	return s.store.ListDishes(ctx, true)
}

// Cart loads the session's cart.
func (s *RestaurantService) Cart(ctx context.Context, session string) (cart.CartState, error) {
	return s.carts.Load(ctx, session)
}

// update loads the cart, applies fn and saves the result.
func (s *RestaurantService) update(ctx context.Context, session string, fn func(c *cart.CartState) error) (cart.CartState, error) {
	c, err := s.carts.Load(ctx, session)
	if err != nil {
		return c, err
	}
	if err := fn(&c); err != nil {
		return c, err
	}
	return c, s.carts.Save(ctx, session, c)
}

// AddItem adds an available dish at its current price.
func (s *RestaurantService) AddItem(ctx context.Context, session string, dishID uint64, quantity int) (cart.CartState, error) {
	d, err := s.store.DishByID(ctx, dishID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return cart.CartState{}, ErrDishUnavailable
		}
		return cart.CartState{}, err
	}
	if !d.Available {
		return cart.CartState{}, ErrDishUnavailable
	}
	return s.update(ctx, session, func(c *cart.CartState) error {
		return c.Add(cart.CartItem{DishID: d.ID, Name: d.Name, UnitPriceCents: d.PriceCents, Quantity: quantity})
	})
}

// SetQuantity changes a line; zero removes it.
func (s *RestaurantService) SetQuantity(ctx context.Context, session string, dishID uint64, quantity int) (cart.CartState, error) {
	return s.update(ctx, session, func(c *cart.CartState) error { return c.SetQuantity(dishID, quantity) })
}

// RemoveItem drops a dish from the cart.
func (s *RestaurantService) RemoveItem(ctx context.Context, session string, dishID uint64) (cart.CartState, error) {
	return s.update(ctx, session, func(c *cart.CartState) error {
		if !c.Remove(dishID) {
			return cart.ErrItemNotFound
		}
		return nil
	})
}

// SetPartySize sets the number of diners.
func (s *RestaurantService) SetPartySize(ctx context.Context, session string, n int) (cart.CartState, error) {
	return s.update(ctx, session, func(c *cart.CartState) error { return c.SetPartySize(n) })
}

// ClearCart empties the session's cart.
func (s *RestaurantService) ClearCart(ctx context.Context, session string) error {
	return s.carts.Delete(ctx, session)
}

// Checkout turns the cart into a pending restaurant order.  The cart is
// claimed atomically so concurrent checkouts of one session produce a
// single order; it is put back when the order cannot be placed.  Dishes
// are re-read and priced inside the transaction.
func (s *RestaurantService) Checkout(ctx context.Context, userID uint64, session string, reservedFor time.Time) (model.RestaurantOrder, error) {
	c, err := s.carts.Take(ctx, session)
	if err != nil {
		return model.RestaurantOrder{}, err
	}
	order, err := s.placeOrder(ctx, userID, c, reservedFor)
	if err != nil {
		if c.Empty() {
			return model.RestaurantOrder{}, err
		}
		if rerr := s.carts.Save(context.WithoutCancel(ctx), session, c); rerr != nil {
			s.logger.Warn("cart not restored after failed checkout", "err", rerr)
		}
		return model.RestaurantOrder{}, err
	}
	s.logger.Info("restaurant order created", "order_id", order.ID, "ticket", order.Number, "user_id", userID)
	s.fanOut(ctx, &order)
	return order, nil
}

func (s *RestaurantService) placeOrder(ctx context.Context, userID uint64, c cart.CartState, reservedFor time.Time) (model.RestaurantOrder, error) {
	if c.Empty() {
		return model.RestaurantOrder{}, ErrEmptyCart
	}
	if c.PartySize < 1 || !reservedFor.After(s.now()) {
		return model.RestaurantOrder{}, ErrInvalidOrder
	}

	var order model.RestaurantOrder
	var err error
	for attempt := 0; attempt < ticketAttempts; attempt++ {
		err = s.store.InTx(ctx, func(tx repository.Tx) error {
			o := model.RestaurantOrder{
				Number:      s.numbers.Next(),
				UserID:      userID,
				PartySize:   c.PartySize,
				ReservedFor: reservedFor.UTC(),
				Status:      model.OrderPending,
			}
			for _, it := range c.Items {
				d, err := tx.DishByID(ctx, it.DishID)
				switch {
				case errors.Is(err, repository.ErrNotFound):
					return fmt.Errorf("%w: %s", ErrDishUnavailable, it.Name)
				case err != nil:
					return fmt.Errorf("load dish %d: %w", it.DishID, err)
				case !d.Available:
					return fmt.Errorf("%w: %s", ErrDishUnavailable, it.Name)
				}
				o.Items = append(o.Items, model.OrderItem{DishID: d.ID, Name: d.Name, UnitPriceCents: d.PriceCents, Quantity: it.Quantity})
				o.TotalCents += d.PriceCents * int64(it.Quantity)
			}
			if err := tx.InsertRestaurantOrder(ctx, &o); err != nil {
				return err
			}
			order = o
			return nil
		})
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
	}
	return order, err
}

func (s *RestaurantService) fanOut(ctx context.Context, o *model.RestaurantOrder) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	pdf, err := s.storeDocument(ctx, o)
	if err != nil {
		s.logger.Warn("order document failed", "order_id", o.ID, "err", err)
	}
	a, err := s.store.AccountByID(ctx, o.UserID)
	if err != nil || a.Email == "" {
		return
	}
	subject, body := notify.OrderEmail(*o)
	var att []notify.Attachment
	if pdf != nil {
		att = append(att, notify.Attachment{Name: o.Number + ".pdf", Data: pdf})
	}
	if !s.mailer.SendEmail(a.Email, subject, body, att...) {
		s.logger.Warn("order email not sent", "order_id", o.ID)
	}
}

func (s *RestaurantService) storeDocument(ctx context.Context, o *model.RestaurantOrder) ([]byte, error) {
	if s.renderer == nil || s.files == nil {
		return nil, errors.New("document storage not configured")
	}
	pdf, err := s.renderer.Order(*o)
	if err != nil {
		return nil, err
	}
	if o.File != nil {
		return pdf, nil
	}
	key, err := s.files.Save(ctx, document.OrderKey(o.Number), pdf)
	if err != nil {
		return pdf, err
	}
	if ok, err := s.store.SetRestaurantOrderFile(ctx, o.ID, key); err != nil {
		return pdf, err
	} else if ok {
		o.File = &key
	}
	return pdf, nil
}

// OrderDocument returns an order and its PDF for the owner or an admin.
func (s *RestaurantService) OrderDocument(ctx context.Context, orderID uint64, actor Actor) (model.RestaurantOrder, []byte, error) {
	o, err := s.store.RestaurantOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return o, nil, ErrOrderNotFound
		}
		return o, nil, err
	}
	if !actor.CanAccess(o.UserID) {
		return model.RestaurantOrder{}, nil, ErrForbidden
	}
	if o.File != nil && s.files != nil {
		if pdf, err := s.files.Open(ctx, *o.File); err == nil {
			return o, pdf, nil
		}
	}
	pdf, err := s.storeDocument(ctx, &o)
	if pdf == nil {
		return o, nil, err
	}
	return o, pdf, nil
}
