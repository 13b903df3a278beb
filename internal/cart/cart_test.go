package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMergesByDish(t *testing.T) {
	var c CartState
	require.NoError(t, c.Add(CartItem{DishID: 1, Name: "Arepa", UnitPriceCents: 500, Quantity: 2}))
	require.NoError(t, c.Add(CartItem{DishID: 2, Name: "Jugo", UnitPriceCents: 300, Quantity: 1}))
	require.NoError(t, c.Add(CartItem{DishID: 1, Name: "Arepa", UnitPriceCents: 550, Quantity: 3}))

	require.Len(t, c.Items, 2)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.EqualValues(t, 550, c.Items[0].UnitPriceCents)
	assert.EqualValues(t, 5*550+300, c.TotalCents())
	assert.Equal(t, 6, c.Count())
}

func TestAddRejectsBadQuantity(t *testing.T) {
	var c CartState
	assert.ErrorIs(t, c.Add(CartItem{DishID: 1, Quantity: 0}), ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add(CartItem{DishID: 1, Quantity: MaxQuantity + 1}), ErrInvalidQuantity)

	require.NoError(t, c.Add(CartItem{DishID: 1, Quantity: MaxQuantity}))
	assert.ErrorIs(t, c.Add(CartItem{DishID: 1, Quantity: 1}), ErrInvalidQuantity)
	assert.Equal(t, MaxQuantity, c.Items[0].Quantity)
}

func TestSetQuantity(t *testing.T) {
	var c CartState
	require.NoError(t, c.Add(CartItem{DishID: 7, Quantity: 2}))

	require.NoError(t, c.SetQuantity(7, 4))
	assert.Equal(t, 4, c.Items[0].Quantity)

	assert.ErrorIs(t, c.SetQuantity(8, 1), ErrItemNotFound)
	assert.ErrorIs(t, c.SetQuantity(7, -1), ErrInvalidQuantity)

	require.NoError(t, c.SetQuantity(7, 0))
	assert.True(t, c.Empty())
}

func TestRemoveAndClear(t *testing.T) {
	var c CartState
	require.NoError(t, c.Add(CartItem{DishID: 1, Quantity: 1}))
	require.NoError(t, c.Add(CartItem{DishID: 2, Quantity: 1}))
	require.NoError(t, c.SetPartySize(4))

	assert.True(t, c.Remove(1))
	assert.False(t, c.Remove(1))
	assert.Len(t, c.Items, 1)

	c.Clear()
	assert.True(t, c.Empty())
	assert.Zero(t, c.PartySize)
}

func TestSetPartySize(t *testing.T) {
	var c CartState
	assert.ErrorIs(t, c.SetPartySize(0), ErrInvalidPartySize)
	assert.ErrorIs(t, c.SetPartySize(MaxPartySize+1), ErrInvalidPartySize)
	assert.NoError(t, c.SetPartySize(MaxPartySize))
}

func TestRedisStoreWithoutClient(t *testing.T) {
	s := NewRedisStore(nil, "", 0)
	assert.Equal(t, "cart:abc", s.Key("abc"))
	assert.Equal(t, 24*time.Hour, s.ttl)

	_, err := s.Load(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Save(context.Background(), "abc", CartState{PartySize: 2}), ErrUnavailable)
	_, err = s.Take(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDecodeCart(t *testing.T) {
	c, err := decodeCart(nil, redis.Nil, "take")
	require.NoError(t, err)
	assert.True(t, c.Empty())

	c, err = decodeCart([]byte(`{"items":[{"dish_id":3,"name":"Ajiaco","unit_price_cents":1800,"quantity":2}],"party_size":2}`), nil, "take")
	require.NoError(t, err)
	assert.Equal(t, 2, c.PartySize)

	c, err = decodeCart([]byte(`not json`), nil, "load")
	require.NoError(t, err)
	assert.True(t, c.Empty())

	_, err = decodeCart(nil, errors.New("i/o timeout"), "take")
	assert.ErrorContains(t, err, "take cart")
}
