package repository

import (
	"context"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// AccountByID reads the contact data of a user.  The users table is owned
// by the identity service; this repository never writes to it.
func (c conn) AccountByID(ctx context.Context, id uint64) (model.Account, error) {
	var a model.Account
	err := c.get(ctx, &a, `SELECT id, name, email, role, notify_checkin, notify_checkout FROM users WHERE id = ?`, id)
	return a, err
}
