package model

// Roles carried in the access token's "role" claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// Account is the read-only view of a `users` row this service needs:
// contact data for notifications and the reminder preferences.  Accounts
// are managed by the identity service.
type Account struct {
	ID             uint64 `db:"id"`
	Name           string `db:"name"`
	Email          string `db:"email"`
	Role           string `db:"role"`
	NotifyCheckIn  bool   `db:"notify_checkin"`
	NotifyCheckOut bool   `db:"notify_checkout"`
}
