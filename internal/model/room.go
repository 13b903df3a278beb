package model

import "time"

// RoomPlan is the tier a room is sold under.  Plans are ordered: GOLD
// ranks above SILVER which ranks above BRONZE.
type RoomPlan string

const (
	PlanGold   RoomPlan = "GOLD"
	PlanSilver RoomPlan = "SILVER"
	PlanBronze RoomPlan = "BRONZE"
)

// Rank returns the ordinal of the plan (higher is better).  Unknown plans
// rank zero.
func (p RoomPlan) Rank() int {
	switch p {
	case PlanGold:
		return 3
	case PlanSilver:
		return 2
	case PlanBronze:
		return 1
	}
	return 0
}

// RoomState is the operational state of a room as set by administrators.
type RoomState string

const (
	RoomAvailable   RoomState = "AVAILABLE"
	RoomOccupied    RoomState = "OCCUPIED"
	RoomMaintenance RoomState = "MAINTENANCE"
)

// Room mirrors a row of the `rooms` table.  Rooms are created and edited
// by the admin back office; this service only reads them.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – display name of the room.
//  Number           – door number shown to guests.
//  Plan             – pricing tier.
//  Capacity         – maximum number of guests.
//  NightlyRateCents – price of one night in cents.
//  State            – operational state; MAINTENANCE blocks the calendar.
type Room struct {
	ID               uint64    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Number           string    `db:"number" json:"number"`
	Plan             RoomPlan  `db:"plan" json:"plan"`
	Capacity         int       `db:"capacity" json:"capacity"`
	NightlyRateCents int64     `db:"nightly_rate_cents" json:"nightly_rate_cents"`
	State            RoomState `db:"state" json:"state"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// InMaintenance reports whether the room is blocked by a manual override.
func (r Room) InMaintenance() bool { return r.State == RoomMaintenance }
