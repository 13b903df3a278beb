package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/resort-reservation/internal/calendar"
	"github.com/iliyamo/resort-reservation/internal/repository"
)

// RoomCalendar is the occupancy of one room for a whole year.
type RoomCalendar struct {
	RoomID uint64           `json:"room_id"`
	Year   int              `json:"year"`
	Days   []calendar.Entry `json:"days"`
}

// CalendarService computes room calendars on demand.
type CalendarService struct {
	store repository.Querier
}

func NewCalendarService(store repository.Querier) *CalendarService {
	return &CalendarService{store: store}
}

// DayStatuses returns one entry per day of year for the room.
func (s *CalendarService) DayStatuses(ctx context.Context, roomID uint64, year int) (RoomCalendar, error) {
	if year < 1970 || year > 9999 {
		return RoomCalendar{}, ErrInvalidRange
	}
	room, err := s.store.RoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return RoomCalendar{}, ErrRoomNotFound
		}
		return RoomCalendar{}, fmt.Errorf("load room: %w", err)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	res, err := s.store.ReservationsForRoom(ctx, roomID, from, from.AddDate(1, 0, 0))
	if err != nil {
		return RoomCalendar{}, fmt.Errorf("load reservations: %w", err)
	}
	days := calendar.DayStatuses(room, year, res)
	return RoomCalendar{RoomID: roomID, Year: year, Days: calendar.Entries(days)}, nil
}
