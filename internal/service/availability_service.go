package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/scheduler"
)

// AvailabilityService answers "which rooms are busy when" for a date.
type AvailabilityService struct {
	rooms        RoomStore
	reservations ReservationStore
	loc          *time.Location
}

func NewAvailabilityService(rooms RoomStore, reservations ReservationStore, loc *time.Location) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{rooms: rooms, reservations: reservations, loc: loc}
}

// Rooms lists the active room catalog ordered by floor then name.
func (s *AvailabilityService) Rooms(ctx context.Context) ([]model.Room, error) {
	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// GetAvailability returns every active room with the occupied ranges of
// day (YYYY-MM-DD, campus calendar).
func (s *AvailabilityService) GetAvailability(ctx context.Context, day string) ([]scheduler.RoomAvailability, error) {
	date, err := scheduler.ParseDate(day, s.loc)
	if err != nil {
		return nil, invalid("date: %v", err)
	}
	rooms, err := s.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.reservations.ListActiveByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return scheduler.BuildAvailability(rooms, active, date, s.loc), nil
}
