package model

import "time"

// Room is a reservable library room.  Rooms are identified by name in
// reservations and grouped by floor.
type Room struct {
    ID        uint64    `json:"id"`         // rooms.id
    Name      string    `json:"name"`       // rooms.name
    Floor     string    `json:"floor"`      // rooms.floor
    Capacity  uint32    `json:"capacity"`   // rooms.capacity
    IsActive  bool      `json:"is_active"`  // rooms.is_active
    CreatedAt time.Time `json:"created_at"` // rooms.created_at
}
