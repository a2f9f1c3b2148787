package scheduler

import (
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/circulink/internal/model"
)

// RoomAvailability lists the occupied ranges of one room on one date.  An
// empty Occupied slice means the room is free all day.
type RoomAvailability struct {
	Room     string  `json:"room"`
	Floor    string  `json:"floor"`
	Occupied []Range `json:"occupied"`
}

// BuildAvailability groups the active reservations on date by room.  Every
// room in rooms is present in the result, in the given order, even with no
// reservations.  Reservations for rooms missing from the catalog are
// appended after it so their occupancy is never hidden.
func BuildAvailability(rooms []model.Room, reservations []model.Reservation, date time.Time, loc *time.Location) []RoomAvailability {
	out := make([]RoomAvailability, 0, len(rooms))
	index := make(map[string]int, len(rooms))
	for _, r := range rooms {
		index[strings.ToLower(strings.TrimSpace(r.Name))] = len(out)
		out = append(out, RoomAvailability{Room: r.Name, Floor: r.Floor, Occupied: []Range{}})
	}

	for _, res := range reservations {
		if !res.Status.Active() || !SameDay(res.Date, date, loc) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(res.Room))
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, RoomAvailability{Room: res.Room, Floor: res.Floor, Occupied: []Range{}})
		}
		out[i].Occupied = append(out[i].Occupied, Range{Start: res.StartAt, End: res.EndAt})
	}

	for i := range out {
		occ := out[i].Occupied
		sort.Slice(occ, func(a, b int) bool { return occ[a].Start.Before(occ[b].Start) })
	}
	return out
}
