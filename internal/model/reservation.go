package model

import "time"

// Reservation records a room booking by a requester together with the
// people joining the session.
//
// Fields:
//  ID           – primary key.
//  Room, Floor  – the booked room.
//  Date         – campus-local calendar date of the session.
//  StartAt      – session start (UTC).
//  EndAt        – session end (UTC), exclusive.
//  RequesterID  – user who made the request.
//  Participants – other attendees by id number.
//  Status       – Pending, Approved, Cancelled or Completed.
type Reservation struct {
    ID                uint64            `json:"id"`                  // reservations.id
    Room              string            `json:"room"`                // reservations.room
    Floor             string            `json:"floor"`               // reservations.floor
    Date              time.Time         `json:"date"`                // reservations.date
    StartAt           time.Time         `json:"start_at"`            // reservations.start_at
    EndAt             time.Time         `json:"end_at"`              // reservations.end_at
    RequesterID       uint64            `json:"requester_id"`        // reservations.requester_id
    RequesterIDNumber string            `json:"requester_id_number"` // users.id_number of the requester
    Purpose           string            `json:"purpose"`             // reservations.purpose
    Participants      []Participant     `json:"participants"`        // reservation_participants rows
    Status            ReservationStatus `json:"status"`              // reservations.status
    CreatedAt         time.Time         `json:"created_at"`          // reservations.created_at
    UpdatedAt         time.Time         `json:"updated_at"`          // reservations.updated_at
}

// Participant is an attendee listed on a reservation.
type Participant struct {
    IDNumber string `json:"id_number"` // reservation_participants.id_number
}

// ParticipantIDs returns the participant id numbers in list order.
func (r Reservation) ParticipantIDs() []string {
    out := make([]string, 0, len(r.Participants))
    for _, p := range r.Participants {
        out = append(out, p.IDNumber)
    }
    return out
}
