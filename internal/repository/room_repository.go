package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/circulink/internal/model"
)

// RoomRepo reads the room catalog.
type RoomRepo struct {
    db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// ListActive returns every active room ordered by floor then name.
func (r *RoomRepo) ListActive(ctx context.Context) ([]model.Room, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, name, floor, capacity, is_active, created_at
         FROM rooms WHERE is_active = TRUE ORDER BY floor, name`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    rooms := []model.Room{}
    for rows.Next() {
        var room model.Room
        if err := rows.Scan(&room.ID, &room.Name, &room.Floor, &room.Capacity, &room.IsActive, &room.CreatedAt); err != nil {
            return nil, err
        }
        rooms = append(rooms, room)
    }
    return rooms, rows.Err()
}

// GetByName looks a room up case-insensitively.
func (r *RoomRepo) GetByName(ctx context.Context, name string) (model.Room, error) {
    var room model.Room
    err := r.db.QueryRowContext(ctx,
        `SELECT id, name, floor, capacity, is_active, created_at FROM rooms WHERE LOWER(name) = ? LIMIT 1`,
        strings.ToLower(strings.TrimSpace(name))).
        Scan(&room.ID, &room.Name, &room.Floor, &room.Capacity, &room.IsActive, &room.CreatedAt)
    return room, notFound(err)
}
