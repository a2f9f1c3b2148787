package service

import (
	"context"
	"testing"

	"github.com/iliyamo/circulink/internal/model"
)

func TestSweepExpiredIsIdempotent(t *testing.T) {
	store := &fakeReservations{rows: []model.Reservation{
		{ID: 1, StartAt: clock("2025-06-02", "08:00"), EndAt: clock("2025-06-02", "09:00"), Status: model.ReservationApproved},
		{ID: 2, StartAt: clock("2025-06-02", "09:00"), EndAt: clock("2025-06-02", "10:00"), Status: model.ReservationPending},
		{ID: 3, StartAt: clock("2025-06-02", "11:00"), EndAt: clock("2025-06-02", "12:00"), Status: model.ReservationPending},
		{ID: 4, StartAt: clock("2025-06-02", "07:00"), EndAt: clock("2025-06-02", "08:00"), Status: model.ReservationCancelled},
	}}
	s := NewSweeper(store, fixed(clock("2025-06-02", "10:00")))

	first, err := s.SweepExpired(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.CompletedCount != 2 {
		t.Fatalf("first sweep completed %d, want 2", first.CompletedCount)
	}
	writes := store.writes

	second, err := s.SweepExpired(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.CompletedCount != 0 || store.writes != writes {
		t.Fatalf("second sweep must be a no-op, got %d (writes %d -> %d)", second.CompletedCount, writes, store.writes)
	}
	if store.rows[2].Status != model.ReservationPending || store.rows[3].Status != model.ReservationCancelled {
		t.Fatal("future and cancelled reservations must be untouched")
	}
}
