package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/circulink/internal/model"
	"github.com/iliyamo/circulink/internal/realtime"
)

func TestDispatchAdminRole(t *testing.T) {
	store := &fakeNotifications{}
	emitter := &recordingEmitter{}
	svc := NewNotificationService(store, emitter)

	n, err := svc.Dispatch(context.Background(), NotificationSpec{
		TargetRole: model.TargetAdmin,
		Message:    "Disk almost full",
		Status:     "info",
		Type:       model.NotificationSystem,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := store.all(); len(got) != 1 || got[0].TargetRole != model.TargetAdmin {
		t.Fatalf("expected one admin notification, got %+v", got)
	}
	if sent := emitter.sent(); len(sent) != 1 || sent[0] != realtime.Role("admin") {
		t.Fatalf("expected a single emit to role:admin, got %v", sent)
	}
	if n.Status != "Info" || n.ID == 0 {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestDispatchTargets(t *testing.T) {
	uid := uint64(7)
	zero := uint64(0)
	tests := []struct {
		name    string
		userID  *uint64
		role    model.TargetRole
		want    realtime.Channel
		wantErr bool
	}{
		{name: "user", userID: &uid, want: "user:7"},
		{name: "user with explicit user role", userID: &uid, role: model.TargetUser, want: "user:7"},
		{name: "staff", role: model.TargetStaff, want: "role:staff"},
		{name: "empty means everyone", want: realtime.Broadcast},
		{name: "all", role: model.TargetAll, want: realtime.Broadcast},
		{name: "user plus staff role", userID: &uid, role: model.TargetStaff, wantErr: true},
		{name: "user role without id", role: model.TargetUser, wantErr: true},
		{name: "zero user id", userID: &zero, wantErr: true},
		{name: "unknown role", role: "janitor", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeNotifications{}
			emitter := &recordingEmitter{}
			svc := NewNotificationService(store, emitter)
			_, err := svc.Dispatch(context.Background(), NotificationSpec{TargetUserID: tt.userID, TargetRole: tt.role, Message: "m"})
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected invalid input, got %v", err)
				}
				if len(store.all()) != 0 || len(emitter.sent()) != 0 {
					t.Fatal("rejected dispatch must not store or emit")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if sent := emitter.sent(); len(sent) != 1 || sent[0] != tt.want {
				t.Fatalf("emitted to %v, want %s", sent, tt.want)
			}
		})
	}
}

func TestDispatchNormalizesStatusAndFillsMessage(t *testing.T) {
	store := &fakeNotifications{}
	svc := NewNotificationService(store, nil)
	uid := uint64(3)
	n, err := svc.Dispatch(context.Background(), NotificationSpec{
		TargetUserID: &uid,
		Status:       "in_progress",
		Type:         model.NotificationReport,
		Context:      MessageContext{Room: "Collab-A", Category: "Aircon"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n.Status != "InProgress" {
		t.Fatalf("status = %q", n.Status)
	}
	if n.Message != "Your Aircon report for Collab-A is being worked on" {
		t.Fatalf("message = %q", n.Message)
	}

	n, err = svc.Dispatch(context.Background(), NotificationSpec{TargetUserID: &uid, Status: "weird", Message: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if n.Status != model.DefaultStatus || n.Type != model.NotificationSystem {
		t.Fatalf("unexpected defaults: %+v", n)
	}
}

func TestDispatchEmitFailureIsNotReturned(t *testing.T) {
	store := &fakeNotifications{}
	emitter := &recordingEmitter{err: realtime.ErrHubBusy}
	svc := NewNotificationService(store, emitter)
	n, err := svc.Dispatch(context.Background(), NotificationSpec{TargetRole: model.TargetStaff, Message: "m"})
	if err != nil {
		t.Fatalf("emit failure leaked: %v", err)
	}
	if n.ID == 0 || len(store.all()) != 1 {
		t.Fatal("notification must still be stored")
	}
}

func TestDispatchStoreFailureSkipsEmit(t *testing.T) {
	store := &fakeNotifications{err: errors.New("db down")}
	emitter := &recordingEmitter{}
	svc := NewNotificationService(store, emitter)
	if _, err := svc.Dispatch(context.Background(), NotificationSpec{Message: "m"}); err == nil {
		t.Fatal("expected store error")
	}
	if len(emitter.sent()) != 0 {
		t.Fatal("nothing may be emitted when the store fails")
	}
}
