package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/reservation-engine/internal/scheduler"
)

func TestActorsCarryRoleDefaultPriority(t *testing.T) {
	cases := []struct {
		user scheduler.User
		want int
	}{
		{Admin(1), 100},
		{Manager(2), 50},
		{User(3), 10},
	}
	for _, tc := range cases {
		if tc.user.Priority != tc.want {
			t.Fatalf("%s priority = %d, want %d", tc.user.Role, tc.user.Priority, tc.want)
		}
	}
}

func TestNewRequestOptions(t *testing.T) {
	until := At(7, 0, 0)
	req := NewRequest(4, At(0, 9, 0),
		WithDuration(30*time.Minute),
		WithTitle("standup"),
		WithOwner(9),
		WithRecurrence(scheduler.RecurrenceDaily, until),
		WithAttendees(1, 2),
		WithResources("projector-1"),
	)
	if req.End.Sub(req.Start) != 30*time.Minute || req.Title != "standup" || req.OwnerID != 9 {
		t.Fatalf("unexpected request %#v", req)
	}
	if req.Recurrence.Kind != scheduler.RecurrenceDaily || !req.Recurrence.Until.Equal(until) {
		t.Fatalf("unexpected recurrence %#v", req.Recurrence)
	}
	if len(req.Attendees) != 2 || len(req.Resources) != 1 {
		t.Fatalf("unexpected attendees/resources %#v", req)
	}
}

func TestNewManagerUsesMemoryRepository(t *testing.T) {
	mgr := NewManager(t, ManagerDeps{})
	adm, err := mgr.CreateBooking(context.Background(), NewRequest(1, At(0, 9, 0)), User(5))
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	if !adm.Admitted || adm.ID != 1 {
		t.Fatalf("unexpected admission %#v", adm)
	}
}

func TestStoragesOpen(t *testing.T) {
	for _, codec := range []string{"json", "cbor"} {
		repo := NewRepository(t, NewFileStorage(t, codec))
		if repo.Seq() != 0 {
			t.Fatalf("expected empty %s repository", codec)
		}
	}
	if repo := NewRepository(t, NewSQLiteStorage(t)); repo.Seq() != 0 {
		t.Fatal("expected empty sqlite repository")
	}
}
