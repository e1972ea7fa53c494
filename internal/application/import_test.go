package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/reservation-engine/internal/application"
	"github.com/example/reservation-engine/internal/calendar"
	"github.com/example/reservation-engine/internal/scheduler"
	"github.com/example/reservation-engine/internal/testfixtures"
)

type stubSource struct {
	events []calendar.Event
	err    error
}

func (s stubSource) Fetch(_ context.Context, from, to time.Time) ([]calendar.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	return calendar.FilterByWindow(s.events, from, to), nil
}

func event(room scheduler.RoomID, user scheduler.UserID, start time.Time, title string) calendar.Event {
	return calendar.Event{RoomID: room, UserID: user, Start: start, End: start.Add(time.Hour), Title: title}
}

func TestImportFromCalendar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mgr := testfixtures.NewManager(t, testfixtures.ManagerDeps{})

	src := stubSource{events: []calendar.Event{
		event(1, 7, at(0, 9, 0), "standup"),
		event(1, 8, at(0, 9, 30), "clash"),
		{RoomID: 2, UserID: 9, Start: at(0, 12, 0), End: at(0, 11, 0), Title: "backwards"},
		event(3, 9, at(0, 13, 0), "review"),
		event(3, 9, at(5, 13, 0), "outside window"),
	}}

	ids, err := mgr.ImportFromCalendar(ctx, src, at(0, 0, 0), at(1, 0, 0), testfixtures.Manager(1))
	if err != nil {
		t.Fatalf("ImportFromCalendar failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 admitted events, got %v", ids)
	}
	got, found, _ := mgr.GetBooking(ctx, ids[0])
	if !found || got.OwnerID != 7 || got.Title != "standup" {
		t.Fatalf("expected the event owner to own the booking, got %#v", got)
	}
	if got.OwnerPriority != 50 {
		t.Fatalf("expected the importing actor's priority, got %d", got.OwnerPriority)
	}
}

func TestImportFromCalendarRequiresAuthority(t *testing.T) {
	t.Parallel()
	mgr := testfixtures.NewManager(t, testfixtures.ManagerDeps{})
	src := stubSource{events: []calendar.Event{event(1, 7, at(0, 9, 0), "standup")}}

	_, err := mgr.ImportFromCalendar(context.Background(), src, at(0, 0, 0), at(1, 0, 0), testfixtures.User(1))
	if !errors.Is(err, application.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if undo, _ := mgr.HistoryDepth(); undo != 0 {
		t.Fatal("denied import must not create bookings")
	}
}

func TestImportFromCalendarFetchError(t *testing.T) {
	t.Parallel()
	mgr := testfixtures.NewManager(t, testfixtures.ManagerDeps{})
	boom := errors.New("unreachable")

	_, err := mgr.ImportFromCalendar(context.Background(), stubSource{err: boom}, at(0, 0, 0), at(1, 0, 0), testfixtures.Admin(1))
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestImportThroughScheduler(t *testing.T) {
	t.Parallel()
	mgr := testfixtures.NewManager(t, testfixtures.ManagerDeps{})
	sched := calendar.NewScheduler(mgr, nil)

	now := time.Now().UTC().Truncate(time.Second)
	src := stubSource{events: []calendar.Event{event(1, 7, now.Add(time.Hour), "soon")}}
	ids, err := sched.Run(context.Background(), calendar.Job{Name: "adhoc", Source: src, Window: 2 * time.Hour, Actor: testfixtures.Admin(1)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 imported booking, got %v", ids)
	}
}
