package calendar_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/reservation-engine/internal/calendar"
	"github.com/example/reservation-engine/internal/scheduler"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestJSONSourceFiltersWindow(t *testing.T) {
	t.Parallel()
	// 1717405200 = 2024-06-03T09:00:00Z
	path := writeFile(t, "events.json", `[
		// standup
		{"room_id": 1, "user_id": 7, "start": 1717405200, "end": 1717407000, "title": "standup", "description": "daily"},
		{"room_id": 2, "user_id": 8, "start": 1717491600, "end": 1717495200, "title": "tomorrow"},
		{"room_id": 3, "user_id": 9, "start": 1717401600, "end": 1717405200, "title": "ends at window start"},
	]`)

	from := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)
	to := from.Add(12 * time.Hour)
	events, err := calendar.NewJSONSource(path).Fetch(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event in window, got %d: %#v", len(events), events)
	}
	got := events[0]
	if got.RoomID != 1 || got.UserID != 7 || got.Title != "standup" || got.Description != "daily" {
		t.Fatalf("unexpected event %#v", got)
	}
	if !got.Start.Equal(from) || got.End.Sub(got.Start) != 30*time.Minute {
		t.Fatalf("unexpected interval %v - %v", got.Start, got.End)
	}
}

func TestJSONSourceEdgeCases(t *testing.T) {
	t.Parallel()
	from := time.Unix(0, 0)
	to := time.Unix(1<<40, 0)

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := calendar.NewJSONSource(filepath.Join(t.TempDir(), "nope.json")).Fetch(context.Background(), from, to)
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected not-exist error, got %v", err)
		}
	})

	t.Run("object document", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "obj.json", `{"room_id": 1}`)
		events, err := calendar.NewJSONSource(path).Fetch(context.Background(), from, to)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("expected no events, got %d", len(events))
		}
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		if _, err := calendar.ParseJSON([]byte(`[{"room_id": "x"`)); err == nil {
			t.Fatal("expected decode error")
		}
	})
}

const sample = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:Quarterly review\\, part 1\r\n" +
	"DESCRIPTION:Agenda:\\nbudget\r\n" +
	" and hiring\r\n" +
	"DTSTART:20240603T100000Z\r\n" +
	"DTEND:20240603T110000Z\r\n" +
	"X-ROOM-ID:4\r\n" +
	"X-USER-ID:12\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:Offsite\r\n" +
	"LOCATION:9\r\n" +
	"DTSTART;VALUE=DATE:20240604\r\n" +
	"DTEND;VALUE=DATE:20240605\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:No end\r\n" +
	"DTSTART:20240603T100000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	t.Parallel()
	events, err := calendar.ParseICS(strings.NewReader(sample), 1, 2)
	if err != nil {
		t.Fatalf("ParseICS failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if first.Title != "Quarterly review, part 1" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Description != "Agenda:\nbudgetand hiring" {
		t.Fatalf("unexpected description %q", first.Description)
	}
	if first.RoomID != 4 || first.UserID != 12 {
		t.Fatalf("expected room 4 user 12, got %d/%d", first.RoomID, first.UserID)
	}
	if !first.Start.Equal(time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", first.Start)
	}

	second := events[1]
	if second.RoomID != 9 || second.UserID != 2 {
		t.Fatalf("expected location room 9 and default user, got %d/%d", second.RoomID, second.UserID)
	}
	if second.End.Sub(second.Start) != 24*time.Hour {
		t.Fatalf("expected all-day event, got %v", second.End.Sub(second.Start))
	}
}

func TestParseICSTimeZones(t *testing.T) {
	t.Parallel()
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"SUMMARY:berlin",
		`DTSTART;TZID="Europe/Berlin":20240603T090000`,
		"DTEND;TZID=Europe/Berlin:20240603T100000",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:utc wins",
		"DTSTART;TZID=Europe/Berlin:20240603T090000Z",
		"DTEND;TZID=Europe/Berlin:20240603T100000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:unknown zone",
		"DTSTART;TZID=Mars/Olympus:20240603T090000",
		"DTEND;TZID=Mars/Olympus:20240603T100000",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")

	events, err := calendar.ParseICS(strings.NewReader(ics), 1, 2)
	if err != nil {
		t.Fatalf("ParseICS failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	tests := []struct {
		title string
		want  time.Time
	}{
		{"berlin", time.Date(2024, time.June, 3, 7, 0, 0, 0, time.UTC)},
		{"utc wins", time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)},
		{"unknown zone", time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)},
	}
	for i, tt := range tests {
		if events[i].Title != tt.title || !events[i].Start.Equal(tt.want) {
			t.Errorf("event %d: got %q at %v, want %q at %v", i, events[i].Title, events[i].Start, tt.title, tt.want)
		}
		if events[i].End.Sub(events[i].Start) != time.Hour {
			t.Errorf("event %d: expected one hour, got %v", i, events[i].End.Sub(events[i].Start))
		}
	}
}

func TestICSSourceFetch(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "cal.ics", sample)
	src := &calendar.ICSSource{Path: path, DefaultRoom: 1, DefaultUser: 2}

	from := time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC)
	events, err := src.Fetch(context.Background(), from, from.Add(time.Hour))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Offsite" {
		t.Fatalf("expected only the offsite, got %#v", events)
	}
}

type recordingImporter struct {
	mu    sync.Mutex
	calls []time.Duration
	actor scheduler.User
	err   error
}

func (r *recordingImporter) ImportFromCalendar(_ context.Context, _ calendar.Source, from, to time.Time, actor scheduler.User) ([]scheduler.BookingID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, to.Sub(from))
	r.actor = actor
	if r.err != nil {
		return nil, r.err
	}
	return []scheduler.BookingID{1, 2}, nil
}

func TestSchedulerRunAndSchedule(t *testing.T) {
	t.Parallel()
	importer := &recordingImporter{}
	s := calendar.NewScheduler(importer, nil)
	admin := scheduler.User{ID: 1, Name: "root", Role: scheduler.RoleAdmin}
	job := calendar.Job{
		Name:   "nightly",
		Spec:   "0 0 2 * * *",
		Source: calendar.NewJSONSource("unused.json"),
		Window: 48 * time.Hour,
		Actor:  admin,
	}

	ids, err := s.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	if importer.calls[0] != 48*time.Hour || importer.actor.ID != admin.ID {
		t.Fatalf("unexpected import call: %v %#v", importer.calls, importer.actor)
	}

	if err := s.Schedule(job); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	s.Start()
	defer s.Stop()
	if _, ok := s.NextRun("nightly"); !ok {
		t.Fatal("expected a next run for the scheduled job")
	}
	s.Unschedule("nightly")
	if _, ok := s.NextRun("nightly"); ok {
		t.Fatal("expected no next run after unschedule")
	}
}

func TestSchedulerRejectsBadJobs(t *testing.T) {
	t.Parallel()
	s := calendar.NewScheduler(&recordingImporter{}, nil)
	if err := s.Schedule(calendar.Job{Name: "nosrc", Spec: "@every 1m"}); err == nil {
		t.Fatal("expected error for job without source")
	}
	err := s.Schedule(calendar.Job{Name: "bad", Spec: "not a spec", Source: calendar.NewJSONSource("x")})
	if err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestSchedulerRunPropagatesError(t *testing.T) {
	t.Parallel()
	boom := errors.New("denied")
	s := calendar.NewScheduler(&recordingImporter{err: boom}, nil)
	if _, err := s.Run(context.Background(), calendar.Job{Name: "x", Source: calendar.NewJSONSource("x")}); !errors.Is(err, boom) {
		t.Fatalf("expected importer error, got %v", err)
	}
}
