package calendar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/example/reservation-engine/internal/scheduler"
)

// ICSSource reads VEVENT entries from an iCalendar file.
//
// The room and owner of each event come from the X-ROOM-ID and X-USER-ID
// properties. A numeric LOCATION also names the room. Events carrying neither
// fall back to DefaultRoom and DefaultUser.
type ICSSource struct {
	Path        string
	DefaultRoom scheduler.RoomID
	DefaultUser scheduler.UserID
}

// Fetch implements Source.
func (s *ICSSource) Fetch(_ context.Context, from, to time.Time) ([]Event, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("calendar: cannot open calendar file %s: %w", s.Path, err)
	}
	defer f.Close()

	events, err := ParseICS(f, s.DefaultRoom, s.DefaultUser)
	if err != nil {
		return nil, fmt.Errorf("calendar: %s: %w", s.Path, err)
	}
	return FilterByWindow(events, from, to), nil
}

type icsEvent struct {
	Event
	room, user string
	location   string
}

// ParseICS reads every VEVENT with both DTSTART and DTEND.
func ParseICS(r io.Reader, defaultRoom scheduler.RoomID, defaultUser scheduler.UserID) ([]Event, error) {
	var (
		events  []Event
		current *icsEvent
		field   string
		tzid    string
		value   strings.Builder
	)

	flush := func() {
		if field != "" && current != nil {
			setField(current, field, tzid, value.String())
		}
		field = ""
		tzid = ""
		value.Reset()
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		// Folded continuation line.
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if field != "" {
				value.WriteString(line[1:])
			}
			continue
		}
		flush()

		name, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Parameters only matter for TZID, e.g. DTSTART;TZID=Europe/Berlin:20240105T090000.
		name, params, _ := strings.Cut(name, ";")
		name = strings.ToUpper(name)

		switch name {
		case "BEGIN":
			if val == "VEVENT" {
				current = &icsEvent{}
			}
		case "END":
			if val == "VEVENT" && current != nil {
				if !current.Start.IsZero() && !current.End.IsZero() {
					events = append(events, current.resolve(defaultRoom, defaultUser))
				}
				current = nil
			}
		case "SUMMARY", "DESCRIPTION", "LOCATION", "DTSTART", "DTEND", "X-ROOM-ID", "X-USER-ID":
			if current != nil {
				field = name
				tzid = paramValue(params, "TZID")
				value.WriteString(val)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}
	return events, nil
}

// paramValue returns the named property parameter with any quotes removed.
func paramValue(params, name string) string {
	for _, p := range strings.Split(params, ";") {
		key, val, ok := strings.Cut(p, "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.Trim(strings.TrimSpace(val), `"`)
		}
	}
	return ""
}

func setField(e *icsEvent, field, tzid, value string) {
	value = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`).Replace(value)

	switch field {
	case "SUMMARY":
		e.Title = value
	case "DESCRIPTION":
		e.Description = value
	case "LOCATION":
		e.location = strings.TrimSpace(value)
	case "DTSTART":
		e.Start = parseDateTime(value, tzid)
	case "DTEND":
		e.End = parseDateTime(value, tzid)
	case "X-ROOM-ID":
		e.room = strings.TrimSpace(value)
	case "X-USER-ID":
		e.user = strings.TrimSpace(value)
	}
}

func (e *icsEvent) resolve(defaultRoom scheduler.RoomID, defaultUser scheduler.UserID) Event {
	out := e.Event
	out.RoomID = defaultRoom
	out.UserID = defaultUser
	if n, err := strconv.ParseUint(e.location, 10, 64); err == nil {
		out.RoomID = scheduler.RoomID(n)
	}
	if n, err := strconv.ParseUint(e.room, 10, 64); err == nil {
		out.RoomID = scheduler.RoomID(n)
	}
	if n, err := strconv.ParseUint(e.user, 10, 64); err == nil {
		out.UserID = scheduler.UserID(n)
	}
	return out
}

// parseDateTime accepts the common iCalendar date forms. Times without a Z
// suffix are read in the tzid zone, or as UTC when tzid is empty or unknown.
func parseDateTime(value, tzid string) time.Time {
	value = strings.TrimSpace(value)
	loc := time.UTC
	if tzid != "" && !strings.HasSuffix(value, "Z") {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}
	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, value, loc); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
