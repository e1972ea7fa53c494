package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/example/reservation-engine/internal/scheduler"
)

// jsonEvent is the on-disk shape of one event. Times are epoch seconds.
type jsonEvent struct {
	RoomID      uint64 `json:"room_id"`
	UserID      uint64 `json:"user_id"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// JSONSource reads a JSON array of events from a file. Comments and trailing
// commas are accepted.
type JSONSource struct {
	Path string
}

// NewJSONSource returns a JSONSource for path.
func NewJSONSource(path string) *JSONSource {
	return &JSONSource{Path: path}
}

// Fetch implements Source.
func (s *JSONSource) Fetch(_ context.Context, from, to time.Time) ([]Event, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("calendar: cannot open calendar file %s: %w", s.Path, err)
	}
	events, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("calendar: %s: %w", s.Path, err)
	}
	return FilterByWindow(events, from, to), nil
}

// ParseJSON decodes a JSON (or JSONC) array of events. A document that is not
// an array yields no events.
func ParseJSON(data []byte) ([]Event, error) {
	var raw any
	clean := jsonc.ToJSON(data)
	if err := json.Unmarshal(clean, &raw); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if _, ok := raw.([]any); !ok {
		return nil, nil
	}

	var records []jsonEvent
	if err := json.Unmarshal(clean, &records); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	events := make([]Event, 0, len(records))
	for _, r := range records {
		events = append(events, Event{
			RoomID:      scheduler.RoomID(r.RoomID),
			UserID:      scheduler.UserID(r.UserID),
			Start:       time.Unix(r.Start, 0).UTC(),
			End:         time.Unix(r.End, 0).UTC(),
			Title:       r.Title,
			Description: r.Description,
		})
	}
	return events, nil
}
