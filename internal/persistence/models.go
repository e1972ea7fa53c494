package persistence

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/example/reservation-engine/internal/scheduler"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 1

// RecurrenceRecord is the persisted form of scheduler.Recurrence.
type RecurrenceRecord struct {
	Type  int    `json:"type" cbor:"type"`
	Until *int64 `json:"until,omitempty" cbor:"until,omitempty"`
}

// BookingRecord is the persisted form of a booking template. Times are epoch seconds.
type BookingRecord struct {
	ID            uint64           `json:"id" cbor:"id"`
	RoomID        uint64           `json:"room_id" cbor:"room_id"`
	UserID        uint64           `json:"user_id" cbor:"user_id"`
	Start         int64            `json:"start" cbor:"start"`
	End           int64            `json:"end" cbor:"end"`
	Title         string           `json:"title" cbor:"title"`
	Description   string           `json:"description" cbor:"description"`
	Recurrence    RecurrenceRecord `json:"recurrence" cbor:"recurrence"`
	Attendees     []uint64         `json:"attendees" cbor:"attendees"`
	Resources     []string         `json:"resources" cbor:"resources"`
	OwnerPriority int              `json:"owner_priority" cbor:"owner_priority"`
}

// Snapshot is the full committed booking set as of journal sequence Seq.
type Snapshot struct {
	Version  int             `json:"version" cbor:"version"`
	Seq      uint64          `json:"seq" cbor:"seq"`
	SavedAt  int64           `json:"saved_at" cbor:"saved_at"`
	Bookings []BookingRecord `json:"bookings" cbor:"bookings"`
}

// Op names a journaled repository mutation.
type Op string

const (
	OpCreate  Op = "create"
	OpRestore Op = "restore"
	OpUpdate  Op = "update"
	OpRemove  Op = "remove"
)

// JournalEntry records one repository mutation. Entries are ordered by Seq.
type JournalEntry struct {
	Seq      uint64         `json:"seq"`
	OpID     string         `json:"op_id"`
	Op       Op             `json:"op"`
	At       int64          `json:"at"`
	Booking  *BookingRecord `json:"booking,omitempty"`
	ID       uint64         `json:"id,omitempty"`
	Checksum string         `json:"checksum,omitempty"`
}

// Seal computes and stores the entry checksum.
func (e *JournalEntry) Seal() {
	e.Checksum = e.digest()
}

// Verify reports whether the stored checksum matches the entry contents. Entries written
// without a checksum are accepted.
func (e JournalEntry) Verify() bool {
	if e.Checksum == "" {
		return true
	}
	return e.Checksum == e.digest()
}

func (e JournalEntry) digest() string {
	e.Checksum = ""
	payload, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ToRecord converts a booking into its persisted form.
func ToRecord(b scheduler.Booking) BookingRecord {
	rec := BookingRecord{
		ID:            uint64(b.ID),
		RoomID:        uint64(b.RoomID),
		UserID:        uint64(b.OwnerID),
		Start:         b.Start.Unix(),
		End:           b.End.Unix(),
		Title:         b.Title,
		Description:   b.Description,
		Recurrence:    RecurrenceRecord{Type: int(b.Recurrence.Kind)},
		Attendees:     make([]uint64, 0, len(b.Attendees)),
		Resources:     make([]string, 0, len(b.Resources)),
		OwnerPriority: b.OwnerPriority,
	}
	if b.Recurrence.Until != nil {
		until := b.Recurrence.Until.Unix()
		rec.Recurrence.Until = &until
	}
	for _, a := range b.Attendees {
		rec.Attendees = append(rec.Attendees, uint64(a))
	}
	for _, r := range b.Resources {
		rec.Resources = append(rec.Resources, string(r))
	}
	return rec
}

// FromRecord converts a persisted record back into a booking. Times are returned in UTC.
func FromRecord(rec BookingRecord) scheduler.Booking {
	b := scheduler.Booking{
		ID:            scheduler.BookingID(rec.ID),
		RoomID:        scheduler.RoomID(rec.RoomID),
		OwnerID:       scheduler.UserID(rec.UserID),
		Start:         time.Unix(rec.Start, 0).UTC(),
		End:           time.Unix(rec.End, 0).UTC(),
		Title:         rec.Title,
		Description:   rec.Description,
		Recurrence:    scheduler.Recurrence{Kind: scheduler.RecurrenceKind(rec.Recurrence.Type)},
		OwnerPriority: rec.OwnerPriority,
	}
	if rec.Recurrence.Until != nil {
		until := time.Unix(*rec.Recurrence.Until, 0).UTC()
		b.Recurrence.Until = &until
	}
	if len(rec.Attendees) > 0 {
		b.Attendees = make([]scheduler.UserID, 0, len(rec.Attendees))
		for _, a := range rec.Attendees {
			b.Attendees = append(b.Attendees, scheduler.UserID(a))
		}
	}
	if len(rec.Resources) > 0 {
		b.Resources = make([]scheduler.ResourceID, 0, len(rec.Resources))
		for _, r := range rec.Resources {
			b.Resources = append(b.Resources, scheduler.ResourceID(r))
		}
	}
	return b
}
