package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/example/reservation-engine/internal/scheduler"
)

var (
	// fatih/color disables these when the output is not a TTY.
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)
	dimColor     = color.New(color.FgHiBlack)
)

// timeLayout is used for every timestamp the CLI prints.
const timeLayout = "2006-01-02 15:04"

// PrintSuccess prints a success message with a checkmark
func PrintSuccess(w io.Writer, msg string) {
	_, _ = successColor.Fprintf(w, "✓ %s\n", msg)
}

// PrintWarning prints a warning message with a warning symbol
func PrintWarning(w io.Writer, msg string) {
	_, _ = warningColor.Fprintf(w, "⚠ %s\n", msg)
}

// PrintError prints an error message
func PrintError(w io.Writer, msg string) {
	_, _ = errorColor.Fprintf(w, "✗ %s\n", msg)
}

// PrintInfo prints an informational message
func PrintInfo(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, msg)
}

// PrintLabelValue prints a label-value pair with proper formatting
func PrintLabelValue(w io.Writer, label, value string) {
	_, _ = labelColor.Fprintf(w, "  %s: ", label)
	_, _ = valueColor.Fprintln(w, value)
}

// PrintEmptyState prints a message when there's no data to show
func PrintEmptyState(w io.Writer, msg string) {
	_, _ = dimColor.Fprintf(w, "  %s\n", msg)
}

// PrintTable prints a simple aligned table
func PrintTable(w io.Writer, headers []string, rows [][]string) {
	if len(headers) == 0 || len(rows) == 0 {
		return
	}

	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	_, _ = headerColor.Fprint(w, "  ")
	for i, header := range headers {
		if i > 0 {
			fmt.Fprint(w, "  ")
		}
		_, _ = headerColor.Fprintf(w, "%-*s", colWidths[i], header)
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "  ")
	for i, width := range colWidths {
		if i > 0 {
			fmt.Fprint(w, "  ")
		}
		fmt.Fprint(w, strings.Repeat("-", width))
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		fmt.Fprint(w, "  ")
		for i, cell := range row {
			if i >= len(colWidths) {
				break
			}
			if i > 0 {
				fmt.Fprint(w, "  ")
			}
			_, _ = valueColor.Fprintf(w, "%-*s", colWidths[i], cell)
		}
		fmt.Fprintln(w)
	}
}

// PrintCount prints a count with proper formatting
func PrintCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// bookingView is the JSON shape of a booking.
type bookingView struct {
	ID          uint64     `json:"id"`
	RoomID      uint64     `json:"room_id"`
	OwnerID     uint64     `json:"owner_id"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Recurrence  string     `json:"recurrence"`
	Until       *time.Time `json:"until,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Attendees   []uint64   `json:"attendees,omitempty"`
	Resources   []string   `json:"resources,omitempty"`
	Priority    int        `json:"owner_priority"`
}

func viewOf(b scheduler.Booking) bookingView {
	v := bookingView{
		ID:          uint64(b.ID),
		RoomID:      uint64(b.RoomID),
		OwnerID:     uint64(b.OwnerID),
		Start:       b.Start,
		End:         b.End,
		Recurrence:  b.Recurrence.Kind.String(),
		Until:       b.Recurrence.Until,
		Title:       b.Title,
		Description: b.Description,
		Priority:    b.OwnerPriority,
	}
	for _, a := range b.Attendees {
		v.Attendees = append(v.Attendees, uint64(a))
	}
	for _, r := range b.Resources {
		v.Resources = append(v.Resources, string(r))
	}
	return v
}

func viewsOf(bookings []scheduler.Booking) []bookingView {
	out := make([]bookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, viewOf(b))
	}
	return out
}

// bookingLine renders b the way the interactive shell lists it.
func bookingLine(b scheduler.Booking) string {
	return fmt.Sprintf("id=%d title=%q start=%d end=%d owner=%d", b.ID, b.Title, b.Start.Unix(), b.End.Unix(), b.OwnerID)
}

func bookingRows(bookings []scheduler.Booking) [][]string {
	rows := make([][]string, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, []string{
			fmt.Sprint(b.ID),
			fmt.Sprint(b.RoomID),
			b.Start.Local().Format(timeLayout),
			b.End.Local().Format(timeLayout),
			fmt.Sprint(b.OwnerID),
			b.Title,
		})
	}
	return rows
}

var bookingHeaders = []string{"ID", "ROOM", "START", "END", "OWNER", "TITLE"}

// printBooking prints one booking as label-value pairs.
func printBooking(w io.Writer, b scheduler.Booking) {
	PrintLabelValue(w, "ID", fmt.Sprint(b.ID))
	PrintLabelValue(w, "Room", fmt.Sprint(b.RoomID))
	PrintLabelValue(w, "Owner", fmt.Sprint(b.OwnerID))
	PrintLabelValue(w, "Start", b.Start.Local().Format(timeLayout))
	PrintLabelValue(w, "End", b.End.Local().Format(timeLayout))
	if b.Recurrence.Kind != scheduler.RecurrenceNone {
		rec := b.Recurrence.Kind.String()
		if b.Recurrence.Until != nil {
			rec += " until " + b.Recurrence.Until.Local().Format(timeLayout)
		}
		PrintLabelValue(w, "Recurrence", rec)
	}
	PrintLabelValue(w, "Title", b.Title)
	if b.Description != "" {
		PrintLabelValue(w, "Description", b.Description)
	}
	if len(b.Attendees) > 0 {
		PrintLabelValue(w, "Attendees", fmt.Sprint(b.Attendees))
	}
	if len(b.Resources) > 0 {
		PrintLabelValue(w, "Resources", fmt.Sprint(b.Resources))
	}
	PrintLabelValue(w, "Priority", fmt.Sprint(b.OwnerPriority))
}
