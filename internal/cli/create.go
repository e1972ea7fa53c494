package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/reservation-engine/internal/application"
	"github.com/example/reservation-engine/internal/scheduler"
)

var (
	createRoom        uint64
	createOwner       uint64
	createStart       string
	createEnd         string
	createDuration    time.Duration
	createTitle       string
	createDescription string
	createRecurrence  string
	createUntil       string
	createAttendees   []uint
	createResources   []string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Request a new booking",
	Long: `Submit a booking request through the admission pipeline.

The request is expanded into instances, checked against every booking sharing its room
or one of its resources, and resolved with the configured strategy.`,
	Example: `  roombook create --room 1 --start "2024-06-03 09:00" --duration 1h --title standup
  roombook create --room 2 --start 2024-06-03T14:00:00Z --end 2024-06-03T15:30:00Z \
      --recurrence weekly --until 2024-07-01 --resource projector-1 --role manager --as 7`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, err := currentActor()
		if err != nil {
			return err
		}
		req, err := createRequest()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		eng, err := newEngine(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer eng.Close()

		adm, err := eng.manager.CreateBooking(ctx, req, actor)
		if err != nil {
			if adm.Admitted {
				printAdmission(cmd.OutOrStdout(), "Created booking with id=%d", adm)
			}
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), admissionViewOf(adm))
		}
		if !adm.Admitted {
			for _, c := range adm.Conflicts {
				PrintWarning(cmd.OutOrStdout(), fmt.Sprintf("Conflicts with %s from %s to %s",
					c, c.Start.Local().Format(timeLayout), c.End.Local().Format(timeLayout)))
			}
			return fmt.Errorf("create failed: %s", adm.Reason)
		}
		printAdmission(cmd.OutOrStdout(), "Created booking with id=%d", adm)
		return nil
	},
}

func init() {
	flags := createCmd.Flags()
	flags.Uint64Var(&createRoom, "room", 1, "Room to book")
	flags.Uint64Var(&createOwner, "owner", 0, "Owner of the booking (default: the acting user)")
	flags.StringVar(&createStart, "start", "", "Start time (RFC 3339 or \"2006-01-02 15:04\")")
	flags.StringVar(&createEnd, "end", "", "End time; overrides --duration")
	flags.DurationVar(&createDuration, "duration", time.Hour, "Length of the booking")
	flags.StringVar(&createTitle, "title", "", "Title of the booking")
	flags.StringVar(&createDescription, "description", "", "Free-form description")
	flags.StringVar(&createRecurrence, "recurrence", "none", "Repetition: none, daily or weekly")
	flags.StringVar(&createUntil, "until", "", "Exclusive bound on recurring instance starts")
	flags.UintSliceVar(&createAttendees, "attendee", nil, "Attendee user ids (repeatable)")
	flags.StringSliceVar(&createResources, "resource", nil, "Resources to hold, e.g. projector-1 (repeatable)")
	_ = createCmd.MarkFlagRequired("start")
}

func createRequest() (application.BookingRequest, error) {
	start, err := parseTime(createStart)
	if err != nil {
		return application.BookingRequest{}, err
	}
	end := start.Add(createDuration)
	if createEnd != "" {
		if end, err = parseTime(createEnd); err != nil {
			return application.BookingRequest{}, err
		}
	}
	kind, err := scheduler.ParseRecurrenceKind(createRecurrence)
	if err != nil {
		return application.BookingRequest{}, err
	}
	rec := scheduler.Recurrence{Kind: kind}
	if createUntil != "" {
		until, err := parseTime(createUntil)
		if err != nil {
			return application.BookingRequest{}, err
		}
		rec.Until = &until
	}

	req := application.BookingRequest{
		OwnerID:     scheduler.UserID(createOwner),
		RoomID:      scheduler.RoomID(createRoom),
		Start:       start,
		End:         end,
		Recurrence:  rec,
		Title:       createTitle,
		Description: createDescription,
	}
	for _, a := range createAttendees {
		req.Attendees = append(req.Attendees, scheduler.UserID(a))
	}
	for _, r := range createResources {
		req.Resources = append(req.Resources, scheduler.ResourceID(r))
	}
	return req, nil
}

type admissionView struct {
	ID             uint64     `json:"id,omitempty"`
	Admitted       bool       `json:"admitted"`
	Reason         string     `json:"reason,omitempty"`
	SuggestedStart *time.Time `json:"suggested_start,omitempty"`
	Preempted      []uint64   `json:"preempted,omitempty"`
	Conflicts      []string   `json:"conflicts,omitempty"`
}

func admissionViewOf(adm application.Admission) admissionView {
	v := admissionView{
		ID:             uint64(adm.ID),
		Admitted:       adm.Admitted,
		Reason:         adm.Reason,
		SuggestedStart: adm.SuggestedStart,
	}
	for _, id := range adm.Preempted {
		v.Preempted = append(v.Preempted, uint64(id))
	}
	for _, c := range adm.Conflicts {
		v.Conflicts = append(v.Conflicts, c.String())
	}
	return v
}

// printAdmission reports an admitted request along with any shift or eviction.
func printAdmission(w io.Writer, format string, adm application.Admission) {
	PrintSuccess(w, fmt.Sprintf(format, adm.ID))
	if adm.SuggestedStart != nil {
		PrintWarning(w, fmt.Sprintf("Moved to %s: %s", adm.SuggestedStart.Local().Format(timeLayout), adm.Reason))
	}
	if len(adm.Preempted) > 0 {
		PrintWarning(w, fmt.Sprintf("Preempted %s: %v", PrintCount(len(adm.Preempted), "booking", "bookings"), adm.Preempted))
	}
}
