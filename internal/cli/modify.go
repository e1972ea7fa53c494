package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/reservation-engine/internal/scheduler"
)

var (
	modifyTitle       string
	modifyDescription string
	modifyStart       string
	modifyEnd         string
)

var modifyCmd = &cobra.Command{
	Use:   "modify <id>",
	Short: "Change a booking's title, description or interval",
	Long: `Apply a partial update to a booking. Only the flags given are changed.

Moving the interval re-runs conflict resolution against related bookings. A move that
would evict other bookings is refused.`,
	Example: `  roombook modify 3 --title "planning (moved)" --start "2024-06-03 15:00" --end "2024-06-03 16:00"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseBookingID(args[0])
		if err != nil {
			return err
		}
		actor, err := currentActor()
		if err != nil {
			return err
		}
		change, err := modifyChange(cmd, id)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		eng, err := newEngine(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer eng.Close()

		adm, err := eng.manager.ModifyBooking(ctx, change, actor)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), admissionViewOf(adm))
		}
		if !adm.Admitted {
			return fmt.Errorf("modify failed: %s", adm.Reason)
		}
		printAdmission(cmd.OutOrStdout(), "Modified booking id=%d", adm)
		return nil
	},
}

func init() {
	flags := modifyCmd.Flags()
	flags.StringVar(&modifyTitle, "title", "", "New title")
	flags.StringVar(&modifyDescription, "description", "", "New description")
	flags.StringVar(&modifyStart, "start", "", "New start time")
	flags.StringVar(&modifyEnd, "end", "", "New end time")
}

func modifyChange(cmd *cobra.Command, id scheduler.BookingID) (scheduler.Change, error) {
	change := scheduler.Change{ID: id}
	flags := cmd.Flags()
	if flags.Changed("title") {
		change.Title = &modifyTitle
	}
	if flags.Changed("description") {
		change.Description = &modifyDescription
	}
	if flags.Changed("start") {
		start, err := parseTime(modifyStart)
		if err != nil {
			return change, err
		}
		change.Start = &start
	}
	if flags.Changed("end") {
		end, err := parseTime(modifyEnd)
		if err != nil {
			return change, err
		}
		change.End = &end
	}
	if change.Title == nil && change.Description == nil && change.Start == nil && change.End == nil {
		return change, errors.New("nothing to modify: pass at least one of --title, --description, --start, --end")
	}
	return change, nil
}

// timePtr returns a pointer to t.
func timePtr(t time.Time) *time.Time {
	return &t
}
