package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/reservation-engine/internal/scheduler"
)

// defaultListWindow is the span on each side of now listed when no window is given.
const defaultListWindow = 24 * time.Hour

var (
	listRoom uint64
	listFrom string
	listTo   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookings in a room",
	Long: `List the booking instances of a room that overlap a time window, ordered by start.

Recurring bookings are expanded; every instance carries its template's id. The window
defaults to one day either side of now.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := listWindow(now())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		eng, err := newEngine(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer eng.Close()

		bookings, err := eng.manager.ListBookings(ctx, scheduler.RoomID(listRoom), from, to)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(out, viewsOf(bookings))
		}
		if len(bookings) == 0 {
			PrintEmptyState(out, fmt.Sprintf("No bookings in room %d", listRoom))
			return nil
		}
		PrintInfo(out, fmt.Sprintf("Room %d: %s", listRoom, PrintCount(len(bookings), "booking", "bookings")))
		PrintTable(out, bookingHeaders, bookingRows(bookings))
		return nil
	},
}

func init() {
	listCmd.Flags().Uint64Var(&listRoom, "room", 1, "Room to list")
	listCmd.Flags().StringVar(&listFrom, "from", "", "Window start (default: 24h before now)")
	listCmd.Flags().StringVar(&listTo, "to", "", "Window end (default: 24h after now)")
}

func listWindow(current time.Time) (time.Time, time.Time, error) {
	from := current.Add(-defaultListWindow)
	to := current.Add(defaultListWindow)
	var err error
	if listFrom != "" {
		if from, err = parseTime(listFrom); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if listTo != "" {
		if to, err = parseTime(listTo); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}
