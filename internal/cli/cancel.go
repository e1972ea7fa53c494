package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a booking",
	Long: `Remove a booking and every instance of it. Users may only cancel their own
bookings; managers and admins may cancel any.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseBookingID(args[0])
		if err != nil {
			return err
		}
		actor, err := currentActor()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		eng, err := newEngine(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer eng.Close()

		cancelled, err := eng.manager.CancelBooking(ctx, id, actor)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{"id": uint64(id), "cancelled": cancelled})
		}
		if !cancelled {
			return fmt.Errorf("booking %d not found", id)
		}
		PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Cancelled id=%d", id))
		return nil
	},
}
