package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one booking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseBookingID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		eng, err := newEngine(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer eng.Close()

		booking, found, err := eng.manager.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("booking %d not found", id)
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), viewOf(booking))
		}
		printBooking(cmd.OutOrStdout(), booking)
		return nil
	},
}
