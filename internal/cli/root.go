package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath    string
	jsonOutput    bool
	actorID       uint64
	actorName     string
	actorRole     string
	actorPriority int

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for roombook.
var rootCmd = &cobra.Command{
	Use:     "roombook",
	Version: "dev",
	Short:   "Conflict-aware room reservation engine",
	Long: `roombook admits, lists and cancels room reservations.

Every request runs through recurrence expansion, conflict detection across rooms and
shared resources, and the configured resolution strategy (reject, autoshift, preempt
or quorum) before it is committed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// customHelpFunc colors group titles.
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")

		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-9s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	hasUngrouped := false
	for _, c := range cmd.Commands() {
		if c.GroupID == "" && !c.Hidden {
			if !hasUngrouped {
				help.WriteString(sectionTitleColor.Sprint("Additional Commands:"))
				help.WriteString("\n")
				hasUngrouped = true
			}
			fmt.Fprintf(&help, "  %-9s %s\n", c.Name(), c.Short)
		}
	}
	if hasUngrouped {
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.Uint64Var(&actorID, "as", 0, "Identifier of the acting user")
	flags.StringVar(&actorName, "name", "guest", "Display name of the acting user")
	flags.StringVar(&actorRole, "role", "user", "Role of the acting user (admin, manager, user)")
	flags.IntVar(&actorPriority, "priority", 0, "Preemption priority of the acting user (default: derived from role)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "bookings",
		Title: "Bookings:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "calendar",
		Title: "Calendar:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "session",
		Title: "Session:",
	})

	helpCmd := &cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		Run: func(cmd *cobra.Command, args []string) {
			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				target = cmd.Root()
			}
			_ = target.Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	// Bookings
	createCmd.GroupID = "bookings"
	listCmd.GroupID = "bookings"
	getCmd.GroupID = "bookings"
	modifyCmd.GroupID = "bookings"
	cancelCmd.GroupID = "bookings"
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(modifyCmd)
	rootCmd.AddCommand(cancelCmd)

	// Calendar
	importCmd.GroupID = "calendar"
	rootCmd.AddCommand(importCmd)

	// Session
	shellCmd.GroupID = "session"
	rootCmd.AddCommand(shellCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
