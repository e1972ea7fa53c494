package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/reservation-engine/internal/calendar"
	"github.com/example/reservation-engine/internal/config"
	"github.com/example/reservation-engine/internal/scheduler"
)

var (
	importFrom     string
	importTo       string
	importFormat   string
	importWatch    bool
	importSchedule string
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import bookings from a JSON or ICS calendar",
	Long: `Submit every event of a calendar file through the admission pipeline.

JSON calendars are arrays of {room_id, user_id, start, end, title, description} with
epoch-second timestamps; comments and trailing commas are allowed. ICS calendars are
read for VEVENT blocks. Importing requires the manager or admin role.

With --watch the import runs on a cron schedule (--schedule or import.schedule) until
interrupted, each run covering import.window from the time it fires.`,
	Example: `  roombook import events.json --role admin --from 2024-06-03 --to 2024-06-10
  roombook import team.ics --watch --schedule "0 */15 * * * *"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, err := newEngine(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer eng.Close()

		path := eng.cfg.Import.Source
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return errors.New("no calendar given: pass a file or set import.source")
		}
		source, err := calendarSource(path, importFormat, eng.cfg.Import)
		if err != nil {
			return err
		}

		if importWatch {
			return watchCalendar(cmd, eng, path, source)
		}

		actor, err := currentActor()
		if err != nil {
			return err
		}
		current := now()
		from, to := current, current.Add(eng.cfg.Import.Window)
		if importFrom != "" {
			if from, err = parseTime(importFrom); err != nil {
				return err
			}
		}
		if importTo != "" {
			if to, err = parseTime(importTo); err != nil {
				return err
			}
		}

		ids, err := eng.manager.ImportFromCalendar(ctx, source, from, to, actor)
		if err != nil {
			return err
		}
		if jsonOutput {
			out := make([]uint64, 0, len(ids))
			for _, id := range ids {
				out = append(out, uint64(id))
			}
			return outputJSON(cmd.OutOrStdout(), map[string]any{"imported": out})
		}
		if len(ids) == 0 {
			PrintWarning(cmd.OutOrStdout(), "No events were admitted")
			return nil
		}
		PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Imported %s: %v", PrintCount(len(ids), "booking", "bookings"), ids))
		return nil
	},
}

func init() {
	flags := importCmd.Flags()
	flags.StringVar(&importFrom, "from", "", "Window start (default: now)")
	flags.StringVar(&importTo, "to", "", "Window end (default: now + import.window)")
	flags.StringVar(&importFormat, "format", "", "Calendar format: json or ics (default: from the file extension)")
	flags.BoolVar(&importWatch, "watch", false, "Keep running and import on a schedule")
	flags.StringVar(&importSchedule, "schedule", "", "Cron spec with seconds for --watch (default: import.schedule)")
}

// calendarSource picks the adapter by explicit format or file extension.
func calendarSource(path, format string, cfg config.ImportConfig) (calendar.Source, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch strings.ToLower(format) {
	case "json", "jsonc":
		return calendar.NewJSONSource(path), nil
	case "ics", "ical":
		return &calendar.ICSSource{
			Path:        path,
			DefaultRoom: scheduler.RoomID(cfg.DefaultRoom),
			DefaultUser: scheduler.UserID(cfg.ActorID),
		}, nil
	}
	return nil, fmt.Errorf("unknown calendar format %q (want json or ics)", format)
}

// watchCalendar blocks, importing on schedule, until the process is interrupted.
func watchCalendar(cmd *cobra.Command, eng *engine, path string, source calendar.Source) error {
	spec := importSchedule
	if spec == "" {
		spec = eng.cfg.Import.Schedule
	}
	if spec == "" {
		return errors.New("--watch needs --schedule or import.schedule")
	}

	// Scheduled runs act as the configured import account unless --as is given.
	actor := newActor(scheduler.UserID(eng.cfg.Import.ActorID), "calendar-import", scheduler.RoleManager, 0)
	if cmd.Flags().Changed("as") {
		var err error
		if actor, err = currentActor(); err != nil {
			return err
		}
	}

	sched := calendar.NewScheduler(eng.manager, eng.logger)
	if err := sched.Schedule(calendar.Job{
		Name:   "calendar",
		Spec:   spec,
		Source: source,
		Window: eng.cfg.Import.Window,
		Actor:  actor,
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start()
	defer sched.Stop()

	msg := fmt.Sprintf("Watching %s on %q", path, spec)
	if next, ok := sched.NextRun("calendar"); ok {
		msg += ", next import at " + next.Local().Format(time.RFC3339)
	}
	PrintInfo(cmd.OutOrStdout(), msg)

	<-ctx.Done()
	PrintInfo(cmd.OutOrStdout(), "Stopped")
	return nil
}
