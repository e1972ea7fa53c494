package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/reservation-engine/internal/application"
	"github.com/example/reservation-engine/internal/scheduler"
)

const shellBanner = `Simple Booking CLI. Commands:
  login <id> <name> <role:Admin|Manager|User>  -- authenticate as user
  create <room> <hours> <title> [description]
  list [room]
  cancel <id>
  modify <id> title|description <text>
  modify <id> move <hours-from-now> <hours>
  undo
  redo
  strategy [reject|autoshift|preempt|quorum <n>]
  exit`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive booking session",
	Long: `Read booking commands from standard input, one per line.

The session keeps its own undo/redo history. It starts as the actor given by the global
flags; "login" switches actor without leaving the session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		s := &session{
			manager:   eng.manager,
			actor:     actor,
			out:       cmd.OutOrStdout(),
			maxShifts: eng.cfg.Booking.MaxShiftAttempts,
		}
		return s.run(ctx, cmd.InOrStdin())
	},
}

// session is one interactive shell.
type session struct {
	manager   *application.BookingManager
	actor     scheduler.User
	out       io.Writer
	maxShifts int
}

type shellHandler func(s *session, ctx context.Context, args []string) error

var shellCommands map[string]shellHandler

func init() {
	shellCommands = map[string]shellHandler{
		"login":    (*session).login,
		"create":   (*session).create,
		"list":     (*session).list,
		"cancel":   (*session).cancel,
		"modify":   (*session).modify,
		"undo":     (*session).undo,
		"redo":     (*session).redo,
		"strategy": (*session).strategy,
		"help": func(s *session, _ context.Context, _ []string) error {
			s.println(shellBanner)
			return nil
		},
	}
}

// errUsage carries a usage line back to the prompt.
type errUsage string

func (e errUsage) Error() string { return "Usage: " + string(e) }

func (s *session) run(ctx context.Context, in io.Reader) error {
	s.println(shellBanner)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}

		handler, ok := shellCommands[strings.ToLower(fields[0])]
		if !ok {
			s.println("Unknown command")
			continue
		}
		if err := handler(s, ctx, fields[1:]); err != nil {
			var usage errUsage
			if errors.As(err, &usage) {
				s.println(usage.Error())
				continue
			}
			s.println("Error: " + err.Error())
		}
	}
}

func (s *session) println(msg string) {
	PrintInfo(s.out, msg)
}

func (s *session) login(_ context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage("login <id> <name> <role:Admin|Manager|User>")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return errUsage("login <id> <name> <role:Admin|Manager|User>")
	}
	role, err := scheduler.ParseRole(args[2])
	if err != nil {
		return err
	}
	s.actor = newActor(scheduler.UserID(id), args[1], role, 0)
	s.println(fmt.Sprintf("Logged in as %s role=%s", s.actor.Name, args[2]))
	return nil
}

func (s *session) create(ctx context.Context, args []string) error {
	const usage = errUsage("create <room> <hours> <title> [description]")
	if len(args) < 3 {
		return usage
	}
	room, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return usage
	}
	hours, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return usage
	}

	start := now().Truncate(time.Second)
	adm, err := s.manager.CreateBooking(ctx, application.BookingRequest{
		RoomID:      scheduler.RoomID(room),
		Start:       start,
		End:         start.Add(time.Duration(hours * float64(time.Hour))),
		Title:       args[2],
		Description: strings.Join(args[3:], " "),
	}, s.actor)
	if errors.Is(err, application.ErrAccessDenied) {
		s.println("Create failed (access denied)")
		return nil
	}
	if err != nil {
		return err
	}
	if !adm.Admitted {
		s.println("Create failed: " + adm.Reason)
		return nil
	}
	s.println(fmt.Sprintf("Created booking with id=%d", adm.ID))
	s.reportAdmission(adm)
	return nil
}

func (s *session) reportAdmission(adm application.Admission) {
	if adm.SuggestedStart != nil {
		s.println(fmt.Sprintf("Shifted start=%d (%s)", adm.SuggestedStart.Unix(), adm.Reason))
	}
	if len(adm.Preempted) > 0 {
		s.println(fmt.Sprintf("Preempted ids=%v", adm.Preempted))
	}
}

func (s *session) list(ctx context.Context, args []string) error {
	room := uint64(1)
	if len(args) > 0 {
		parsed, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return errUsage("list [room]")
		}
		room = parsed
	}
	current := now()
	bookings, err := s.manager.ListBookings(ctx, scheduler.RoomID(room), current.Add(-defaultListWindow), current.Add(defaultListWindow))
	if err != nil {
		return err
	}
	for _, b := range bookings {
		s.println(bookingLine(b))
	}
	return nil
}

func (s *session) cancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("cancel <id>")
	}
	id, err := parseBookingID(args[0])
	if err != nil {
		return errUsage("cancel <id>")
	}
	ok, err := s.manager.CancelBooking(ctx, id, s.actor)
	if err != nil {
		return err
	}
	if ok {
		s.println(fmt.Sprintf("Cancelled id=%d", id))
	} else {
		s.println(fmt.Sprintf("Not found id=%d", id))
	}
	return nil
}

func (s *session) modify(ctx context.Context, args []string) error {
	const usage = errUsage("modify <id> title|description <text> | modify <id> move <hours-from-now> <hours>")
	if len(args) < 3 {
		return usage
	}
	id, err := parseBookingID(args[0])
	if err != nil {
		return usage
	}

	change := scheduler.Change{ID: id}
	switch args[1] {
	case "title":
		title := strings.Join(args[2:], " ")
		change.Title = &title
	case "description":
		desc := strings.Join(args[2:], " ")
		change.Description = &desc
	case "move":
		if len(args) != 4 {
			return usage
		}
		offset, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return usage
		}
		hours, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return usage
		}
		start := now().Truncate(time.Second).Add(time.Duration(offset * float64(time.Hour)))
		change.Start = timePtr(start)
		change.End = timePtr(start.Add(time.Duration(hours * float64(time.Hour))))
	default:
		return usage
	}

	adm, err := s.manager.ModifyBooking(ctx, change, s.actor)
	if err != nil {
		return err
	}
	if !adm.Admitted {
		s.println("Modify failed: " + adm.Reason)
		return nil
	}
	s.println(fmt.Sprintf("Modified id=%d", id))
	s.reportAdmission(adm)
	return nil
}

func (s *session) undo(ctx context.Context, _ []string) error {
	desc, err := s.manager.Undo(ctx)
	if errors.Is(err, application.ErrNothingToUndo) {
		s.println("Nothing to undo")
		return nil
	}
	if err != nil {
		return err
	}
	s.println(desc)
	return nil
}

func (s *session) redo(ctx context.Context, _ []string) error {
	desc, err := s.manager.Redo(ctx)
	if errors.Is(err, application.ErrNothingToRedo) {
		s.println("Nothing to redo")
		return nil
	}
	if err != nil {
		return err
	}
	s.println(desc)
	return nil
}

func (s *session) strategy(_ context.Context, args []string) error {
	if len(args) == 0 {
		s.println("Strategy: " + s.manager.Strategy().Name())
		return nil
	}
	opts := scheduler.StrategyOptions{MaxShiftPasses: s.maxShifts}
	if len(args) > 1 {
		quorum, err := strconv.Atoi(args[1])
		if err != nil {
			return errUsage("strategy quorum <n>")
		}
		opts.Quorum = quorum
	}
	strategy, err := scheduler.NewStrategy(args[0], opts)
	if err != nil {
		return err
	}
	s.manager.SetStrategy(strategy)
	s.println("Strategy: " + strategy.Name())
	return nil
}
