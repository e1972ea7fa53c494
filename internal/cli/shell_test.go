package cli

import (
	"strconv"
	"strings"
	"testing"
)

func TestShellSession(t *testing.T) {
	useFileStorage(t)

	script := strings.Join([]string{
		"list",
		"create 1 2 standup daily sync",
		"create 1 1 clash",
		"login 1 alice Admin",
		"strategy preempt",
		"create 1 1 takeover",
		"list",
		"undo",
		"list 1",
		"undo",
		"undo",
		"redo",
		"bogus",
		"cancel 42",
		"login 1 alice",
		"exit",
		"create 1 1 never-reached",
	}, "\n")

	output, err := runCLI(t, script, "shell")
	if err != nil {
		t.Fatalf("shell error = %v", err)
	}

	for _, want := range []string{
		"Simple Booking CLI. Commands:",
		"Created booking with id=1",
		"Create failed: ",
		"Logged in as alice role=Admin",
		"Strategy: preempt",
		"Preempted ids=[1]",
		`title="takeover"`,
		"Undid: ",
		`title="standup"`,
		"Nothing to undo",
		"Redid: ",
		"Unknown command",
		"Not found id=42",
		"Usage: login <id> <name> <role:Admin|Manager|User>",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected shell output to contain %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "never-reached") {
		t.Error("expected exit to stop the session")
	}
}

func TestShellListFormat(t *testing.T) {
	useFileStorage(t)

	output, err := runCLI(t, "create 3 1 sync notes\nlist 3\n", "shell", "--as", "4")
	if err != nil {
		t.Fatalf("shell error = %v", err)
	}
	want := `id=1 title="sync" start=` + itoa(fixedNow.Unix()) + ` end=` + itoa(fixedNow.Unix()+3600) + ` owner=4`
	if !strings.Contains(output, want) {
		t.Fatalf("expected list line %q in\n%s", want, output)
	}
}

func TestShellModifyAndStrategy(t *testing.T) {
	useFileStorage(t)

	script := strings.Join([]string{
		"login 2 bob Manager",
		"create 1 1 first",
		"create 1 1 second",
		"strategy",
		"strategy quorum",
		"strategy quorum two",
		"strategy autoshift",
		"create 1 1 second",
		"modify 1 title renamed",
		"modify 1 move 5 1",
		"modify 1 resize",
		"list",
	}, "\n")

	output, err := runCLI(t, script, "shell")
	if err != nil {
		t.Fatalf("shell error = %v", err)
	}
	for _, want := range []string{
		"Strategy: reject",
		"Error: scheduler: quorum strategy requires a positive size",
		"Usage: strategy quorum <n>",
		"Strategy: autoshift",
		"Created booking with id=2",
		"Shifted start=" + itoa(fixedNow.Unix()+3600),
		"Modified id=1",
		`title="renamed" start=` + itoa(fixedNow.Unix()+5*3600),
		"Usage: modify <id>",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected shell output to contain %q\n%s", want, output)
		}
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
