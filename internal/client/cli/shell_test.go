package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShell_RunsCommandsAndSurvivesFailures(t *testing.T) {
	h := newHarness(t, &testUser)
	seedProfile(h, "u1", "Alice")

	input := strings.Join([]string{
		"whoami",
		"",
		"like missing",
		"bogus",
		"shell",
		"feed",
		"logout",
		"exit",
		"whoami",
	}, "\n") + "\n"

	code := h.run(input, "shell")
	assert.Equal(t, 0, code)

	out := h.out.String()
	assert.Contains(t, out, "voicefeed (a@x.io feed)> ")
	assert.Contains(t, out, "Alice, 30")
	assert.Contains(t, out, "error: Failed to like voice memo")
	assert.Contains(t, out, "error: unknown command")
	assert.Contains(t, out, "Already in the shell")
	assert.Contains(t, out, "No voice memos yet")
	assert.Contains(t, out, "voicefeed (signed-out)> ")
	assert.Contains(t, out, "Bye!")
	assert.Equal(t, 1, strings.Count(out, "a@x.io (u1)"))
}

func TestShell_EOF(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, 0, h.run("whoami", "shell"))
	assert.Contains(t, h.out.String(), "error: You are not signed in")
}

func TestShell_StopsOnCancelledContext(t *testing.T) {
	h := newHarness(t, &testUser)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rt := newRuntime(h.options(strings.NewReader("whoami\n")))
	rt.app = h.newApp("whoami\n")
	assert.NoError(t, runShell(ctx, rt))
	assert.NotContains(t, h.out.String(), "a@x.io (u1)")
}

func TestNewRootCmd_HasCommands(t *testing.T) {
	cmd := NewRootCmd(Options{})
	for _, name := range []string{"register", "login", "logout", "whoami", "onboard", "record", "upload", "feed", "like", "shell"} {
		found, _, err := cmd.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, found.Name())
		}
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("server"))
}
