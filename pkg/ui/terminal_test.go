package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, colour bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(!colour)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetNoColor(false)
		SetQuiet(false)
	})
	return &buf
}

func TestPlainOutput(t *testing.T) {
	buf := capture(t, false)

	PrintError("Login failed", "bad password")
	PrintError("No stored accounts found", "")
	PrintInfo("Account", "alice")
	PrintSuccess("done")

	assert.Equal(t, "Login failed: bad password\nNo stored accounts found\nAccount: alice\ndone\n", buf.String())
}

func TestColouredOutput(t *testing.T) {
	buf := capture(t, true)

	PrintWarning("careful")
	assert.Equal(t, "\033[33mcareful\033[0m\n", buf.String())
}

func TestPrintf(t *testing.T) {
	buf := capture(t, false)

	Printf("%d posts\n", 3)
	Println("ok")
	assert.Equal(t, "3 posts\nok\n", buf.String())
}

func TestQuietKeepsErrorsAndWarnings(t *testing.T) {
	buf := capture(t, false)
	SetQuiet(true)

	PrintBanner()
	PrintInfo("Account", "alice")
	PrintSuccess("done")
	PrintHighlight("[RUNNING]")
	Println("hint")
	Printf("%d posts\n", 3)
	PrintWarning("careful")
	PrintError("Login failed", "bad password")
	Prompt("Password: ")

	assert.Equal(t, "careful\nLogin failed: bad password\nPassword: ", buf.String())
}
