// ABOUTME: Tests for markdown to terminal rendering
// ABOUTME: Runs with color disabled so output is compared as plain text

package render

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func plain(t *testing.T) *Renderer {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
	return New()
}

func TestRender_ParagraphsAndEmphasis(t *testing.T) {
	r := plain(t)

	out := r.Render("Thanks for your **question**!\nI can _help_.\n\nSecond paragraph.")
	assert.Equal(t, "Thanks for your question!\nI can help.\n\nSecond paragraph.", out)
}

func TestRender_HeadingAndList(t *testing.T) {
	r := plain(t)

	md := "**Push Day:**\n- Bench press\n- Overhead press\n\n## Legs\n\n1. Squat\n2. Deadlift"
	want := "Push Day:\n\n- Bench press\n- Overhead press\n\nLegs\n\n1. Squat\n2. Deadlift"
	assert.Equal(t, want, r.Render(md))
}

func TestRender_NestedList(t *testing.T) {
	r := plain(t)

	md := "- Pull\n  - Rows\n  - Pull-ups\n- Push"
	want := "- Pull\n  - Rows\n  - Pull-ups\n- Push"
	assert.Equal(t, want, r.Render(md))
}

func TestRender_OrderedListStart(t *testing.T) {
	r := plain(t)

	assert.Equal(t, "3. three\n4. four", r.Render("3. three\n4. four"))
}

func TestRender_CodeBlocksAndSpans(t *testing.T) {
	r := plain(t)

	md := "Run `go test`:\n\n```sh\ngo test ./...\ngo vet ./...\n```"
	want := "Run go test:\n\n    go test ./...\n    go vet ./..."
	assert.Equal(t, want, r.Render(md))
}

func TestRender_LinksAndQuotes(t *testing.T) {
	r := plain(t)

	assert.Equal(t, "docs (https://example.com)", r.Render("[docs](https://example.com)"))
	assert.Equal(t, "https://example.com", r.Render("<https://example.com>"))
	assert.Equal(t, "│ quoted\n│ text", r.Render("> quoted\n> text"))
}

func TestRender_EmptyInput(t *testing.T) {
	r := plain(t)
	assert.Equal(t, "", r.Render(""))
}

func TestRender_ColorsWhenEnabled(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	out := New().Render("**bold**")
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "bold")
}
