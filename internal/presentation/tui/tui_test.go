package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Ascii(t *testing.T) {
	render := NewRenderer(termenv.Ascii)

	out, err := render(domain.FragmentEvent{
		Task:     "product",
		Fragment: domain.Fragment{ID: "f1", Body: "hello", Payload: map[string]any{"price": 10}},
		Status:   domain.EventFailure,
		Duration: 3 * time.Millisecond,
		Log: []domain.TraceEntry{
			{Alias: "title", Status: domain.NodeStatusSuccess, Transition: "_success", Duration: time.Millisecond},
			{Alias: "fetch", Status: domain.NodeStatusError, Transition: "_error", Error: "connection refused"},
			{Alias: "slow", Status: domain.NodeStatusTimeout, Transition: "_error"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "failure f1 product 3ms", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  ✓ title"))
	assert.True(t, strings.HasPrefix(lines[2], "  ✗ fetch"))
	assert.Equal(t, "      connection refused", lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "  ⏱ slow"))
	assert.Equal(t, "  body: hello", lines[5])
	assert.Equal(t, `  payload: {"price":10}`, lines[6])
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderer_Unprocessed(t *testing.T) {
	out, err := NewRenderer(termenv.Ascii)(domain.FragmentEvent{Fragment: domain.Fragment{ID: "x"}, Status: domain.EventUnprocessed})
	require.NoError(t, err)
	assert.Equal(t, "unprocessed x - 0s", out)
}

func TestRenderer_Colors(t *testing.T) {
	out, err := NewRenderer(termenv.ANSI)(domain.FragmentEvent{Fragment: domain.Fragment{ID: "x"}, Status: domain.EventSuccess})
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, termenv.Ascii)
	assert.Equal(t, len(bannerLines)+2, strings.Count(buf.String(), "\n"))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean", "hello\tworld\n", "hello\tworld\n"},
		{"ansi escape", "\x1b[31mred\x1b[0m", "[31mred[0m"},
		{"bell and nul", "a\x07b\x00c", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestRenderer_SanitizesBody(t *testing.T) {
	out, err := NewRenderer(termenv.Ascii)(domain.FragmentEvent{
		Fragment: domain.Fragment{ID: "x", Body: "\x1b]0;pwned\x07ok"},
		Status:   domain.EventSuccess,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "  body: ]0;pwnedok")
	assert.NotContains(t, out, "\x1b")
}
