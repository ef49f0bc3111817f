package console

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SubmitsTrimmedLines(t *testing.T) {
	var got []string
	opts := Options{
		Stdin:  io.NopCloser(strings.NewReader("/warp exit\n\n   \n  hello there  \n")),
		Stdout: io.Discard,
	}

	err := Run(context.Background(), opts, func(line string) { got = append(got, line) })
	require.NoError(t, err)
	assert.Equal(t, []string{"/warp exit", "hello there"}, got)
}

func TestRun_StopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Stdin: pr, Stdout: io.Discard}, func(string) {})
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("console ignored cancellation")
	}
}

func TestRun_CancelAfterInput(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	lines := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Stdin: pr, Stdout: io.Discard}, func(line string) { lines <- line })
	}()

	_, err := io.WriteString(pw, "hello\n")
	require.NoError(t, err)
	select {
	case got := <-lines:
		assert.Equal(t, "hello", got)
	case <-time.After(5 * time.Second):
		t.Fatal("line never submitted")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("console ignored cancellation")
	}
}
