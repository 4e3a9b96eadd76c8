package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// errDismissed is returned by Prompt when input ends before an answer.
var errDismissed = errors.New("prompt dismissed")

// terminal answers session confirmations and prompts on a line-based
// terminal.
type terminal struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
	// answers are handed to Prompt before the terminal is read.
	answers []string
}

func newTerminal(in io.Reader, out io.Writer, assumeYes bool) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

func (t *terminal) queue(answer string) { t.answers = append(t.answers, answer) }

func (t *terminal) clearQueue() { t.answers = nil }

func (t *terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks a y/N question.
func (t *terminal) Confirm(_ context.Context, title, question string) (bool, error) {
	if t.assumeYes {
		return true, nil
	}
	fmt.Fprintf(t.out, "%s: %s [y/N] ", title, question)
	line, err := t.readLine()
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(t.out)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Prompt reads one line. Queued answers are used first; once the queue is
// drained, end of input dismisses the prompt.
func (t *terminal) Prompt(_ context.Context, title, label string) (string, error) {
	if len(t.answers) > 0 {
		a := t.answers[0]
		t.answers = t.answers[1:]
		return a, nil
	}
	fmt.Fprintf(t.out, "%s: %s: ", title, label)
	line, err := t.readLine()
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(t.out)
		return "", errDismissed
	}
	return line, err
}

// idleTimer prints a notice after a period without activity. A zero
// duration disables it.
type idleTimer struct {
	d   time.Duration
	out io.Writer

	mu sync.Mutex
	t  *time.Timer
}

func newIdleTimer(d time.Duration, out io.Writer) *idleTimer {
	return &idleTimer{d: d, out: out}
}

func (it *idleTimer) Start() { it.Reset() }

// Reset restarts the countdown.
func (it *idleTimer) Reset() {
	if it.d <= 0 {
		return
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.t != nil {
		it.t.Stop()
	}
	it.t = time.AfterFunc(it.d, func() {
		fmt.Fprintf(it.out, "\nNo activity for %s. Unsaved changes are kept until you save or quit.\n", it.d)
	})
}

// Stop cancels a pending notice.
func (it *idleTimer) Stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.t != nil {
		it.t.Stop()
		it.t = nil
	}
}
