// Package selector resolves which release version a run should propagate,
// either by prompting an operator or from a version fixed up front.
package selector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vectorchord-updater/pkg/releases"
)

var (
	// ErrCancelled is returned when the operator interrupts the prompt.
	ErrCancelled = errors.New("operation cancelled")
	// ErrNoSelection is returned when there is nothing to choose from.
	ErrNoSelection = errors.New("no version to select")
	// ErrNotAvailable is returned when a requested version is not a candidate.
	ErrNotAvailable = errors.New("version not available")
)

type Selector interface {
	Select(ctx context.Context, candidates []string) (string, error)
}

// Prompter asks the operator for a 1-based index until the answer is valid.
type Prompter struct {
	in    io.Reader
	out   io.Writer
	label string
}

func NewPrompter(in io.Reader, out io.Writer, label string) *Prompter {
	return &Prompter{in: in, out: out, label: label}
}

func (p *Prompter) Select(ctx context.Context, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoSelection
	}

	fmt.Fprintf(p.out, "\nAvailable %s versions:\n", p.label)
	for i, v := range candidates {
		fmt.Fprintf(p.out, "%2d. %s\n", i+1, v)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, p.in)
	for {
		fmt.Fprintf(p.out, "\nSelect version (1-%d): ", len(candidates))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out, "\nOperation cancelled")
			return "", ErrCancelled
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(p.out, "\nOperation cancelled")
				return "", ErrCancelled
			}
			line = l
		}

		idx, err := parseChoice(line, len(candidates))
		switch {
		case errors.Is(err, errEmpty):
			continue
		case errors.Is(err, errNotNumber):
			fmt.Fprintln(p.out, "Please enter a valid number")
			continue
		case errors.Is(err, errOutOfRange):
			fmt.Fprintf(p.out, "Please enter a number between 1 and %d\n", len(candidates))
			continue
		}
		return candidates[idx], nil
	}
}

var (
	errEmpty      = errors.New("empty input")
	errNotNumber  = errors.New("not a number")
	errOutOfRange = errors.New("out of range")
)

// parseChoice maps a 1-based answer to a 0-based index into n candidates.
func parseChoice(line string, n int) (int, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, errEmpty
	}
	choice, err := strconv.Atoi(line)
	if errors.Is(err, strconv.ErrRange) {
		return 0, errOutOfRange
	}
	if err != nil {
		return 0, errNotNumber
	}
	if choice < 1 || choice > n {
		return 0, errOutOfRange
	}
	return choice - 1, nil
}

// readLines feeds input lines to a channel so a blocked read can be abandoned
// when the context is cancelled. The channel closes at end of input.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Fixed picks a version without prompting: either a named version or the
// newest candidate.
type Fixed struct {
	Version string
	Latest  bool
}

func (f Fixed) Select(_ context.Context, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoSelection
	}
	if f.Latest {
		return candidates[0], nil
	}
	want := releases.StripMarker(strings.TrimSpace(f.Version))
	for _, c := range candidates {
		if c == want {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s is not among the %d published releases", ErrNotAvailable, want, len(candidates))
}
