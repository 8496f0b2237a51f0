package navigator

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/api"
)

// Visit records one GoTo call. Seq lets the command loop tell a fresh
// navigation from the one it already handled.
type Visit struct {
	Dest    Destination
	Payload any
	Seq     int
}

// Terminal renders destinations as terminal screens and remembers the last
// visit so the interactive loop can react to it.
type Terminal struct {
	logger *zap.Logger

	// Out receives all rendering. Defaults to stdout.
	Out io.Writer
	// RefineResults, when set, post-processes a result set before it is
	// rendered. The run command wires the filtering pipeline here.
	RefineResults func(*api.ResultSet) *api.ResultSet

	mu   sync.Mutex
	seq  int
	last *Visit
}

func NewTerminal(logger *zap.Logger) *Terminal {
	return &Terminal{
		logger: logger,
		Out:    os.Stdout,
	}
}

func (t *Terminal) GoTo(dest Destination, payload any) {
	t.mu.Lock()
	t.seq++
	t.last = &Visit{Dest: dest, Payload: payload, Seq: t.seq}
	t.mu.Unlock()

	t.logger.Debug("navigating", zap.String("destination", string(dest)))

	switch dest {
	case DestVerify:
		t.renderVerify(payload)
	case DestResults:
		t.renderResults(payload)
	case DestSurvey:
		t.renderSurvey()
	case DestError:
		t.renderError(payload)
	default:
		t.logger.Warn("unknown destination", zap.String("destination", string(dest)))
	}
}

// ShowPreview renders a cached preview outside a navigation, e.g. on the
// verify screen. No visit is recorded.
func (t *Terminal) ShowPreview(set *api.ResultSet) {
	t.renderResults(set)
}

// Last returns the most recent visit, false when nothing was visited yet.
func (t *Terminal) Last() (Visit, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Visit{}, false
	}
	return *t.last, true
}

func (t *Terminal) renderVerify(payload any) {
	if set, ok := payload.(*api.ResultSet); ok && set.Len() > 0 {
		t.renderResults(set)
	}
	color.New(color.FgYellow).Fprintln(t.Out, "\nVerify your email to save your profile and unlock the full list.")
}

func (t *Terminal) renderSurvey() {
	color.New(color.FgCyan).Fprintln(t.Out, "\nLet's set up your taste profile.")
}

func (t *Terminal) renderResults(payload any) {
	set, ok := payload.(*api.ResultSet)
	if !ok || set == nil {
		t.logger.Warn("results destination without a result set")
		return
	}
	if t.RefineResults != nil {
		set = t.RefineResults(set)
	}

	header := color.New(color.FgCyan, color.Bold)
	if set.Source == api.SourcePreview {
		header.Fprintln(t.Out, "\nPreview picks (sign in for your full list)")
	} else {
		header.Fprintln(t.Out, "\nYour recommendations")
	}

	if set.Len() == 0 {
		fmt.Fprintln(t.Out, "Nothing to recommend yet. Rate a few more books.")
		return
	}

	title := color.New(color.FgGreen)
	reason := color.New(color.Faint)
	for i, rec := range set.Items {
		title.Fprintf(t.Out, "%2d. %s", i+1, rec.Book.Title)
		if len(rec.Book.Authors) > 0 {
			fmt.Fprintf(t.Out, " by %s", strings.Join(rec.Book.Authors, ", "))
		}
		if rec.Book.Year != 0 {
			fmt.Fprintf(t.Out, " (%d)", rec.Book.Year)
		}
		fmt.Fprintf(t.Out, "  score %.2f\n", rec.Score)
		if rec.Reason != "" {
			reason.Fprintf(t.Out, "    %s\n", rec.Reason)
		}
	}
}

func (t *Terminal) renderError(payload any) {
	cause := "something went wrong"
	var err error
	if ep, ok := payload.(ErrorPayload); ok {
		if ep.Cause != "" {
			cause = ep.Cause
		}
		err = ep.Err
	}

	color.New(color.FgRed, color.Bold).Fprintf(t.Out, "\n%s\n", cause)
	if err != nil {
		fmt.Fprintf(t.Out, "  %v\n", err)
	}
	fmt.Fprintln(t.Out, "Pick Retry to try again, or quit and come back later.")
}
