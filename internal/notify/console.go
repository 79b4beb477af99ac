package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/capitalize-ai/conversational-client/internal/model"
)

// Console renders outcomes as coloured one-line banners.
type Console struct {
	out   io.Writer
	quiet bool // suppress success banners

	ok   *color.Color
	fail *color.Color
	dim  *color.Color
}

// NewConsole writes banners to out. With quiet set only failures are shown.
func NewConsole(out io.Writer, quiet bool) *Console {
	return &Console{
		out:   out,
		quiet: quiet,
		ok:    color.New(color.FgGreen, color.Bold),
		fail:  color.New(color.FgRed, color.Bold),
		dim:   color.New(color.Faint),
	}
}

func (c *Console) Notify(_ context.Context, outcome model.Outcome) {
	if outcome.Success {
		if c.quiet {
			return
		}
		fmt.Fprintf(c.out, "%s %s\n", c.ok.Sprint("✓ "+outcome.Title), outcome.Message)
		return
	}
	fmt.Fprintf(c.out, "%s %s %s\n",
		c.fail.Sprint("✗ "+outcome.Title),
		outcome.Message,
		c.dim.Sprintf("(%s)", outcome.Operation),
	)
}
