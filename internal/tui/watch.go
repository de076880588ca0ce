package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/krotov/internal/krotov"
)

type iterationMsg krotov.IterationRecord

type doneMsg struct {
	res *krotov.Result
	err error
}

// Feed forwards iteration records to a running watch view.
type Feed struct {
	Send func(tea.Msg)
}

func (f Feed) OnIteration(rec krotov.IterationRecord) *krotov.Stop {
	f.Send(iterationMsg(rec))
	return nil
}

type Watch struct {
	title      string
	maxIter    int
	values     []float64
	last       krotov.IterationRecord
	seen       bool
	showPulses bool
	start      time.Time
	cancel     context.CancelFunc

	res *krotov.Result
	err error

	width int
}

// NewWatch builds the view. cancel is called when the user quits before the
// run has ended.
func NewWatch(title string, maxIter int, cancel context.CancelFunc) Watch {
	return Watch{title: title, maxIter: maxIter, cancel: cancel, start: time.Now(), width: 80}
}

func (m Watch) Init() tea.Cmd { return nil }

func (m Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.res == nil && m.err == nil && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "p":
			m.showPulses = !m.showPulses
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case iterationMsg:
		m.last = krotov.IterationRecord(msg)
		m.seen = true
		m.values = append(m.values, msg.Value)
	case doneMsg:
		m.res, m.err = msg.res, msg.err
	}
	return m, nil
}

func (m Watch) Done() bool { return m.res != nil || m.err != nil }

func (m Watch) status() string {
	switch {
	case m.err != nil && m.res == nil:
		return red.Render("failed")
	case m.res != nil && m.res.Reason == krotov.PropagationError:
		return red.Render(m.res.Reason.String())
	case m.res != nil:
		return green.Render(m.res.Reason.String())
	default:
		return yellow.Render("running")
	}
}

func (m Watch) View() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n   %s  %s\n", cyan.Render(m.title), m.status()))

	if m.maxIter > 0 {
		progress := float64(m.last.Iteration) / float64(m.maxIter)
		if progress > 1 {
			progress = 1
		}
		barWidth := 36
		filled := int(progress * float64(barWidth))
		bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
		b.WriteString(fmt.Sprintf("   %s %s\n", bar, dim.Render(fmt.Sprintf("%d/%d", m.last.Iteration, m.maxIter))))
	}
	b.WriteString("\n")

	if !m.seen {
		b.WriteString(dim.Render("   waiting for the first iteration") + "\n")
	} else {
		b.WriteString(fmt.Sprintf("   %s %s  %s %s  %s %s\n",
			dim.Render("iter"), white.Render(fmt.Sprintf("%d", m.last.Iteration)),
			dim.Render("value"), magenta.Render(fmt.Sprintf("%.8f", m.last.Value)),
			dim.Render("delta"), white.Render(fmt.Sprintf("%.2e", m.last.Delta))))
		b.WriteString(fmt.Sprintf("   %s %s  %s %s\n",
			dim.Render("propagations"), white.Render(fmt.Sprintf("%d", m.last.Propagations)),
			dim.Render("elapsed"), white.Render(time.Since(m.start).Round(time.Millisecond).String())))
		b.WriteString("   " + cyan.Render(Sparkline(m.values, 40)) + "\n")
	}

	width := m.width - 20
	if width < 20 {
		width = 20
	}
	if chart := Plot(m.values, 8, width, "functional"); chart != "" {
		b.WriteString("\n" + chart + "\n")
	}
	if m.showPulses {
		for _, name := range m.last.Pulses.Names() {
			if chart := Plot(m.last.Pulses[name], 6, width, name); chart != "" {
				b.WriteString("\n" + chart + "\n")
			}
		}
	}
	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render("   p pulses  q quit") + "\n")
	return b.String()
}

// Run executes run under a live view. The observer handed to run feeds the
// view; quitting the view cancels ctx and waits for run to return.
func Run(ctx context.Context, title string, maxIter int, run func(context.Context, krotov.Observer) (*krotov.Result, error)) (*krotov.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewWatch(title, maxIter, cancel), tea.WithAltScreen())

	done := make(chan doneMsg, 1)
	go func() {
		res, err := run(ctx, Feed{Send: p.Send})
		done <- doneMsg{res: res, err: err}
		p.Send(doneMsg{res: res, err: err})
	}()

	_, viewErr := p.Run()
	cancel()
	d := <-done
	if viewErr != nil && d.err == nil {
		return d.res, viewErr
	}
	return d.res, d.err
}
