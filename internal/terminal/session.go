// Package terminal is a keyboard-driven session over the same render pipeline as
// the web page: two ticker pickers, a horizon gauge, plots and forecast tables.
package terminal

import (
	"context"
	"fmt"

	"github.com/gizak/termui/v3"
	"github.com/sirupsen/logrus"

	"stock-forecast-app/internal/logging"
	"stock-forecast-app/internal/models"
)

// Renderer runs one render pass.
type Renderer interface {
	Render(ctx context.Context, sel models.Selection) (*models.ViewModel, error)
}

// Field is the widget that has keyboard focus.
type Field int

const (
	FieldCrypto Field = iota
	FieldStock
	FieldYears
	fieldCount
)

func (f Field) String() string {
	switch f {
	case FieldCrypto:
		return "crypto"
	case FieldStock:
		return "stock"
	default:
		return "years"
	}
}

// Action is what the event loop must do after a key press.
type Action int

const (
	ActionNone Action = iota
	ActionRedraw
	ActionRender
	ActionQuit
)

const (
	statusLoading = "Loading data..."
	statusDone    = "Loading data... done!"
)

type Session struct {
	renderer Renderer
	sel      models.Selection
	focus    Field
	vm       *models.ViewModel
	status   string
	err      error
	log      *logrus.Entry
}

func NewSession(renderer Renderer, logger *logrus.Logger) *Session {
	return &Session{
		renderer: renderer,
		sel:      models.DefaultSelection(),
		focus:    FieldCrypto,
		log:      logging.Component(logger, "terminal"),
	}
}

func (s *Session) Selection() models.Selection { return s.sel }

func (s *Session) Focus() Field { return s.focus }

// View returns the result of the last render pass, if any.
func (s *Session) View() *models.ViewModel { return s.vm }

// HandleKey applies a termui key ID. Tab cycles focus, the arrow keys (or j/k and
// h/l) move the focused widget, q quits.
func (s *Session) HandleKey(id string) Action {
	switch id {
	case "q", "<C-c>":
		return ActionQuit
	case "<Tab>":
		s.focus = (s.focus + 1) % fieldCount
		return ActionRedraw
	case "<Down>", "j", "<Right>", "l":
		return s.step(1)
	case "<Up>", "k", "<Left>", "h":
		return s.step(-1)
	}
	return ActionNone
}

// step moves the focused widget by delta, clamped to its choices.
func (s *Session) step(delta int) Action {
	before := s.sel
	switch s.focus {
	case FieldCrypto:
		s.sel.Crypto = stepChoice(models.CryptoTickers[:], s.sel.Crypto, delta)
	case FieldStock:
		s.sel.Stock = stepChoice(models.StockTickers[:], s.sel.Stock, delta)
	case FieldYears:
		s.sel.Years = clamp(s.sel.Years+delta, models.MinYears, models.MaxYears)
	}
	if s.sel == before {
		return ActionNone
	}
	return ActionRender
}

// Refresh runs a render pass for the current selection. draw is called before
// the pass with the loading status, so the screen is not stale while it blocks.
func (s *Session) Refresh(ctx context.Context, draw func()) {
	s.status = statusLoading
	if draw != nil {
		draw()
	}

	vm, err := s.renderer.Render(ctx, s.sel)
	if err != nil {
		s.log.WithError(err).Error("Render pass failed")
		s.err = err
		s.status = fmt.Sprintf("%s failed", statusLoading)
		return
	}
	s.vm, s.err = vm, nil
	s.status = statusDone
}

// Run owns the terminal until the user quits or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if err := termui.Init(); err != nil {
		return fmt.Errorf("failed to initialize termui: %w", err)
	}
	defer termui.Close()

	draw := func() {
		width, height := termui.TerminalDimensions()
		termui.Clear()
		termui.Render(s.Dashboard(width, height))
	}

	s.Refresh(ctx, draw)
	draw()

	uiEvents := termui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-uiEvents:
			if e.Type == termui.ResizeEvent {
				draw()
				continue
			}
			switch s.HandleKey(e.ID) {
			case ActionQuit:
				s.log.Info("Exited by keyboard")
				return nil
			case ActionRender:
				s.Refresh(ctx, draw)
				draw()
			case ActionRedraw:
				draw()
			}
		}
	}
}

func stepChoice(choices []string, current string, delta int) string {
	idx := 0
	for i, c := range choices {
		if c == current {
			idx = i
			break
		}
	}
	return choices[clamp(idx+delta, 0, len(choices)-1)]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
