package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/Iron-Ham/ringplot/internal/logging"
	"github.com/Iron-Ham/ringplot/internal/util"
)

// cellWidth is the number of terminal columns used for one block, which
// keeps blocks roughly square in most fonts.
const cellWidth = 2

// quitGrace is how long Shutdown waits for the program to exit on its own
// before killing it.
const quitGrace = time.Second

// TerminalOptions configures a Terminal renderer.
type TerminalOptions struct {
	// Input and Output default to stdin and stdout.
	Input  io.Reader
	Output io.Writer
	// OnRestart is called from the UI goroutine when the user presses r.
	OnRestart func()
	Logger    *logging.Logger
}

// Terminal renders frames in the terminal with a bubbletea program. Each
// block becomes one cell of background color; a status line sits below the
// grid. Keys q, esc and ctrl+c request a quit; r requests a restart.
type Terminal struct {
	geom    Geometry
	program *tea.Program
	logger  *logging.Logger

	quit atomic.Bool

	// Staged frame and status, owned by the consumer goroutine.
	staged []cell
	status Status

	done   chan struct{}
	runErr error // set before done is closed

	shutdownOnce sync.Once
}

// NewTerminal starts a bubbletea program on the alternate screen.
func NewTerminal(geom Geometry, opts TerminalOptions) *Terminal {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	t := &Terminal{
		geom:   geom,
		logger: logger.WithComponent("renderer").With("mode", "terminal"),
		staged: make([]cell, geom.VisibleBlocks()),
		done:   make(chan struct{}),
	}

	m := newModel(geom, &t.quit, opts.OnRestart)
	if w, h, ok := outputSize(opts.Output); ok {
		m.width, m.height = w, h
	}

	progOpts := []tea.ProgramOption{
		tea.WithAltScreen(),
		// Signals are handled by the pipeline controller.
		tea.WithoutSignalHandler(),
	}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	t.program = tea.NewProgram(m, progOpts...)

	go func() {
		defer close(t.done)
		_, err := t.program.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			t.runErr = err
			t.logger.Error("terminal program failed", "error", err.Error())
		}
	}()

	return t
}

// PollQuitRequested implements Renderer.
func (t *Terminal) PollQuitRequested() bool {
	return t.quit.Load()
}

// DrawRectangle implements Renderer.
func (t *Terminal) DrawRectangle(r Rect) {
	if !t.geom.Visible(r) || t.geom.BlockWidth <= 0 || t.geom.BlockHeight <= 0 {
		return
	}
	col, row := r.X/t.geom.BlockWidth, r.Y/t.geom.BlockHeight
	cols := t.geom.Columns()
	if col >= cols {
		return
	}
	idx := row*cols + col
	if idx < 0 || idx >= len(t.staged) {
		return
	}
	t.staged[idx] = cell{color: r.Color, set: true}
}

// SetStatus implements StatusSetter. The status is shown with the next frame.
func (t *Terminal) SetStatus(s Status) {
	t.status = s
}

// PresentFrame implements Renderer.
func (t *Terminal) PresentFrame(ctx context.Context) error {
	msg := frameMsg{cells: slices.Clone(t.staged), status: t.status}
	clear(t.staged)

	select {
	case <-t.done:
		return t.exitedError()
	default:
	}

	sent := make(chan struct{})
	go func() {
		t.program.Send(msg)
		close(sent)
	}()

	select {
	case <-sent:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return t.exitedError()
	}
}

func (t *Terminal) exitedError() error {
	if t.runErr != nil {
		return errors.NewRenderError("terminal program failed", fmt.Errorf("%w: %w", errors.ErrRendererUnavailable, t.runErr)).WithMode("terminal")
	}
	return errors.NewRenderError("terminal program exited", errors.ErrRendererClosed).WithMode("terminal")
}

// Shutdown implements Renderer. It asks the program to quit, restoring the
// terminal, and kills it if it does not exit within a second.
func (t *Terminal) Shutdown() error {
	t.shutdownOnce.Do(func() {
		go t.program.Quit()
		select {
		case <-t.done:
		case <-time.After(quitGrace):
			t.logger.Warn("terminal program did not quit in time; killing")
			t.program.Kill()
			<-t.done
		}
	})
	// A concurrent caller returns from Do before the first one is finished.
	<-t.done
	if t.runErr != nil {
		return t.exitedError()
	}
	return nil
}

// outputSize reports the terminal size behind out, which defaults to stdout.
// The first WindowSizeMsg replaces it.
func outputSize(out io.Writer) (width, height int, ok bool) {
	if out == nil {
		out = os.Stdout
	}
	f, isFile := out.(*os.File)
	if !isFile {
		return 0, 0, false
	}
	return TerminalSize(f)
}

// -----------------------------------------------------------------------------
// Bubbletea model
// -----------------------------------------------------------------------------

type cell struct {
	color Color
	set   bool
}

type frameMsg struct {
	cells  []cell
	status Status
}

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
)

type model struct {
	cols, rows int
	cells      []cell
	status     Status
	frames     uint64

	width, height int

	quit      *atomic.Bool
	onRestart func()
}

func newModel(geom Geometry, quit *atomic.Bool, onRestart func()) model {
	return model{
		cols:      geom.Columns(),
		rows:      geom.Rows(),
		cells:     make([]cell, geom.VisibleBlocks()),
		quit:      quit,
		onRestart: onRestart,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quit.Store(true)
		case "r":
			if m.onRestart != nil {
				m.onRestart()
			}
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case frameMsg:
		if len(msg.cells) == len(m.cells) {
			m.cells = msg.cells
		}
		m.status = msg.status
		m.frames++
	}
	return m, nil
}

func (m model) View() string {
	rows, cols := m.rows, m.cols
	// Leave one line for the status bar.
	if m.height > 0 && m.height-1 < rows {
		rows = max(m.height-1, 0)
	}
	if m.width > 0 && m.width/cellWidth < cols {
		cols = m.width / cellWidth
	}

	blank := strings.Repeat(" ", cellWidth)
	var b strings.Builder
	for r := range rows {
		for c := range cols {
			cl := m.cells[r*m.cols+c]
			if !cl.set {
				b.WriteString(blank)
				continue
			}
			b.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(cl.color.Hex())).Render(blank))
		}
		b.WriteByte('\n')
	}
	b.WriteString(m.statusLine())
	return b.String()
}

func (m model) statusLine() string {
	s := m.status
	parts := []string{
		fmt.Sprintf("%d/%d", s.Occupancy, s.Usable),
		fmt.Sprintf("pushed %d", s.Pushed),
		fmt.Sprintf("restarts %d", s.Restarts),
		fmt.Sprintf("frames %d", s.Frames),
	}
	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("skipped %d", s.Skipped))
	}
	if s.Source != "" {
		parts = append([]string{s.Source}, parts...)
	}
	help := keyStyle.Render("q") + statusStyle.Render(" quit  ") + keyStyle.Render("r") + statusStyle.Render(" restart")
	return util.FitWidth(statusStyle.Render(strings.Join(parts, "  "))+"  "+help, m.width)
}
