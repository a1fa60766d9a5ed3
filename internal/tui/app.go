// Package tui implements the terminal dashboard: a Bubble Tea model that
// renders card results and the live execution log stream, with a filter
// prompt that narrows the stream to a single UDF.
package tui

import (
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fnpulse/fnpulse/internal/api"
	"github.com/fnpulse/fnpulse/internal/store"
	"github.com/fnpulse/fnpulse/internal/stream"
)

// Pane identifies which pane is focused.
type Pane int

const (
	PaneCards Pane = iota
	PaneLogs
)

// Mode identifies the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeFilter
)

// LogSource provides the execution log view. *stream.Stream satisfies it.
type LogSource interface {
	Snapshot() []api.ExecutionLog
	Updates() <-chan struct{}
	Err() error
	Stats() stream.Stats
}

// App is the root Bubble Tea model.
type App struct {
	// Data sources
	cards store.Store
	logs  LogSource
	watch func(udf string)
	sub   <-chan store.CardResult

	// State
	results     map[string]store.CardResult
	selectedIdx int
	logLines    []api.ExecutionLog
	logPaused   bool
	udfFilter   string

	// UI
	title      string
	activePane Pane
	mode       Mode
	filter     textinput.Model
	width      int
	height     int
	statusMsg  string
}

// New creates the TUI model. watch is invoked when the user applies or
// clears the UDF filter; it may be nil if the caller does not support
// filtering.
func New(title string, cards store.Store, logs LogSource, watch func(udf string)) App {
	fi := textinput.New()
	fi.Placeholder = "udf name..."
	fi.CharLimit = 64

	a := App{
		cards:      cards,
		logs:       logs,
		watch:      watch,
		title:      title,
		results:    make(map[string]store.CardResult),
		filter:     fi,
		activePane: PaneCards,
		mode:       ModeNormal,
	}

	// Subscribe up front so no update published between New and the first
	// Update call is lost.
	a.sub = cards.Subscribe()
	for _, r := range cards.GetAll() {
		a.results[r.Name] = r
	}
	return a
}

// Init kicks off the card, log, and tick listeners.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		waitForCard(a.sub),
		waitForLogs(a.logs.Updates()),
		tickCmd(),
		tea.SetWindowTitle(a.title),
	)
}

// tickMsg drives periodic redraws so relative timestamps stay fresh.
type tickMsg time.Time

// cardMsg carries an updated card result.
type cardMsg store.CardResult

// logsMsg indicates the log snapshot changed.
type logsMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForCard(sub <-chan store.CardResult) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-sub
		if !ok {
			return nil
		}
		return cardMsg(r)
	}
}

func waitForLogs(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return logsMsg{}
	}
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tickMsg:
		return a, tickCmd()

	case cardMsg:
		a.results[msg.Name] = store.CardResult(msg)
		return a, waitForCard(a.sub)

	case logsMsg:
		if !a.logPaused {
			a.logLines = a.logs.Snapshot()
		}
		return a, waitForLogs(a.logs.Updates())

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Filter mode
	if a.mode == ModeFilter {
		switch msg.String() {
		case "esc":
			a.mode = ModeNormal
			a.filter.SetValue("")
			a.filter.Blur()
			return a, nil
		case "enter":
			a.mode = ModeNormal
			a.filter.Blur()
			a.applyFilter(a.filter.Value())
			return a, nil
		default:
			var cmd tea.Cmd
			a.filter, cmd = a.filter.Update(msg)
			return a, cmd
		}
	}

	// Normal mode
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "j", "down":
		if a.activePane == PaneCards && a.selectedIdx < len(a.results)-1 {
			a.selectedIdx++
		}
	case "k", "up":
		if a.activePane == PaneCards && a.selectedIdx > 0 {
			a.selectedIdx--
		}

	case "tab":
		a.activePane = (a.activePane + 1) % 2

	case "l":
		a.activePane = PaneLogs

	case "/":
		a.mode = ModeFilter
		a.filter.SetValue(a.udfFilter)
		a.filter.Focus()
		return a, textinput.Blink

	case "u":
		a.applyFilter("")

	case " ":
		if a.activePane == PaneLogs {
			a.logPaused = !a.logPaused
			if !a.logPaused {
				a.logLines = a.logs.Snapshot()
			}
		}
	}

	return a, nil
}

// applyFilter narrows (or widens) the log stream to a single UDF. Changing
// the subject resets the stream, so the pane empties until fresh entries
// arrive.
func (a *App) applyFilter(udf string) {
	if udf == a.udfFilter {
		return
	}
	a.udfFilter = udf
	a.logLines = nil
	if a.watch != nil {
		a.watch(udf)
	}
	if udf == "" {
		a.statusMsg = "filter cleared"
	} else {
		a.statusMsg = "watching " + udf
	}
}

// sortedResults returns the current card results in stable name order.
func (a App) sortedResults() []store.CardResult {
	results := make([]store.CardResult, 0, len(a.results))
	for _, r := range a.results {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return results
}

func (a App) selectedResult() *store.CardResult {
	results := a.sortedResults()
	if a.selectedIdx < len(results) {
		return &results[a.selectedIdx]
	}
	return nil
}
