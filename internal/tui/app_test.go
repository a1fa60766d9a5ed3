package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fnpulse/fnpulse/internal/api"
	"github.com/fnpulse/fnpulse/internal/store"
	"github.com/fnpulse/fnpulse/internal/stream"
)

// fakeLogs is a LogSource with canned data.
type fakeLogs struct {
	snapshot []api.ExecutionLog
	updates  chan struct{}
	err      error
	stats    stream.Stats
}

func (f *fakeLogs) Snapshot() []api.ExecutionLog { return f.snapshot }
func (f *fakeLogs) Updates() <-chan struct{}     { return f.updates }
func (f *fakeLogs) Err() error                   { return f.err }
func (f *fakeLogs) Stats() stream.Stats          { return f.stats }

func newFakeLogs() *fakeLogs {
	return &fakeLogs{updates: make(chan struct{}, 1)}
}

func testApp(t *testing.T, logs *fakeLogs, watch func(string)) (App, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	if logs == nil {
		logs = newFakeLogs()
	}
	return New("test", st, logs, watch), st
}

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	next, ok := model.(App)
	if !ok {
		t.Fatalf("Update() returned %T, want App", model)
	}
	return next, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestNew_SeedsExistingResults(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(store.CardResult{Name: "Failure Rate", Value: 2.5, Status: "healthy"})

	a := New("test", st, newFakeLogs(), nil)

	if len(a.results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(a.results))
	}
	if a.results["Failure Rate"].Value != 2.5 {
		t.Errorf("Value = %v, want 2.5", a.results["Failure Rate"].Value)
	}
}

func TestUpdate_CardMsgStoresResult(t *testing.T) {
	a, _ := testApp(t, nil, nil)

	a, cmd := update(t, a, cardMsg{Name: "Latency", Value: 120, Unit: "ms"})

	if a.results["Latency"].Value != 120 {
		t.Errorf("Value = %v, want 120", a.results["Latency"].Value)
	}
	if cmd == nil {
		t.Error("cmd = nil, want re-armed card listener")
	}
}

func TestUpdate_LogsMsgRefreshesSnapshot(t *testing.T) {
	logs := newFakeLogs()
	logs.snapshot = []api.ExecutionLog{{ID: "e1", UDF: "sendEmail"}}
	a, _ := testApp(t, logs, nil)

	a, cmd := update(t, a, logsMsg{})

	if len(a.logLines) != 1 || a.logLines[0].ID != "e1" {
		t.Errorf("logLines = %v, want [e1]", a.logLines)
	}
	if cmd == nil {
		t.Error("cmd = nil, want re-armed log listener")
	}
}

func TestUpdate_LogsMsgIgnoredWhilePaused(t *testing.T) {
	logs := newFakeLogs()
	a, _ := testApp(t, logs, nil)
	a.logPaused = true

	logs.snapshot = []api.ExecutionLog{{ID: "e1"}}
	a, _ = update(t, a, logsMsg{})

	if len(a.logLines) != 0 {
		t.Errorf("logLines = %v, want empty while paused", a.logLines)
	}
}

func TestHandleKey_Quit(t *testing.T) {
	a, _ := testApp(t, nil, nil)

	_, cmd := update(t, a, key("q"))

	if cmd == nil {
		t.Fatal("cmd = nil, want tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("cmd() = %T, want tea.QuitMsg", cmd())
	}
}

func TestHandleKey_TabSwitchesPane(t *testing.T) {
	a, _ := testApp(t, nil, nil)

	a, _ = update(t, a, key("tab"))
	if a.activePane != PaneLogs {
		t.Errorf("activePane = %v, want PaneLogs", a.activePane)
	}

	a, _ = update(t, a, key("tab"))
	if a.activePane != PaneCards {
		t.Errorf("activePane = %v, want PaneCards", a.activePane)
	}
}

func TestHandleKey_Navigation(t *testing.T) {
	a, _ := testApp(t, nil, nil)
	a.results["A"] = store.CardResult{Name: "A"}
	a.results["B"] = store.CardResult{Name: "B"}

	a, _ = update(t, a, key("j"))
	if a.selectedIdx != 1 {
		t.Errorf("selectedIdx = %d, want 1", a.selectedIdx)
	}

	// does not run past the last card
	a, _ = update(t, a, key("j"))
	if a.selectedIdx != 1 {
		t.Errorf("selectedIdx = %d, want 1", a.selectedIdx)
	}

	a, _ = update(t, a, key("k"))
	if a.selectedIdx != 0 {
		t.Errorf("selectedIdx = %d, want 0", a.selectedIdx)
	}
}

func TestHandleKey_FilterApply(t *testing.T) {
	var watched []string
	a, _ := testApp(t, nil, func(udf string) { watched = append(watched, udf) })
	a.logLines = []api.ExecutionLog{{ID: "old"}}

	a, _ = update(t, a, key("/"))
	if a.mode != ModeFilter {
		t.Fatalf("mode = %v, want ModeFilter", a.mode)
	}

	a, _ = update(t, a, key("sendEmail"))
	a, _ = update(t, a, key("enter"))

	if a.mode != ModeNormal {
		t.Errorf("mode = %v, want ModeNormal", a.mode)
	}
	if a.udfFilter != "sendEmail" {
		t.Errorf("udfFilter = %q, want %q", a.udfFilter, "sendEmail")
	}
	if len(watched) != 1 || watched[0] != "sendEmail" {
		t.Errorf("watched = %v, want [sendEmail]", watched)
	}
	// subject change resets the stream, so stale lines are dropped
	if len(a.logLines) != 0 {
		t.Errorf("logLines = %v, want empty after filter change", a.logLines)
	}
}

func TestHandleKey_FilterCancel(t *testing.T) {
	var watched []string
	a, _ := testApp(t, nil, func(udf string) { watched = append(watched, udf) })

	a, _ = update(t, a, key("/"))
	a, _ = update(t, a, key("sendEmail"))
	a, _ = update(t, a, key("esc"))

	if a.mode != ModeNormal {
		t.Errorf("mode = %v, want ModeNormal", a.mode)
	}
	if len(watched) != 0 {
		t.Errorf("watched = %v, want none after cancel", watched)
	}
}

func TestHandleKey_Unfilter(t *testing.T) {
	var watched []string
	a, _ := testApp(t, nil, func(udf string) { watched = append(watched, udf) })
	a.udfFilter = "sendEmail"

	a, _ = update(t, a, key("u"))

	if a.udfFilter != "" {
		t.Errorf("udfFilter = %q, want empty", a.udfFilter)
	}
	if len(watched) != 1 || watched[0] != "" {
		t.Errorf("watched = %v, want [\"\"]", watched)
	}
}

func TestApplyFilter_NoopWhenUnchanged(t *testing.T) {
	var watched []string
	a, _ := testApp(t, nil, func(udf string) { watched = append(watched, udf) })
	a.udfFilter = "sendEmail"

	a.applyFilter("sendEmail")

	if len(watched) != 0 {
		t.Errorf("watched = %v, want none for unchanged filter", watched)
	}
}

func TestHandleKey_PauseTogglesAndCatchesUp(t *testing.T) {
	logs := newFakeLogs()
	a, _ := testApp(t, logs, nil)
	a.activePane = PaneLogs

	a, _ = update(t, a, key(" "))
	if !a.logPaused {
		t.Fatal("logPaused = false, want true after space")
	}

	// resuming pulls the latest snapshot immediately
	logs.snapshot = []api.ExecutionLog{{ID: "e1"}}
	a, _ = update(t, a, key(" "))
	if a.logPaused {
		t.Error("logPaused = true, want false after second space")
	}
	if len(a.logLines) != 1 {
		t.Errorf("logLines = %v, want 1 entry after resume", a.logLines)
	}
}

func TestSortedResults_NameOrder(t *testing.T) {
	a, _ := testApp(t, nil, nil)
	a.results["Zeta"] = store.CardResult{Name: "Zeta"}
	a.results["Alpha"] = store.CardResult{Name: "Alpha"}

	results := a.sortedResults()
	if results[0].Name != "Alpha" || results[1].Name != "Zeta" {
		t.Errorf("sortedResults() = %v, want Alpha before Zeta", results)
	}
}

func TestView_RendersCardsAndLogs(t *testing.T) {
	logs := newFakeLogs()
	logs.snapshot = []api.ExecutionLog{{
		ID:          "e1",
		UDF:         "sendEmail",
		Kind:        "action",
		Outcome:     "success",
		StartedAtMs: time.Now().UnixMilli(),
		DurationMs:  42,
	}}
	a, _ := testApp(t, logs, nil)
	a.results["Failure Rate"] = store.CardResult{
		Name: "Failure Rate", Value: 1.5, Unit: "percent", Status: "healthy",
		CheckedAt: time.Now(),
	}
	a.logLines = logs.snapshot
	a, _ = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})

	out := a.View()
	if !strings.Contains(out, "Failure Rate") {
		t.Error("View() missing card name")
	}
	if !strings.Contains(out, "sendEmail") {
		t.Error("View() missing log entry")
	}
}

func TestView_ShowsStreamError(t *testing.T) {
	logs := newFakeLogs()
	logs.err = errors.New("boom")
	a, _ := testApp(t, logs, nil)
	a, _ = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})

	if !strings.Contains(a.View(), "boom") {
		t.Error("View() missing stream error")
	}
}

func TestView_BeforeWindowSize(t *testing.T) {
	a, _ := testApp(t, nil, nil)
	if a.View() != "loading..." {
		t.Errorf("View() = %q, want loading placeholder", a.View())
	}
}
