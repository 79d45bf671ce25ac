package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// Manager performs lifecycle operations on behalf of a caller.
type Manager interface {
	Deploy(ctx context.Context, caller string, req lifecycle.DeployRequest) (*session.Record, error)
	Start(ctx context.Context, caller, name string) (*session.Record, error)
	Stop(ctx context.Context, caller, name string) (*session.Record, error)
	Restart(ctx context.Context, caller, name string) (*session.Record, error)
	Delete(ctx context.Context, caller, name string) (*session.Record, error)
	RegenerateCredential(ctx context.Context, caller, name string) (*session.Record, error)
}

// Entry is one resource shown in the picker.
type Entry struct {
	Record *session.Record
	Status health.Status // empty when not probed
	Uptime string
}

// resourceItem implements list.Item for a resource.
type resourceItem struct {
	entry Entry
}

func (i resourceItem) Title() string {
	return i.entry.Record.Name
}

func (i resourceItem) Description() string {
	rec := i.entry.Record
	detail := string(rec.State)
	if i.entry.Status != "" {
		detail = string(i.entry.Status)
	}
	if i.entry.Uptime != "" {
		detail += " " + i.entry.Uptime
	}
	return fmt.Sprintf("%s %s | %s | %s", statusIcon(i.entry), detail, rec.Limits, rec.Image)
}

func (i resourceItem) FilterValue() string {
	return i.entry.Record.Name
}

func statusIcon(e Entry) string {
	switch e.Status {
	case health.StatusHealthy:
		return "✓"
	case health.StatusNoSession:
		return "○"
	case health.StatusMissing:
		return "⚠"
	case health.StatusStopped:
		return "●"
	}
	if e.Record.State == session.StateRunning {
		return "✓"
	}
	return "●"
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// actionDoneMsg reports the outcome of an operation run in the background.
type actionDoneMsg struct {
	op   string
	name string
	rec  *session.Record
	err  error
}

// Model is the bubbletea model for the manage picker.
type Model struct {
	ctx     context.Context
	mgr     Manager
	caller  string
	entries []Entry
	list    list.Model

	nameInput textinput.Model
	prompting bool

	pendingDelete string
	busy          bool
	message       string
	failed        bool
	quitting      bool
}

// NewPicker creates a manage picker over entries.
func NewPicker(ctx context.Context, mgr Manager, caller string, entries []Entry) Model {
	l := list.New(buildItems(entries), newGroupedDelegate(), 80, 20)
	l.Title = "forage-vps - Manage Resources"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	skipHeaders(&l, 1)

	ti := textinput.New()
	ti.Placeholder = "resource name"
	ti.CharLimit = 63

	return Model{
		ctx:       ctx,
		mgr:       mgr,
		caller:    caller,
		entries:   entries,
		list:      l,
		nameInput: ti,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) selected() (Entry, bool) {
	item, ok := m.list.SelectedItem().(resourceItem)
	if !ok {
		return Entry{}, false
	}
	return item.entry, true
}

// run starts op on name in the background.
func (m Model) run(op, name string, fn func(ctx context.Context, caller, name string) (*session.Record, error)) (Model, tea.Cmd) {
	m.busy = true
	m.failed = false
	m.message = fmt.Sprintf("%s %s...", op, name)
	ctx, caller := m.ctx, m.caller
	return m, func() tea.Msg {
		rec, err := fn(ctx, caller, name)
		return actionDoneMsg{op: op, name: name, rec: rec, err: err}
	}
}

func (m Model) deploy(name string) (Model, tea.Cmd) {
	return m.run("deploy", name, func(ctx context.Context, caller, name string) (*session.Record, error) {
		return m.mgr.Deploy(ctx, caller, lifecycle.DeployRequest{Name: name})
	})
}

// apply folds a finished operation into the entries.
func (m Model) apply(msg actionDoneMsg) Model {
	m.busy = false
	if msg.err != nil {
		m.failed = true
		m.message = msg.err.Error()
		return m
	}

	m.failed = false
	switch msg.op {
	case "delete":
		kept := make([]Entry, 0, len(m.entries))
		for _, e := range m.entries {
			if e.Record.Name != msg.name {
				kept = append(kept, e)
			}
		}
		m.entries = kept
		m.message = "deleted " + msg.name
	default:
		updated := Entry{Record: msg.rec}
		entries := make([]Entry, 0, len(m.entries)+1)
		found := false
		for _, e := range m.entries {
			if e.Record.Name == msg.name {
				e = updated
				found = true
			}
			entries = append(entries, e)
		}
		if !found {
			entries = append(entries, updated)
		}
		m.entries = entries
		m.message = fmt.Sprintf("%s %s: %s", msg.op, msg.name, msg.rec.State)
		if msg.rec.Credential != "" && (msg.op == "deploy" || msg.op == "regenerate") {
			m.message += "  " + msg.rec.Credential
		}
	}

	idx := m.list.Index()
	m.list.SetItems(buildItems(m.entries))
	if idx >= len(m.list.Items()) {
		idx = len(m.list.Items()) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
		skipHeaders(&m.list, 1)
	}
	return m
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompting = false
		m.nameInput.Blur()
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.nameInput.Value())
		m.prompting = false
		m.nameInput.Blur()
		m.nameInput.SetValue("")
		if name == "" {
			return m, nil
		}
		return m.deploy(name)
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case actionDoneMsg:
		return m.apply(msg), nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		if m.pendingDelete != "" {
			name := m.pendingDelete
			m.pendingDelete = ""
			if msg.String() == "y" {
				return m.run("delete", name, m.mgr.Delete)
			}
			m.message = "delete cancelled"
			return m, nil
		}
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "n":
			if !m.busy {
				m.prompting = true
				return m, m.nameInput.Focus()
			}
			return m, nil
		}

		if entry, ok := m.selected(); ok && !m.busy {
			name := entry.Record.Name
			switch msg.String() {
			case "enter":
				m.failed = false
				m.message = fmt.Sprintf("%s: %s", name, entry.Record.Credential)
				return m, nil
			case "s":
				return m.run("start", name, m.mgr.Start)
			case "x":
				return m.run("stop", name, m.mgr.Stop)
			case "r":
				return m.run("restart", name, m.mgr.Restart)
			case "g":
				return m.run("regenerate", name, m.mgr.RegenerateCredential)
			case "d":
				m.pendingDelete = name
				m.message = fmt.Sprintf("delete %s? [y/N]", name)
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if key, ok := msg.(tea.KeyMsg); ok {
		skipHeaders(&m.list, navigationDirection(key))
	}
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.prompting {
		b.WriteString("New resource: " + m.nameInput.View() + "\n")
	}
	if m.message != "" {
		style := messageStyle
		if m.failed {
			style = errorStyle
		}
		b.WriteString(style.Render(m.message) + "\n")
	}
	b.WriteString(helpStyle.Render("[enter] Credential  [s] Start  [x] Stop  [r] Restart  [g] Regenerate  [d] Delete  [n] New  [/] Filter  [q] Quit"))
	return b.String()
}

// Entries returns the entries as last updated by the picker.
func (m Model) Entries() []Entry {
	return m.entries
}

// RunPicker runs the interactive manage picker until the user quits.
func RunPicker(ctx context.Context, mgr Manager, caller string, entries []Entry) error {
	p := tea.NewProgram(NewPicker(ctx, mgr, caller, entries), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// SimpleList renders entries for non-interactive terminals.
func SimpleList(entries []Entry) string {
	var sb strings.Builder

	sb.WriteString("forage-vps - Resources\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(entries) == 0 {
		sb.WriteString("No resources found.\n")
		return sb.String()
	}

	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s %s (%s, owner %s)\n", i+1, statusIcon(e), e.Record.Name, e.Record.State, e.Record.OwnerID)
		fmt.Fprintf(&sb, "   %s | %s\n\n", e.Record.Limits, e.Record.Image)
	}
	return sb.String()
}
