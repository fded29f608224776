package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskquest/internal/engine"
	"taskquest/internal/model"
	"taskquest/internal/projectsync"
	"taskquest/internal/ui"
)

type boardModel struct {
	ctx     context.Context
	svc     *engine.Service
	sync    *projectsync.Manager
	changes <-chan model.Project

	width  int
	height int

	stats  *engine.Stats
	tasks  []model.Task
	states map[string]projectsync.State

	expanded map[string]bool
	selected int

	lastLog string
	loading bool
	err     error
}

type loadedMsg struct {
	stats *engine.Stats
	tasks []model.Task
	err   error
}

type completedMsg struct {
	name string
	res  *engine.CompleteResult
	err  error
}

type toggledMsg struct {
	name string
	err  error
}

// projectChangedMsg carries a snapshot a poll loop accepted from the server.
type projectChangedMsg struct {
	project model.Project
}

func newBoardModel(ctx context.Context, svc *engine.Service, mgr *projectsync.Manager, changes <-chan model.Project) boardModel {
	return boardModel{
		ctx:      ctx,
		svc:      svc,
		sync:     mgr,
		changes:  changes,
		expanded: map[string]bool{},
		loading:  true,
		lastLog:  "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.waitForChange())
}

func (m boardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		st, err := m.svc.Stats(m.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		tasks, err := m.svc.ListTasks(m.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{stats: st, tasks: tasks}
	}
}

func (m boardModel) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case p, ok := <-m.changes:
			if !ok {
				return nil
			}
			return projectChangedMsg{project: p}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m boardModel) completeCmd(t model.Task) tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.CompleteTask(m.ctx, t.ID)
		return completedMsg{name: t.Name, res: res, err: err}
	}
}

func (m boardModel) toggleCmd(p model.Task, index int) tea.Cmd {
	completed := !p.Subtasks[index].Completed
	return func() tea.Msg {
		err := m.sync.ToggleSubtask(m.ctx, p.ID, index, completed)
		return toggledMsg{name: p.Subtasks[index].Name, err: err}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			m.lastLog = "Load failed: " + msg.err.Error()
			return m, nil
		}
		m.stats = msg.stats
		m.tasks = msg.tasks
		if m.sync != nil {
			m.states = m.sync.States()
		}
		m.lastLog = fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))
		return m, nil
	case projectChangedMsg:
		m.lastLog = fmt.Sprintf("%s %s updated by a teammate.", ui.IconSync, msg.project.Name)
		return m, tea.Batch(m.loadCmd(), m.waitForChange())
	case completedMsg:
		if msg.err != nil {
			m.lastLog = "Complete failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = completeLog(msg.name, msg.res)
		return m, m.loadCmd()
	case toggledMsg:
		if msg.err != nil {
			m.lastLog = "Toggle failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = fmt.Sprintf("Toggled %q.", msg.name)
		return m, m.loadCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.lastLog = "Refreshing…"
			return m, m.loadCmd()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			lines := m.questLines()
			if m.selected < len(lines)-1 {
				m.selected++
			}
			return m, nil
		case "enter":
			line, ok := m.selectedLine()
			if ok && line.subtask < 0 && line.hasChildren {
				m.expanded[line.taskID] = !m.expanded[line.taskID]
			}
			return m, nil
		case "c", " ":
			line, ok := m.selectedLine()
			if !ok {
				return m, nil
			}
			t := findTask(m.tasks, line.taskID)
			if t == nil {
				m.lastLog = "Task not found."
				return m, nil
			}
			if line.subtask >= 0 {
				if m.sync == nil {
					m.lastLog = "Project sync is not available."
					return m, nil
				}
				return m, m.toggleCmd(*t, line.subtask)
			}
			m.lastLog = fmt.Sprintf("Completing %s…", t.Name)
			return m, m.completeCmd(*t)
		}
	}
	return m, nil
}

func completeLog(name string, res *engine.CompleteResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Completed %q: %+d XP", name, res.XPAwarded)
	if res.EarlyBonus > 0 {
		fmt.Fprintf(&b, " (early +%d)", res.EarlyBonus)
	}
	if res.OverduePenalty < 0 {
		fmt.Fprintf(&b, " (overdue %d)", res.OverduePenalty)
	}
	if res.LeveledUp {
		fmt.Fprintf(&b, " %s level %d → %d", ui.LevelUpTag, res.LevelBefore, res.NewLevel)
	}
	for _, badge := range res.NewBadges {
		fmt.Fprintf(&b, " %s %s", badge.Icon, badge.Name)
	}
	return b.String()
}

// questLine is one row of the quest log: a task, or a subtask when subtask >= 0.
type questLine struct {
	taskID      string
	subtask     int
	title       string
	done        bool
	isProject   bool
	isShared    bool
	hasChildren bool
	expanded    bool
	deadline    *model.Date
	xp          int
}

func (m boardModel) selectedLine() (questLine, bool) {
	lines := m.questLines()
	if m.selected < 0 || m.selected >= len(lines) {
		return questLine{}, false
	}
	return lines[m.selected], true
}

func (m boardModel) questLines() []questLine {
	var out []questLine
	for _, t := range sortedTasks(m.tasks) {
		out = append(out, questLine{
			taskID:      t.ID,
			subtask:     -1,
			title:       t.Name,
			isProject:   t.IsProject,
			isShared:    t.IsShared,
			hasChildren: len(t.Subtasks) > 0,
			expanded:    m.expanded[t.ID],
			deadline:    t.Deadline,
			xp:          t.Experience,
		})
		if !m.expanded[t.ID] {
			continue
		}
		for i, st := range t.Subtasks {
			out = append(out, questLine{
				taskID:  t.ID,
				subtask: i,
				title:   st.Name,
				done:    st.Completed,
				xp:      engine.SubtaskXP(st.Difficulty, st.Importance),
			})
		}
	}
	return out
}

func (m boardModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}

	header := m.renderHeader()
	sidebar := m.renderSidebar()
	main := m.renderMain()
	footer := m.renderFooter()

	leftW := 30
	if m.width > 0 {
		maxLeft := m.width / 2
		if maxLeft < leftW {
			leftW = maxLeft
		}
		if leftW < 18 {
			leftW = 18
		}
	}

	left := lipgloss.NewStyle().Width(leftW).Render(sidebar)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", main)
	return header + "\n" + body + "\n" + footer
}

func (m boardModel) renderHeader() string {
	if m.stats == nil {
		return ui.Title.Render("TaskQuest") + " loading…"
	}
	st := m.stats
	return fmt.Sprintf("%s | Level %d | XP %d %s %d/%d | %s %d day streak",
		ui.Title.Render("TaskQuest"),
		st.Level,
		st.TotalXP,
		ui.ProgressBar(st.LevelXP, st.LevelCost, 24),
		st.LevelXP,
		st.LevelCost,
		ui.IconFire,
		st.Streak.Current,
	)
}

func (m boardModel) renderSidebar() string {
	if m.stats == nil {
		return "Stats\n\nLoading…"
	}
	lines := []string{ui.PanelTitle.Render("Badges")}
	if len(m.stats.Badges) == 0 {
		lines = append(lines, ui.Muted.Render("(none yet)"))
	}
	for _, b := range m.stats.Badges {
		lines = append(lines, fmt.Sprintf("%s %s", b.Icon, b.Name))
	}
	lines = append(lines, "")
	lines = append(lines, ui.Muted.Render(fmt.Sprintf("Completed: %d", m.stats.CompletedCount)))
	lines = append(lines, ui.Muted.Render(fmt.Sprintf("Longest streak: %d", m.stats.Streak.Longest)))
	lines = append(lines, "")
	lines = append(lines, ui.PanelTitle.Render("Keys"))
	lines = append(lines, "- ↑/↓ or j/k: move")
	lines = append(lines, "- enter: expand project")
	lines = append(lines, "- c/space: complete / toggle")
	lines = append(lines, "- r: refresh")
	lines = append(lines, "- q: quit")
	return strings.Join(lines, "\n")
}

func (m boardModel) renderMain() string {
	if m.loading {
		return "Loading…"
	}
	var out []string
	out = append(out, ui.PanelTitle.Render("Quest Log"))

	lines := m.questLines()
	if len(lines) == 0 {
		out = append(out, "(no open tasks)")
		return strings.Join(out, "\n")
	}
	now := m.svc.Now()
	for i, ql := range lines {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		if ql.subtask >= 0 {
			box := "[ ]"
			if ql.done {
				box = ui.Good.Render("[x]")
			}
			out = append(out, fmt.Sprintf("%s    %s %s %s", cursor, box, ql.title, ui.Muted.Render(fmt.Sprintf("%d xp", ql.xp))))
			continue
		}
		fold := "  "
		if ql.hasChildren {
			if ql.expanded {
				fold = "▾ "
			} else {
				fold = "▸ "
			}
		}
		row := fmt.Sprintf("%s%s%s %s %s", cursor, fold, ui.KindIcon(ql.isProject, ql.isShared), ql.title, ui.Muted.Render(fmt.Sprintf("%d xp", ql.xp)))
		if ql.deadline != nil {
			due := "due " + ql.deadline.String()
			if engine.IsOverdue(ql.deadline, now) {
				due = ui.Bad.Render(due)
			} else {
				due = ui.Muted.Render(due)
			}
			row += " " + due
		}
		if ql.isShared {
			if st, ok := m.states[ql.taskID]; ok {
				row += " " + ui.SyncStateText(st.String())
			}
		}
		if i == m.selected {
			row = ui.SelectedRow.Render(row)
		}
		out = append(out, row)
	}
	return strings.Join(out, "\n")
}

func (m boardModel) renderFooter() string {
	return "\n" + m.lastLog
}

// sortedTasks orders by deadline (soonest first, none last), then name.
func sortedTasks(tasks []model.Task) []model.Task {
	out := append([]model.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].Deadline, out[j].Deadline
		if ai == nil && aj != nil {
			return false
		}
		if ai != nil && aj == nil {
			return true
		}
		if ai != nil && aj != nil && *ai != *aj {
			return ai.Before(*aj)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func findTask(tasks []model.Task, id string) *model.Task {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
	}
	return nil
}
