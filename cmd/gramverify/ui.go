// # cmd/gramverify/ui.go
package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gramverify/internal/verify"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	failed      bool
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	results    []verify.Result
	lastUpdate time.Time
}

type updateMsg struct {
	results   []verify.Result
	checkedAt time.Time
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.results = msg.results
		m.lastUpdate = msg.checkedAt

		items := []list.Item{}
		for _, result := range m.results {
			if result.OK {
				items = append(items, item{
					title: result.Grammar,
					desc:  fmt.Sprintf("pass | ABI %d | %s", result.ABIVersion, result.Duration.Round(10*time.Microsecond)),
				})
				continue
			}
			items = append(items, item{
				title:  result.Grammar,
				desc:   result.Message,
				failed: true,
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	failures := 0
	for _, result := range m.results {
		if !result.OK {
			failures++
		}
	}

	status := statusStyle.Render(fmt.Sprintf("Last sweep: %v | %d grammars",
		m.lastUpdate.Format("15:04:05"), len(m.results)))

	var summary string
	if failures == 0 {
		summary = successStyle.Render("All grammars load")
	} else {
		summary = failStyle.Render(fmt.Sprintf("%d grammars failing", failures))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Grammar Load Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Verification Results"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}

func runUI(app *App) error {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())

	sendUpdate := func(update Update) {
		p.Send(updateMsg{
			results:   update.Results,
			checkedAt: update.CheckedAt,
		})
	}

	app.SetUpdateHandler(sendUpdate)

	go func() {
		sendUpdate(app.CurrentUpdate())
	}()

	_, err := p.Run()
	return err
}
