package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/meigma/ferry"
	"github.com/meigma/ferry/internal/relay"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Width(48)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// wakeMsg tells the model that ferry posted callbacks to the client's loop.
type wakeMsg struct{}

// batchModel is a bubbletea model whose event loop is the ferry owner
// goroutine: every wakeMsg drains the client's loop inside Update, so ferry
// callbacks and rendering never race.
type batchModel struct {
	ctx      context.Context
	client   *ferry.Client
	loop     *relay.Loop
	batch    *batch
	bar      progress.Model
	canceled bool
}

func newBatchModel(ctx context.Context, client *ferry.Client, b *batch) *batchModel {
	return &batchModel{
		ctx:    ctx,
		client: client,
		loop:   client.Loop(),
		batch:  b,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

// waitForWake blocks until the loop has pending callbacks.
func (m *batchModel) waitForWake() tea.Cmd {
	wake := m.loop.Wake()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-wake:
			return wakeMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *batchModel) Init() tea.Cmd {
	return m.waitForWake()
}

func (m *batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case wakeMsg:
		m.loop.Drain()
		if m.client.Stats().Live == 0 {
			return m, tea.Quit
		}
		return m, m.waitForWake()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.canceled {
				m.canceled = true
				m.batch.cancel()
			}
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(40, msg.Width-60))
	}
	return m, nil
}

func (m *batchModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("ferry batch: %d transfers", len(m.batch.items))))
	sb.WriteString("\n\n")
	for _, item := range m.batch.items {
		sb.WriteString(labelStyle.Render(truncate(item.entry.label(), 46)))
		sb.WriteString(" ")
		sb.WriteString(m.renderStatus(item))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	if m.canceled {
		sb.WriteString(helpStyle.Render("canceling..."))
	} else {
		sb.WriteString(helpStyle.Render("q: cancel"))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (m *batchModel) renderStatus(item *batchItem) string {
	switch item.status {
	case itemPending:
		return pendingStyle.Render("waiting")
	case itemDone:
		return doneStyle.Render("done " + humanSize(item.done))
	case itemFailed:
		return failedStyle.Render(formatError(item.err))
	}
	if f, ok := ferry.Fraction(item.total, item.done); ok {
		return m.bar.ViewAs(f) + " " + humanSize(item.done)
	}
	return humanSize(item.done)
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// runBatchTUI starts b and runs the interactive view until every transfer
// delivered its terminal callback.
func runBatchTUI(ctx context.Context, client *ferry.Client, b *batch) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.start(client)
	if client.Stats().Live == 0 {
		return nil
	}

	p := tea.NewProgram(newBatchModel(ctx, client, b), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		b.cancel()
		//nolint:errcheck // a background context never expires
		client.Wait(context.Background())
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
