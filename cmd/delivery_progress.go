package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bnema/mycelium-pulse/internal/application"
	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type deliveryProgressMsg application.DeliveryProgress

type deliveryDoneMsg struct {
	result application.DeliveryResult
	err    error
}

// deliveryProgressModel follows one delivery: how long it has waited for a
// fresh reading, then how many members have been sent the pulse.
type deliveryProgressModel struct {
	spinner        spinner.Model
	sessionID      domain.SessionID
	readingTimeout time.Duration
	now            func() time.Time
	startedAt      time.Time
	progress       application.DeliveryProgress
	deliver        tea.Cmd

	result application.DeliveryResult
	err    error
	done   bool
}

var (
	progressLabelStyle  = lipgloss.NewStyle().Bold(true)
	progressFailedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

func newDeliveryProgressModel(id domain.SessionID, readingTimeout time.Duration, now func() time.Time, deliver tea.Cmd) deliveryProgressModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Pulse),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("35"))),
	)

	return deliveryProgressModel{
		spinner:        s,
		sessionID:      id,
		readingTimeout: readingTimeout,
		now:            now,
		startedAt:      now(),
		progress:       application.DeliveryProgress{Phase: application.PhaseAwaitingReadings},
		deliver:        deliver,
	}
}

func (m deliveryProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.deliver)
}

func (m deliveryProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case deliveryProgressMsg:
		if msg.Phase != m.progress.Phase {
			m.startedAt = m.now()
		}
		m.progress = application.DeliveryProgress(msg)
		return m, nil
	case deliveryDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m deliveryProgressModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s %s", m.spinner.View(), progressLabelStyle.Render(string(m.sessionID)), m.status())
}

func (m deliveryProgressModel) status() string {
	elapsed := m.now().Sub(m.startedAt).Truncate(time.Second)

	if m.progress.Phase == application.PhaseBroadcasting {
		line := fmt.Sprintf("delivering pulse %d/%d", m.progress.Attempted, m.progress.Members)
		if m.progress.Failed > 0 {
			line += " " + progressFailedStyle.Render(fmt.Sprintf("(%d unreachable)", m.progress.Failed))
		}
		return line
	}

	if m.readingTimeout > 0 {
		return fmt.Sprintf("waiting for fresh readings %s of %s", elapsed, m.readingTimeout)
	}
	return fmt.Sprintf("waiting for fresh readings %s", elapsed)
}

// runDeliveryProgress delivers id while rendering progress on output.
func runDeliveryProgress(ctx context.Context, output io.Writer, coord *application.Coordinator, id domain.SessionID) (application.DeliveryResult, error) {
	var p *tea.Program
	deliver := func() tea.Msg {
		result, err := coord.DeliverSessionWithProgress(ctx, id, func(progress application.DeliveryProgress) {
			p.Send(deliveryProgressMsg(progress))
		})
		return deliveryDoneMsg{result: result, err: err}
	}

	p = tea.NewProgram(
		newDeliveryProgressModel(id, coord.Options().ReadingTimeout, time.Now, deliver),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return application.DeliveryResult{}, err
	}

	model, ok := finalModel.(deliveryProgressModel)
	if !ok {
		return application.DeliveryResult{}, fmt.Errorf("unexpected final progress model type %T", finalModel)
	}

	return model.result, model.err
}
