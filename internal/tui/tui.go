// Package tui implements the admin terminal dashboard for the game daemon.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arukh89/bitcoin-block/internal/api"
	"github.com/arukh89/bitcoin-block/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const refreshInterval = 2 * time.Second

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	openStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	closedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
)

func padToWidth(s string, width int) string {
	current := runewidth.StringWidth(s)
	if current >= width {
		return runewidth.Truncate(s, width, "…")
	}
	return s + strings.Repeat(" ", width-current)
}

// inputMode selects what the prompt line collects.
type inputMode int

const (
	inputNone inputMode = iota
	inputCreate
	inputPrize
)

type stateMsg *api.StateResponse

type statusMsg string

type errMsg struct{ err error }

type tickMsg time.Time

// Model holds the dashboard state.
type Model struct {
	client *Client

	state   *api.StateResponse
	status  string
	lastErr string

	mode  inputMode
	input string

	width  int
	height int
}

func NewModel(client *Client) Model {
	return Model{client: client}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchState, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchState() tea.Msg {
	state, err := m.client.State()
	if err != nil {
		return errMsg{err}
	}
	return stateMsg(state)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		m.state = msg
		m.lastErr = ""
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, m.fetchState

	case errMsg:
		m.lastErr = msg.err.Error()
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchState, tick())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode != inputNone {
		switch msg.Type {
		case tea.KeyEsc:
			m.mode = inputNone
			m.input = ""
			return m, nil
		case tea.KeyEnter:
			return m.submitInput()
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil
		case tea.KeyRunes, tea.KeySpace:
			m.input += msg.String()
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "o":
		m.mode = inputCreate
		m.input = ""
		return m, nil
	case "p":
		m.mode = inputPrize
		m.input = ""
		return m, nil
	case "c":
		return m, m.closeCurrent
	case "r":
		return m, m.resolveClosed
	}
	return m, nil
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	mode, input := m.mode, strings.TrimSpace(m.input)
	m.mode = inputNone
	m.input = ""

	switch mode {
	case inputCreate:
		return m, func() tea.Msg {
			fields := strings.Fields(input)
			if len(fields) != 3 {
				return errMsg{fmt.Errorf("expected: <round#> <blockHeight> <minutes>")}
			}
			number, err1 := strconv.Atoi(fields[0])
			height, err2 := strconv.ParseInt(fields[1], 10, 64)
			minutes, err3 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil || err3 != nil {
				return errMsg{fmt.Errorf("round, height and minutes must be integers")}
			}
			round, err := m.client.CreateRound(number, height, minutes)
			if err != nil {
				return errMsg{err}
			}
			return statusMsg(fmt.Sprintf("round #%d opened, target block %d", round.RoundNumber, round.BlockHeight))
		}
	case inputPrize:
		return m, func() tea.Msg {
			fields := strings.Fields(input)
			if len(fields) != 4 {
				return errMsg{fmt.Errorf("expected: <jackpot> <first> <second> <currency>")}
			}
			if err := m.client.SavePrizeConfig(fields[0], fields[1], fields[2], fields[3]); err != nil {
				return errMsg{err}
			}
			return statusMsg("prize config saved")
		}
	}
	return m, nil
}

func (m Model) closeCurrent() tea.Msg {
	if m.state == nil || m.state.CurrentRound == nil {
		return errMsg{fmt.Errorf("no open round to close")}
	}
	id := m.state.CurrentRound.ID
	if err := m.client.CloseRound(id); err != nil {
		return errMsg{err}
	}
	return statusMsg(fmt.Sprintf("round %d closed", id))
}

func (m Model) resolveClosed() tea.Msg {
	if m.state == nil {
		return errMsg{fmt.Errorf("state not loaded yet")}
	}
	var target *models.Round
	for i := range m.state.Rounds {
		if m.state.Rounds[i].Status == models.RoundClosed {
			target = &m.state.Rounds[i]
			break
		}
	}
	if target == nil {
		return errMsg{fmt.Errorf("no closed round, close one first")}
	}
	result, err := m.client.ResolveRound(target.ID)
	if err != nil {
		return errMsg{err}
	}
	return statusMsg(fmt.Sprintf("round %d resolved: winner @%s (guess %d, actual %d)",
		result.RoundID, result.Winner.Username, result.Winner.GuessValue, result.ActualTxCount))
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.state == nil {
		if m.lastErr != "" {
			return errStyle.Render("cannot reach daemon: " + m.lastErr)
		}
		return "Loading..."
	}

	sections := []string{
		titleStyle.Render("Block Guess admin dashboard"),
		m.renderRound(),
		m.renderGuesses(),
		m.renderPrize(),
		m.renderFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderRound() string {
	round := m.state.CurrentRound
	if round == nil {
		// No open round: show the most recent one for context.
		if len(m.state.Rounds) > 0 {
			round = &m.state.Rounds[0]
		} else {
			return labelStyle.Render("no rounds yet, press 'o' to open one")
		}
	}

	status := string(round.Status)
	switch round.Status {
	case models.RoundOpen:
		status = openStyle.Render(status)
	case models.RoundClosed:
		status = closedStyle.Render(status)
	case models.RoundFinished:
		status = doneStyle.Render(status)
	}

	lines := []string{
		fmt.Sprintf("%s #%d  %s %s", labelStyle.Render("round"), round.RoundNumber, labelStyle.Render("status"), status),
		fmt.Sprintf("%s #%d", labelStyle.Render("target block"), round.BlockHeight),
	}
	if round.Status == models.RoundOpen {
		remaining := time.Until(round.EndTime).Round(time.Second)
		countdown := "expired (waiting for target block)"
		if remaining > 0 {
			countdown = remaining.String()
		}
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("countdown"), valueStyle.Render(countdown)))
	}
	if round.ActualTxCount != nil {
		lines = append(lines, fmt.Sprintf("%s %d tx", labelStyle.Render("actual"), *round.ActualTxCount))
	}
	if round.WinnerAddress != nil {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("winner"), valueStyle.Render(*round.WinnerAddress)))
	}
	if round.PrizeLabel != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("prize"), valueStyle.Render(round.PrizeLabel)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderGuesses() string {
	guesses := m.state.Guesses
	header := labelStyle.Render(fmt.Sprintf("guesses (%d)", len(guesses)))
	if len(guesses) == 0 {
		return header
	}

	colUser, colGuess := 20, 8
	rows := []string{header}
	rows = append(rows, helpStyle.Render(padToWidth("user", colUser)+padToWidth("guess", colGuess)+"submitted"))
	for _, g := range guesses {
		rows = append(rows, padToWidth("@"+g.Username, colUser)+
			padToWidth(strconv.Itoa(g.GuessValue), colGuess)+
			g.SubmittedAt.Local().Format("15:04:05"))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderPrize() string {
	cfg := m.state.PrizeConfig
	if cfg == nil {
		return labelStyle.Render("prizes not configured, press 'p'")
	}
	return fmt.Sprintf("%s jackpot %s, 1st %s, 2nd %s %s",
		labelStyle.Render("prizes"),
		cfg.Jackpot.String(), cfg.FirstPlace.String(), cfg.SecondPlace.String(), cfg.Currency)
}

func (m Model) renderFooter() string {
	if m.mode == inputCreate {
		return promptStyle.Render("open round <round#> <blockHeight> <minutes>: " + m.input + "▌")
	}
	if m.mode == inputPrize {
		return promptStyle.Render("prizes <jackpot> <first> <second> <currency>: " + m.input + "▌")
	}

	parts := []string{helpStyle.Render("o open  c close  r resolve  p prizes  q quit")}
	if m.status != "" {
		parts = append(parts, valueStyle.Render(m.status))
	}
	if m.lastErr != "" {
		parts = append(parts, errStyle.Render(m.lastErr))
	}
	return strings.Join(parts, "\n")
}

// Run starts the dashboard and blocks until the user quits.
func Run(client *Client) error {
	_, err := tea.NewProgram(NewModel(client), tea.WithAltScreen()).Run()
	return err
}
