package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/diogo/waveportal/internal/config"
	"github.com/diogo/waveportal/internal/contract"
	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/logging"
	"github.com/diogo/waveportal/internal/models"
	"github.com/diogo/waveportal/internal/render"
	"github.com/diogo/waveportal/internal/wallet"
)

// resubscribeDelay is the wait before subscribing again after the
// NewWave subscription failed or was lost
const resubscribeDelay = 5 * time.Second

// Opener creates the contract client for a connected account
type Opener func(ctx context.Context, from common.Address) (contract.WavePortal, error)

// Dependencies are the collaborators of the view
type Dependencies struct {
	Wallet wallet.Wallet
	Open   Opener
	// Events is optional; without it only the contract history is shown
	Events    contract.Subscriber
	Logger    *logrus.Logger
	Config    config.Config
	Clipboard func(string) error
}

// Message types for the TUI
type (
	accountsMsg struct {
		present  bool
		accounts []common.Address
		err      error
	}
	networkMsg struct {
		network string
		err     error
	}
	networkTickMsg time.Time
	connectedMsg   struct {
		account common.Address
		err     error
	}
	clientMsg struct {
		client contract.WavePortal
		err    error
	}
	wavesLoadedMsg struct {
		records []models.WaveRecord
		err     error
	}
	subscribedMsg struct {
		sub *contract.Subscription
		err error
	}
	subscriptionEndedMsg struct {
		sub *contract.Subscription
		err error
	}
	resubscribeMsg struct{}
	waveEventMsg struct {
		record models.WaveRecord
	}
	waveSentMsg struct {
		tx     contract.TxHandle
		before uint64
		err    error
	}
	waveMinedMsg struct {
		tx    contract.TxHandle
		after uint64
		err   error
	}
	copiedMsg struct {
		err error
	}
)

// Model is the wave portal view
type Model struct {
	deps   Dependencies
	logger *logrus.Logger
	render render.Options

	// Session state
	state      models.ConnectionState
	waves      *models.WaveLog
	client     contract.WavePortal
	sub        *contract.Subscription
	subFailed  bool // m.err holds a subscription failure
	events     chan models.WaveRecord
	ctx        context.Context
	cancel     context.CancelFunc
	walletSeen bool // wallet detection has run
	hasWallet  bool
	connecting bool
	pending    int // waves submitted and not yet mined

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	notice string
	err    error
	ready  bool

	width  int
	height int
}

// NewModel creates the view. Nothing is called until Init.
func NewModel(deps Dependencies) Model {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = clipboard.WriteAll
	}

	state := models.NewConnectionState()

	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 280
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")
	ta.SetValue(state.Draft)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		deps:     deps,
		logger:   deps.Logger,
		render:   render.OptionsFromConfig(deps.Config),
		state:    state,
		waves:    models.NewWaveLog(),
		events:   make(chan models.WaveRecord, 64),
		ctx:      ctx,
		cancel:   cancel,
		textarea: ta,
		spinner:  s,
	}
}

// Init checks for an authorized account, reads the network and subscribes to NewWave
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.checkWallet(),
		m.checkNetwork(),
		m.networkTick(),
	}
	if m.deps.Events != nil {
		cmds = append(cmds, m.subscribe(), waitForEvent(m.events))
	}
	return tea.Batch(cmds...)
}

// State returns the connection state
func (m Model) State() models.ConnectionState {
	return m.state
}

// Records returns the records shown by the view, in order
func (m Model) Records() []models.WaveRecord {
	return m.waves.Records()
}

// Notice returns the last user-visible notice
func (m Model) Notice() string {
	if m.err != nil {
		return m.err.Error()
	}
	return m.notice
}

// gateOpen reports whether the wallet is on the required network
func (m Model) gateOpen() bool {
	return m.state.OnNetwork(m.deps.Config.RequiredNetwork)
}

func (m Model) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.deps.Config.CallTimeout())
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
		if !m.gateOpen() {
			return m, nil
		}

		switch msg.String() {
		case "enter":
			return m.startWave()
		case "ctrl+w":
			return m.startConnect()
		case "ctrl+y":
			return m, m.copyAddress()
		}

		m.textarea, cmd = m.textarea.Update(msg)
		m.state.Draft = m.textarea.Value()
		cmds = append(cmds, cmd)

	case accountsMsg:
		m.walletSeen = true
		m.hasWallet = msg.present
		switch {
		case !msg.present:
			m.logger.Info("No wallet found")
			m.notice = "Make sure you have a wallet!"
		case msg.err != nil:
			m.logger.WithError(msg.err).Warn("Failed to read authorized accounts")
			m.err = msg.err
		case len(msg.accounts) == 0:
			m.logger.Info("No authorized account found")
		default:
			account := msg.accounts[0]
			m.logger.WithField("account", account.Hex()).Info("Found an authorized account")
			m.state.Account = account.Hex()
			cmds = append(cmds, m.openClient(account))
		}

	case networkMsg:
		if msg.err != nil {
			m.logger.WithError(msg.err).Warn("Failed to get network")
			break
		}
		if msg.network != m.state.Network {
			m.logger.WithFields(logrus.Fields{
				"from": m.state.Network,
				"to":   msg.network,
			}).Info("Network changed")
			m.state.Network = msg.network
		}

	case networkTickMsg:
		cmds = append(cmds, m.checkNetwork(), m.networkTick())

	case connectedMsg:
		m.connecting = false
		if msg.err != nil {
			m.logger.WithError(msg.err).Warn("Connect failed")
			m.err = msg.err
			if apierrors.IsWalletMissing(msg.err) {
				m.hasWallet = false
			}
			break
		}
		m.err = nil
		m.hasWallet = true
		m.state.Account = msg.account.Hex()
		m.notice = "Connected " + msg.account.Hex()
		cmds = append(cmds, m.openClient(msg.account))

	case clientMsg:
		if msg.err != nil {
			m.logger.WithError(msg.err).Error("Failed to open contract client")
			m.err = msg.err
			break
		}
		if m.client != nil {
			m.client.Close()
		}
		m.client = msg.client
		cmds = append(cmds, m.loadWaves())

	case wavesLoadedMsg:
		if msg.err != nil {
			m.logger.WithError(msg.err).Warn("Failed to load waves")
			m.err = msg.err
			break
		}
		if m.waves.Seed(msg.records) {
			m.logger.WithField("count", len(msg.records)).Info("Loaded waves")
			m.refreshRecords()
		}

	case subscribedMsg:
		if msg.err != nil {
			m.logger.WithError(msg.err).Warn("Failed to subscribe to NewWave")
			m.err = msg.err
			m.subFailed = true
			cmds = append(cmds, resubscribe())
			break
		}
		m.sub = msg.sub
		if m.subFailed {
			m.err = nil
			m.notice = "Listening for new waves"
			m.subFailed = false
		}
		cmds = append(cmds, waitForSubscriptionEnd(msg.sub))

	case subscriptionEndedMsg:
		if msg.sub != m.sub {
			break
		}
		m.sub = nil
		if msg.err == nil {
			break
		}
		m.logger.WithError(msg.err).Warn("Lost the NewWave subscription")
		m.err = msg.err
		m.subFailed = true
		cmds = append(cmds, resubscribe())

	case resubscribeMsg:
		if m.sub == nil && m.ctx.Err() == nil {
			cmds = append(cmds, m.subscribe())
		}

	case waveEventMsg:
		m.logger.WithFields(logrus.Fields{
			"from":    msg.record.Address,
			"message": msg.record.Message,
		}).Info("NewWave")
		m.waves.Append(msg.record)
		m.refreshRecords()
		m.viewport.GotoBottom()
		cmds = append(cmds, waitForEvent(m.events))

	case waveSentMsg:
		if msg.err != nil {
			m.pending--
			m.logger.WithError(msg.err).Warn("Wave failed")
			m.err = msg.err
			break
		}
		m.err = nil
		m.notice = fmt.Sprintf("Mining... %s (total waves: %d)", msg.tx, msg.before)
		cmds = append(cmds, m.confirmWave(msg.tx))

	case waveMinedMsg:
		m.pending--
		if msg.err != nil {
			m.logger.WithError(msg.err).Warn("Wave not confirmed")
			m.err = msg.err
			break
		}
		m.err = nil
		m.notice = fmt.Sprintf("Mined -- %s (total waves: %d)", msg.tx, msg.after)

	case copiedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.notice = "Address copied to clipboard"
		}

	case spinner.TickMsg:
		if m.busy() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) busy() bool {
	return m.connecting || m.pending > 0
}

func (m *Model) resize() {
	contentWidth := m.width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	// header, bio, input, controls, status and notice
	vpHeight := m.height - 22
	if vpHeight < 5 {
		vpHeight = 5
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.render = m.render.WithWidth(contentWidth - 6)
	m.refreshRecords()
}

// startWave submits the draft. A second wave while one is mining is only warned about.
func (m Model) startWave() (tea.Model, tea.Cmd) {
	if m.client == nil {
		m.err = nil
		m.notice = "Connect your wallet before waving"
		return m, nil
	}

	if m.pending > 0 {
		m.notice = "Please don't send more than one wave"
	} else {
		m.notice = ""
	}
	m.err = nil
	m.pending++
	return m, tea.Batch(m.sendWave(m.state.Draft), m.spinner.Tick)
}

func (m Model) startConnect() (tea.Model, tea.Cmd) {
	if m.state.Connected() || m.connecting {
		return m, nil
	}
	m.connecting = true
	m.err = nil
	m.notice = ""

	if wallet.PromptsOnTerminal(m.deps.Wallet) {
		req := &connectRequest{wallet: m.deps.Wallet, ctx: m.ctx, timeout: m.deps.Config.CallTimeout()}
		return m, tea.Exec(req, func(err error) tea.Msg {
			return connectedMsg{account: req.account, err: err}
		})
	}
	return m, tea.Batch(m.connect(), m.spinner.Tick)
}

// connectRequest runs RequestAccounts with the terminal released, for
// wallets that prompt for a passphrase
type connectRequest struct {
	wallet  wallet.Wallet
	ctx     context.Context
	timeout time.Duration
	account common.Address
}

func (c *connectRequest) Run() error {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()
	account, err := c.wallet.RequestAccounts(ctx)
	c.account = account
	return err
}

func (c *connectRequest) SetStdin(io.Reader)  {}
func (c *connectRequest) SetStdout(io.Writer) {}
func (c *connectRequest) SetStderr(io.Writer) {}

func (m Model) checkWallet() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()

		if !m.deps.Wallet.Detect(ctx) {
			return accountsMsg{present: false}
		}
		accounts, err := m.deps.Wallet.Accounts(ctx)
		return accountsMsg{present: true, accounts: accounts, err: err}
	}
}

func (m Model) checkNetwork() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()

		network, err := m.deps.Wallet.NetworkVersion(ctx)
		return networkMsg{network: network, err: err}
	}
}

func (m Model) networkTick() tea.Cmd {
	return tea.Tick(m.deps.Config.NetworkCheckInterval(), func(t time.Time) tea.Msg {
		return networkTickMsg(t)
	})
}

func (m Model) connect() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()

		account, err := m.deps.Wallet.RequestAccounts(ctx)
		return connectedMsg{account: account, err: err}
	}
}

func (m Model) openClient(account common.Address) tea.Cmd {
	return func() tea.Msg {
		if m.deps.Open == nil {
			return clientMsg{err: fmt.Errorf("no contract client available")}
		}
		ctx, cancel := m.callContext()
		defer cancel()

		client, err := m.deps.Open(ctx, account)
		return clientMsg{client: client, err: err}
	}
}

func (m Model) loadWaves() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()

		records, err := client.AllWaves(ctx)
		return wavesLoadedMsg{records: records, err: err}
	}
}

func (m Model) subscribe() tea.Cmd {
	ctx := m.ctx
	events := m.events
	subscriber := m.deps.Events
	return func() tea.Msg {
		sub, err := subscriber.Subscribe(ctx, models.EventNewWave, func(r models.WaveRecord) {
			select {
			case events <- r:
			case <-ctx.Done():
			}
		})
		return subscribedMsg{sub: sub, err: err}
	}
}

// waitForSubscriptionEnd reports when sub stops delivering
func waitForSubscriptionEnd(sub *contract.Subscription) tea.Cmd {
	return func() tea.Msg {
		<-sub.Done()
		return subscriptionEndedMsg{sub: sub, err: sub.Err()}
	}
}

func resubscribe() tea.Cmd {
	return tea.Tick(resubscribeDelay, func(time.Time) tea.Msg {
		return resubscribeMsg{}
	})
}

// waitForEvent blocks until the subscription delivers the next record
func waitForEvent(events <-chan models.WaveRecord) tea.Cmd {
	return func() tea.Msg {
		return waveEventMsg{record: <-events}
	}
}

func (m Model) sendWave(message string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()

		before, err := client.TotalWaves(ctx)
		if err != nil {
			return waveSentMsg{err: err}
		}
		m.logger.WithField("count", before).Info("Retrieved total wave count")

		tx, err := client.Wave(ctx, message)
		return waveSentMsg{tx: tx, before: before, err: err}
	}
}

func (m Model) confirmWave(tx contract.TxHandle) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()

		if _, err := client.WaitForConfirmation(ctx, tx); err != nil {
			return waveMinedMsg{tx: tx, err: err}
		}
		after, err := client.TotalWaves(ctx)
		if err == nil {
			m.logger.WithField("count", after).Info("Retrieved total wave count")
		}
		return waveMinedMsg{tx: tx, after: after, err: err}
	}
}

func (m Model) copyAddress() tea.Cmd {
	if !m.state.Connected() || !m.deps.Config.CopyToClipboard {
		return nil
	}
	account := m.state.Account
	write := m.deps.Clipboard
	return func() tea.Msg {
		return copiedMsg{err: write(account)}
	}
}

// refreshRecords re-renders the wave cards into the viewport
func (m *Model) refreshRecords() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderRecords())
}

// renderRecords renders one card per record, oldest first
func (m Model) renderRecords() string {
	records := m.waves.Records()
	if len(records) == 0 {
		return hintStyle.Render("No waves yet.")
	}

	cardWidth := m.viewport.Width - 2
	cards := make([]string, 0, len(records))
	for _, r := range records {
		body := lipgloss.JoinVertical(lipgloss.Left,
			cardLabelStyle.Render("Address: ")+r.Address,
			cardLabelStyle.Render("Time: ")+r.Timestamp.Format(time.RFC1123),
			cardLabelStyle.Render("Message: ")+render.Message(r.Message, m.render),
		)
		cards = append(cards, cardStyle.Width(cardWidth).Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// View renders the TUI. Off the required network only the gate notice is shown.
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	if !m.gateOpen() {
		return m.renderGate()
	}

	contentWidth := m.width - 4
	var sections []string

	// Header
	account := "not connected"
	if m.state.Connected() {
		account = models.ShortenAddress(m.state.Account)
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("👋 Hey there!"),
		subtitleStyle.Render("  •  "+models.NetworkName(m.state.Network)+"  •  "+account),
	)
	sections = append(sections, headerStyle.Width(contentWidth).Render(header))

	// Bio
	bio := lipgloss.JoinVertical(lipgloss.Center,
		"Connect your Ethereum wallet and give me a wave!",
		hintStyle.Render("(Ps. Please don't send more than one wave)"),
	)
	sections = append(sections, bioStyle.Width(contentWidth).Render(bio))

	// Message input
	input := lipgloss.JoinVertical(lipgloss.Left,
		inputLabelStyle.Render("Message"),
		m.textarea.View(),
	)
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(input))

	// Controls
	controls := []string{buttonStyle.Render("Wave at Me") + buttonKeyStyle.Render("enter")}
	if !m.state.Connected() {
		controls = append(controls, buttonStyle.Render("Connect Wallet")+buttonKeyStyle.Render("ctrl+w"))
	}
	if m.busy() {
		controls = append(controls, m.spinner.View()+loadingStyle.Render(m.busyLabel()))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Center, controls...))

	// Waves
	sections = append(sections, recordsAreaStyle.Width(contentWidth).Render(m.viewport.View()))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if n := m.renderNotice(); n != "" {
		sections = append(sections, n)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) busyLabel() string {
	if m.connecting {
		return " Waiting for the wallet..."
	}
	return " Mining..."
}

func (m Model) renderNotice() string {
	if m.err != nil {
		return FormatError(m.err)
	}
	if m.notice != "" {
		return noticeStyle.Render(m.notice)
	}
	return ""
}

// renderGate renders the wrong network notice
func (m Model) renderGate() string {
	required := models.NetworkName(m.deps.Config.RequiredNetwork)

	lines := []string{
		gateTitleStyle.Render("Please connect to " + required),
		fmt.Sprintf("This dapp only works on the %s network, please switch networks in your connected wallet.", required),
		"",
		hintStyle.Render("Current network: " + models.NetworkName(m.state.Network)),
	}
	if m.walletSeen && !m.hasWallet {
		lines = append(lines, hintStyle.Render("No wallet detected: start your wallet provider or configure a keystore."))
	}
	lines = append(lines, "", statusKeyStyle.Render("Esc")+statusDescStyle.Render(" Quit"))

	width := m.width - 8
	if width < 40 {
		width = 40
	}
	return gateStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Wave"},
		{"Alt+Enter", "Newline"},
		{"Ctrl+Y", "Copy address"},
		{"↑↓", "Scroll"},
		{"Esc", "Quit"},
	}
	if !m.state.Connected() {
		shortcuts = append([]struct {
			key  string
			desc string
		}{{"Ctrl+W", "Connect"}}, shortcuts...)
	}

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// Close releases the subscription and the contract client
func (m Model) Close() {
	m.cancel()
	if m.sub != nil && m.deps.Events != nil {
		m.deps.Events.Unsubscribe(m.sub)
	}
	if m.client != nil {
		m.client.Close()
	}
}

// RunApp starts the wave portal TUI
func RunApp(deps Dependencies) error {
	SetTheme(deps.Config.TUITheme)
	m := NewModel(deps)
	m.render = m.render.ForTerminal(term.IsTerminal(int(os.Stdout.Fd())))

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	return err
}
