package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/filemover/internal/app/mover"
	"github.com/John-Robertt/filemover/internal/config"
	"github.com/John-Robertt/filemover/internal/infra/logx"
)

var tuiTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("205")).
	MarginBottom(1)

var (
	tuiLabelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tuiFocusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	tuiErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	tuiStatusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	tuiHelpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	tuiButtonStyle   = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230"))
	tuiDisabledStyle = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("238")).Foreground(lipgloss.Color("245"))
)

func newTUICmd(cli *config.CLIArgs, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [SOURCE] [DESTINATION]",
		Short: "在终端界面中选择目录并开始/停止移动",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.MarkChanged(cmd.Flags())
			setPositional(cli, args)
			eff, err := loadConfig(*cli)
			if err != nil {
				return err
			}
			// 界面占用终端：日志只在显式 --log-level=debug 时写到 stderr。
			logger := logx.Nop()
			if eff.LogLevel == "debug" {
				if logger, err = logx.New(eff.LogLevel, stderr); err != nil {
					return usageErr(err)
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, eff, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			feed := newChanObserver(16)
			a.eng.Attach(feed)

			m := newTUIModel(ctx, a.eng, feed.ch)
			if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
				a.eng.Stop()
				a.eng.Wait()
				return failureErr(err)
			}
			a.eng.Stop()
			a.eng.Wait()
			return nil
		},
	}
}

// chanObserver 把观察者消息转成 channel，供 bubbletea 的 Cmd 读取。
// 缓冲满时丢弃最旧的一条：界面只展示最新状态。
type chanObserver struct {
	ch chan string
}

func newChanObserver(size int) *chanObserver {
	return &chanObserver{ch: make(chan string, size)}
}

func (o *chanObserver) Update(message string) {
	for {
		select {
		case o.ch <- message:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}

type statusMsg string

type runDoneMsg struct{ err error }

type editField int

const (
	editNone editField = iota
	editSource
	editDestination
)

type tuiModel struct {
	ctx  context.Context
	eng  *mover.Engine
	feed <-chan string

	status   string
	errText  string
	editing  editField
	input    []rune
	starting bool // 已发出启动命令但尚未收到 started
	width    int
}

func newTUIModel(ctx context.Context, eng *mover.Engine, feed <-chan string) tuiModel {
	return tuiModel{ctx: ctx, eng: eng, feed: feed, status: "Idle"}
}

func (m tuiModel) Init() tea.Cmd {
	return waitStatus(m.feed)
}

func waitStatus(feed <-chan string) tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-feed)
	}
}

// startMoving 在 Cmd 的 goroutine 上阻塞执行一整轮会话。
// 先等上一轮循环完全退出，避免刚 Stop 又 Start 时撞上 ErrAlreadyRunning。
func startMoving(ctx context.Context, eng *mover.Engine) tea.Cmd {
	return func() tea.Msg {
		eng.Wait()
		return runDoneMsg{err: eng.Run(ctx)}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case statusMsg:
		m.status = string(msg)
		if m.status == "File moving started" {
			m.starting = false
		}
		return m, waitStatus(m.feed)
	case runDoneMsg:
		m.starting = false
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.errText = msg.err.Error()
		}
	}
	return m, nil
}

func (m tuiModel) handleKey(key string) (tuiModel, tea.Cmd) {
	if m.editing != editNone {
		return m.handleEditKey(key), nil
	}

	switch key {
	case "ctrl+c", "q":
		m.eng.Stop()
		return m, tea.Quit
	case "s":
		return m.beginEdit(editSource, m.eng.Source()), nil
	case "d":
		return m.beginEdit(editDestination, m.eng.Destination()), nil
	case "enter", "space", " ":
		return m.toggle()
	}
	return m, nil
}

func (m tuiModel) beginEdit(f editField, current string) tuiModel {
	if m.eng.Running() || m.starting {
		m.errText = "移动进行中，请先停止再修改路径"
		return m
	}
	m.editing = f
	m.input = []rune(current)
	m.errText = ""
	return m
}

func (m tuiModel) handleEditKey(key string) tuiModel {
	switch key {
	case "esc", "ctrl+c":
		m.editing = editNone
		m.input = nil
	case "enter":
		var err error
		p := string(m.input)
		if m.editing == editSource {
			err = m.eng.SetSource(p)
		} else {
			err = m.eng.SetDestination(p)
		}
		if err != nil {
			m.errText = err.Error()
			return m
		}
		m.editing = editNone
		m.input = nil
		m.errText = ""
	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case "space":
		m.input = append(m.input, ' ')
	default:
		if utf8.RuneCountInString(key) == 1 {
			r, _ := utf8.DecodeRuneInString(key)
			if unicode.IsPrint(r) {
				m.input = append(m.input, r)
			}
		}
	}
	return m
}

func (m tuiModel) toggle() (tuiModel, tea.Cmd) {
	if m.eng.Running() {
		m.eng.Stop()
		return m, nil
	}
	if m.starting || !m.eng.Ready() {
		return m, nil
	}
	m.starting = true
	m.errText = ""
	return m, startMoving(m.ctx, m.eng)
}

func (m tuiModel) buttonLabel() string {
	if m.eng.Running() || m.starting {
		return "Stop Moving"
	}
	return "Start Moving"
}

func (m tuiModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m tuiModel) render() string {
	var b strings.Builder
	b.WriteString(tuiTitleStyle.Render("filemover"))
	b.WriteString("\n")

	b.WriteString(m.pathLine("Source     ", editSource, m.eng.Source()))
	b.WriteString("\n")
	b.WriteString(m.pathLine("Destination", editDestination, m.eng.Destination()))
	b.WriteString("\n\n")

	btn := tuiButtonStyle
	if !m.eng.Ready() {
		btn = tuiDisabledStyle
	}
	b.WriteString(btn.Render(m.buttonLabel()))
	b.WriteString("\n\n")
	b.WriteString(tuiStatusStyle.Render(m.status))
	b.WriteString("\n")

	if m.errText != "" {
		b.WriteString(tuiErrorStyle.Render(m.errText))
		b.WriteString("\n")
	}

	help := "s 源目录 · d 目标目录 · enter/space 开始/停止 · q 退出"
	if m.editing != editNone {
		help = "enter 确认 · esc 取消"
	}
	b.WriteString(tuiHelpStyle.Render(help))
	return b.String()
}

func (m tuiModel) pathLine(label string, f editField, value string) string {
	if m.editing == f {
		return tuiFocusStyle.Render(label) + "  " + string(m.input) + "▌"
	}
	if value == "" {
		value = "(未设置)"
	}
	return tuiLabelStyle.Render(label) + "  " + value
}
