package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/tokenizer-ffi/abi"
	"github.com/wippyai/tokenizer-ffi/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// playgroundOps are the calls offered in interactive mode. Their tokenizer
// argument is bound to the loaded session.
var playgroundOps = []string{abi.OpEncode, abi.OpDecode}

type interactiveModel struct {
	err      error
	ctx      context.Context
	loader   engine.Loader
	sess     *session
	src      source
	result   string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type funcInfo struct {
	name       string
	resultType string
	params     []paramInfo
}

type paramInfo struct {
	name    string
	witType wit.Type
	typeStr string
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(ctx context.Context, loader engine.Loader, src source) *interactiveModel {
	return &interactiveModel{
		ctx:    ctx,
		loader: loader,
		src:    src,
		state:  stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	sess  *session
	funcs []funcInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadTokenizer
}

func (m *interactiveModel) loadTokenizer() tea.Msg {
	sess, err := openSession(m.ctx, m.loader, m.src)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{sess: sess, funcs: playgroundFuncs()}
}

func playgroundFuncs() []funcInfo {
	var funcs []funcInfo
	for _, op := range playgroundOps {
		sig, ok := abi.Lookup(op)
		if !ok {
			continue
		}
		fi := funcInfo{name: sig.Name}
		for _, p := range sig.Params[1:] {
			fi.params = append(fi.params, paramInfo{
				name:    p.Name,
				witType: p.Type,
				typeStr: abi.TypeString(p.Type),
			})
		}
		if sig.Result != nil {
			fi.resultType = abi.TypeString(sig.Result)
		}
		funcs = append(funcs, fi)
	}
	return funcs
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.close()
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				m.close()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sess = msg.sess
		m.funcs = msg.funcs

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) close() {
	if m.sess != nil {
		_ = m.sess.Close()
		m.sess = nil
	}
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.sess == nil {
		return callResultMsg{err: fmt.Errorf("tokenizer not loaded")}
	}

	f := m.funcs[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		v, err := convertArg(input.Value(), f.params[i].witType)
		if err != nil {
			return callResultMsg{err: fmt.Errorf("%s: %w", f.params[i].name, err)}
		}
		args[i] = v
	}

	switch f.name {
	case abi.OpEncode:
		enc, err := m.sess.encode(args[0].(string), args[1].(bool))
		if err != nil {
			return callResultMsg{err: err}
		}
		return callResultMsg{result: renderEncoding(enc)}
	case abi.OpDecode:
		text, err := m.sess.decode(args[0].([]uint32), args[1].(bool))
		if err != nil {
			return callResultMsg{err: err}
		}
		return callResultMsg{result: fmt.Sprintf("%q", text)}
	}
	return callResultMsg{err: fmt.Errorf("%s is not callable here", f.name)}
}

func convertArg(value string, t wit.Type) (any, error) {
	switch t.(type) {
	case wit.String:
		return value, nil
	case wit.Bool:
		v := strings.ToLower(strings.TrimSpace(value))
		return v == "true" || v == "1" || v == "y" || v == "yes", nil
	}
	if abi.TypeString(t) == "list<u32>" {
		return parseIDs(value)
	}
	return nil, fmt.Errorf("unsupported argument type %s", abi.TypeString(t))
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Loading tokenizer..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Tokenizer Playground"))
	b.WriteString(" ")
	b.WriteString(m.src.String())
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a call:\n\n")
		for i, f := range m.funcs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatFunc(f)))
			} else {
				b.WriteString(cursor + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	var params []string
	for _, p := range f.params {
		params = append(params, p.name+": "+typeStyle.Render(p.typeStr))
	}
	result := ""
	if f.resultType != "" {
		result = " -> " + typeStyle.Render(f.resultType)
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(ctx context.Context, loader engine.Loader, src source) error {
	if err := src.validate(); err != nil {
		return err
	}
	m := newInteractiveModel(ctx, loader, src)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	m.close()
	return err
}
