package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/embedwasm/wasm-host/engine"
	"github.com/embedwasm/wasm-host/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2D7D46")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2D7D46"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	rt       *runtime.Runtime
	module   *runtime.Module
	cfg      *config
	filename string
	result   string
	exports  []engine.ExportInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type loadedMsg struct {
	err     error
	module  *runtime.Module
	exports []engine.ExportInfo
}

type callResultMsg struct {
	err    error
	result string
}

func runInteractive(filename string, cfg *config) error {
	m := &interactiveModel{
		filename: filename,
		cfg:      cfg,
		rt:       runtime.Default(),
		state:    stateSelectFunc,
	}
	_, err := tea.NewProgram(m).Run()
	return err
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	if m.cfg.ThreadStackSize > 0 {
		runtime.SetThreadStackSize(m.cfg.ThreadStackSize)
	}
	if err := m.rt.Begin(ctx, m.cfg.PoolSize); err != nil {
		return loadedMsg{err: err}
	}

	mod := m.rt.NewModule()
	if err := mod.Load(ctx, data, m.cfg.StackSize, m.cfg.HeapSize); err != nil {
		mod.Close(ctx)
		m.rt.End(ctx)
		return loadedMsg{err: err}
	}

	return loadedMsg{module: mod, exports: mod.Exports()}
}

func (m *interactiveModel) shutdown() {
	ctx := context.Background()
	if m.module != nil {
		m.module.Close(ctx)
	}
	m.rt.End(ctx)
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				m.shutdown()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.exports)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.exports) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callSelected
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callSelected

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
		m.module = msg.module
		m.exports = msg.exports

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

func (m *interactiveModel) prepareInputs() {
	exp := m.exports[m.selected]
	m.inputs = make([]textinput.Model, exp.ParamCount)
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = "u32"
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 20
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callSelected() tea.Msg {
	ctx := context.Background()
	exp := m.exports[m.selected]

	slots := exp.ParamCount
	if exp.ResultCount > slots {
		slots = exp.ResultCount
	}
	argv := make([]uint32, slots)
	for i, input := range m.inputs {
		v, err := strconv.ParseUint(strings.TrimSpace(input.Value()), 10, 32)
		if err != nil {
			return callResultMsg{err: fmt.Errorf("arg%d: %w", i, err)}
		}
		argv[i] = uint32(v)
	}

	if err := m.module.CallFunction(ctx, exp.Name, argv); err != nil {
		return callResultMsg{err: fmt.Errorf("%w (%s)", err, m.module.Err())}
	}

	if exp.ResultCount > 0 {
		return callResultMsg{result: fmt.Sprintf("%s => %d", exp.Name, argv[0])}
	}
	return callResultMsg{result: fmt.Sprintf("%s => ok", exp.Name)}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wasm-host: " + m.filename))
	b.WriteString("\n\n")

	if m.err != nil && m.state != stateShowResult {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q: quit"))
		return b.String()
	}

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Exported functions:\n\n")
		for i, exp := range m.exports {
			line := fmt.Sprintf("  %s (params: %d, results: %d)",
				exp.Name, exp.ParamCount, exp.ResultCount)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line[2:]))
			} else {
				b.WriteString(funcStyle.Render(line))
			}
			b.WriteByte('\n')
		}
		if capacity, inUse := m.rt.PoolStats(); capacity > 0 {
			b.WriteString("\n")
			b.WriteString(statsStyle.Render(
				fmt.Sprintf("pool: %d / %d bytes", inUse, capacity)))
			b.WriteByte('\n')
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("up/down: select  enter: call  q: quit"))

	case stateInputArgs:
		b.WriteString(fmt.Sprintf("Arguments for %s:\n\n", m.exports[m.selected].Name))
		for i := range m.inputs {
			b.WriteString("  " + m.inputs[i].View() + "\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab: next field  enter: call  esc: back"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter/esc: back  q: quit"))
	}

	return b.String()
}
