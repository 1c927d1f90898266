package commands

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// errPromptAborted is returned when the user leaves a prompt with ctrl+c or
// esc.
var errPromptAborted = errors.New("prompt aborted")

// promptModel reads a single line from the terminal.
type promptModel struct {
	input   textinput.Model
	done    bool
	aborted bool
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit

		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m promptModel) View() string {
	if m.done || m.aborted {
		return ""
	}

	return m.input.View() + "\n"
}

// prompt asks for a value on the terminal. Secret input is masked.
func prompt(label string, secret bool) (string, error) {
	in := textinput.New()
	in.Prompt = label + ": "
	in.Focus()
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}

	final, err := tea.NewProgram(promptModel{input: in}).Run()
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}

	m := final.(promptModel)
	if m.aborted {
		return "", errPromptAborted
	}

	return m.input.Value(), nil
}
