// Package prompt reads operator input one line at a time.
//
// Terminal drives a bubbletea text input and is used when stdin is a TTY.
// Lines reads newline-terminated answers from any reader, for pipes and
// scripts. Scripted replays fixed answers in tests.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// ErrCancelled is returned when the operator aborts a prompt.
var ErrCancelled = errors.New("prompt cancelled")

// Source is anything that answers a prompt with one line.
type Source interface {
	ReadLine(prompt string) (string, error)
}

// ForStdin picks Terminal when stdin is a terminal and Lines otherwise.
func ForStdin() Source {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return &Terminal{In: os.Stdin, Out: os.Stdout}
	}
	return NewLines(os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Terminal
// ---------------------------------------------------------------------------

// Terminal asks each question with a bubbletea text input.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// ReadLine runs a one-field program and returns what was entered.
// Ctrl+C and Esc return ErrCancelled.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	var opts []tea.ProgramOption
	if t.In != nil {
		opts = append(opts, tea.WithInput(t.In))
	}
	out := t.Out
	if out == nil {
		out = os.Stdout
	}
	opts = append(opts, tea.WithOutput(out))

	result, err := tea.NewProgram(newLineModel(prompt), opts...).Run()
	if err != nil {
		return "", err
	}
	final, ok := result.(lineModel)
	if !ok || !final.done {
		return "", ErrCancelled
	}
	// The view is cleared on exit; keep the answer in the scrollback.
	fmt.Fprintf(out, "%s%s\n", prompt, final.input.Value())
	return final.input.Value(), nil
}

// lineModel is a bubbletea model that asks a single question.
type lineModel struct {
	prompt string
	input  textinput.Model
	done   bool
}

func newLineModel(prompt string) lineModel {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 512
	ti.Focus()
	return lineModel{prompt: prompt, input: ti}
}

func (m lineModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m lineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m lineModel) View() string {
	if m.done {
		return ""
	}
	return m.prompt + m.input.View() + "\n"
}

// ---------------------------------------------------------------------------
// Lines
// ---------------------------------------------------------------------------

// Lines reads one answer per input line.
type Lines struct {
	r   *bufio.Reader
	out io.Writer
}

// NewLines reads answers from r and writes prompts to out.
func NewLines(r io.Reader, out io.Writer) *Lines {
	return &Lines{r: bufio.NewReader(r), out: out}
}

// ReadLine prints prompt and returns the next line without its line ending.
// It returns io.EOF once the input is exhausted.
func (l *Lines) ReadLine(prompt string) (string, error) {
	if l.out != nil {
		fmt.Fprint(l.out, prompt)
	}
	line, err := l.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ---------------------------------------------------------------------------
// Scripted
// ---------------------------------------------------------------------------

// Scripted answers prompts from a fixed list and records what was asked.
type Scripted struct {
	Answers []string
	Asked   []string
	// Err, when set, is returned once the answers run out instead of io.EOF.
	Err error
}

// ReadLine returns the next scripted answer.
func (s *Scripted) ReadLine(prompt string) (string, error) {
	s.Asked = append(s.Asked, prompt)
	if len(s.Answers) == 0 {
		if s.Err != nil {
			return "", s.Err
		}
		return "", io.EOF
	}
	next := s.Answers[0]
	s.Answers = s.Answers[1:]
	return next, nil
}

// Required reads one answer for a value the command cannot run without.
// An empty answer is returned as is; io.EOF becomes ErrCancelled.
func Required(src Source, prompt string) (string, error) {
	v, err := src.ReadLine(prompt)
	if errors.Is(err, io.EOF) {
		return "", ErrCancelled
	}
	return v, err
}
