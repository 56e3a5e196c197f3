package secrets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter solicits configuration values from the operator.
type Prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

// NewPrompter reads from stdin and writes prompts to stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithStreams(os.Stdin, os.Stdout)
}

// NewPrompterWithStreams is used by tests to script the interaction.
func NewPrompterWithStreams(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, reader: bufio.NewReader(in), out: out}
}

// Ask prompts for a non-sensitive value, substituting the default on empty input.
func (p *Prompter) Ask(label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, defaultValue)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	value := p.readLine()
	if value == "" {
		return defaultValue
	}

	return value
}

// AskSecret prompts for a sensitive value with input masking when stdin is a
// terminal, falling back to a plain read otherwise (piped input, tests).
func (p *Prompter) AskSecret(label string) string {
	fmt.Fprintf(p.out, "%s: ", label)

	if file, ok := p.in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		value, err := term.ReadPassword(int(file.Fd()))

		fmt.Fprintln(p.out)

		if err == nil {
			return strings.TrimSpace(string(value))
		}
	}

	return p.readLine()
}

//nolint:errcheck // Interactive helper, EOF handled as empty input.
func (p *Prompter) readLine() string {
	input, _ := p.reader.ReadString('\n')

	return strings.TrimSpace(input)
}
