package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	dErrors "safeshift/pkg/domain-errors"
)

// prompter asks questions on the command's terminal.
type prompter struct {
	in  io.ReadCloser
	out io.WriteCloser
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{
		in:  io.NopCloser(cmd.InOrStdin()),
		out: nopWriteCloser{cmd.OutOrStdout()},
	}
}

var promptTemplates = &promptui.PromptTemplates{
	Prompt:  "{{ . }}: ",
	Valid:   "{{ . | green }}: ",
	Invalid: "{{ . | red }}: ",
	Success: "{{ . | bold }}: ",
}

func (p *prompter) text(label, def string, required bool) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   def,
		Templates: promptTemplates,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	if required {
		prompt.Validate = func(in string) error {
			if strings.TrimSpace(in) == "" {
				return errors.New("required")
			}
			return nil
		}
	}
	out, err := prompt.Run()
	return strings.TrimSpace(out), cancelled(err)
}

func (p *prompter) secret(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Mask:      '*',
		Templates: promptTemplates,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	out, err := prompt.Run()
	return out, cancelled(err)
}

// confirm returns false on "n" and on an empty answer unless def is true.
func (p *prompter) confirm(label string, def bool) (bool, error) {
	d := "n"
	if def {
		d = "y"
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   d,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	_, err := prompt.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, cancelled(err)
	}
}

type choice struct {
	Label string
	Value string
}

func (p *prompter) pick(label string, choices []choice, current string) (string, error) {
	cursor := 0
	for i, c := range choices {
		if c.Value == current {
			cursor = i
		}
	}
	sel := promptui.Select{
		Label:     label,
		Items:     choices,
		CursorPos: cursor,
		HideHelp:  true,
		Size:      len(choices),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}?",
			Active:   "➜  {{ .Label | bold }}",
			Inactive: "   {{ .Label }}",
			Selected: label + ": {{ .Label | green }}",
		},
		Stdin:  p.in,
		Stdout: p.out,
	}
	i, _, err := sel.Run()
	if err != nil {
		return "", cancelled(err)
	}
	return choices[i].Value, nil
}

func cancelled(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return dErrors.New(dErrors.CodeInvalidState, "cancelled")
	}
	return err
}
