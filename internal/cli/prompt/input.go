// Package prompt asks the user for input on an interactive terminal.
package prompt

import (
	"errors"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
)

// ErrAborted is returned when the user aborts a prompt with Ctrl+C.
var ErrAborted = errors.New("aborted")

// ErrNotInteractive is returned when stdin is not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// IsAborted reports whether err means the user aborted.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

// Interactive reports whether prompts can be shown.
func Interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for text, re-asking until validate accepts it.
func Input(label, defaultValue string, validate func(string) error) (string, error) {
	if !Interactive() {
		return "", ErrNotInteractive
	}
	p := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
	}
	result, err := p.Run()
	return result, wrapError(err)
}
