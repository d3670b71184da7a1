package prompt

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question. An empty answer picks the default.
func Confirm(label string, defaultYes bool) (bool, error) {
	if !Interactive() {
		return false, ErrNotInteractive
	}

	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, hint),
		IsConfirm: true,
	}

	result, err := p.Run()
	if err != nil {
		switch {
		case err == promptui.ErrInterrupt:
			return false, ErrAborted
		case err == promptui.ErrAbort:
			// promptui reports "n" as ErrAbort
			return false, nil
		case result == "":
			return defaultYes, nil
		}
		return false, err
	}

	answer := strings.ToLower(result)
	return answer == "y" || answer == "yes", nil
}

// ConfirmWithForce returns true without asking when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}
