// Package prompt wraps promptui for the interactive parts of the CLIs.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

var (
	// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
	ErrAborted = errors.New("aborted")

	// ErrPasswordMismatch indicates the confirmation did not match.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// IsAborted reports whether err means the user gave up on a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, ErrAborted)
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

// Input prompts for a non-empty line of text.
func Input(label string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("value required")
			}
			if validate != nil {
				return validate(s)
			}
			return nil
		},
	}
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// Password prompts for a masked secret.
func Password(label string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Mask:     '*',
		Validate: validate,
	}
	result, err := p.Run()
	return result, wrapError(err)
}

// NewPassword prompts for a password twice.
func NewPassword(validate func(string) error) (string, error) {
	password, err := Password("Password", validate)
	if err != nil {
		return "", err
	}
	confirm, err := Password("Confirm password", nil)
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}

// Confirm asks a yes/no question. Answering "n" is not an error.
func Confirm(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [y/N]", label),
		IsConfirm: true,
	}
	_, err := p.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, wrapError(err)
	}
}
