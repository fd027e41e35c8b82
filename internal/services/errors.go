package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures that are worth retrying (transport errors,
	// timeouts, flaky external tools).
	ErrTransient = errors.New("transient failure")
	// ErrExternalTool marks failures of an invoked external binary.
	ErrExternalTool = errors.New("external tool error")
	// ErrNoOutput marks a generative backend call that completed without
	// producing a usable artifact, as distinct from a transport error.
	ErrNoOutput = errors.New("no usable output")
	// ErrValidation marks inputs the phase cannot work with.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
