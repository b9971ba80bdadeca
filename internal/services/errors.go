package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrSpawnFailure   = errors.New("spawn failure")
	ErrNonZeroExit    = errors.New("non-zero exit")
	ErrBusy           = errors.New("busy")
	ErrCancelled      = errors.New("cancelled")
	ErrTimeout        = errors.New("timeout")
	ErrConfiguration  = errors.New("configuration error")
)

// Exit codes returned by the CLI for each failure class.
const (
	ExitOK             = 0
	ExitGeneric        = 1
	ExitInvalidRequest = 2
	ExitBusy           = 3
	ExitTranscoder     = 4
	ExitCancelled      = 130
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrSpawnFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitStatus maps an error to the process exit code the CLI should use.
func ExitStatus(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCancelled):
		return ExitCancelled
	case errors.Is(err, ErrInvalidRequest):
		return ExitInvalidRequest
	case errors.Is(err, ErrBusy):
		return ExitBusy
	case errors.Is(err, ErrSpawnFailure), errors.Is(err, ErrNonZeroExit), errors.Is(err, ErrTimeout):
		return ExitTranscoder
	default:
		return ExitGeneric
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
