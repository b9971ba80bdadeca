package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"compressum/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, services.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "cancelled")
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(services.ExitStatus(err))
	}
}
