package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"karaoke/internal/workflow"
)

// Exit codes: 1 for any failure, 2 when another run already holds the
// workspace lock so wrappers can retry instead of reporting an error.
func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "karaoke: %v\n", err)
	}
	if errors.Is(err, workflow.ErrAlreadyRunning) {
		os.Exit(2)
	}
	os.Exit(1)
}
