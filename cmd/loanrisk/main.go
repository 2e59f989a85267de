// Command loanrisk runs the loan default pipeline and its standalone
// feature tools.
//
//	loanrisk run --config pipeline.yaml
//	loanrisk downcast train.csv
//	loanrisk prune train.csv --threshold 0.9 --exclude TARGET
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "loanrisk:", err)
		stop()
		os.Exit(1)
	}
}
