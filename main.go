// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/crossbrowse/cmd"
	"github.com/xkilldash9x/crossbrowse/internal/observability"
)

// main is the entry point for the crossbrowse CLI.
func main() {
	// SIGINT and SIGTERM cancel every running session; each is still torn down.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cmd.Execute(ctx)
	stop()
	observability.Sync()
	os.Exit(code)
}
