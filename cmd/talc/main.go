package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/talc-dev/talc/internal/app"
	"github.com/talc-dev/talc/internal/tui"
	"go.uber.org/fx"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.talc/config.toml)")
	flag.Parse()

	var ui *tui.App
	fxApp := fx.New(
		app.Module(app.Params{ConfigPath: *configFlag}),
		fx.Populate(&ui),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	runErr := ui.Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := fxApp.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}
