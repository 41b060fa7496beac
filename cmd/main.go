package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dreamstudio/backend/internal/app"
	"github.com/dreamstudio/backend/internal/utils"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		a.Log.Error("Failed to start task runtime", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port := utils.GetEnv("PORT", "8080", a.Log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("Server listening", "port", port)
		return a.Run(":" + port)
	})
	g.Go(func() error {
		<-ctx.Done()
		a.Close()
		return ctx.Err()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		a.Log.Warn("Server exited", "error", err)
	}
}
