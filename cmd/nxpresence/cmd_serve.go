package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryanm101/nxpresence/logging"
	"github.com/ryanm101/nxpresence/server"
)

func handleServeCommand(ctx context.Context) {
	svc, tokens := newLookup()

	var status server.TokenStatus
	if tokens != nil {
		status = tokens
	}
	srv := server.NewServer(svc, status).HTTPServer(cfg.GetPort())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("server shutdown failed", "error", err)
		}
	}()

	PrintInfo("nxpresence API\n")
	PrintInfo("   http://localhost:%s\n\n", cfg.GetPort())
	logging.Info("listening", "addr", srv.Addr, "igdb", svc.HasRemote())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		PrintError("Error: server error: %v\n", err)
		os.Exit(1)
	}
}
