package main

import (
    "context"
    "log"
    "os/signal"
    "syscall"

    "ephemera/internal/app"
    "ephemera/internal/config"
)

func main() {
    cfg := config.Load()
    if err := cfg.Validate(); err != nil {
        log.Fatalf("config: %v", err)
    }
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
    defer stop()
    application, err := app.New(ctx, cfg)
    if err != nil {
        log.Fatalf("init: %v", err)
    }
    if err := application.Run(ctx); err != nil {
        log.Fatalf("run: %v", err)
    }
}
