package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"lumen/internal/client"
	"lumen/internal/config"
	"lumen/internal/console"
	"lumen/internal/logger"
	"lumen/internal/session"
)

func main() {
	cfg := config.LoadConsole()
	if cfg.Token == "" {
		fmt.Fprintln(os.Stderr, "LUMEN_TOKEN is required; issue one with `server -issue-token <tenant-id>`")
		os.Exit(2)
	}
	// The terminal belongs to the UI, so logs only go to a file.
	l, err := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL"), Dir: os.Getenv("LOG_DIR"), Component: "console", FileOnly: true})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := client.New(cfg.APIURL, cfg.Token)
	sess := session.New(api, session.Options{GenerativeTimeout: cfg.Timeout, Logger: l})
	defer sess.Close()

	p := tea.NewProgram(console.New(ctx, sess, console.Options{APIURL: cfg.APIURL}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "console:", err)
		os.Exit(1)
	}
}
