package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tankduel/internal/server"
)

func main() {
	// .env is optional; flags and environment win over defaults.
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("ADDR", ""), "listen address, e.g. 0.0.0.0")
	port := flag.String("port", envOr("PORT", "8080"), "listen port")
	logFile := flag.String("log", envOr("LOG_FILE", "logs/server.log"), "log file path")
	flag.Parse()

	if err := server.InitLogger(*logFile); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer server.SyncLogger()

	hub := server.NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	mux.HandleFunc("/health", hub.HandleHealth)

	listen := fmt.Sprintf("%s:%s", *addr, *port)
	server.Log.Infof("server starting on %s", listen)
	server.Log.Infof("websocket endpoint: ws://localhost:%s/ws", *port)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := http.ListenAndServe(listen, mux); err != nil {
			server.Log.Fatalf("server error: %v", err)
		}
	}()

	<-done
	server.Log.Info("server shutting down")
	cancel()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
