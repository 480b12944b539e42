package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "metaverse.db", "Path to the analytics SQLite database ('' disables analytics)")
	logPath := flag.String("log", "server.log", "Path to the rotating log file")
	baseURL := flag.String("base-url", "http://localhost:8080", "Public base URL for QR invite links")
	flag.Parse()

	if err := InitLogger(*logPath); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer SyncLogger()

	var analytics *Analytics
	if *dbPath != "" {
		db, err := OpenDB(*dbPath)
		if err != nil {
			Log.Warnf("analytics disabled, open db: %v", err)
		} else {
			defer db.Close()
			analytics = NewAnalytics(db)
			defer analytics.Stop()
		}
	}

	hub := NewHub(analytics)
	go hub.Run()

	pingStop := make(chan struct{})
	go hub.RunPinger(pingStop)

	mux := SetupRoutes(hub, *baseURL)
	server := &http.Server{Addr: *addr, Handler: mux}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		Log.Infof("metaverse server listening on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			Log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	Log.Info("Shutting down...")
	close(pingStop)
	server.Close()
}
