package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Tyrowin/ratechat/internal/logging"
	"github.com/Tyrowin/ratechat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config := server.NewConfigFromEnv()

	if err := logging.Setup(config.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log.Println("Starting rate chat server...")
	srv := server.New(*config)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("Received %s, shutting down", sig)
		if err := srv.Shutdown(shutdownTimeout); err != nil {
			log.Errorf("Shutdown incomplete: %v", err)
			os.Exit(1)
		}
	}
}
