// Command bridge runs the WebSocket gateway in front of the chat relay.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/chatrelay/internal/bridge"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := bridge.NewConfigFromEnv()
	gateway := bridge.New(cfg, log)
	server := gateway.Server()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigc
		log.WithField("signal", sig.String()).Info("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("bridge shutdown error")
		}
	}()

	log.WithFields(logrus.Fields{
		"addr":  cfg.ListenAddr,
		"relay": cfg.RelayAddr,
	}).Info("bridge listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("bridge terminated")
	}

	log.Info("bridge stopped")
}
