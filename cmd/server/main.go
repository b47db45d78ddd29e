// Command server runs the TCP chat relay.
package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/chatrelay/internal/relay"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := relay.NewConfigFromEnv()

	srv, err := relay.NewServer(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigc
		log.WithField("signal", sig.String()).Info("shutdown signal received")
		if err := srv.Shutdown(5 * time.Second); err != nil {
			log.WithError(err).Warn("shutdown timed out")
		}
	}()

	if err := srv.ListenAndServe(); err != nil {
		var bindErr *relay.BindError
		if errors.As(err, &bindErr) {
			log.WithError(err).Fatal("failed to bind listening socket; is the port in use?")
		}
		log.WithError(err).Fatal("relay terminated")
	}
}
