package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/sca-event-decoder/internal/config"
	"github.com/invisible-tech/sca-event-decoder/internal/decoder"
	"github.com/invisible-tech/sca-event-decoder/internal/forward"
	"github.com/invisible-tech/sca-event-decoder/internal/server"
	"github.com/invisible-tech/sca-event-decoder/internal/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)

	cfg := config.DefaultDecoderConfig()

	storeClient := store.New(store.Config{
		Addr:        cfg.StoreAddr,
		DialTimeout: cfg.StoreDialTimeout,
	}, log)
	defer storeClient.Close()

	forwarderClient := forward.New(forward.Config{
		Addr:           cfg.ForwarderAddr,
		MaxMessageSize: cfg.ForwarderMaxMessageSize,
	}, log)
	defer forwarderClient.Disconnect()

	// The decoder is constructed here and handed to whatever transport
	// receives agent events; this daemon owns no listener of its own.
	dec := decoder.New(storeClient, forwarderClient, log)

	ready := func() bool { return dec != nil }
	srv := server.New(cfg, ready, log)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("SCA decoder HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down SCA decoder")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
