// File: cmd/tcp-pubsub-demo/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Publishes an incrementing counter payload at a fixed rate and prints
// live subscriber/throughput stats, the way examples/lowlevel/broadcast's
// main.go drives its facade: flags, a stats ticker, and a signal-triggered
// graceful shutdown.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tsingakbar/tcp-pubsub/control"
	"github.com/tsingakbar/tcp-pubsub/server"
	"github.com/tsingakbar/tcp-pubsub/zerologadapter"
)

func main() {
	addr := flag.String("addr", "", "listen address (empty = all interfaces)")
	port := flag.Int("port", 0, "listen port (0 = ephemeral)")
	workers := flag.Int("workers", 4, "executor worker count")
	transientCount := flag.Int("transient-local-count", 0, "transient-local ring size (0 = disabled)")
	transientLifespan := flag.Duration("transient-local-lifespan", 0, "transient-local max age (0 = no age bound)")
	publishInterval := flag.Duration("publish-interval", time.Second, "interval between published payloads")
	configPath := flag.String("config", "", "optional TOML config file overriding the flags above")
	flag.Parse()

	cfg := server.DefaultConfig()
	cfg.ListenAddress = *addr
	cfg.ListenPort = uint16(*port)
	cfg.NumWorkers = *workers
	cfg.TransientLocalMaxCount = *transientCount
	cfg.TransientLocalLifespan = *transientLifespan
	cfg.Log = zerologadapter.New("tcp-pubsub-demo")

	if *configPath != "" {
		if err := loadConfig(*configPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
	}

	h, err := server.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "new facade error: %v\n", err)
		os.Exit(1)
	}
	if err := h.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "start error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("tcp-pubsub-demo: listening on port %d\n", h.Port())

	// SIGHUP re-reads the config file (transient-local settings only; the
	// listen address/port are fixed once bound) and republishes it into the
	// facade's config store so a polling admin endpoint sees the change.
	control.RegisterReloadHook(func() {
		if *configPath == "" {
			return
		}
		reloaded := server.DefaultConfig()
		*reloaded = *cfg
		if err := loadConfig(*configPath, reloaded); err != nil {
			fmt.Fprintf(os.Stderr, "reload config: %v\n", err)
			return
		}
		h.SetConfig(map[string]any{
			"transient_local_max_count": reloaded.TransientLocalMaxCount,
			"transient_local_lifespan":  reloaded.TransientLocalLifespan.String(),
		})
		fmt.Println("config reloaded from", *configPath)
	})

	statsTicker := time.NewTicker(2 * time.Second)
	defer statsTicker.Stop()

	publishTicker := time.NewTicker(*publishInterval)
	defer publishTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)

	var seq uint64
	for {
		select {
		case <-publishTicker.C:
			payload := []byte(fmt.Sprintf("tick %d", seq))
			seq++
			if err := h.Send(payload); err != nil {
				fmt.Fprintf(os.Stderr, "send error: %v\n", err)
			}

		case <-statsTicker.C:
			stats := h.Metrics().GetSnapshot()
			fmt.Printf("[%s] subscribers=%d bytes_sent=%v dropped=%v p99_payload=%v\n",
				time.Now().Format(time.Stamp),
				h.SubscriberCount(),
				stats["bytes_sent"],
				stats["sessions_dropped_messages"],
				stats["payload_size_p99"],
			)

		case <-hupCh:
			control.TriggerHotReloadSync()

		case <-sigCh:
			fmt.Println("shutting down...")
			if err := h.Shutdown(); err != nil {
				fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}
}
