// File: cmd/tcp-pubsub-demo/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on danmuck-edgectl's cmd/ghostctl/config.go: a raw toml struct
// decoded with meta.IsDefined so an absent key never clobbers a flag-set
// default.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tsingakbar/tcp-pubsub/server"
)

type fileConfig struct {
	ListenAddress          string `toml:"listen_address"`
	ListenPort             int    `toml:"listen_port"`
	NumWorkers             int    `toml:"num_workers"`
	TransientLocalMaxCount int    `toml:"transient_local_max_count"`
	TransientLocalLifespan string `toml:"transient_local_lifespan"`
}

func loadConfig(path string, cfg *server.Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("listen_address") {
		cfg.ListenAddress = strings.TrimSpace(raw.ListenAddress)
	}
	if meta.IsDefined("listen_port") {
		cfg.ListenPort = uint16(raw.ListenPort)
	}
	if meta.IsDefined("num_workers") {
		cfg.NumWorkers = raw.NumWorkers
	}
	if meta.IsDefined("transient_local_max_count") {
		cfg.TransientLocalMaxCount = raw.TransientLocalMaxCount
	}
	if meta.IsDefined("transient_local_lifespan") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.TransientLocalLifespan))
		if err != nil {
			return fmt.Errorf("parse transient_local_lifespan: %w", err)
		}
		cfg.TransientLocalLifespan = d
	}
	return nil
}
