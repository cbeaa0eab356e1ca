package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/adbctl/internal/transport"
)

const defaultServerAddr = "127.0.0.1:5037"

// adbctl config.toml key mapping to runtime settings.
type fileConfig struct {
	Addr           string `toml:"addr"`
	Serial         string `toml:"serial"`
	DialTimeoutMS  int64  `toml:"dial_timeout_ms"`
	ReadTimeoutMS  int64  `toml:"read_timeout_ms"`
	WriteTimeoutMS int64  `toml:"write_timeout_ms"`
}

type cliConfig struct {
	Addr      string
	Serial    string
	Transport transport.Config
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Addr:      defaultServerAddr,
		Transport: transport.DefaultConfig(),
	}
}

// loadConfig overlays config.toml values onto the defaults. Keys absent
// from the file keep their default.
func loadConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load adbctl config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("serial") {
		cfg.Serial = strings.TrimSpace(raw.Serial)
	}
	if meta.IsDefined("dial_timeout_ms") {
		cfg.Transport.DialTimeout = time.Duration(raw.DialTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("read_timeout_ms") {
		cfg.Transport.ReadTimeout = time.Duration(raw.ReadTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("write_timeout_ms") {
		cfg.Transport.WriteTimeout = time.Duration(raw.WriteTimeoutMS) * time.Millisecond
	}
	if cfg.Addr == "" {
		return cliConfig{}, fmt.Errorf("load adbctl config: addr must not be empty")
	}
	return cfg, nil
}
