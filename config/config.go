// config.go - Pipeline configuration.
// Copyright (C) 2025  Alen Jiji.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config provides the anonymity pipeline configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/alenjiji/ebtunnel/transport"
)

const (
	defaultLogLevel = "NOTICE"

	defaultProtocolVersion = 2
	defaultReleaseBatch    = 64
	defaultMixBatch        = 64

	defaultDelayMin = 1 * time.Second
	defaultDelayMax = 200 * time.Second
	defaultEpochMin = 30 * time.Second
	defaultEpochMax = 300 * time.Second

	defaultInitialWindow    = 65536
	defaultMaxConnections   = 1024
	defaultMaxInflightOpens = 64
	defaultMaxBufferedBytes = 16 * 1024 * 1024

	defaultDialTimeout  = 60 * 1000 // 60 sec.
	defaultWriteTimeout = 30 * 1000 // 30 sec.
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// Pipeline is the anonymity pipeline configuration.
type Pipeline struct {
	// Version is the protocol version byte spoken on the wire.
	Version int

	// ReleaseBatch bounds frames released from the delay queue per tick.
	ReleaseBatch int

	// MixBatch bounds frames pulled out of the mixing pool per tick.
	MixBatch int

	// QueueDB optionally selects an on-disk spool for pending frames.
	// When empty, pending frames are held in memory.
	QueueDB string
}

func (pCfg *Pipeline) applyDefaults() {
	if pCfg.Version == 0 {
		pCfg.Version = defaultProtocolVersion
	}
	if pCfg.ReleaseBatch == 0 {
		pCfg.ReleaseBatch = defaultReleaseBatch
	}
	if pCfg.MixBatch == 0 {
		pCfg.MixBatch = defaultMixBatch
	}
}

func (pCfg *Pipeline) validate() error {
	if pCfg.Version < 0 || pCfg.Version > 255 {
		return fmt.Errorf("config: Pipeline: Version %d is not a byte", pCfg.Version)
	}
	if pCfg.ReleaseBatch < 1 {
		return errors.New("config: Pipeline: ReleaseBatch must be positive")
	}
	if pCfg.MixBatch < 1 {
		return errors.New("config: Pipeline: MixBatch must be positive")
	}
	return nil
}

// Delay configures the per-frame release delay distribution, in
// nanoseconds.
type Delay struct {
	// Min is the minimum delay in nanoseconds.  Must be positive.
	Min int64

	// Max is the maximum delay in nanoseconds.
	Max int64
}

func (dCfg *Delay) applyDefaults() {
	if dCfg.Min == 0 && dCfg.Max == 0 {
		dCfg.Min = int64(defaultDelayMin)
		dCfg.Max = int64(defaultDelayMax)
	}
}

func (dCfg *Delay) validate() error {
	if dCfg.Min <= 0 {
		return errors.New("config: Delay: Min must be > 0")
	}
	if dCfg.Max < dCfg.Min {
		return errors.New("config: Delay: Max must be >= Min")
	}
	return nil
}

// Epoch configures the path epoch duration distribution, in nanoseconds.
type Epoch struct {
	// Min is the minimum epoch duration in nanoseconds.  Must be
	// positive.
	Min int64

	// Max is the maximum epoch duration in nanoseconds.
	Max int64
}

func (eCfg *Epoch) applyDefaults() {
	if eCfg.Min == 0 && eCfg.Max == 0 {
		eCfg.Min = int64(defaultEpochMin)
		eCfg.Max = int64(defaultEpochMax)
	}
}

func (eCfg *Epoch) validate() error {
	if eCfg.Min <= 0 {
		return errors.New("config: Epoch: Min must be > 0")
	}
	if eCfg.Max < eCfg.Min {
		return errors.New("config: Epoch: Max must be >= Min")
	}
	return nil
}

// Path is one egress path descriptor.
type Path struct {
	// Scheme selects the transport adapter ("tcp" or "quic").
	Scheme string

	// Address is the dial target in host:port form.
	Address string
}

func (p *Path) validate() error {
	tp := transport.Path{Scheme: p.Scheme, Address: p.Address}
	return tp.Validate()
}

// Limits configures the relay resource limits.
type Limits struct {
	// InitialWindow is the per-connection initial flow-control window in
	// bytes.
	InitialWindow int

	// MaxConnections bounds the connection table.
	MaxConnections int

	// MaxInflightOpens bounds simultaneously unfinalized opens.
	MaxInflightOpens int

	// MaxBufferedBytes bounds buffered frame bytes.
	MaxBufferedBytes int
}

func (lCfg *Limits) applyDefaults() {
	if lCfg.InitialWindow == 0 {
		lCfg.InitialWindow = defaultInitialWindow
	}
	if lCfg.MaxConnections == 0 {
		lCfg.MaxConnections = defaultMaxConnections
	}
	if lCfg.MaxInflightOpens == 0 {
		lCfg.MaxInflightOpens = defaultMaxInflightOpens
	}
	if lCfg.MaxBufferedBytes == 0 {
		lCfg.MaxBufferedBytes = defaultMaxBufferedBytes
	}
}

func (lCfg *Limits) validate() error {
	if lCfg.InitialWindow < 1 {
		return errors.New("config: Limits: InitialWindow must be positive")
	}
	if lCfg.MaxConnections < 1 {
		return errors.New("config: Limits: MaxConnections must be positive")
	}
	if lCfg.MaxInflightOpens < 1 {
		return errors.New("config: Limits: MaxInflightOpens must be positive")
	}
	if lCfg.MaxBufferedBytes < 1 {
		return errors.New("config: Limits: MaxBufferedBytes must be positive")
	}
	return nil
}

// Transport configures the dialing behavior, in milliseconds.
type Transport struct {
	// DialTimeoutMS bounds connection establishment.
	DialTimeoutMS int

	// WriteTimeoutMS bounds each transport write.
	WriteTimeoutMS int
}

func (tCfg *Transport) applyDefaults() {
	if tCfg.DialTimeoutMS == 0 {
		tCfg.DialTimeoutMS = defaultDialTimeout
	}
	if tCfg.WriteTimeoutMS == 0 {
		tCfg.WriteTimeoutMS = defaultWriteTimeout
	}
}

func (tCfg *Transport) validate() error {
	if tCfg.DialTimeoutMS < 0 {
		return errors.New("config: Transport: DialTimeoutMS must not be negative")
	}
	if tCfg.WriteTimeoutMS < 0 {
		return errors.New("config: Transport: WriteTimeoutMS must not be negative")
	}
	return nil
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	switch lCfg.Level {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	return nil
}

// Management is the management interface configuration.
type Management struct {
	// MetricsAddress is the address/port to bind the metrics endpoint
	// to.  Empty disables the endpoint.
	MetricsAddress string
}

// Config is the top level pipeline configuration.
type Config struct {
	Pipeline   Pipeline
	Delay      Delay
	Epoch      Epoch
	Paths      []Path
	Limits     Limits
	Transport  Transport
	Logging    *Logging
	Management Management
}

// DelayBounds returns the delay distribution bounds as durations.
func (cfg *Config) DelayBounds() (min, max time.Duration) {
	return time.Duration(cfg.Delay.Min), time.Duration(cfg.Delay.Max)
}

// EpochBounds returns the epoch duration bounds as durations.
func (cfg *Config) EpochBounds() (min, max time.Duration) {
	return time.Duration(cfg.Epoch.Min), time.Duration(cfg.Epoch.Max)
}

// TransportPaths returns the configured paths as transport descriptors.
func (cfg *Config) TransportPaths() []transport.Path {
	paths := make([]transport.Path, 0, len(cfg.Paths))
	for _, p := range cfg.Paths {
		paths = append(paths, transport.Path{Scheme: p.Scheme, Address: p.Address})
	}
	return paths
}

// FixupAndValidate applies defaults and validates the configuration.
func (cfg *Config) FixupAndValidate() error {
	cfg.Pipeline.applyDefaults()
	cfg.Delay.applyDefaults()
	cfg.Epoch.applyDefaults()
	cfg.Limits.applyDefaults()
	cfg.Transport.applyDefaults()
	if cfg.Logging == nil {
		cfg.Logging = &defaultLogging
	}

	if err := cfg.Pipeline.validate(); err != nil {
		return err
	}
	if err := cfg.Delay.validate(); err != nil {
		return err
	}
	if err := cfg.Epoch.validate(); err != nil {
		return err
	}
	if len(cfg.Paths) == 0 {
		return errors.New("config: Paths must not be empty")
	}
	for i := range cfg.Paths {
		if err := cfg.Paths[i].validate(); err != nil {
			return fmt.Errorf("config: Paths[%d]: %v", i, err)
		}
	}
	if err := cfg.Limits.validate(); err != nil {
		return err
	}
	if err := cfg.Transport.validate(); err != nil {
		return err
	}
	if err := cfg.Logging.validate(); err != nil {
		return err
	}
	return nil
}

// Load parses and validates the provided buffer b as a pipeline
// configuration.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
