// pipeline.go - Anonymity pipeline assembly.
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

// Package ebtunnel assembles the anonymity forwarding pipeline: protocol
// engine, mixing pool, delay queue, path epoch rotator, and binding pump,
// wired together from a validated configuration.  The surrounding proxy
// layer owns everything above the engine; this package owns everything
// below it.
package ebtunnel

import (
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/alenjiji/ebtunnel/config"
	"github.com/alenjiji/ebtunnel/core/log"
	"github.com/alenjiji/ebtunnel/core/monotime"
	"github.com/alenjiji/ebtunnel/engine"
	"github.com/alenjiji/ebtunnel/metrics"
	"github.com/alenjiji/ebtunnel/mix"
	"github.com/alenjiji/ebtunnel/obs"
	"github.com/alenjiji/ebtunnel/pump"
	"github.com/alenjiji/ebtunnel/transport"
)

// Pipeline is a running anonymity pipeline instance.
type Pipeline struct {
	cfg *config.Config

	logBackend *log.Backend
	l          *logging.Logger

	eng *engine.Engine
	pmp *pump.Pump
	mtr *metrics.Server

	haltOnce sync.Once
}

// New constructs and starts a Pipeline from the provided configuration.
func New(cfg *config.Config) (*Pipeline, error) {
	return NewWithFactory(cfg, nil)
}

// NewWithFactory constructs and starts a Pipeline with a caller-provided
// transport factory.  A nil factory selects the dialing default.
func NewWithFactory(cfg *config.Config, factory transport.Factory) (*Pipeline, error) {
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}

	logBackend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:        cfg,
		logBackend: logBackend,
		l:          logBackend.GetLogger("pipeline"),
	}

	delayMin, delayMax := cfg.DelayBounds()
	delayDist, err := mix.NewUniform(delayMin, delayMax)
	if err != nil {
		return nil, err
	}
	epochMin, epochMax := cfg.EpochBounds()
	epochDist, err := mix.NewUniform(epochMin, epochMax)
	if err != nil {
		return nil, err
	}

	var delay *mix.DelayQueue
	if cfg.Pipeline.QueueDB != "" {
		delay, err = mix.NewPersistentDelayQueue(delayDist, cfg.Pipeline.QueueDB)
		if err != nil {
			return nil, err
		}
	} else {
		delay = mix.NewDelayQueue(delayDist)
	}

	pathEpoch, err := mix.NewPathEpoch(cfg.TransportPaths(), epochDist, monotime.Now())
	if err != nil {
		_ = delay.Close()
		return nil, err
	}

	limits := engine.Limits{
		MaxConnections:   cfg.Limits.MaxConnections,
		MaxInflightOpens: cfg.Limits.MaxInflightOpens,
		MaxBufferedBytes: cfg.Limits.MaxBufferedBytes,
	}
	p.eng = engine.New(byte(cfg.Pipeline.Version), uint32(cfg.Limits.InitialWindow), limits, logBackend)

	if factory == nil {
		factory = &transport.DialFactory{
			DialTimeout:  time.Duration(cfg.Transport.DialTimeoutMS) * time.Millisecond,
			WriteTimeout: time.Duration(cfg.Transport.WriteTimeoutMS) * time.Millisecond,
		}
	}

	p.pmp = pump.New(p.eng, delay, pathEpoch, factory, cfg.Pipeline.ReleaseBatch, cfg.Pipeline.MixBatch, logBackend)
	if err := p.pmp.Start(); err != nil {
		_ = delay.Close()
		return nil, err
	}

	if cfg.Management.MetricsAddress != "" {
		p.mtr = metrics.NewServer(cfg.Management.MetricsAddress, logBackend)
	}

	obs.SetHealth(obs.HealthOK)
	p.l.Noticef("Pipeline started: %d path(s), protocol version %d.", len(cfg.Paths), cfg.Pipeline.Version)
	return p, nil
}

// Engine returns the protocol engine, the surface producer contexts talk
// to.
func (p *Pipeline) Engine() *engine.Engine {
	return p.eng
}

// LogBackend returns the logging backend so the embedding process can
// attach its own loggers.
func (p *Pipeline) LogBackend() *log.Backend {
	return p.logBackend
}

// Shutdown halts the pipeline.  In-flight frames are dropped rather than
// flushed; releasing them in one predictable burst would undo the mixing.
func (p *Pipeline) Shutdown() {
	p.haltOnce.Do(func() {
		p.l.Noticef("Pipeline shutting down.")
		p.pmp.Halt()
		if p.mtr != nil {
			p.mtr.Halt()
		}
	})
}

// Wait blocks until the pump worker has terminated, either via Shutdown or
// because it stopped on a terminal error.
func (p *Pipeline) Wait() {
	p.pmp.Wait()
}
