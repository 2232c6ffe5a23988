// pump.go - Binding pump worker.
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

// Package pump drives the anonymity pipeline: a single worker that owns the
// delay queue, the path epoch rotator, and the active transport, and that
// shares the protocol engine with the producer contexts under its lock.
package pump

import (
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/alenjiji/ebtunnel/core/log"
	"github.com/alenjiji/ebtunnel/core/monotime"
	"github.com/alenjiji/ebtunnel/core/worker"
	"github.com/alenjiji/ebtunnel/engine"
	"github.com/alenjiji/ebtunnel/mix"
	"github.com/alenjiji/ebtunnel/obs"
	"github.com/alenjiji/ebtunnel/transport"
)

const (
	// DefaultReleaseBatch bounds frames written per tick.
	DefaultReleaseBatch = 64

	// DefaultMixBatch bounds frames pulled from the engine per tick.
	DefaultMixBatch = 64

	tickInterval = time.Millisecond
)

// Pump is the binding pump.  One worker goroutine advances the pipeline
// each tick: drain the delay queue, rotate the path epoch if it elapsed,
// write the drained frames, then refill the delay queue from the engine's
// mixing pool.  That ordering lets already-scheduled frames cross the
// rotation boundary instead of staying pinned to the path that was active
// when they were enqueued.
type Pump struct {
	worker.Worker

	l *logging.Logger

	eng       *engine.Engine
	delay     *mix.DelayQueue
	pathEpoch *mix.PathEpoch
	factory   transport.Factory

	releaseBatch int
	mixBatch     int
}

// New constructs a Pump.  The pump assumes exclusive ownership of delay and
// pathEpoch; the engine is shared and accessed only through its own lock.
// Non-positive batch sizes select the defaults.
func New(eng *engine.Engine, delay *mix.DelayQueue, pathEpoch *mix.PathEpoch, factory transport.Factory, releaseBatch, mixBatch int, logBackend *log.Backend) *Pump {
	if releaseBatch <= 0 {
		releaseBatch = DefaultReleaseBatch
	}
	if mixBatch <= 0 {
		mixBatch = DefaultMixBatch
	}
	return &Pump{
		l:            logBackend.GetLogger("pump"),
		eng:          eng,
		delay:        delay,
		pathEpoch:    pathEpoch,
		factory:      factory,
		releaseBatch: releaseBatch,
		mixBatch:     mixBatch,
	}
}

// Start opens the transport for the initial path and launches the worker.
// A dial failure prevents the pump from starting.
func (p *Pump) Start() error {
	tr, err := p.factory.OpenTransport(p.pathEpoch.CurrentPath())
	if err != nil {
		obs.RecordError(obs.TransportIO)
		return err
	}
	p.Go(func() {
		p.worker(tr)
	})
	return nil
}

func (p *Pump) worker(tr transport.Adapter) {
	defer func() {
		tr.Close()
		_ = p.delay.Close()
	}()

	for {
		select {
		case <-p.HaltCh():
			// In-flight frames are dropped on purpose: flushing them
			// here would release them in a predictable burst.
			p.l.Debugf("Terminating gracefully.")
			return
		default:
		}

		now := monotime.Now()

		ready, err := p.delay.DrainReadyAt(now, p.releaseBatch)
		if err != nil {
			p.l.Errorf("Delay queue failure: %v", err)
			obs.RecordError(obs.InternalAssert)
			obs.SetHealth(obs.HealthFaulted)
			return
		}

		if p.pathEpoch.IsDue(now) {
			next := p.pathEpoch.NextIndex()
			newTr, err := p.factory.OpenTransport(p.pathEpoch.PathAt(next))
			if err != nil {
				// Flush what was already scheduled on the old binding,
				// then stop; a supervisor may restart us.
				p.l.Errorf("Failed to open transport for new path epoch: %v", err)
				for _, frame := range ready {
					if tr.SendBytes(frame) != nil {
						break
					}
				}
				obs.RecordError(obs.TransportIO)
				obs.SetHealth(obs.HealthDegraded)
				return
			}
			tr.Close()
			tr = newTr
			p.pathEpoch.CommitRotation(next, now)
			p.l.Debugf("Rotated path epoch to index %d.", next)
		}

		for _, frame := range ready {
			if err := tr.SendBytes(frame); err != nil {
				p.l.Errorf("Transport write failed: %v", err)
				obs.RecordError(obs.TransportIO)
				obs.SetHealth(obs.HealthDegraded)
				return
			}
			obs.FrameSent()
			obs.BytesSent(len(frame))
		}

		for _, frame := range p.eng.DrainBatch(p.mixBatch) {
			if err := p.delay.EnqueueAt(now, frame); err != nil {
				p.l.Errorf("Delay queue enqueue failure: %v", err)
				obs.RecordError(obs.InternalAssert)
				obs.SetHealth(obs.HealthFaulted)
				return
			}
		}

		select {
		case <-p.HaltCh():
			p.l.Debugf("Terminating gracefully.")
			return
		case <-time.After(tickInterval):
		}
	}
}
