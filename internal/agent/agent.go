// Package agent runs scan and apply cycles, once or forever.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/Hara602/gcodeSentry/internal/config"
	"github.com/Hara602/gcodeSentry/internal/discovery"
	"github.com/Hara602/gcodeSentry/internal/metrics"
	"github.com/Hara602/gcodeSentry/internal/model"
	"github.com/Hara602/gcodeSentry/internal/reconcile"
	"github.com/Hara602/gcodeSentry/internal/scanner"
	"github.com/Hara602/gcodeSentry/internal/state"
	"github.com/Hara602/gcodeSentry/internal/sysutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Blocklist interface {
	IsBlocked(label string) (bool, error)
}

type Agent struct {
	settings   config.Settings
	discoverer *discovery.Discoverer
	scanner    *scanner.Scanner
	reconciler *reconcile.Reconciler
	store      *state.Store
	blocklist  Blocklist
	metrics    *metrics.Metrics
}

type Option func(*Agent)

func WithBlocklist(b Blocklist) Option {
	return func(a *Agent) { a.blocklist = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

func WithDiscoverer(d *discovery.Discoverer) Option {
	return func(a *Agent) { a.discoverer = d }
}

func WithScanner(s *scanner.Scanner) Option {
	return func(a *Agent) { a.scanner = s }
}

func New(settings config.Settings, opts ...Option) *Agent {
	a := &Agent{
		settings:   settings,
		discoverer: discovery.New(settings.MountBase),
		scanner:    scanner.New(settings.Extensions, nil),
		reconciler: reconcile.New(settings.MirrorRoot()),
		store:      state.NewStore(settings.StatePath),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) LoadState() (model.State, error) {
	return a.store.Load()
}

// Scan discovers mounted devices and lists their matching files. Devices with
// no matching file and blocked devices are left out of the snapshot.
func (a *Agent) Scan() (model.Snapshot, error) {
	devices, err := a.discoverer.Discover()
	if err != nil {
		return nil, err
	}

	snap := make(model.Snapshot, len(devices))
	for label, dev := range devices {
		if a.blocklist != nil {
			blocked, err := a.blocklist.IsBlocked(label)
			if err != nil {
				return nil, err
			}
			if blocked {
				sysutil.Log.Debug("Skipping blocked device", zap.String("label", label), zap.String("mount", dev.Root))
				continue
			}
		}
		files, err := a.scanner.Scan(dev.Root)
		if err != nil {
			return nil, fmt.Errorf("scan device %s: %w", label, err)
		}
		sysutil.Log.Debug("Scanned device",
			zap.String("label", label),
			zap.String("mount", dev.Root),
			zap.String("dev", dev.DevicePath),
			zap.Int("files", len(files)))
		if len(files) == 0 {
			continue
		}
		snap[label] = files
	}
	return snap, nil
}

// RunOnce scans, applies and persists one cycle and returns the state to
// pass to the next one. Nothing is persisted on error; the returned state is
// then prior plus every device the failed cycle touched, so the next cycle
// still cleans up after them.
func (a *Agent) RunOnce(prior model.State) (model.State, error) {
	start := time.Now()
	log := sysutil.Log.With(zap.String("cycle", uuid.NewString()[:8]))

	next, report, err := a.cycle(log, prior)
	if err != nil {
		a.metrics.ObserveCycle(time.Since(start), report, 0, 0, err)
		return prior.Merge(next), err
	}
	devices, links := len(next), next.LinkCount()
	a.metrics.ObserveCycle(time.Since(start), report, devices, links, nil)

	if report.Mutations() > 0 || report.Warnings() > 0 || !next.Equal(prior) {
		log.Info("Cycle applied",
			zap.Int("devices", devices),
			zap.Int("links", links),
			zap.Int("created", report.LinksCreated),
			zap.Int("replaced", report.LinksReplaced),
			zap.Int("removed", report.LinksRemoved),
			zap.Int("dirs_removed", report.DirsRemoved),
			zap.Int("warnings", report.Warnings()),
			zap.Duration("took", time.Since(start)))
	} else {
		log.Debug("Cycle unchanged", zap.Int("devices", devices), zap.Int("links", links))
	}
	return next, nil
}

func (a *Agent) cycle(log *zap.Logger, prior model.State) (model.State, reconcile.Report, error) {
	snap, err := a.Scan()
	if err != nil {
		return nil, reconcile.Report{}, fmt.Errorf("scan: %w", err)
	}

	next, report, err := a.reconciler.Apply(snap, prior)
	if err != nil {
		return next, report, fmt.Errorf("apply: %w", err)
	}

	// Written every cycle so a lost state file is recreated.
	if err := a.store.Save(next); err != nil {
		return next, report, fmt.Errorf("persist state: %w", err)
	}
	log.Debug("State persisted", zap.String("path", a.store.Path()))
	return next, report, nil
}

// RunForever loads the persisted state and runs cycles until ctx is done.
// wake may be nil; a value on it ends the current sleep early. A running
// cycle is never interrupted.
func (a *Agent) RunForever(ctx context.Context, wake <-chan struct{}) error {
	current, err := a.LoadState()
	if err != nil {
		return err
	}

	sysutil.Log.Info("Starting gcode mirror",
		zap.Duration("interval", a.settings.ScanInterval),
		zap.String("mount_base", a.settings.MountBase),
		zap.String("mirror", a.settings.MirrorRoot()),
		zap.Strings("extensions", a.settings.Extensions))

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			sysutil.Log.Info("Stopping gcode mirror")
			return nil
		case <-timer.C:
		case <-wake:
			sysutil.Log.Debug("Woken by device event")
			timer.Stop()
		}

		next, err := a.RunOnce(current)
		if err != nil {
			sysutil.Log.Error("Scan failed", zap.Error(err))
		}
		current = next
		timer.Reset(a.settings.ScanInterval)
	}
}
