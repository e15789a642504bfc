// Package ticker drives scheduler polls with a cron-backed fixed interval.
package ticker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"LocaleAudit/internal/ports"
)

const defaultPollInterval = 60 * time.Second

// CronDriver implements the TickDriver port on robfig/cron. The Recover
// chain keeps a panicking tick from killing the timer loop.
type CronDriver struct {
	interval time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.TickDriver = (*CronDriver)(nil)

// NewCronDriver builds a driver firing at the given poll interval.
func NewCronDriver(interval time.Duration) *CronDriver {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &CronDriver{interval: interval}
}

// Start begins ticking. Starting an already started driver is a no-op.
func (d *CronDriver) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	spec := fmt.Sprintf("@every %s", d.interval)
	if _, err := runner.AddFunc(spec, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("register tick job: %w", err)
	}

	runner.Start()
	d.cron = runner

	go func() {
		<-ctx.Done()
		d.stopRunner(runner)
	}()

	return nil
}

// stopRunner halts runner only while it is still the active one. A
// cancelled context from an earlier Start must not touch a later runner.
func (d *CronDriver) stopRunner(runner *cron.Cron) {
	d.mu.Lock()
	if d.cron != runner {
		d.mu.Unlock()
		return
	}
	d.cron = nil
	d.mu.Unlock()
	<-runner.Stop().Done()
}

// Stop halts the timer, waiting for a running tick to finish. Stopping a
// driver that was never started is a no-op.
func (d *CronDriver) Stop(ctx context.Context) error {
	d.mu.Lock()
	runner := d.cron
	d.cron = nil
	d.mu.Unlock()

	if runner == nil {
		return nil
	}

	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
