package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/saltplan/app"
	"github.com/kilianp07/saltplan/config"
	coremetrics "github.com/kilianp07/saltplan/core/metrics"
	coremon "github.com/kilianp07/saltplan/core/monitoring"
	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/core/runlog"
	"github.com/kilianp07/saltplan/infra/logger"
	"github.com/kilianp07/saltplan/infra/metrics"
	"github.com/kilianp07/saltplan/infra/monitoring"
	"github.com/kilianp07/saltplan/infra/mqtt"
	"github.com/kilianp07/saltplan/internal/eventbus"
)

// runtime is the service graph shared by every command.
type runtime struct {
	cfg       *config.Config
	log       logger.Logger
	svc       *app.Service
	sink      coremetrics.MetricsSink
	store     runlog.Store
	client    *mqtt.PahoClient
	bus       *eventbus.Bus
	collector <-chan struct{}
	stop      context.CancelFunc
}

func newLogger(cfg config.LoggingConfig, component string) logger.Logger {
	return logger.NewWithOptions(component, logger.Options{Level: cfg.Level, Format: cfg.Format})
}

// loadConfig reads --config and applies the flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newRuntime loads the configuration and builds the service with its sinks,
// run log and publisher. Close must be called once done.
func newRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: newLogger(cfg.Logging, "saltplan")}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	if rt.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if rt.store, err = runlog.NewStore(cfg.RunLog); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("run log: %w", err)
	}
	if cfg.MQTT.Enabled() {
		if rt.client, err = mqtt.NewPahoClient(cfg.MQTT); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
	}

	rt.bus = eventbus.New(eventbus.WithBuffer(cfg.Metrics.EventBuffer))
	ctx, cancel := context.WithCancel(context.Background())
	rt.stop = cancel
	rt.collector = metrics.StartEventCollector(ctx, rt.bus, rt.sink)

	p, err := planner.New(cfg.Planner,
		planner.WithLogger(newLogger(cfg.Logging, "planner")),
		planner.WithEventBus(rt.bus))
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	opts := []app.Option{
		app.WithMetrics(rt.sink),
		app.WithRunLog(rt.store),
		app.WithLogger(newLogger(cfg.Logging, "service")),
	}
	if rt.client != nil {
		opts = append(opts, app.WithPublisher(rt.client, cfg.MQTT.AckTimeout))
	}
	rt.svc = app.New(p, opts...)
	return rt, nil
}

// Close drains the event collector, writes the metrics textfile and releases
// every backend.
func (rt *runtime) Close() error {
	if rt.bus != nil {
		rt.bus.Close()
		<-rt.collector
		if n := rt.bus.Dropped(); n > 0 {
			rt.log.Warnf("%d planner events dropped before reaching the metrics sinks", n)
		}
	}
	if rt.stop != nil {
		rt.stop()
	}
	var errs []error
	if path := rt.cfg.Metrics.TextfilePath; path != "" {
		if err := metrics.WriteTextfile(path, nil); err != nil {
			errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("run log: %w", err))
		}
	}
	if rt.client != nil {
		rt.client.Disconnect()
	}
	closeSink(rt.sink)
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}

// closeSink flushes sinks holding a client, such as the Influx writer.
func closeSink(s coremetrics.MetricsSink) {
	switch v := s.(type) {
	case *coremetrics.MultiSink:
		for _, inner := range v.Sinks {
			closeSink(inner)
		}
	case interface{ Close() }:
		v.Close()
	}
}
