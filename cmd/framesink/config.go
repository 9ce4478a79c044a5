package main

import (
	"time"

	"framering-toolkit/ring"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type sinkConfig struct {
	// Listen address for the framed TCP ingest.
	Addr string
	// Ring capacity in bytes.
	RingDepth int
	// "drop" sheds frames when the ring is full, "wait" stalls reads.
	Policy string
	// Give-up deadline for the wait policy.
	WaitTimeout time.Duration
	// Frames per second drained from the ring (0 = as fast as possible).
	DrainRate float64
	// Listen address for the Prometheus /metrics endpoint ("" = disabled).
	MetricsAddr string
	// Interval between occupancy/stats log lines (0 = none).
	ReportInterval time.Duration
}

func defaultSinkConfig() sinkConfig {
	return sinkConfig{
		Addr:           "127.0.0.1:4500",
		RingDepth:      ring.DefaultDepth,
		Policy:         "drop",
		WaitTimeout:    100 * time.Millisecond,
		ReportInterval: time.Second,
	}
}

type sinkFileConfig struct {
	Addr           string  `toml:"addr"`
	RingDepth      int     `toml:"ring_depth"`
	Policy         string  `toml:"policy"`
	WaitTimeout    string  `toml:"wait_timeout"`
	DrainRate      float64 `toml:"drain_rate"`
	MetricsAddr    string  `toml:"metrics_addr"`
	ReportInterval string  `toml:"report_interval"`
}

func loadSinkConfig(path string, cfg sinkConfig) (sinkConfig, error) {
	var raw sinkFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return sinkConfig{}, errors.Wrap(err, "load sink config")
	}

	if meta.IsDefined("addr") {
		cfg.Addr = raw.Addr
	}
	if meta.IsDefined("ring_depth") {
		cfg.RingDepth = raw.RingDepth
	}
	if meta.IsDefined("policy") {
		cfg.Policy = raw.Policy
	}
	if meta.IsDefined("wait_timeout") {
		d, err := time.ParseDuration(raw.WaitTimeout)
		if err != nil {
			return sinkConfig{}, errors.Wrap(err, "parse wait_timeout")
		}
		cfg.WaitTimeout = d
	}
	if meta.IsDefined("drain_rate") {
		cfg.DrainRate = raw.DrainRate
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = raw.MetricsAddr
	}
	if meta.IsDefined("report_interval") {
		d, err := time.ParseDuration(raw.ReportInterval)
		if err != nil {
			return sinkConfig{}, errors.Wrap(err, "parse report_interval")
		}
		cfg.ReportInterval = d
	}
	return cfg, nil
}
