package main

import (
	"time"

	"framering-toolkit/gen"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type fileConfig struct {
	Addr             string  `toml:"addr"`
	Duration         string  `toml:"duration"`
	Rate             float64 `toml:"rate"`
	Seed             int64   `toml:"seed"`
	NoDelay          bool    `toml:"nodelay"`
	MsgType          int     `toml:"msg_type"`
	PayloadLen       int     `toml:"payload_len"`
	Burst            bool    `toml:"burst"`
	BurstMsgs        int     `toml:"burst_msgs"`
	BurstIdle        string  `toml:"burst_idle"`
	Fragment         bool    `toml:"fragment"`
	FragmentMaxChunk int     `toml:"fragment_max_chunk"`
	RecvReplies      bool    `toml:"recv_replies"`
	ReplyTimeout     string  `toml:"reply_timeout"`
	LogCSV           string  `toml:"log_csv"`
	ReportInterval   string  `toml:"report_interval"`
}

// loadConfig overlays a TOML file onto cfg, touching only the keys the
// file actually defines so flag and default values survive elsewhere.
func loadConfig(path string, cfg gen.Config) (gen.Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return gen.Config{}, errors.Wrap(err, "load generator config")
	}

	if meta.IsDefined("addr") {
		cfg.Addr = raw.Addr
	}
	if meta.IsDefined("duration") {
		d, err := time.ParseDuration(raw.Duration)
		if err != nil {
			return gen.Config{}, errors.Wrap(err, "parse duration")
		}
		cfg.Duration = d
	}
	if meta.IsDefined("rate") {
		cfg.Rate = raw.Rate
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("nodelay") {
		cfg.NoDelay = raw.NoDelay
	}
	if meta.IsDefined("msg_type") {
		if raw.MsgType < 0 || raw.MsgType > 0xFF {
			return gen.Config{}, errors.Errorf("msg_type %d does not fit in one byte", raw.MsgType)
		}
		cfg.MsgType = byte(raw.MsgType)
	}
	if meta.IsDefined("payload_len") {
		cfg.PayloadLen = raw.PayloadLen
	}
	if meta.IsDefined("burst") {
		cfg.Burst = raw.Burst
	}
	if meta.IsDefined("burst_msgs") {
		cfg.BurstMsgs = raw.BurstMsgs
	}
	if meta.IsDefined("burst_idle") {
		d, err := time.ParseDuration(raw.BurstIdle)
		if err != nil {
			return gen.Config{}, errors.Wrap(err, "parse burst_idle")
		}
		cfg.BurstIdle = d
	}
	if meta.IsDefined("fragment") {
		cfg.Fragment = raw.Fragment
	}
	if meta.IsDefined("fragment_max_chunk") {
		cfg.FragmentMaxChunk = raw.FragmentMaxChunk
	}
	if meta.IsDefined("recv_replies") {
		cfg.RecvReplies = raw.RecvReplies
	}
	if meta.IsDefined("reply_timeout") {
		d, err := time.ParseDuration(raw.ReplyTimeout)
		if err != nil {
			return gen.Config{}, errors.Wrap(err, "parse reply_timeout")
		}
		cfg.ReplyTimeout = d
	}
	if meta.IsDefined("log_csv") {
		cfg.CSVPath = raw.LogCSV
	}
	if meta.IsDefined("report_interval") {
		d, err := time.ParseDuration(raw.ReportInterval)
		if err != nil {
			return gen.Config{}, errors.Wrap(err, "parse report_interval")
		}
		cfg.ReportInterval = d
	}
	return cfg, nil
}
