package tcp

import (
	"framering-toolkit/ring"
	"time"
)

const (
	defaultReadBufferSize = 4096
	defaultPushBacklog    = 1024
	defaultWaitInterval   = 500 * time.Microsecond
	defaultWaitTimeout    = 100 * time.Millisecond

	minReadBufferSize = 512
)

// BackpressurePolicy decides what the push routine does when the ring
// reports insufficient space.
type BackpressurePolicy int

const (
	// DropNewest discards the incoming frame and keeps reading. This is
	// the burst-absorber role: the ring holds what it can, the rest is
	// counted and shed.
	DropNewest BackpressurePolicy = iota
	// Wait polls the ring until space frees up or WaitTimeout passes,
	// then drops. Reads stall while waiting, pushing backpressure onto
	// the peer's TCP window.
	Wait
)

type Config struct {
	// Capacity of the shared ring buffer in bytes.
	RingDepth int

	ReadBufferSize int
	// Backlog of decoded frames between session readers and the single
	// push routine.
	PushBacklog int

	Backpressure BackpressurePolicy
	// Poll interval and give-up deadline for the Wait policy.
	WaitInterval time.Duration
	WaitTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RingDepth:      ring.DefaultDepth,
		ReadBufferSize: defaultReadBufferSize,
		PushBacklog:    defaultPushBacklog,
		Backpressure:   DropNewest,
		WaitInterval:   defaultWaitInterval,
		WaitTimeout:    defaultWaitTimeout,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.RingDepth <= 0 {
		cfg.RingDepth = ring.DefaultDepth
	}
	if cfg.ReadBufferSize < minReadBufferSize {
		cfg.ReadBufferSize = minReadBufferSize
	}
	if cfg.PushBacklog < 1 {
		cfg.PushBacklog = 1
	}
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = defaultWaitInterval
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaultWaitTimeout
	}
	return cfg
}
