package gen

import "time"

const (
	defaultDuration       = 10 * time.Second
	defaultMsgType        = 0x44
	defaultPayloadLen     = 16
	defaultBurstMsgs      = 100
	defaultBurstIdle      = 100 * time.Millisecond
	defaultFragmentChunk  = 8
	defaultReplyTimeout   = 10 * time.Millisecond
	defaultReportInterval = time.Second
	defaultDialTimeout    = 5 * time.Second

	maxPayloadLen = 254
)

type Config struct {
	// Target address of the framed-stream server.
	Addr string
	// How long to run. Zero means until Stop is called.
	Duration time.Duration
	// Target messages per second. Zero means unthrottled.
	Rate float64
	// Seed for deterministic payload content.
	Seed int64
	// Enable TCP_NODELAY on the connection.
	NoDelay bool

	// TYPE byte stamped on every generated frame.
	MsgType byte
	// Payload length in bytes, 0..254.
	PayloadLen int

	// Burst mode: send BurstMsgs back to back, then idle for BurstIdle.
	Burst     bool
	BurstMsgs int
	BurstIdle time.Duration

	// Fragment each frame across multiple writes of random size up to
	// FragmentMaxChunk bytes, stressing the receiver's reassembly.
	Fragment         bool
	FragmentMaxChunk int

	// Drain reply bytes between sends, tolerating read timeouts.
	RecvReplies  bool
	ReplyTimeout time.Duration

	// Optional per-message CSV log path.
	CSVPath string

	// Interval between periodic stats reports. Zero disables them.
	ReportInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Duration:         defaultDuration,
		Seed:             1,
		MsgType:          defaultMsgType,
		PayloadLen:       defaultPayloadLen,
		BurstMsgs:        defaultBurstMsgs,
		BurstIdle:        defaultBurstIdle,
		FragmentMaxChunk: defaultFragmentChunk,
		ReplyTimeout:     defaultReplyTimeout,
		ReportInterval:   defaultReportInterval,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Duration < 0 {
		cfg.Duration = 0
	}
	if cfg.Rate < 0 {
		cfg.Rate = 0
	}
	if cfg.PayloadLen < 0 {
		cfg.PayloadLen = 0
	}
	if cfg.PayloadLen > maxPayloadLen {
		cfg.PayloadLen = maxPayloadLen
	}
	if cfg.BurstMsgs < 1 {
		cfg.BurstMsgs = 1
	}
	if cfg.BurstIdle < 0 {
		cfg.BurstIdle = 0
	}
	if cfg.FragmentMaxChunk < 1 {
		cfg.FragmentMaxChunk = 1
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaultReplyTimeout
	}
	return cfg
}
