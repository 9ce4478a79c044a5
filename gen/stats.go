package gen

import (
	"fmt"
	"time"
)

// Stats is a snapshot of generator progress.
type Stats struct {
	Sent      uint64
	SentBytes uint64
	SendFail  uint64
	Replies   uint64
	RecvBytes uint64
	Elapsed   time.Duration
}

func (s Stats) MsgsPerSec() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Sent) / s.Elapsed.Seconds()
}

func (s Stats) Mbps() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.SentBytes*8) / s.Elapsed.Seconds() / 1e6
}

func (s Stats) String() string {
	return fmt.Sprintf("sent=%d bytes=%d mps=%.1f throughput=%.3f Mbps fail=%d replies=%d recv_bytes=%d",
		s.Sent, s.SentBytes, s.MsgsPerSec(), s.Mbps(), s.SendFail, s.Replies, s.RecvBytes)
}
