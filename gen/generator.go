// Package gen produces framed message traffic against a byte-stream
// server: deterministic payloads at a controlled rate, with optional
// bursts and intentional write fragmentation to stress the receiver's
// frame reassembly.
package gen

import (
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"framering-toolkit/frame"
	uerrors "framering-toolkit/util/errors"
	uio "framering-toolkit/util/io"
	"io"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

type Generator struct {
	cfg Config

	payloadRng *rand.Rand
	fragRng    *rand.Rand

	csvWriter *csv.Writer
	csvFile   *os.File

	replyBuf []byte
	start    time.Time

	die      chan struct{}
	stopOnce sync.Once

	sent      uint64
	sentBytes uint64
	sendFail  uint64
	replies   uint64
	recvBytes uint64
}

func New(cfg Config) *Generator {
	cfg = sanitizeConfig(cfg)
	return &Generator{
		cfg:        cfg,
		payloadRng: rand.New(rand.NewSource(cfg.Seed)),
		// Fragment chunk sizes draw from their own stream so payload
		// content stays reproducible whether or not fragmentation is on
		fragRng:  rand.New(rand.NewSource(cfg.Seed ^ 0xA5A5A5A5)),
		replyBuf: make([]byte, 4096),
		die:      make(chan struct{}),
	}
}

// Run dials the configured address and generates traffic until the
// duration elapses or Stop is called.
func (g *Generator) Run() error {
	conn, err := net.DialTimeout("tcp", g.cfg.Addr, defaultDialTimeout)
	if err != nil {
		return errors.Wrapf(err, "dial %s", g.cfg.Addr)
	}
	defer conn.Close()
	if tc, ok := conn.(*net.TCPConn); ok && g.cfg.NoDelay {
		if err := tc.SetNoDelay(true); err != nil {
			return errors.Wrap(err, "set nodelay")
		}
	}
	return g.RunConn(conn)
}

// RunConn generates traffic over an already established connection.
func (g *Generator) RunConn(conn net.Conn) error {
	if g.cfg.CSVPath != "" {
		if err := g.openCSV(); err != nil {
			return err
		}
		defer g.closeCSV()
	}

	g.start = time.Now()
	var end time.Time
	if g.cfg.Duration > 0 {
		end = g.start.Add(g.cfg.Duration)
	}

	var period time.Duration
	if g.cfg.Rate > 0 {
		period = time.Duration(float64(time.Second) / g.cfg.Rate)
	}
	nextSend := g.start
	lastReport := g.start

	seq := uint32(0)
	for {
		select {
		case <-g.die:
			g.finalReport()
			return nil
		default:
		}
		if !end.IsZero() && !time.Now().Before(end) {
			break
		}

		if g.cfg.Burst {
			for i := 0; i < g.cfg.BurstMsgs; i++ {
				if !end.IsZero() && !time.Now().Before(end) {
					break
				}
				if err := g.sendOne(conn, seq); err != nil {
					g.finalReport()
					return err
				}
				seq++
			}
			if !g.sleep(g.cfg.BurstIdle) {
				g.finalReport()
				return nil
			}
			lastReport = g.maybeReport(lastReport)
			continue
		}

		// Absolute deadlines so the rate does not drift under scheduling
		// jitter
		if period > 0 {
			if !g.sleepUntil(nextSend) {
				g.finalReport()
				return nil
			}
			nextSend = nextSend.Add(period)
		}
		if err := g.sendOne(conn, seq); err != nil {
			g.finalReport()
			return err
		}
		seq++

		if g.cfg.RecvReplies {
			if err := g.drainReplies(conn); err != nil {
				g.finalReport()
				return err
			}
		}
		lastReport = g.maybeReport(lastReport)
	}
	g.finalReport()
	return nil
}

// Stop ends the run early. Safe to call from any goroutine, any number
// of times.
func (g *Generator) Stop() {
	g.stopOnce.Do(func() {
		close(g.die)
	})
}

func (g *Generator) Stats() Stats {
	var elapsed time.Duration
	if !g.start.IsZero() {
		elapsed = time.Since(g.start)
	}
	return Stats{
		Sent:      atomic.LoadUint64(&g.sent),
		SentBytes: atomic.LoadUint64(&g.sentBytes),
		SendFail:  atomic.LoadUint64(&g.sendFail),
		Replies:   atomic.LoadUint64(&g.replies),
		RecvBytes: atomic.LoadUint64(&g.recvBytes),
		Elapsed:   elapsed,
	}
}

func (g *Generator) sendOne(conn net.Conn, seq uint32) error {
	f := frame.Frame{Type: g.cfg.MsgType, Payload: g.payload(seq)}
	data := f.Encode()
	sendTime := time.Since(g.start)

	var err error
	if g.cfg.Fragment {
		err = g.writeFragmented(conn, data)
	} else {
		err = uio.WriteFull(conn, data)
	}
	if err != nil {
		atomic.AddUint64(&g.sendFail, 1)
		g.logCSV(seq, sendTime, 0, "send_fail")
		return errors.Wrapf(err, "send seq %d", seq)
	}
	atomic.AddUint64(&g.sent, 1)
	atomic.AddUint64(&g.sentBytes, uint64(len(data)))
	g.logCSV(seq, sendTime, len(data), "ok")
	return nil
}

// payload builds the deterministic message body: the sequence number
// big-endian in the first 4 bytes (truncated when shorter), the rest
// from the seeded random stream.
func (g *Generator) payload(seq uint32) []byte {
	n := g.cfg.PayloadLen
	if n == 0 {
		return nil
	}
	var seqBytes [4]byte
	binary.BigEndian.PutUint32(seqBytes[:], seq)
	out := make([]byte, n)
	if n >= 4 {
		copy(out, seqBytes[:])
		g.payloadRng.Read(out[4:])
	} else {
		copy(out, seqBytes[:n])
	}
	return out
}

// writeFragmented splits one frame across multiple writes with random
// chunk sizes, simulating real TCP segmentation.
func (g *Generator) writeFragmented(w io.Writer, data []byte) error {
	for i := 0; i < len(data); {
		max := g.cfg.FragmentMaxChunk
		if rem := len(data) - i; rem < max {
			max = rem
		}
		n := 1 + g.fragRng.Intn(max)
		if err := uio.WriteFull(w, data[i:i+n]); err != nil {
			return err
		}
		i += n
	}
	return nil
}

func (g *Generator) drainReplies(conn net.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(g.cfg.ReplyTimeout)); err != nil {
		return errors.Wrap(err, "set reply deadline")
	}
	n, err := conn.Read(g.replyBuf)
	if n > 0 {
		atomic.AddUint64(&g.replies, 1)
		atomic.AddUint64(&g.recvBytes, uint64(n))
	}
	if err != nil {
		if uerrors.IsDeadlineError(err) {
			return nil
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil
		}
		if err == io.EOF {
			return errors.New("peer closed connection")
		}
		return errors.Wrap(err, "read reply")
	}
	return nil
}

func (g *Generator) maybeReport(lastReport time.Time) time.Time {
	if g.cfg.ReportInterval <= 0 {
		return lastReport
	}
	now := time.Now()
	if now.Sub(lastReport) < g.cfg.ReportInterval {
		return lastReport
	}
	stats := g.Stats()
	log.Infof("Progress: sent=%d mps=%.1f Mbps=%.2f fail=%d",
		stats.Sent, stats.MsgsPerSec(), stats.Mbps(), stats.SendFail)
	return now
}

func (g *Generator) finalReport() {
	log.Infof("Summary: %s elapsed=%.3fs", g.Stats(), g.Stats().Elapsed.Seconds())
}

func (g *Generator) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-g.die:
		return false
	}
}

func (g *Generator) sleepUntil(t time.Time) bool {
	return g.sleep(time.Until(t))
}

func (g *Generator) openCSV() error {
	dir := filepath.Dir(g.cfg.CSVPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create csv directory")
		}
	}
	f, err := os.Create(g.cfg.CSVPath)
	if err != nil {
		return errors.Wrap(err, "create csv log")
	}
	g.csvFile = f
	g.csvWriter = csv.NewWriter(f)
	return g.csvWriter.Write([]string{"seq", "send_time_s", "bytes_sent", "note"})
}

func (g *Generator) logCSV(seq uint32, sendTime time.Duration, size int, note string) {
	if g.csvWriter == nil {
		return
	}
	g.csvWriter.Write([]string{
		fmt.Sprintf("%d", seq),
		fmt.Sprintf("%.9f", sendTime.Seconds()),
		fmt.Sprintf("%d", size),
		note,
	})
}

func (g *Generator) closeCSV() {
	g.csvWriter.Flush()
	if err := g.csvWriter.Error(); err != nil {
		log.Errorf("CSV flush error: %+v", err)
	}
	g.csvFile.Close()
	g.csvWriter = nil
	g.csvFile = nil
}
