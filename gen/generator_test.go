package gen

import (
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"framering-toolkit/frame"
	"framering-toolkit/util/mocks"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPayload(t *testing.T) {
	require := require.New(t)

	t.Run("sequence embedding", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PayloadLen = 16
		g := New(cfg)
		p := g.payload(0xDEADBEEF)
		require.Len(p, 16)
		require.Equal(uint32(0xDEADBEEF), binary.BigEndian.Uint32(p[:4]))
	})

	t.Run("short payload truncates sequence", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PayloadLen = 2
		g := New(cfg)
		p := g.payload(0x01020304)
		require.Equal([]byte{0x01, 0x02}, p)
	})

	t.Run("empty payload", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PayloadLen = 0
		g := New(cfg)
		require.Empty(g.payload(42))
	})

	t.Run("deterministic for a seed", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Seed = 7
		p1 := New(cfg).payload(1)
		p2 := New(cfg).payload(1)
		require.Equal(p1, p2)
	})
}

func TestWriteFragmented(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig()
	cfg.Fragment = true
	cfg.FragmentMaxChunk = 3
	g := New(cfg)

	expected := frame.Frame{Type: 0x44, Payload: []byte("fragmented across many writes")}
	buf := &bytes.Buffer{}
	require.Nil(g.writeFragmented(buf, expected.Encode()))

	// However the writes were chopped, the byte stream reassembles into
	// the original frame
	actual, err := frame.Read(buf)
	require.Nil(err)
	require.Equal(expected, actual)
	require.Zero(buf.Len())
}

func TestGeneratorRunConn(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig()
	cfg.Duration = 0 // run until stopped
	cfg.Rate = 2000  // keep the pipe from running far ahead of the reader
	cfg.PayloadLen = 8
	cfg.MsgType = 0x55
	cfg.ReportInterval = 0
	g := New(cfg)

	c1, c2 := mocks.Conn()
	defer c1.Close()
	defer c2.Close()

	wg := &sync.WaitGroup{}
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = g.RunConn(c1)
	}()

	// Frames arrive in sequence order with the seq number embedded
	const count = 20
	for i := 0; i < count; i++ {
		f, err := frame.Read(c2)
		require.Nil(err)
		require.Equal(byte(0x55), f.Type)
		require.Len(f.Payload, 8)
		require.Equal(uint32(i), binary.BigEndian.Uint32(f.Payload[:4]))
	}

	g.Stop()
	wg.Wait()
	require.Nil(runErr)

	stats := g.Stats()
	require.GreaterOrEqual(stats.Sent, uint64(count))
	require.Equal(stats.Sent*10, stats.SentBytes)
	require.Zero(stats.SendFail)
}

func TestGeneratorRateLimit(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig()
	cfg.Duration = 200 * time.Millisecond
	cfg.Rate = 100
	cfg.PayloadLen = 4
	cfg.ReportInterval = 0
	g := New(cfg)

	c1, c2 := mocks.Conn()
	defer c1.Close()
	defer c2.Close()

	done := make(chan error, 1)
	go func() {
		done <- g.RunConn(c1)
	}()

	received := 0
	go func() {
		for {
			if _, err := frame.Read(c2); err != nil {
				return
			}
			received++
		}
	}()

	require.Nil(<-done)
	// 100 msg/s over 200ms: around 20 messages, never unthrottled
	stats := g.Stats()
	require.Greater(stats.Sent, uint64(5))
	require.Less(stats.Sent, uint64(40))
}

func TestGeneratorCSVLog(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "frames.csv")

	cfg := DefaultConfig()
	cfg.Duration = 0
	cfg.Rate = 1000
	cfg.PayloadLen = 4
	cfg.CSVPath = path
	cfg.ReportInterval = 0
	g := New(cfg)

	c1, c2 := mocks.Conn()
	defer c1.Close()
	defer c2.Close()

	done := make(chan error, 1)
	go func() {
		done <- g.RunConn(c1)
	}()
	for i := 0; i < 5; i++ {
		_, err := frame.Read(c2)
		require.Nil(err)
	}
	g.Stop()
	require.Nil(<-done)

	f, err := os.Open(path)
	require.Nil(err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.Nil(err)
	require.Equal([]string{"seq", "send_time_s", "bytes_sent", "note"}, rows[0])
	require.GreaterOrEqual(len(rows), 6)
	require.Equal("0", rows[1][0])
	require.Equal("ok", rows[1][3])
}

func TestSanitizeConfig(t *testing.T) {
	require := require.New(t)
	cfg := sanitizeConfig(Config{
		Duration:         -time.Second,
		Rate:             -1,
		PayloadLen:       1000,
		BurstMsgs:        0,
		FragmentMaxChunk: 0,
	})
	require.Zero(cfg.Duration)
	require.Zero(cfg.Rate)
	require.Equal(maxPayloadLen, cfg.PayloadLen)
	require.Equal(1, cfg.BurstMsgs)
	require.Equal(1, cfg.FragmentMaxChunk)
}
