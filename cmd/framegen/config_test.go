package main

import (
	"framering-toolkit/gen"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "framegen.toml")
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	require := require.New(t)
	path := writeConfig(t, `
addr = "192.168.1.10:7000"
duration = "30s"
rate = 5000.0
msg_type = 0x41
payload_len = 32
burst = true
burst_msgs = 50
burst_idle = "250ms"
fragment = true
fragment_max_chunk = 4
log_csv = "out/frames.csv"
`)

	cfg, err := loadConfig(path, gen.DefaultConfig())
	require.Nil(err)
	require.Equal("192.168.1.10:7000", cfg.Addr)
	require.Equal(30*time.Second, cfg.Duration)
	require.Equal(5000.0, cfg.Rate)
	require.Equal(byte(0x41), cfg.MsgType)
	require.Equal(32, cfg.PayloadLen)
	require.True(cfg.Burst)
	require.Equal(50, cfg.BurstMsgs)
	require.Equal(250*time.Millisecond, cfg.BurstIdle)
	require.True(cfg.Fragment)
	require.Equal(4, cfg.FragmentMaxChunk)
	require.Equal("out/frames.csv", cfg.CSVPath)
}

func TestLoadConfigPartial(t *testing.T) {
	require := require.New(t)
	path := writeConfig(t, `addr = "10.0.0.1:9000"`)

	// Keys the file does not define keep their incoming values
	cfg, err := loadConfig(path, gen.DefaultConfig())
	require.Nil(err)
	require.Equal("10.0.0.1:9000", cfg.Addr)
	require.Equal(gen.DefaultConfig().Duration, cfg.Duration)
	require.Equal(gen.DefaultConfig().PayloadLen, cfg.PayloadLen)
	require.Equal(byte(0x44), cfg.MsgType)
}

func TestLoadConfigInvalid(t *testing.T) {
	require := require.New(t)

	_, err := loadConfig(writeConfig(t, `msg_type = 300`), gen.DefaultConfig())
	require.NotNil(err)

	_, err = loadConfig(writeConfig(t, `duration = "not-a-duration"`), gen.DefaultConfig())
	require.NotNil(err)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"), gen.DefaultConfig())
	require.NotNil(err)
}
