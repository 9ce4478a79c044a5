// framesink is the board-side stand-in: it accepts framed TCP streams,
// buffers them in the ring, and drains frames at a configurable rate so
// the push/pop flow control can be exercised end to end.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"framering-toolkit/metrics"
	"framering-toolkit/ring"
	"framering-toolkit/tcp"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const emptyPollInterval = 500 * time.Microsecond

var log = &logrus.Logger{
	Out:   os.Stdout,
	Level: logrus.DebugLevel,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
}

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "framesink",
	Short: "Framed TCP ingest server draining a bounded ring buffer",
	RunE:  run,
}

func init() {
	defaults := defaultSinkConfig()
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "Optional TOML config file; flags override it")
	flags.String("addr", defaults.Addr, "Listen address for framed TCP ingest")
	flags.Int("ring-depth", defaults.RingDepth, "Ring capacity in bytes")
	flags.String("policy", defaults.Policy, "Backpressure policy: drop or wait")
	flags.Duration("wait-timeout", defaults.WaitTimeout, "Give-up deadline for the wait policy")
	flags.Float64("drain-rate", defaults.DrainRate, "Frames/sec drained (0 = as fast as possible)")
	flags.String("metrics-addr", defaults.MetricsAddr, "Prometheus /metrics listen address (empty = disabled)")
	flags.Duration("report-interval", defaults.ReportInterval, "Interval between stats log lines (0 = none)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	tcpCfg := tcp.DefaultConfig()
	tcpCfg.RingDepth = cfg.RingDepth
	tcpCfg.WaitTimeout = cfg.WaitTimeout
	switch cfg.Policy {
	case "drop":
		tcpCfg.Backpressure = tcp.DropNewest
	case "wait":
		tcpCfg.Backpressure = tcp.Wait
	default:
		return errors.Errorf("unknown backpressure policy %q", cfg.Policy)
	}

	s, err := tcp.Listen("tcp", cfg.Addr, tcpCfg)
	if err != nil {
		return err
	}
	log.Infof("Sink listening at %s (ring depth %d, policy %s)",
		s.Addr(), cfg.RingDepth, cfg.Policy)

	metricsEnabled := cfg.MetricsAddr != ""
	if metricsEnabled {
		metrics.RegisterRing(s.Ring())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Infof("Metrics listening at %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Errorf("Metrics server error: %+v", err)
			}
		}()
	}

	die := make(chan struct{})
	fatal := make(chan error, 1)
	wg := &sync.WaitGroup{}
	wg.Add(2)
	go consumeRoutine(wg, s, cfg, metricsEnabled, die, fatal)
	go reportRoutine(wg, s, cfg, metricsEnabled, die)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-ch:
		log.Infof("Received signal %+v", sig)
	case runErr = <-fatal:
		log.Errorf("Fatal: %+v", runErr)
	}

	close(die)
	s.Close()
	wg.Wait()
	if runErr != nil {
		// The producer side is down, so the reset has exclusive access
		s.Ring().Reset()
		log.Info("Ring reset after corruption; restart to resume")
	}
	return runErr
}

// consumeRoutine is the ring's sole consumer.
func consumeRoutine(wg *sync.WaitGroup, s *tcp.Server, cfg sinkConfig, metricsEnabled bool, die chan struct{}, fatal chan<- error) {
	defer wg.Done()
	buf := s.Ring()
	var period time.Duration
	if cfg.DrainRate > 0 {
		period = time.Duration(float64(time.Second) / cfg.DrainRate)
	}
	for {
		select {
		case <-die:
			return
		default:
		}
		f, err := buf.TryPop()
		switch err {
		case nil:
			if metricsEnabled {
				metrics.RecordPop(f.EncodedSize())
			}
			if !sleep(period, die) {
				return
			}
		case ring.ErrEmpty:
			if !sleep(emptyPollInterval, die) {
				return
			}
		case ring.ErrCorrupt:
			if metricsEnabled {
				metrics.RecordCorrupt()
			}
			fatal <- errors.Errorf("corrupt frame header at occupancy %d", buf.Occupancy())
			return
		}
	}
}

func reportRoutine(wg *sync.WaitGroup, s *tcp.Server, cfg sinkConfig, metricsEnabled bool, die chan struct{}) {
	defer wg.Done()
	if cfg.ReportInterval <= 0 {
		<-die
		return
	}
	ticker := time.NewTicker(cfg.ReportInterval)
	defer ticker.Stop()
	var prev tcp.Stats
	for {
		select {
		case <-ticker.C:
			stats := s.Stats()
			log.Infof("Ring occupancy=%d/%d pushed=%d dropped=%d oversize=%d sessions=%d",
				s.Ring().Occupancy(), s.Ring().Capacity(),
				stats.Pushed, stats.Dropped, stats.Oversize,
				stats.SessionsOpened-stats.SessionsClosed)
			if metricsEnabled {
				metrics.AddPushed(stats.Pushed-prev.Pushed, stats.PushedBytes-prev.PushedBytes)
				metrics.AddDropped(stats.Dropped - prev.Dropped)
				metrics.AddOversize(stats.Oversize - prev.Oversize)
				metrics.AddBytesRead(stats.BytesRead - prev.BytesRead)
				metrics.SetSessionsActive(stats.SessionsOpened - stats.SessionsClosed)
			}
			prev = stats
		case <-die:
			return
		}
	}
}

func sleep(d time.Duration, die <-chan struct{}) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-die:
		return false
	}
}

func buildConfig(cmd *cobra.Command) (sinkConfig, error) {
	cfg := defaultSinkConfig()
	if cfgFile != "" {
		var err error
		cfg, err = loadSinkConfig(cfgFile, cfg)
		if err != nil {
			return sinkConfig{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("ring-depth") {
		cfg.RingDepth, _ = flags.GetInt("ring-depth")
	}
	if flags.Changed("policy") {
		cfg.Policy, _ = flags.GetString("policy")
	}
	if flags.Changed("wait-timeout") {
		cfg.WaitTimeout, _ = flags.GetDuration("wait-timeout")
	}
	if flags.Changed("drain-rate") {
		cfg.DrainRate, _ = flags.GetFloat64("drain-rate")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("report-interval") {
		cfg.ReportInterval, _ = flags.GetDuration("report-interval")
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
