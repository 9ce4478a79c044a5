package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"framering-toolkit/gen"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = &logrus.Logger{
	Out:   os.Stdout,
	Level: logrus.DebugLevel,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
}

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "framegen",
	Short: "Framed TCP traffic generator (LEN+TYPE+PAYLOAD streams)",
	RunE:  run,
}

func init() {
	defaults := gen.DefaultConfig()
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "Optional TOML config file; flags override it")
	flags.String("addr", "", "Target host:port")
	flags.Duration("duration", defaults.Duration, "How long to run (0 = until interrupted)")
	flags.Float64("rate", defaults.Rate, "Messages per second (0 = as fast as possible)")
	flags.Int64("seed", defaults.Seed, "RNG seed for deterministic payloads")
	flags.Bool("nodelay", false, "Enable TCP_NODELAY")
	flags.String("msg-type", "0x44", "1-byte TYPE stamped on every frame (e.g. 0x44)")
	flags.Int("payload-len", defaults.PayloadLen, "Payload length in bytes (0..254)")
	flags.Bool("burst", false, "Enable burst mode")
	flags.Int("burst-msgs", defaults.BurstMsgs, "Messages per burst")
	flags.Duration("burst-idle", defaults.BurstIdle, "Idle time between bursts")
	flags.Bool("fragment", false, "Fragment frames across multiple writes")
	flags.Int("fragment-max-chunk", defaults.FragmentMaxChunk, "Max bytes per write when fragmenting")
	flags.Bool("recv-replies", false, "Drain reply bytes between sends")
	flags.Duration("reply-timeout", defaults.ReplyTimeout, "Read timeout when draining replies")
	flags.String("log-csv", "", "Write a per-message CSV log to this path")
	flags.Duration("report-interval", defaults.ReportInterval, "Interval between progress reports (0 = none)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Addr == "" {
		return errors.New("no target address configured (--addr or addr in the config file)")
	}

	g := gen.New(cfg)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		log.Infof("Received signal %+v", <-ch)
		g.Stop()
	}()

	log.Infof("Generating frames against %s", cfg.Addr)
	return g.Run()
}

// buildConfig layers defaults, then the config file, then any flag the
// user actually set.
func buildConfig(cmd *cobra.Command) (gen.Config, error) {
	cfg := gen.DefaultConfig()
	if cfgFile != "" {
		var err error
		cfg, err = loadConfig(cfgFile, cfg)
		if err != nil {
			return gen.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("duration") {
		cfg.Duration, _ = flags.GetDuration("duration")
	}
	if flags.Changed("rate") {
		cfg.Rate, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("nodelay") {
		cfg.NoDelay, _ = flags.GetBool("nodelay")
	}
	if flags.Changed("msg-type") {
		s, _ := flags.GetString("msg-type")
		v, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return gen.Config{}, errors.Wrapf(err, "parse msg-type %q", s)
		}
		cfg.MsgType = byte(v)
	}
	if flags.Changed("payload-len") {
		cfg.PayloadLen, _ = flags.GetInt("payload-len")
	}
	if flags.Changed("burst") {
		cfg.Burst, _ = flags.GetBool("burst")
	}
	if flags.Changed("burst-msgs") {
		cfg.BurstMsgs, _ = flags.GetInt("burst-msgs")
	}
	if flags.Changed("burst-idle") {
		cfg.BurstIdle, _ = flags.GetDuration("burst-idle")
	}
	if flags.Changed("fragment") {
		cfg.Fragment, _ = flags.GetBool("fragment")
	}
	if flags.Changed("fragment-max-chunk") {
		cfg.FragmentMaxChunk, _ = flags.GetInt("fragment-max-chunk")
	}
	if flags.Changed("recv-replies") {
		cfg.RecvReplies, _ = flags.GetBool("recv-replies")
	}
	if flags.Changed("reply-timeout") {
		cfg.ReplyTimeout, _ = flags.GetDuration("reply-timeout")
	}
	if flags.Changed("log-csv") {
		cfg.CSVPath, _ = flags.GetString("log-csv")
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
