package commands

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/playercore/pkg/observability"
	"github.com/xaionaro-go/playercore/pkg/player"
)

var (
	// Access these variables only from a main package:

	Root = &cobra.Command{
		Use: os.Args[0],
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx, flush := getContext(cmd.Context(), Logging)
			flushLogs = flush
			cmd.SetContext(ctx)
			logger.Debugf(ctx, "log-level: %v", Logging.LoggerLevel)

			netPprofAddr, err := cmd.Flags().GetString("go-net-pprof-addr")
			assertNoError(ctx, err)
			metricsAddr, err := cmd.Flags().GetString("metrics-listen-addr")
			assertNoError(ctx, err)

			mux := http.DefaultServeMux
			if metricsAddr != "" {
				mux.Handle("/metrics", promhttp.Handler())
			}
			for _, addr := range []string{netPprofAddr, metricsAddr} {
				if addr == "" {
					continue
				}
				observability.Go(ctx, func(ctx context.Context) {
					logger.Infof(ctx, "starting to listen for HTTP requests at '%s'", addr)
					logger.Error(ctx, http.ListenAndServe(addr, mux))
				})
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			logger.Debug(ctx, "end")
			if flushLogs != nil {
				flushLogs()
			}
		},
	}

	Play = &cobra.Command{
		Use:   "play <media>",
		Short: "plays a media source and reports the player notifications",
		Args:  cobra.ExactArgs(1),
		Run:   play,
	}

	Backends = &cobra.Command{
		Use:   "backends",
		Short: "lists the backends supported by this build",
		Args:  cobra.ExactArgs(0),
		Run:   backends,
	}

	ConfigCmd = &cobra.Command{
		Use:   "config",
		Short: "config file helpers",
	}

	ConfigDefaultCmd = &cobra.Command{
		Use:   "default",
		Short: "prints the default config",
		Args:  cobra.ExactArgs(0),
		Run:   configDefault,
	}

	Logging = LoggingFlags{
		LoggerLevel: logger.LevelWarning,
	}

	flushLogs func()
)

func init() {
	Root.AddCommand(Play)
	Root.AddCommand(Backends)
	Root.AddCommand(ConfigCmd)
	ConfigCmd.AddCommand(ConfigDefaultCmd)

	Root.PersistentFlags().Var(&Logging.LoggerLevel, "log-level", "")
	Root.PersistentFlags().StringVar(&Logging.LogFile, "log-file", "", "also write the logs to this file")
	Root.PersistentFlags().StringVar(&Logging.SentryDSN, "sentry-dsn", "", "report errors to this Sentry DSN")
	Root.PersistentFlags().StringVar(&Logging.LogstashAddr, "logstash-addr", "", "ship the logs to this logstash address, e.g. tcp://localhost:5000")
	Root.PersistentFlags().String("go-net-pprof-addr", "", "address to listen to for net/pprof requests")
	Root.PersistentFlags().String("metrics-listen-addr", "", "address to serve prometheus metrics at")

	addPlayFlags(Play.Flags())
}

func addPlayFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a YAML config file")
	flags.String("backend", "", "backend to use (see the 'backends' command)")
	flags.Bool("custom-render", false, "render into memory instead of a window (forced if there is no display)")
	flags.String("aspect-ratio", "", "auto, widget, 4:3 or 16:9")
	flags.String("subtitle-file", "", "path to a subtitle file")
	flags.StringSlice("seek", nil, "seek requests to issue one after another, like dragging a seek bar (e.g. 10s,20s,30s)")
	flags.Duration("seek-interval", defaultSeekInterval, "interval between the --seek requests")
	flags.Duration("duration", 0, "stop the playback after this duration (0 means until the end)")
	flags.String("snapshot-dir", "", "store published frames as WebP files into this directory (implies --custom-render)")
	flags.Uint64("snapshot-every", 0, "store every N-th published frame")
	flags.Float64("brightness", 0, "[-1, 1]")
	flags.Float64("contrast", 0, "[-1, 1]")
	flags.Float64("hue", 0, "[-1, 1]")
	flags.Float64("saturation", 0, "[-1, 1]")
}

func assertNoError(ctx context.Context, err error) {
	if err != nil {
		logger.Panic(ctx, err)
	}
}

func backends(cmd *cobra.Command, args []string) {
	for _, backend := range player.SupportedBackends() {
		fmt.Println(backend)
	}
}

func configDefault(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	_, err := DefaultConfig(ctx).WriteTo(os.Stdout)
	assertNoError(ctx, err)
}
