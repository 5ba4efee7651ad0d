package commands

import (
	"context"
	"io"
	"os"

	"github.com/facebookincubator/go-belt"
	xruntime "github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	errmonsentry "github.com/facebookincubator/go-belt/tool/experimental/errmon/implementation/sentry"
	"github.com/facebookincubator/go-belt/tool/experimental/metrics"
	prometheusadapter "github.com/facebookincubator/go-belt/tool/experimental/metrics/implementation/prometheus"
	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/xaionaro-go/playercore/pkg/observability"
	"github.com/xaionaro-go/playercore/pkg/xpath"
)

const AppName = "playercore"

type LoggingFlags struct {
	LoggerLevel  logger.Level
	LogFile      string
	SentryDSN    string
	LogstashAddr string
}

func getContext(
	ctx context.Context,
	flags LoggingFlags,
) (context.Context, context.CancelFunc) {
	observability.LogLevelFilter.SetLevel(flags.LoggerLevel)
	xruntime.DefaultCallerPCFilter = observability.CallerPCFilter(xruntime.DefaultCallerPCFilter)

	ctx = metrics.CtxWithMetrics(ctx, prometheusadapter.Default())

	ll := xlogrus.DefaultLogrusLogger()
	if f, ok := ll.Formatter.(*logrus.TextFormatter); ok {
		f.ForceColors = true
	}
	l := xlogrus.New(ll).WithLevel(logger.LevelTrace).WithPreHooks(&observability.LogLevelFilter)

	var closers []func()
	if flags.LogFile != "" {
		logPath, err := xpath.Expand(flags.LogFile)
		if err != nil {
			l.Errorf("unable to expand path '%s': %v", flags.LogFile, err)
		} else {
			f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
			if err != nil {
				l.Errorf("failed to open log file '%s': %v", logPath, err)
			} else {
				ll.SetOutput(io.MultiWriter(os.Stderr, f))
				closers = append(closers, func() { f.Close() })
			}
		}
	}

	logrus.SetLevel(xlogrus.LevelToLogrus(l.Level()))

	if flags.SentryDSN != "" {
		l.Infof("setting up Sentry at DSN '%s'", flags.SentryDSN)
		sentryClient, err := sentry.NewClient(sentry.ClientOptions{
			Dsn: flags.SentryDSN,
		})
		if err != nil {
			l.Fatal(err)
		}
		sentryErrorMonitor := errmonsentry.New(sentryClient)
		ctx = errmon.CtxWithErrorMonitor(ctx, sentryErrorMonitor)
		l = l.WithHooks(observability.NewErrorMonitorHook(sentryErrorMonitor))
	}

	ctx = logger.CtxWithLogger(ctx, l)

	if flags.LogstashAddr != "" {
		var err error
		ctx, err = observability.CtxWithLogstash(ctx, flags.LogstashAddr, AppName)
		if err != nil {
			l.Errorf("unable to setup logstash: %v", err)
		}
	}

	ctx = belt.WithField(ctx, "program", AppName)
	if hostname, err := os.Hostname(); err == nil {
		ctx = belt.WithField(ctx, "hostname", hostname)
	}
	ctx = belt.WithField(ctx, "pid", os.Getpid())

	l = logger.FromCtx(ctx)
	logger.Default = func() logger.Logger {
		return l
	}

	return ctx, func() {
		belt.Flush(ctx)
		for _, closer := range closers {
			closer()
		}
	}
}
