package observability

import (
	"context"
	"fmt"
	"net/url"

	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/xaionaro-go/logrustash"
)

// CtxWithLogstash makes the logger of ctx also ship the entries to a
// logstash instance at logstashAddr (e.g. "tcp://localhost:5000").
func CtxWithLogstash(
	ctx context.Context,
	logstashAddr string,
	appName string,
) (context.Context, error) {
	addr, err := url.Parse(logstashAddr)
	if err != nil {
		return ctx, fmt.Errorf("unable to parse '%s' as URL: %w", logstashAddr, err)
	}
	if addr.Scheme == "" || addr.Host == "" {
		return ctx, fmt.Errorf("expected an address like 'tcp://host:port', got '%s'", logstashAddr)
	}

	hook, err := logrustash.NewHook(addr.Scheme, addr.Host, appName)
	if err != nil {
		return ctx, fmt.Errorf("unable to initialize the logstash hook: %w", err)
	}

	l := logger.FromCtx(ctx)
	emitter, ok := l.Emitter().(*xlogrus.Emitter)
	if !ok {
		return ctx, fmt.Errorf("the Emitter is not a *logrus.Emitter, but %T", l.Emitter())
	}
	return logger.CtxWithLogger(ctx, l.WithHooks(NewLogrusHook(
		emitter.LogrusEntry.Logger,
		hook,
	))), nil
}
