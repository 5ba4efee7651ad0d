package main

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/xaionaro-go/playercore/cmd/playercore/commands"
)

func main() {
	l := xlogrus.Default()
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}

	err := commands.Root.ExecuteContext(ctx)
	if err != nil {
		logger.Fatal(ctx, err)
	}
}
