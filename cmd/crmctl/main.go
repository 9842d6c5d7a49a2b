package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hongyu-crm/crm-backend/internal/cli"
	"github.com/hongyu-crm/crm-backend/internal/platform/logger"
)

var version = "dev"

func main() {
	logger.SetDefault(logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL")))

	root := cli.NewRootCmd(cli.Options{Version: version})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
