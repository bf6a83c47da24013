package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"grant-store/internal/bootstrap"
)

type options struct {
	Config   string `short:"c" long:"config" description:"path to the YAML configuration file"`
	DotEnv   bool   `long:"dotenv" description:"load a .env file from the working directory first"`
	Operator string `long:"issue-token" value-name:"OPERATOR" description:"log an admin bearer token for OPERATOR at start"`
}

func parseOptions(args []string) (*options, error) {
	opts := &options{}
	if _, err := flags.ParseArgs(opts, args); err != nil {
		return nil, err
	}
	return opts, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	fmt.Printf("[%s] [BOOT] starting grant-server\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background(), bootstrap.Options{
		ConfigPath: opts.Config,
		DotEnv:     opts.DotEnv,
		Operator:   opts.Operator,
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "grant-server failed: %v\n", err)
		os.Exit(1)
	}
}
