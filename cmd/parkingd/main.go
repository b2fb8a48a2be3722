package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/parking-ledger/internal/app"
	"github.com/example/parking-ledger/internal/application"
	"github.com/example/parking-ledger/internal/config"
	"github.com/example/parking-ledger/internal/identity"
	"github.com/example/parking-ledger/internal/logging"
)

const usage = `usage:
  parkingd [serve]                      run the HTTP API
  parkingd issue-token [-ttl d] <name>  print a bearer token for a principal
`

var errUsage = errors.New("invalid arguments")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		err = serve(ctx, cfg, stdout)
	case "issue-token":
		err = issueToken(cfg, args, stdout, stderr)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
		}
		fmt.Fprintf(stderr, "parkingd: %v\n", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	logger := logging.New(stdout, cfg.LogLevel)

	server, err := app.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	if err := server.Run(ctx); err != nil {
		logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}

func issueToken(cfg config.Config, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	flags.SetOutput(stderr)
	ttl := flags.Duration("ttl", cfg.TokenTTL, "token lifetime")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("%w: issue-token takes exactly one principal", errUsage)
	}

	signer, err := identity.NewSigner([]byte(cfg.TokenSecret), time.Now)
	if err != nil {
		return err
	}
	token, expires, err := signer.Issue(application.Principal(flags.Arg(0)), *ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stderr, "expires at %s\n", expires.UTC().Format(time.RFC3339))
	return nil
}
