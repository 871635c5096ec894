//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mickamy/sqlfortify/internal/reactor"
	"github.com/mickamy/sqlfortify/internal/validate"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("sqlfortifyd", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "sqlfortifyd — transparent SQL-injection-detecting proxy for PostgreSQL\n\nUsage:\n  sqlfortifyd [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	listen := fs.String("listen", "", "client listen address, e.g. :5433 (required)")
	upstream := fs.String("upstream", "", "upstream PostgreSQL address, e.g. 127.0.0.1:5432 (required)")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("sqlfortifyd %s\n", version)
		return
	}

	if *listen == "" || *upstream == "" {
		fs.Usage()
		os.Exit(1)
	}

	if err := run(*listen, *upstream); err != nil {
		log.Fatal(err)
	}
}

func run(listen, upstream string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v := validate.New()

	l, err := reactor.New(listen, "tcp", upstream, v)
	if err != nil {
		return fmt.Errorf("sqlfortifyd: %w", err)
	}
	defer func() { _ = l.Close() }()

	log.Printf("sqlfortifyd listening on %s, proxying to %s", listen, upstream)
	if err := l.Run(ctx); err != nil {
		return fmt.Errorf("sqlfortifyd: %w", err)
	}
	return nil
}
