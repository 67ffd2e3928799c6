// Command chirpctl is the operator CLI for a Chirper deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"google.golang.org/grpc/status"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `chirpctl
Usage:
  chirpctl [-config file] [-addr HOST:PORT] [-cacert file | -insecure | -plaintext] <cmd> [args]

Commands:
  version
  migrate    up|down|status                    (postgres store)
  reconcile  [-dry-run]                        (mongo store: repair follow/like symmetry)
  health     [-service name]                   (gRPC health check)
`)
	os.Exit(2)
}

// main dispatches subcommands.
func main() {
	// global flags
	cfgPath := flag.String("config", "", "YAML config file (defaults to $CONFIG_PATH)")
	addr := flag.String("addr", "localhost:5001", "gRPC health address")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := flag.Bool("plaintext", false, "dial without TLS")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "version":
		fmt.Printf("chirpctl %s (%s)\n", version, buildDate)
	case "migrate":
		err = cmdMigrate(ctx, *cfgPath, args)
	case "reconcile":
		err = cmdReconcile(ctx, *cfgPath, args, os.Stdout)
	case "health":
		err = cmdHealth(ctx, dialOpts{addr: *addr, caPath: *caPath, insecure: *insecure, plaintext: *plaintext}, args, os.Stdout)
	default:
		usage()
	}
	if err != nil {
		fail(err)
	}
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
