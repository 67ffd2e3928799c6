package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/and161185/chirper/internal/config"
	"github.com/and161185/chirper/internal/migrate"
	"github.com/and161185/chirper/internal/repository/mongostore"
)

var errUsage = errors.New("bad arguments, see chirpctl -h")

func cmdMigrate(ctx context.Context, cfgPath string, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	var fn func(context.Context, string) error
	switch args[0] {
	case "up":
		fn = migrate.Up
	case "down":
		fn = migrate.Down
	case "status":
		fn = migrate.Status
	default:
		return errUsage
	}

	st, err := config.LoadStore(cfgPath)
	if err != nil {
		return err
	}
	if st.Driver != "postgres" {
		return fmt.Errorf("migrate: store driver is %q, migrations apply to postgres only", st.Driver)
	}
	return fn(ctx, st.Postgres.DSN)
}

type reconcileOutput struct {
	DryRun  bool                       `json:"dry_run"`
	Repairs int                        `json:"repairs"`
	Report  mongostore.ReconcileReport `json:"report"`
}

func cmdReconcile(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "report repairs without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := config.LoadStore(cfgPath)
	if err != nil {
		return err
	}
	if st.Driver != "mongo" {
		return fmt.Errorf("reconcile: store driver is %q, postgres keeps relations symmetric by schema", st.Driver)
	}

	store, err := mongostore.Connect(ctx, st.Mongo.URI, st.Mongo.Database, st.Mongo.Transactions)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(cctx)
	}()

	rep, err := store.Reconcile(ctx, *dryRun)
	if err != nil {
		return err
	}
	printJSON(out, reconcileOutput{DryRun: *dryRun, Repairs: rep.Total(), Report: rep})
	return nil
}
