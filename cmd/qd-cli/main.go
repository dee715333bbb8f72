package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"quantdir/internal/config"
	"quantdir/internal/model"
	"quantdir/internal/store"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: qd-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version         Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  runs [TICKER]   List recorded experiment runs\n")
		fmt.Fprintf(os.Stderr, "  models          List available classifiers\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("qd-cli %s\n", version)

	case "models":
		for _, name := range model.DefaultRegistry().List() {
			fmt.Println(name)
		}

	case "runs":
		var ticker string
		if len(os.Args) > 2 {
			ticker = strings.ToUpper(strings.TrimSpace(os.Args[2]))
		}
		if err := listRuns(ticker); err != nil {
			log.Fatalf("runs: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func listRuns(ticker string) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer runs.Close()

	list, err := runs.ListRuns(context.Background(), ticker)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTICKER\tMODEL\tH\tSPLIT\tACCURACY\tRETURN\tSHARPE\tMAX DD\tID")
	for _, r := range list {
		sharpe := "n/a"
		if r.Sharpe != nil {
			sharpe = fmt.Sprintf("%.2f", *r.Sharpe)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%.3f\t%+.2f%%\t%s\t%.2f%%\t%s\n",
			r.CreatedAt.Format(time.DateTime), r.Ticker, r.Model, r.Horizon, r.SplitRatio,
			r.Accuracy, 100*r.TotalReturn, sharpe, 100*r.MaxDrawdown, r.ID)
	}
	return tw.Flush()
}
