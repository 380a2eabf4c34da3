// Command polywatch is a small CLI for a running polywatchd daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"polywatch/pkg/polywatch"
)

const version = "0.1.0"

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8765", "polywatchd API address")
	limit := flag.Int("limit", 20, "maximum number of events to list")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: polywatch [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version         Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  recent          List the newest events\n")
		fmt.Fprintf(os.Stderr, "  hot             List the highest-volume events\n")
		fmt.Fprintf(os.Stderr, "  posted          List recently notified events\n")
		fmt.Fprintf(os.Stderr, "  watchlist       Show the watchlist\n")
		fmt.Fprintf(os.Stderr, "  watch <slug>    Toggle a slug on the watchlist\n")
		fmt.Fprintf(os.Stderr, "  clear           Clear the watchlist\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	client := polywatch.NewClient(*addr)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch args[0] {
	case "version":
		fmt.Printf("polywatch %s\n", version)

	case "recent":
		err = listEvents(ctx, client.RecentEvents, *limit)

	case "hot":
		err = listEvents(ctx, client.HotEvents, *limit)

	case "posted":
		err = listEvents(ctx, client.Posted, *limit)

	case "watchlist":
		err = showWatchlist(ctx, client)

	case "watch":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: polywatch watch <slug>")
			os.Exit(1)
		}
		err = toggle(ctx, client, args[1])

	case "clear":
		if err = client.Clear(ctx); err == nil {
			fmt.Println("watchlist cleared")
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func listEvents(ctx context.Context, fetch func(context.Context, int) ([]polywatch.Event, error), limit int) error {
	events, err := fetch(ctx, limit)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Printf("%-14s %10.0f  %s\n    %s\n", e.Category, e.Volume, e.Title, e.URL)
	}
	if len(events) == 0 {
		fmt.Println("no events")
	}
	return nil
}

func showWatchlist(ctx context.Context, client *polywatch.Client) error {
	entries, err := client.Watchlist(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Event != nil {
			fmt.Printf("%-40s %10.0f  %s\n", entry.Slug, entry.Event.Volume, entry.Event.Title)
		} else {
			fmt.Printf("%-40s %10s  (unresolved)\n", entry.Slug, "-")
		}
	}
	if len(entries) == 0 {
		fmt.Println("watchlist is empty")
	}
	return nil
}

func toggle(ctx context.Context, client *polywatch.Client, slug string) error {
	res, err := client.Toggle(ctx, slug)
	if err != nil {
		return err
	}
	if res.Watched {
		fmt.Printf("watching %s\n", res.Slug)
	} else {
		fmt.Printf("stopped watching %s\n", res.Slug)
	}
	return nil
}
