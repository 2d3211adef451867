// feedtap connects to the relay and streams decoded messages to the console.
// Usage: go run ./cmd/feedtap --url wss://relay.example/feed
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/svdwoude/edmarket-data/internal/feed"
)

func main() {
	url := flag.String("url", "", "relay websocket URL")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *url == "" {
		logger.Error("--url is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	client := feed.NewClient(feed.ClientConfig{URL: *url, BufferSize: 4096}, logger)
	if err := client.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	logger.Info("streaming started - press Ctrl+C to stop", "url", *url)

	var frames, commodities, journals, other, malformed int64

	statsTicker := time.NewTicker(10 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete",
				"frames", frames,
				"commodity", commodities,
				"journal", journals,
			)
			return

		case err := <-client.Errors():
			logger.Error("relay error", "error", err)
			cancel()

		case <-statsTicker.C:
			logger.Info("stats",
				"frames", frames,
				"commodity", commodities,
				"journal", journals,
				"other_schema", other,
				"malformed", malformed,
			)

		case frame, ok := <-client.Frames():
			if !ok {
				logger.Info("relay closed the stream")
				cancel()
				continue
			}
			frames++

			env, err := feed.DecodeFrame(frame.Data)
			if err != nil {
				malformed++
				continue
			}
			printEnvelope(env, *verbose, &commodities, &journals, &other)
		}
	}
}

func printEnvelope(env *feed.Envelope, verbose bool, commodities, journals, other *int64) {
	switch env.SchemaRef {
	case feed.SchemaCommodity:
		*commodities++
		var cm feed.CommodityMessage
		if err := json.Unmarshal(env.Message, &cm); err != nil {
			return
		}
		if verbose {
			data, _ := json.MarshalIndent(cm, "", "  ")
			fmt.Printf("[COMMODITY] %s\n", data)
		} else {
			fmt.Printf("[COMMODITY] system=%s station=%s entries=%d uploader=%s\n",
				cm.SystemName, cm.StationName, len(cm.Commodities), env.Header.UploaderID)
		}

	case feed.SchemaJournal:
		*journals++
		var jm feed.JournalMessage
		if err := json.Unmarshal(env.Message, &jm); err != nil {
			return
		}
		if verbose {
			data, _ := json.MarshalIndent(jm, "", "  ")
			fmt.Printf("[JOURNAL] %s\n", data)
		} else {
			fmt.Printf("[JOURNAL] system=%s body=%s factions=%d\n",
				jm.StarSystem, jm.BodyType, len(jm.Factions))
		}

	default:
		*other++
	}
}
