package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/campuscircle/campuscircle/internal/pkg/cache"
	"github.com/campuscircle/campuscircle/internal/pkg/database"
	"github.com/campuscircle/campuscircle/internal/pkg/env"
	"github.com/campuscircle/campuscircle/internal/pkg/jobqueue"
	"github.com/campuscircle/campuscircle/internal/pkg/outbox"
	"github.com/campuscircle/campuscircle/internal/pkg/payment"
)

const defaultReplayLimit = 100

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	database.SetupDatabase()
	db := database.GetDB()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "replay":
		limit := defaultReplayLimit
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				log.Fatalf("Invalid limit %q", os.Args[2])
			}
			limit = n
		}

		svc := payment.NewServiceFromDB(db)
		replayed, failed, err := svc.ReplayFailed(ctx, limit)
		if err != nil {
			log.Fatalf("Replay aborted after %d deliveries: %v", replayed+failed, err)
		}
		log.Printf("Replayed %d deliveries, %d still failing", replayed, failed)

		// Replays write outbox rows; hand them to the queue right away.
		relayOnce(ctx, outbox.NewRepository(db))

	case "relay":
		relayOnce(ctx, outbox.NewRepository(db))

	case "status":
		if len(os.Args) < 3 {
			log.Fatalf("Please provide an order id")
		}
		txn, err := payment.NewServiceFromDB(db).TransactionStatus(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Lookup failed: %v", err)
		}
		fmt.Printf("%s\t%s\t%s\t%d\n", txn.OrderID, txn.Status, txn.ItemType, txn.Amount)

	case "outbox":
		counts, err := outbox.NewRepository(db).CountByStatus()
		if err != nil {
			log.Fatalf("Outbox stats failed: %v", err)
		}
		for status, n := range counts {
			fmt.Printf("%s\t%d\n", status, n)
		}

	case "queue":
		cache.SetupCache()
		queue := jobqueue.NewQueue(1, jobqueue.Processors{})
		pending, err := queue.GetQueueSize(ctx)
		if err != nil {
			log.Fatalf("Queue stats failed: %v", err)
		}
		processing, err := queue.GetProcessingSize(ctx)
		if err != nil {
			log.Fatalf("Queue stats failed: %v", err)
		}
		fmt.Printf("pending\t%d\nprocessing\t%d\n", pending, processing)
		stats, err := queue.GetJobStats(ctx)
		if err != nil {
			log.Fatalf("Queue stats failed: %v", err)
		}
		for status, n := range stats {
			fmt.Printf("%s_total\t%d\n", status, n)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

// relayOnce moves pending outbox rows onto the Redis queue. Workers of the
// running server pick them up.
func relayOnce(ctx context.Context, repo outbox.Repository) {
	cache.SetupCache()
	queue := jobqueue.NewQueue(1, jobqueue.Processors{})
	n, err := outbox.NewRelay(repo, queue, outbox.DefaultBatchSize).RelayOnce(ctx)
	if err != nil {
		log.Fatalf("Relay failed after %d events: %v", n, err)
	}
	log.Printf("Relayed %d outbox events", n)
}

func printUsage() {
	fmt.Println("Usage: go run cmd/reconcile/main.go [command]")
	fmt.Println("Commands:")
	fmt.Println("  replay [N]         - Re-run up to N failed or unfinished notifications (default 100)")
	fmt.Println("  relay              - Enqueue pending outbox events once")
	fmt.Println("  status <order_id>  - Show the stored transaction status")
	fmt.Println("  outbox             - Show outbox event counts by status")
	fmt.Println("  queue              - Show job queue sizes and totals")
}
