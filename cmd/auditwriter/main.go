package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ranjitk/sensor-monitor/internal/queue"
	"github.com/ranjitk/sensor-monitor/internal/schedule"
	"github.com/ranjitk/sensor-monitor/internal/store"
	"github.com/ranjitk/sensor-monitor/internal/summary"
	"github.com/ranjitk/sensor-monitor/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Audit Writer Service...")
	db, err := store.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create Kafka consumer for the decision topic
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicDecisions, "auditwriter-group")
	defer consumer.Close()
	fmt.Println("Kafka consumer created (registering with broker...)")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create audit writer (batch size: 100, flush interval: 5 seconds)
	auditWriter := queue.NewAuditWriter(consumer, db, 100, 5*time.Second)
	if err := auditWriter.Start(ctx); err != nil {
		log.Fatalf("Failed to start audit writer: %v", err)
	}
	fmt.Println("Audit writer started")

	// Schedule the daily min/max summary
	scheduler := schedule.NewScheduler()
	scheduler.Start()
	defer scheduler.Stop()

	summarizer := summary.NewDailySummarizer(db)
	scheduleDailySummary(ctx, scheduler, summarizer, cfg.Summary.DailyTime)

	// Print consumer stats periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := consumer.Stats()
				fmt.Printf("Consumer stats: Messages=%d, Bytes=%d, Errors=%d\n",
					stats.Messages, stats.Bytes, stats.Errors)
			}
		}
	}()

	fmt.Println("\n✓ Audit Writer Service is running")
	fmt.Println("✓ Consuming decision records from Kafka and writing to PostgreSQL")
	fmt.Printf("✓ Daily summary scheduled at %s\n", cfg.Summary.DailyTime)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	cancel()
	auditWriter.Stop()
	fmt.Println("Audit Writer Service stopped")
}

func scheduleDailySummary(ctx context.Context, scheduler *schedule.Scheduler, summarizer *summary.DailySummarizer, timeOfDay string) {
	taskID := "daily-summary"

	var scheduleNext func()
	scheduleNext = func() {
		nextRun, err := summarizer.CalculateNextRunTime(timeOfDay)
		if err != nil {
			log.Fatalf("Failed to calculate daily summary run time: %v", err)
		}
		fmt.Printf("Next daily summary scheduled for: %s\n", nextRun.Format("2006-01-02 15:04:05"))

		callback := func() {
			fmt.Println("\n--- Running Daily Summary ---")
			if err := summarizer.SummarizePreviousDay(ctx); err != nil {
				log.Printf("Daily summary failed: %v\n", err)
			}
			fmt.Println("--- Daily Summary Complete ---")

			// Schedule next run
			scheduleNext()
		}

		if err := scheduler.Schedule(taskID, nextRun, callback); err != nil {
			log.Printf("Failed to schedule daily summary: %v", err)
		}
	}

	scheduleNext()
}
