package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ranjitk/sensor-monitor/internal/protocol"
	"github.com/ranjitk/sensor-monitor/internal/store"
)

// AuditWriter consumes decision records from Kafka and batch-writes them
// to the decision_log table.
type AuditWriter struct {
	consumer      *Consumer
	db            *store.DB
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewAuditWriter creates a new audit writer
func NewAuditWriter(consumer *Consumer, db *store.DB, batchSize int, flushInterval time.Duration) *AuditWriter {
	return &AuditWriter{
		consumer:      consumer,
		db:            db,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to database
func (aw *AuditWriter) Start(ctx context.Context) error {
	aw.wg.Add(1)
	go aw.run(ctx)
	return nil
}

// Stop stops the audit writer gracefully
func (aw *AuditWriter) Stop() {
	close(aw.stopCh)
	aw.wg.Wait()
}

func (aw *AuditWriter) run(ctx context.Context) {
	defer aw.wg.Done()

	var batch []kafka.Message
	ticker := time.NewTicker(aw.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := aw.consumer.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			select {
			case msgChan <- msg:
			case <-aw.stopCh:
				return
			}
		}
	}()

	for {
		select {
		case <-aw.stopCh:
			// Flush remaining batch before stopping
			if len(batch) > 0 {
				aw.flush(ctx, batch)
			}
			return

		case <-ticker.C:
			if len(batch) > 0 {
				fmt.Printf("Flush interval reached (%d records), flushing...\n", len(batch))
				aw.flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgChan:
			batch = append(batch, msg)

			if len(batch) >= aw.batchSize {
				fmt.Printf("Batch full (%d records), flushing...\n", len(batch))
				aw.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (aw *AuditWriter) flush(ctx context.Context, batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}

	successCount := 0
	for _, msg := range batch {
		if err := aw.processMessage(ctx, msg); err != nil {
			fmt.Printf("Failed to process record: %v\n", err)
			continue
		}
		successCount++

		// Commit offset after successful processing
		if err := aw.consumer.Commit(ctx, msg); err != nil {
			fmt.Printf("Failed to commit offset: %v\n", err)
		}
	}

	fmt.Printf("Flushed batch of %d decision records to database\n", successCount)
}

func (aw *AuditWriter) processMessage(ctx context.Context, msg kafka.Message) error {
	record, err := protocol.DecodeDecisionRecord(msg.Value)
	if err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}

	entry := &store.DecisionLog{
		RecordID:        record.RecordID,
		SourceID:        record.SourceID,
		Location:        record.Location,
		Timestamp:       record.Timestamp,
		PrimaryMetric:   record.PrimaryMetric,
		SecondaryMetric: record.SecondaryMetric,
		AmbientTemp:     record.AmbientTemp,
		AmbientHumidity: record.AmbientHumidity,
		WindowAggregate: record.WindowAggregate,
		ActionNeeded:    record.ActionNeeded,
		Confidence:      record.Confidence,
	}

	if err := aw.db.InsertDecisionLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert decision log: %w", err)
	}

	return nil
}
