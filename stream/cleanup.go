// Package stream repairs report projections left behind by out-of-band
// deletes of primary records.
package stream

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/PrettySolution/driver-infrastructure/internal/keys"
	"github.com/PrettySolution/driver-infrastructure/store"
)

// Handler processes DynamoDB stream events for the report table.
type Handler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(s *store.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  s,
		logger: logger,
	}
}

// HandleRemove deletes any projection records that survived the removal of
// their primary record. The facade's delete removes all three records in one
// transaction, so this only finds work after an out-of-band delete.
// Idempotent: reprocessing a record is a no-op. Designed to run as an AWS
// Lambda handler behind the table's stream.
func (h *Handler) HandleRemove(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				zap.String("eventId", record.EventID),
				zap.Error(err),
			)
			return err // retried, eventually DLQ
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "REMOVE" {
		return nil
	}
	// Only a primary record's removal drives cleanup; a projection's own
	// removal leaves nothing behind.
	if getStringAttr(record.Change.OldImage, "gsi1pk") != keys.TagReports {
		return nil
	}
	partition := getStringAttr(record.Change.OldImage, "pk")
	if partition == "" {
		return nil
	}

	orphans, err := h.store.QueryPartition(ctx, partition)
	if err != nil {
		return fmt.Errorf("query partition: %w", err)
	}
	if len(orphans) == 0 {
		return nil
	}

	h.logger.Info("removing orphaned projections",
		zap.String("partition", partition),
		zap.Int("count", len(orphans)),
	)
	for _, item := range orphans {
		key := store.PK{"pk": item["pk"], "sk": item["sk"]}
		if err := h.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete orphan: %w", err)
		}
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
