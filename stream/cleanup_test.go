package stream_test

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/PrettySolution/driver-infrastructure/internal/dynamotest"
	"github.com/PrettySolution/driver-infrastructure/internal/keys"
	"github.com/PrettySolution/driver-infrastructure/store"
	"github.com/PrettySolution/driver-infrastructure/stream"
)

func seedReportRecords(t *testing.T, s *store.Store) (pk string) {
	t.Helper()
	pk = keys.Ref(keys.KindReport, "r1")
	items := []map[string]types.AttributeValue{
		{
			"pk":     &types.AttributeValueMemberS{Value: pk},
			"sk":     &types.AttributeValueMemberS{Value: keys.PrimarySK(1700, "V1", "alice", "r1")},
			"gsi1pk": &types.AttributeValueMemberS{Value: keys.TagReports},
		},
		{
			"pk":     &types.AttributeValueMemberS{Value: pk},
			"sk":     &types.AttributeValueMemberS{Value: keys.DriverSK("alice", 1700, "r1")},
			"gsi1pk": &types.AttributeValueMemberS{Value: keys.TagDriverReports},
		},
		{
			"pk":     &types.AttributeValueMemberS{Value: pk},
			"sk":     &types.AttributeValueMemberS{Value: keys.VehicleSK("V1", 1700, "r1")},
			"gsi1pk": &types.AttributeValueMemberS{Value: keys.TagVehicleReports},
		},
	}
	if err := s.TransactPut(context.Background(), items); err != nil {
		t.Fatalf("seed records: %v", err)
	}
	return pk
}

func removeEvent(pk, gsi1pk string) events.DynamoDBEvent {
	return events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{
				EventID:   "1",
				EventName: "REMOVE",
				Change: events.DynamoDBStreamRecord{
					OldImage: map[string]events.DynamoDBAttributeValue{
						"pk":     events.NewStringAttribute(pk),
						"gsi1pk": events.NewStringAttribute(gsi1pk),
					},
				},
			},
		},
	}
}

func TestHandleRemove_CleansOrphanedProjections(t *testing.T) {
	fake := dynamotest.New()
	st := store.New(fake, store.Config{Table: "reports-test", Index: "gsi1"}, zap.NewNop())
	pk := seedReportRecords(t, st)

	// An out-of-band delete removed the primary record and left the
	// projections behind.
	primarySK := keys.PrimarySK(1700, "V1", "alice", "r1")
	if err := st.Delete(context.Background(), store.PK{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberS{Value: primarySK},
	}); err != nil {
		t.Fatalf("out-of-band delete: %v", err)
	}
	if fake.Len() != 2 {
		t.Fatalf("expected 2 orphaned projections, got %d", fake.Len())
	}

	h := stream.NewHandler(st, zap.NewNop())
	if err := h.HandleRemove(context.Background(), removeEvent(pk, keys.TagReports)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.Len() != 0 {
		t.Errorf("expected all projections removed, %d items remain", fake.Len())
	}
}

func TestHandleRemove_Idempotent(t *testing.T) {
	fake := dynamotest.New()
	st := store.New(fake, store.Config{Table: "reports-test", Index: "gsi1"}, zap.NewNop())
	h := stream.NewHandler(st, zap.NewNop())

	// Reprocessing the same removal against an already-drained partition.
	ev := removeEvent(keys.Ref(keys.KindReport, "r1"), keys.TagReports)
	if err := h.HandleRemove(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.HandleRemove(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
}

func TestHandleRemove_IgnoresProjectionRemovals(t *testing.T) {
	fake := dynamotest.New()
	st := store.New(fake, store.Config{Table: "reports-test", Index: "gsi1"}, zap.NewNop())
	pk := seedReportRecords(t, st)

	h := stream.NewHandler(st, zap.NewNop())
	if err := h.HandleRemove(context.Background(), removeEvent(pk, keys.TagDriverReports)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.Len() != 3 {
		t.Errorf("a projection removal must not drain the partition, %d items remain", fake.Len())
	}
}

func TestHandleRemove_IgnoresNonRemoveEvents(t *testing.T) {
	fake := dynamotest.New()
	st := store.New(fake, store.Config{Table: "reports-test", Index: "gsi1"}, zap.NewNop())
	pk := seedReportRecords(t, st)

	ev := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{
				EventID:   "1",
				EventName: "INSERT",
				Change: events.DynamoDBStreamRecord{
					OldImage: map[string]events.DynamoDBAttributeValue{
						"pk":     events.NewStringAttribute(pk),
						"gsi1pk": events.NewStringAttribute(keys.TagReports),
					},
				},
			},
		},
	}

	h := stream.NewHandler(st, zap.NewNop())
	if err := h.HandleRemove(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.Len() != 3 {
		t.Errorf("an insert event must not trigger cleanup, %d items remain", fake.Len())
	}
}
