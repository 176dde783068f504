package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PrettySolution/driver-infrastructure/internal/keys"
	"github.com/PrettySolution/driver-infrastructure/store"
)

// DefaultLimit is the page size used when a caller does not supply one.
const DefaultLimit = 2

// Service is the only entry point for report persistence. It composes the
// key schema, the transactional writer and the paginated query engine; no
// other component may write report records. Caller identity is always an
// explicit argument, never read from ambient context.
type Service struct {
	store  *store.Store
	logger *zap.Logger

	newID func() string
	now   func() time.Time

	mu     sync.Mutex
	lastTS int64
}

// NewService creates the report facade over the given store.
func NewService(s *store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  s,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// timestamp returns a millisecond wall-clock reading that never repeats or
// decreases within the process, so sort keys created back to back stay
// unique and ordered.
func (s *Service) timestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UnixMilli()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return ts
}

// validID rejects empty identifiers and identifiers containing the key
// separator characters, which would make sort keys ambiguous to decode.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "#&")
}

// Create persists a new report for the authenticated driver. The primary
// record and both projection records are written in one atomic transaction:
// a reader never observes a partial set. On any failure the report is fully
// absent from the caller's point of view.
func (s *Service) Create(ctx context.Context, driverID, vehicleID string) (*Report, error) {
	if !validID(driverID) {
		return nil, fmt.Errorf("%w: driverId is required and may not contain '#' or '&'", ErrInvalidInput)
	}
	if !validID(vehicleID) {
		return nil, fmt.Errorf("%w: vehicleId is required and may not contain '#' or '&'", ErrInvalidInput)
	}

	r := &Report{
		ReportID:  s.newID(),
		VehicleID: vehicleID,
		DriverID:  driverID,
		Payload:   DefaultPayload(),
		CreatedAt: s.timestamp(),
	}

	items, err := marshalRecords(r)
	if err != nil {
		return nil, err
	}
	if err := s.store.TransactPut(ctx, items); err != nil {
		return nil, err
	}

	s.logger.Info("report created",
		zap.String("reportId", r.ReportID),
		zap.String("driverId", r.DriverID),
		zap.String("vehicleId", r.VehicleID),
	)
	return r, nil
}

// resolve validates an addressing key against its owner and reconstructs
// the full physical key. The embedded-owner check is a fast reject; the
// authoritative check is the exact sort-key match against the stored item,
// which a forged key can never satisfy.
func (s *Service) resolve(ownerID, key string) (store.PK, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: ownerId is required", ErrInvalidInput)
	}
	p, err := keys.ParsePrimary(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if p.DriverID != ownerID {
		return nil, ErrNotFound
	}
	return store.PK{
		"pk": &types.AttributeValueMemberS{Value: keys.Ref(keys.KindReport, p.ReportID)},
		"sk": &types.AttributeValueMemberS{Value: key},
	}, nil
}

// Get fetches one report by its owner and addressing key.
func (s *Service) Get(ctx context.Context, ownerID, key string) (*Report, error) {
	pk, err := s.resolve(ownerID, key)
	if err != nil {
		return nil, err
	}
	item, err := s.store.Get(ctx, pk)
	if err != nil {
		return nil, err
	}
	return unmarshalReport(item)
}

// Update sets the report's type — the only mutable field — and returns the
// post-update report. Absent reports stay absent: the underlying update is
// conditional on existence.
func (s *Service) Update(ctx context.Context, ownerID, key, reportType string) (*Report, error) {
	if reportType == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidInput)
	}
	pk, err := s.resolve(ownerID, key)
	if err != nil {
		return nil, err
	}
	item, err := s.store.UpdateField(ctx, pk, "data.type", &types.AttributeValueMemberS{Value: reportType})
	if err != nil {
		return nil, err
	}
	return unmarshalReport(item)
}

// Delete removes the primary record and both projection records. Idempotent:
// deleting an absent report, or presenting a key that matches nothing the
// owner holds, succeeds without effect. The projections are removed in the
// same transaction as the primary, so they never outlive it.
func (s *Service) Delete(ctx context.Context, ownerID, key string) error {
	pk, err := s.resolve(ownerID, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// Only a stored primary record with this exact sort key authorizes the
	// partition drain below.
	if _, err := s.store.Get(ctx, pk); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	partition, err := keys.PartitionFor(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	items, err := s.store.QueryPartition(ctx, partition)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	del := make([]store.PK, 0, len(items))
	for _, item := range items {
		del = append(del, store.PK{"pk": item["pk"], "sk": item["sk"]})
	}
	if err := s.store.TransactDelete(ctx, del); err != nil {
		return err
	}

	s.logger.Info("report deleted",
		zap.String("driverId", ownerID),
		zap.Int("records", len(del)),
	)
	return nil
}

// List returns one page of the owner's reports in chronological order plus
// the cursor for the next page. The next cursor is derived from the store's
// resumption key alone: a page shorter than limit does not mean end of
// stream, because the owner filter runs after the page is cut.
func (s *Service) List(ctx context.Context, ownerID string, limit int32, cursor string) ([]Report, string, error) {
	if ownerID == "" {
		return nil, "", fmt.Errorf("%w: ownerId is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	in := store.PageInput{
		IndexName:              s.store.Config().Index,
		KeyConditionExpression: "#g = :g",
		FilterExpression:       "#d.#driver = :owner",
		ExpressionAttributeNames: map[string]string{
			"#g":      "gsi1pk",
			"#d":      "data",
			"#driver": "driverId",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":g":     &types.AttributeValueMemberS{Value: keys.TagReports},
			":owner": &types.AttributeValueMemberS{Value: ownerID},
		},
		Limit: limit,
	}
	if cursor != "" {
		partition, err := keys.PartitionFor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w: bad cursor: %v", ErrInvalidInput, err)
		}
		in.ExclusiveStartKey = store.PK{
			"pk":     &types.AttributeValueMemberS{Value: partition},
			"sk":     &types.AttributeValueMemberS{Value: cursor},
			"gsi1pk": &types.AttributeValueMemberS{Value: keys.TagReports},
		}
	}

	page, err := s.store.QueryPage(ctx, in)
	if err != nil {
		return nil, "", err
	}

	reports := make([]Report, 0, len(page.Items))
	for _, item := range page.Items {
		r, err := unmarshalReport(item)
		if err != nil {
			return nil, "", err
		}
		reports = append(reports, *r)
	}

	var next string
	if page.LastEvaluatedKey != nil {
		sk, ok := page.LastEvaluatedKey["sk"].(*types.AttributeValueMemberS)
		if !ok {
			return nil, "", fmt.Errorf("list reports: resumption key has no sort key")
		}
		next = sk.Value
	}
	return reports, next, nil
}
