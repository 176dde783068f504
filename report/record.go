package report

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/PrettySolution/driver-infrastructure/internal/keys"
)

// record is the persisted shape shared by the primary record and the two
// association-only projection records. All three share the report's
// partition key and differ in sort key and index-partition tag; only the
// primary record carries the entity under Data.
type record struct {
	PK     string  `dynamodbav:"pk"`
	SK     string  `dynamodbav:"sk"`
	GSI1PK string  `dynamodbav:"gsi1pk"`
	Data   *Report `dynamodbav:"data,omitempty"`
}

func primaryRecord(r *Report) record {
	return record{
		PK:     keys.Ref(keys.KindReport, r.ReportID),
		SK:     r.Key(),
		GSI1PK: keys.TagReports,
		Data:   r,
	}
}

func driverRecord(r *Report) record {
	return record{
		PK:     keys.Ref(keys.KindReport, r.ReportID),
		SK:     keys.DriverSK(r.DriverID, r.CreatedAt, r.ReportID),
		GSI1PK: keys.TagDriverReports,
	}
}

func vehicleRecord(r *Report) record {
	return record{
		PK:     keys.Ref(keys.KindReport, r.ReportID),
		SK:     keys.VehicleSK(r.VehicleID, r.CreatedAt, r.ReportID),
		GSI1PK: keys.TagVehicleReports,
	}
}

// marshalRecords produces the three physical items one create writes.
func marshalRecords(r *Report) ([]map[string]types.AttributeValue, error) {
	records := []record{primaryRecord(r), driverRecord(r), vehicleRecord(r)}
	items := make([]map[string]types.AttributeValue, 0, len(records))
	for _, rec := range records {
		item, err := attributevalue.MarshalMap(rec)
		if err != nil {
			return nil, fmt.Errorf("marshal record %q: %w", rec.SK, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// unmarshalReport extracts the entity from a primary record item.
func unmarshalReport(item map[string]types.AttributeValue) (*Report, error) {
	var rec record
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	if rec.Data == nil {
		return nil, fmt.Errorf("unmarshal report: record %q carries no entity", rec.SK)
	}
	return rec.Data, nil
}
