// Package keys encodes and decodes the physical key shapes of the report table.
//
// Every piece of "how do three access patterns share one table" knowledge
// lives here: adding a projection means adding one sort-key rule, not
// touching storage or query code.
package keys

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Entity kinds used as key prefixes.
const (
	KindReport  = "REPORT"
	KindDriver  = "DRIVER"
	KindVehicle = "VEHICLE"
)

// Coarse index partitions (gsi1pk values), one per access pattern.
const (
	TagReports        = "REPORTS$"
	TagDriverReports  = "REPORTS|DRIVER$"
	TagVehicleReports = "REPORTS|VEHICLE$"
)

// ErrMalformedKey is returned when a sort key does not decode.
var ErrMalformedKey = errors.New("keys: malformed sort key")

// Ref returns the type-qualified reference for an entity, e.g. "REPORT#abc".
func Ref(kind, id string) string {
	return kind + "#" + id
}

// PrimarySK builds the primary record's sort key:
//
//	#<createdAt>#VEHICLE#<vid>#DRIVER#<did>&REPORT#<rid>
//
// createdAt is in milliseconds; at 13 digits until the year 2286 the
// lexicographic order of the key matches chronological order.
func PrimarySK(createdAt int64, vehicleID, driverID, reportID string) string {
	return "#" + strconv.FormatInt(createdAt, 10) +
		"#" + Ref(KindVehicle, vehicleID) +
		"#" + Ref(KindDriver, driverID) +
		"&" + Ref(KindReport, reportID)
}

// DriverSK builds the driver-projection sort key:
//
//	DRIVER#<did>#<createdAt>&REPORT#<rid>
func DriverSK(driverID string, createdAt int64, reportID string) string {
	return Ref(KindDriver, driverID) +
		"#" + strconv.FormatInt(createdAt, 10) +
		"&" + Ref(KindReport, reportID)
}

// VehicleSK builds the vehicle-projection sort key:
//
//	VEHICLE#<vid>#<createdAt>&REPORT#<rid>
func VehicleSK(vehicleID string, createdAt int64, reportID string) string {
	return Ref(KindVehicle, vehicleID) +
		"#" + strconv.FormatInt(createdAt, 10) +
		"&" + Ref(KindReport, reportID)
}

// Primary holds the decoded components of a primary sort key.
type Primary struct {
	CreatedAt int64
	VehicleID string
	DriverID  string
	ReportID  string
}

// ParsePrimary decodes a primary sort key back into its components.
// Identifiers containing the separator characters '#' or '&' are rejected
// at write time, so a well-formed key always splits unambiguously.
func ParsePrimary(sk string) (Primary, error) {
	body, ok := strings.CutPrefix(sk, "#")
	if !ok {
		return Primary{}, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	left, right, ok := strings.Cut(body, "&")
	if !ok {
		return Primary{}, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	reportID, ok := strings.CutPrefix(right, KindReport+"#")
	if !ok || reportID == "" {
		return Primary{}, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	parts := strings.Split(left, "#")
	if len(parts) != 5 || parts[1] != KindVehicle || parts[3] != KindDriver {
		return Primary{}, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	createdAt, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Primary{}, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	if parts[2] == "" || parts[4] == "" {
		return Primary{}, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	return Primary{
		CreatedAt: createdAt,
		VehicleID: parts[2],
		DriverID:  parts[4],
		ReportID:  reportID,
	}, nil
}

// PartitionFor derives the table partition key from a sort key. All three
// sort-key shapes end with "&REPORT#<rid>", which is exactly the partition
// key value; this is what lets a full physical key be rebuilt from an opaque
// cursor or addressing key.
func PartitionFor(sk string) (string, error) {
	i := strings.LastIndex(sk, "&")
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	ref := sk[i+1:]
	id, ok := strings.CutPrefix(ref, KindReport+"#")
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	return ref, nil
}
