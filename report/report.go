package report

import (
	"github.com/PrettySolution/driver-infrastructure/internal/keys"
)

// Checklist is the inspection checklist embedded in a report payload.
type Checklist struct {
	Oil   int `json:"oil" dynamodbav:"oil"`
	Brake int `json:"brake" dynamodbav:"brake"`
	Tair  int `json:"tair" dynamodbav:"tair"`
}

// Payload is the free-form structured content of a report.
type Payload struct {
	Checklist Checklist `json:"checklist" dynamodbav:"checklist"`
	Note      string    `json:"note" dynamodbav:"note"`
}

// Report is the logical entity persisted by this layer. ReportID and
// CreatedAt are immutable once assigned; Type is the only field Update may
// change.
type Report struct {
	ReportID  string  `json:"reportId" dynamodbav:"reportId"`
	VehicleID string  `json:"vehicleId" dynamodbav:"vehicleId"`
	DriverID  string  `json:"driverId" dynamodbav:"driverId"`
	Payload   Payload `json:"payload" dynamodbav:"payload"`
	CreatedAt int64   `json:"createdAt" dynamodbav:"createdAt"`
	Type      string  `json:"type,omitempty" dynamodbav:"type,omitempty"`
}

// Key returns the report's ordering value: its full primary sort key. It is
// both the addressing key for Get, Update and Delete and the pagination
// cursor — the complete physical key is reconstructable from it.
func (r *Report) Key() string {
	return keys.PrimarySK(r.CreatedAt, r.VehicleID, r.DriverID, r.ReportID)
}

// DefaultPayload is the payload every report starts with. This is policy,
// not mechanism: a caller-supplied payload can replace it without touching
// storage or query code.
func DefaultPayload() Payload {
	return Payload{
		Checklist: Checklist{Oil: 0, Brake: 1, Tair: 2},
		Note:      "this is a note",
	}
}
