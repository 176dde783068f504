// Package report is the access facade for report records and their
// driver/vehicle associations, persisted as three denormalized records in
// one DynamoDB table.
//
// One create writes a primary record plus a driver projection and a vehicle
// projection in a single atomic transaction; the three records share the
// report's partition key and are never observed partially. Get, Update and
// Delete address a report by its owner and its ordering value — the full
// primary sort key — from which the complete physical key is rebuilt. List
// pages through an owner's reports with an opaque cursor of the same shape.
package report
