package model

import "time"

// Site represents one physical intake location where trucks are
// received.  Each site carries a minimum slot interval in minutes,
// a physical constraint of the lane (a fast scale lane can turn a
// truck around quicker than a manual dock).  Sites are configuration
// and are not mutated by the booking flow.
//
// Fields:
//  ID                 - primary key identifier.
//  Name               - human readable site name.
//  MinIntervalMinutes - floor for the generated slot interval.
//  CreatedAt          - when the site was registered.
type Site struct {
	ID                 uint64    // sites.id
	Name               string    // sites.name
	MinIntervalMinutes int       // sites.min_interval_minutes
	CreatedAt          time.Time // sites.created_at
}
