package model

import "time"

// DaySchedule stores the publish parameters for one site and date.
// It is the record of what an admin last published, so a republish
// can be compared against it and so the current window can be read
// back.  There is at most one row per (site, date); republishing
// overwrites it and advances UpdatedAt.
//
// Fields:
//  ID           - primary key identifier.
//  SiteID       - site the schedule belongs to.
//  Date         - calendar day in YYYY-MM-DD form.
//  LoadsTarget  - how many regular slots the admin asked for.
//  OpenTime     - first bookable time of day, HH:MM.
//  CloseTime    - last bookable time of day, HH:MM.  Always after OpenTime.
//  WorkInTarget - how many work-in (overflow) slots to spread across the day.
//  UpdatedAt    - last publish time.
type DaySchedule struct {
	ID           uint64    // day_schedules.id
	SiteID       uint64    // day_schedules.site_id
	Date         string    // day_schedules.sched_date
	LoadsTarget  int       // day_schedules.loads_target
	OpenTime     string    // day_schedules.open_time
	CloseTime    string    // day_schedules.close_time
	WorkInTarget int       // day_schedules.workin_target
	UpdatedAt    time.Time // day_schedules.updated_at
}
