// Package scheduler drives reminders.
//
// On every tick the Engine captures the current time once, sends a reminder
// to each recipient whose next due time has passed, advances that due time
// by the recipient's interval whether or not the send succeeded, and then
// saves the whole timetable (except in dry-run mode).
//
// Ticks are triggered by robfig/cron and never overlap. The first tick runs
// immediately when Run starts.
package scheduler
