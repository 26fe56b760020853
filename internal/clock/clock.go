// Package clock converts spawn-window (hour, minute) pairs into day buckets,
// display strings, durations and remaining-time classifications.
//
// Every function that depends on the current time takes it as an argument so
// a single render pass sees one consistent "now".
package clock

import (
	"fmt"
	"time"
)

// UrgentThreshold is the remaining time below which an active window is urgent.
const UrgentThreshold = 15 * time.Minute

// Urgency classifies how much of a spawn window is left.
type Urgency string

const (
	UrgencyEnded  Urgency = "ended"
	UrgencyUrgent Urgency = "urgent"
	UrgencyActive Urgency = "active"
)

// LabelEnded is shown for windows whose end time has passed.
const LabelEnded = "已结束"

var dayBucketNames = map[int]string{
	1: "清晨", // 5:00-8:59
	2: "上午", // 9:00-11:59
	3: "中午", // 12:00-13:59
	4: "下午", // 14:00-16:59
	5: "傍晚", // 17:00-19:59
	6: "晚上", // 20:00-22:59
	7: "深夜", // 23:00-4:59
}

// DayBucket maps an hour of day to one of the seven named time slots.
func DayBucket(hour int) int {
	switch {
	case hour >= 5 && hour < 9:
		return 1
	case hour >= 9 && hour < 12:
		return 2
	case hour >= 12 && hour < 14:
		return 3
	case hour >= 14 && hour < 17:
		return 4
	case hour >= 17 && hour < 20:
		return 5
	case hour >= 20 && hour < 23:
		return 6
	default:
		return 7
	}
}

// DayBucketLabel returns the display name of a bucket id, or "未知".
func DayBucketLabel(id int) string {
	if name, ok := dayBucketNames[id]; ok {
		return name
	}
	return "未知"
}

// FormatTime renders hour and minute as HH:MM.
func FormatTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// MinuteOfDay returns hour*60+minute.
func MinuteOfDay(hour, minute int) int {
	return hour*60 + minute
}

// Duration returns the window length in minutes. A window that crosses
// midnight yields a negative value; callers decide how to present it.
func Duration(startHour, startMinute, endHour, endMinute int) int {
	return MinuteOfDay(endHour, endMinute) - MinuteOfDay(startHour, startMinute)
}

// EndTime places hour:minute on now's calendar date in now's location.
func EndTime(endHour, endMinute int, now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, endHour, endMinute, 0, 0, now.Location())
}

// IsActive reports whether the end wall-clock time is strictly after now.
func IsActive(endHour, endMinute int, now time.Time) bool {
	return EndTime(endHour, endMinute, now).After(now)
}

// Remaining is the time left in a window and its urgency class.
type Remaining struct {
	Label   string        `json:"label"`
	Urgency Urgency       `json:"urgency"`
	Left    time.Duration `json:"-"`
}

// RemainingTime classifies the time left until endHour:endMinute today.
func RemainingTime(endHour, endMinute int, now time.Time) Remaining {
	left := EndTime(endHour, endMinute, now).Sub(now)
	if left <= 0 {
		return Remaining{Label: LabelEnded, Urgency: UrgencyEnded}
	}

	urgency := UrgencyActive
	if left < UrgentThreshold {
		urgency = UrgencyUrgent
	}
	hours := int(left / time.Hour)
	minutes := int((left % time.Hour) / time.Minute)
	return Remaining{
		Label:   fmt.Sprintf("剩余 %d小时 %d分钟", hours, minutes),
		Urgency: urgency,
		Left:    left,
	}
}
