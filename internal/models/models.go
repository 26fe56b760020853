package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MonsterReport is one submitted spawn-window observation for a boss monster.
// Numeric fields arrive either as JSON numbers or numeric strings and are
// always normalized to int on decode.
type MonsterReport struct {
	ID             string `json:"id,omitempty"`
	ReporterUserID string `json:"userId"`
	ReporterName   string `json:"userIgn"`
	Date           string `json:"date"`
	StartHour      int    `json:"startHour"`
	StartMinute    int    `json:"startMinute"`
	EndHour        int    `json:"endHour"`
	EndMinute      int    `json:"endMinute"`
	TimeUncheck    bool   `json:"timeUncheck"`
	MonsterID      int    `json:"monsterId"`
	RegionID       int    `json:"regionId"`
	LocationName   string `json:"locationName"`
	HMID           int    `json:"hmId"`
	Move1ID        int    `json:"move1Id"`
	Move2ID        int    `json:"move2Id"`
	Move3ID        int    `json:"move3Id"`
	Move4ID        int    `json:"move4Id"`
	AlphaTimeID    int    `json:"alphaTimeId"`
	Summary        string `json:"text"`
	AvatarImageURL string `json:"itemCosmeticConfigUrl"`
}

// MoveIDs returns the four move slots in order; 0 means an empty slot.
func (r *MonsterReport) MoveIDs() [4]int {
	return [4]int{r.Move1ID, r.Move2ID, r.Move3ID, r.Move4ID}
}

// MissingFieldError is returned when a required report field is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// wireReport mirrors MonsterReport with lenient field types.
type wireReport struct {
	ID             flexString `json:"id"`
	ReporterUserID flexString `json:"userId"`
	ReporterName   string     `json:"userIgn"`
	Date           string     `json:"date"`
	StartHour      flexInt    `json:"startHour"`
	StartMinute    flexInt    `json:"startMinute"`
	EndHour        flexInt    `json:"endHour"`
	EndMinute      flexInt    `json:"endMinute"`
	TimeUncheck    bool       `json:"timeUncheck"`
	MonsterID      flexInt    `json:"monsterId"`
	RegionID       flexInt    `json:"regionId"`
	LocationName   string     `json:"locationName"`
	HMID           flexInt    `json:"hmId"`
	Move1ID        flexInt    `json:"move1Id"`
	Move2ID        flexInt    `json:"move2Id"`
	Move3ID        flexInt    `json:"move3Id"`
	Move4ID        flexInt    `json:"move4Id"`
	AlphaTimeID    flexInt    `json:"alphaTimeId"`
	Summary        string     `json:"text"`
	AvatarImageURL string     `json:"itemCosmeticConfigUrl"`
}

// UnmarshalJSON decodes a report, coercing numeric strings to integers and
// rejecting reports without a monster id or spawn window.
func (r *MonsterReport) UnmarshalJSON(data []byte) error {
	var w wireReport
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	required := []struct {
		name string
		v    flexInt
	}{
		{"monsterId", w.MonsterID},
		{"startHour", w.StartHour},
		{"startMinute", w.StartMinute},
		{"endHour", w.EndHour},
		{"endMinute", w.EndMinute},
	}
	for _, f := range required {
		if !f.v.set {
			return &MissingFieldError{Field: f.name}
		}
	}

	*r = MonsterReport{
		ID:             string(w.ID),
		ReporterUserID: string(w.ReporterUserID),
		ReporterName:   w.ReporterName,
		Date:           w.Date,
		StartHour:      w.StartHour.v,
		StartMinute:    w.StartMinute.v,
		EndHour:        w.EndHour.v,
		EndMinute:      w.EndMinute.v,
		TimeUncheck:    w.TimeUncheck,
		MonsterID:      w.MonsterID.v,
		RegionID:       w.RegionID.v,
		LocationName:   w.LocationName,
		HMID:           w.HMID.v,
		Move1ID:        w.Move1ID.v,
		Move2ID:        w.Move2ID.v,
		Move3ID:        w.Move3ID.v,
		Move4ID:        w.Move4ID.v,
		AlphaTimeID:    w.AlphaTimeID.v,
		Summary:        w.Summary,
		AvatarImageURL: w.AvatarImageURL,
	}
	return nil
}

// CacheEntry is the persisted form of the last successfully fetched dataset.
type CacheEntry struct {
	Timestamp int64           `json:"timestamp"` // epoch millis
	Data      []MonsterReport `json:"data"`
}

// NewCacheEntry stamps reports with t.
func NewCacheEntry(t time.Time, reports []MonsterReport) *CacheEntry {
	return &CacheEntry{Timestamp: t.UnixMilli(), Data: reports}
}

// Time returns the entry timestamp.
func (e *CacheEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Age returns how old the entry is at now.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Time())
}

// FreshAt reports whether the entry is younger than ttl at now.
func (e *CacheEntry) FreshAt(now time.Time, ttl time.Duration) bool {
	return e.Age(now) < ttl
}
