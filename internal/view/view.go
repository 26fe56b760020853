// Package view derives everything the board shows from a report list: the
// summary counters, per-report cards, the countdown banner and chart series.
// All functions take the current time explicitly so one render pass sees a
// single "now".
package view

import (
	"fmt"
	"slices"
	"time"

	"boss-spawn-board/internal/clock"
	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/models"
)

// NoData is shown when there is no location to report.
const NoData = "无数据"

func IsActive(r models.MonsterReport, now time.Time) bool {
	return clock.IsActive(r.EndHour, r.EndMinute, now)
}

func Remaining(r models.MonsterReport, now time.Time) clock.Remaining {
	return clock.RemainingTime(r.EndHour, r.EndMinute, now)
}

// Duration is the window length in minutes, negative across midnight.
func Duration(r models.MonsterReport) int {
	return clock.Duration(r.StartHour, r.StartMinute, r.EndHour, r.EndMinute)
}

// DayBucket is the time slot a report is filed under, keyed on its end hour.
func DayBucket(r models.MonsterReport) int {
	return clock.DayBucket(r.EndHour)
}

// NextExpiring returns the active report with the earliest end time. Reports
// ending at the same minute keep their input order.
func NextExpiring(reports []models.MonsterReport, now time.Time) (models.MonsterReport, bool) {
	var (
		best  models.MonsterReport
		found bool
	)
	for _, r := range reports {
		if !IsActive(r, now) {
			continue
		}
		if !found || clock.MinuteOfDay(r.EndHour, r.EndMinute) < clock.MinuteOfDay(best.EndHour, best.EndMinute) {
			best, found = r, true
		}
	}
	return best, found
}

// Stats are the three counters at the top of the board.
type Stats struct {
	Active         int    `json:"active"`
	Total          int    `json:"total"`
	CommonLocation string `json:"common_location"`
}

// SummaryStats counts active reports and finds the most reported
// "<region> <location>". Ties go to the label seen first.
func SummaryStats(reports []models.MonsterReport, tables *lookup.Tables, now time.Time) Stats {
	s := Stats{Total: len(reports), CommonLocation: NoData}

	counts := make(map[string]int)
	var order []string
	for _, r := range reports {
		if IsActive(r, now) {
			s.Active++
		}
		label := locationLabel(r, tables, " ")
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}

	best := 0
	for _, label := range order {
		if counts[label] > best {
			s.CommonLocation, best = label, counts[label]
		}
	}
	return s
}

func locationLabel(r models.MonsterReport, tables *lookup.Tables, sep string) string {
	return tables.RegionName(r.RegionID) + sep + r.LocationName
}

// Card is the render record of one report.
type Card struct {
	ID             string          `json:"id,omitempty"`
	MonsterID      int             `json:"monster_id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Image          string          `json:"image,omitempty"`
	Ability        string          `json:"ability"`
	Region         string          `json:"region"`
	Location       string          `json:"location"`
	Start          string          `json:"start"`
	End            string          `json:"end"`
	Duration       int             `json:"duration_minutes"`
	Remaining      clock.Remaining `json:"remaining"`
	Active         bool            `json:"active"`
	DayBucket      int             `json:"day_bucket"`
	DayBucketLabel string          `json:"day_bucket_label"`
	Moves          []string        `json:"moves"`
	Date           string          `json:"date"`
	Reporter       string          `json:"reporter"`
	ReporterAvatar string          `json:"reporter_avatar,omitempty"`
}

// NewCard resolves a report against the lookup tables.
func NewCard(r models.MonsterReport, tables *lookup.Tables, now time.Time) Card {
	m := tables.Monster(r.MonsterID)
	bucket := DayBucket(r)

	moves := make([]string, 0, 4)
	for _, id := range r.MoveIDs() {
		if name := tables.MoveName(id); name != "" {
			moves = append(moves, name)
		}
	}

	return Card{
		ID:             r.ID,
		MonsterID:      r.MonsterID,
		Name:           m.Name,
		Type:           m.Type,
		Image:          m.Image,
		Ability:        m.Ability,
		Region:         tables.RegionName(r.RegionID),
		Location:       r.LocationName,
		Start:          clock.FormatTime(r.StartHour, r.StartMinute),
		End:            clock.FormatTime(r.EndHour, r.EndMinute),
		Duration:       Duration(r),
		Remaining:      Remaining(r, now),
		Active:         IsActive(r, now),
		DayBucket:      bucket,
		DayBucketLabel: clock.DayBucketLabel(bucket),
		Moves:          moves,
		Date:           r.Date,
		Reporter:       r.ReporterName,
		ReporterAvatar: r.AvatarImageURL,
	}
}

// Cards renders every report in input order.
func Cards(reports []models.MonsterReport, tables *lookup.Tables, now time.Time) []Card {
	cards := make([]Card, 0, len(reports))
	for _, r := range reports {
		cards = append(cards, NewCard(r, tables, now))
	}
	return cards
}

// Idle banner text, shown when nothing is active.
const (
	IdleTitle    = "当前没有进行中的头目"
	IdleSubtitle = "最近的报点已经结束，请等待新的报点信息"
)

// Banner is the countdown for the next report to expire.
type Banner struct {
	Idle      bool            `json:"idle"`
	Title     string          `json:"title"`
	Subtitle  string          `json:"subtitle,omitempty"`
	Window    string          `json:"window,omitempty"`
	Remaining clock.Remaining `json:"remaining"`
	Reporter  string          `json:"reporter,omitempty"`
}

// NextBanner builds the banner for NextExpiring, or the idle banner.
func NextBanner(reports []models.MonsterReport, tables *lookup.Tables, now time.Time) Banner {
	r, ok := NextExpiring(reports, now)
	if !ok {
		return Banner{
			Idle:      true,
			Title:     IdleTitle,
			Subtitle:  IdleSubtitle,
			Remaining: clock.Remaining{Label: clock.LabelEnded, Urgency: clock.UrgencyEnded},
		}
	}

	return Banner{
		Title: fmt.Sprintf("%s 正在 %s 出现！",
			tables.Monster(r.MonsterID).Name, locationLabel(r, tables, "-")),
		Window: clock.FormatTime(r.StartHour, r.StartMinute) + " - " +
			clock.FormatTime(r.EndHour, r.EndMinute),
		Remaining: Remaining(r, now),
		Reporter:  r.ReporterName,
	}
}

// Point is one bar of a chart. Type drives the bar colour.
type Point struct {
	Label   string   `json:"label"`
	Value   int      `json:"value"`
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Tooltip []string `json:"tooltip"`
}

// Series is a chart's dataset.
type Series struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

func chartName(id int, tables *lookup.Tables) string {
	if !tables.KnowsMonster(id) {
		return fmt.Sprintf("未知(#%d)", id)
	}
	return tables.Monster(id).Name
}

// TimeDistribution plots each report's start time as minutes after midnight.
func TimeDistribution(reports []models.MonsterReport, tables *lookup.Tables) Series {
	points := make([]Point, 0, len(reports))
	for _, r := range reports {
		name := chartName(r.MonsterID, tables)
		points = append(points, Point{
			Label: name,
			Value: clock.MinuteOfDay(r.StartHour, r.StartMinute),
			Type:  tables.Monster(r.MonsterID).Type,
			Title: fmt.Sprintf("%s (%s)", name, locationLabel(r, tables, "-")),
			Tooltip: []string{
				"出现时间: " + clock.FormatTime(r.StartHour, r.StartMinute),
				"结束时间: " + clock.FormatTime(r.EndHour, r.EndMinute),
				fmt.Sprintf("持续时间: %d分钟", Duration(r)),
				"报点人: " + r.ReporterName,
			},
		})
	}
	return Series{Label: "出现时间 (分钟)", Points: points}
}

// DurationChart plots each report's window length in minutes.
func DurationChart(reports []models.MonsterReport, tables *lookup.Tables) Series {
	points := make([]Point, 0, len(reports))
	for _, r := range reports {
		name := chartName(r.MonsterID, tables)
		d := Duration(r)
		points = append(points, Point{
			Label: name,
			Value: d,
			Type:  tables.Monster(r.MonsterID).Type,
			Title: name,
			Tooltip: []string{
				fmt.Sprintf("持续时间: %d 分钟", d),
				"时间段: " + clock.FormatTime(r.StartHour, r.StartMinute) + " - " +
					clock.FormatTime(r.EndHour, r.EndMinute),
				"报点人: " + r.ReporterName,
			},
		})
	}
	return Series{Label: "持续时间 (分钟)", Points: points}
}

// ActiveReports returns the reports still running at now, soonest to end first.
func ActiveReports(reports []models.MonsterReport, now time.Time) []models.MonsterReport {
	var active []models.MonsterReport
	for _, r := range reports {
		if IsActive(r, now) {
			active = append(active, r)
		}
	}
	slices.SortStableFunc(active, func(a, b models.MonsterReport) int {
		return clock.MinuteOfDay(a.EndHour, a.EndMinute) - clock.MinuteOfDay(b.EndHour, b.EndMinute)
	})
	return active
}
