// Package aggregate computes windowed statistics over ledger events.
//
// All functions take the event slice exactly as the ledger range query
// returns it: ordered by timestamp descending, ties broken by id descending.
package aggregate

import (
	"sort"
	"time"

	"github.com/okian/aforo/internal/domain/model"
)

// hoursPerDay buckets for the hourly histograms.
const hoursPerDay = 24

// lastEventsLimit and topEntitiesLimit cap the report lists.
const (
	lastEventsLimit  = 10
	topEntitiesLimit = 10
)

// Stats summarizes a window for the stats endpoint.
type Stats struct {
	Entries int `json:"entries"`
	Exits   int `json:"exits"`
	Present int `json:"present"`
}

// Hours holds the two parallel hourly histograms.
type Hours struct {
	Labels  []int `json:"labels"`
	Entries []int `json:"entries"`
	Exits   []int `json:"exits"`
}

// EntityCount is a per-entity tally used for ranking.
type EntityCount struct {
	EntityID string `json:"entity_id"`
	Entries  int    `json:"entries"`
	Exits    int    `json:"exits"`
	Total    int    `json:"total"`
}

// Indicators carries the derived window indicators. Ratio is nil when the
// window has no exits; zero exits must not read as a ratio of zero.
type Indicators struct {
	PeakHour  int      `json:"peak_hour"`
	PeakValue int      `json:"peak_value"`
	Ratio     *float64 `json:"ratio"`
}

// Point is one step of the cumulative series.
type Point struct {
	Timestamp string `json:"ts"`
	Entries   int    `json:"entries"`
	Exits     int    `json:"exits"`
	Total     int    `json:"total"`
}

// Report is the full aggregation result for a window.
type Report struct {
	Hours       Hours         `json:"hours"`
	TopEntities []EntityCount `json:"top_entities"`
	Indicators  Indicators    `json:"indicators"`
	LastEvents  []model.Event `json:"last_events"`
	Cumulative  []Point       `json:"cumulative,omitempty"`
}

// Summarize computes entry/exit totals and the present count. An entity is
// present when its most recent event in the window is an entry.
func Summarize(events []model.Event) Stats {
	var s Stats
	latest := make(map[string]model.Direction)
	for _, e := range events {
		if e.Direction == model.Entry {
			s.Entries++
		} else {
			s.Exits++
		}
		// Events arrive newest first; keep the first direction seen per id.
		if _, ok := latest[e.EntityID]; !ok {
			latest[e.EntityID] = e.Direction
		}
	}
	for _, dir := range latest {
		if dir == model.Entry {
			s.Present++
		}
	}
	return s
}

// Day computes the daily report: histograms, ranking, indicators, last
// events. Hour buckets follow loc.
func Day(events []model.Event, loc *time.Location) Report {
	return compute(events, loc, false)
}

// Range computes the range report, which additionally carries the running
// cumulative series in ascending timestamp order.
func Range(events []model.Event, loc *time.Location) Report {
	return compute(events, loc, true)
}

func compute(events []model.Event, loc *time.Location, cumulative bool) Report {
	if loc == nil {
		loc = time.Local
	}
	var r Report
	r.Hours = Hours{
		Labels:  make([]int, hoursPerDay),
		Entries: make([]int, hoursPerDay),
		Exits:   make([]int, hoursPerDay),
	}
	for i := range r.Hours.Labels {
		r.Hours.Labels[i] = i
	}

	perEntity := make(map[string]*EntityCount)
	order := make([]string, 0)

	for _, e := range events {
		h := e.Timestamp.In(loc).Hour()
		if e.Direction == model.Entry {
			r.Hours.Entries[h]++
		} else {
			r.Hours.Exits[h]++
		}

		c, ok := perEntity[e.EntityID]
		if !ok {
			c = &EntityCount{EntityID: e.EntityID}
			perEntity[e.EntityID] = c
			order = append(order, e.EntityID)
		}
		if e.Direction == model.Entry {
			c.Entries++
		} else {
			c.Exits++
		}
		c.Total = c.Entries + c.Exits
	}

	r.Indicators = indicators(r.Hours)
	r.TopEntities = topEntities(perEntity, order)
	r.LastEvents = lastEvents(events)
	if cumulative {
		r.Cumulative = cumulativeSeries(events, loc)
	}
	return r
}

func indicators(h Hours) Indicators {
	var ind Indicators
	var entries, exits int
	for i := 0; i < hoursPerDay; i++ {
		entries += h.Entries[i]
		exits += h.Exits[i]
		// First hour with the maximum combined count wins ties.
		if v := h.Entries[i] + h.Exits[i]; v > ind.PeakValue {
			ind.PeakValue = v
			ind.PeakHour = i
		}
	}
	if exits > 0 {
		ratio := float64(entries) / float64(exits)
		ind.Ratio = &ratio
	}
	return ind
}

// topEntities ranks by total descending; ties keep encounter order.
func topEntities(perEntity map[string]*EntityCount, order []string) []EntityCount {
	ranked := make([]EntityCount, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *perEntity[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})
	if len(ranked) > topEntitiesLimit {
		ranked = ranked[:topEntitiesLimit]
	}
	return ranked
}

func lastEvents(events []model.Event) []model.Event {
	n := len(events)
	if n > lastEventsLimit {
		n = lastEventsLimit
	}
	out := make([]model.Event, n)
	copy(out, events[:n])
	return out
}

// cumulativeSeries walks the window oldest-first, one point per event.
func cumulativeSeries(events []model.Event, loc *time.Location) []Point {
	series := make([]Point, 0, len(events))
	var entries, exits int
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Direction == model.Entry {
			entries++
		} else {
			exits++
		}
		series = append(series, Point{
			Timestamp: e.Timestamp.In(loc).Format("2006-01-02T15:04:05.000Z07:00"),
			Entries:   entries,
			Exits:     exits,
			Total:     entries + exits,
		})
	}
	return series
}
