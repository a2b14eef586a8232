package aggregate_test

import (
	"testing"
	"time"

	"github.com/okian/aforo/internal/domain/aggregate"
	"github.com/okian/aforo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// ev builds an event at the given local hour. Events are listed newest
// first, the order the ledger range query returns them in.
func ev(id int64, entityID string, dir model.Direction, hour, minute int) model.Event {
	return model.Event{
		ID:        id,
		EntityID:  entityID,
		Direction: dir,
		Timestamp: time.Date(2024, 3, 10, hour, minute, 0, 0, time.Local),
	}
}

func TestSummarize(t *testing.T) {
	Convey("Given events in a window", t, func() {
		Convey("When an entity entered and later exited", func() {
			events := []model.Event{
				ev(2, "42", model.Exit, 9, 30),
				ev(1, "42", model.Entry, 9, 0),
			}

			Convey("Then it does not count as present", func() {
				s := aggregate.Summarize(events)
				So(s.Entries, ShouldEqual, 1)
				So(s.Exits, ShouldEqual, 1)
				So(s.Present, ShouldEqual, 0)
			})
		})

		Convey("When an entity's latest event is an entry", func() {
			events := []model.Event{
				ev(3, "42", model.Entry, 10, 0),
				ev(2, "42", model.Exit, 9, 30),
				ev(1, "42", model.Entry, 9, 0),
			}
			s := aggregate.Summarize(events)
			So(s.Entries, ShouldEqual, 2)
			So(s.Exits, ShouldEqual, 1)
			So(s.Present, ShouldEqual, 1)
		})

		Convey("When several entities are interleaved", func() {
			events := []model.Event{
				ev(4, "b", model.Exit, 11, 0),
				ev(3, "a", model.Entry, 10, 0),
				ev(2, "b", model.Entry, 9, 30),
				ev(1, "c", model.Entry, 9, 0),
			}
			s := aggregate.Summarize(events)
			So(s.Present, ShouldEqual, 2) // a and c
		})

		Convey("When the window is empty", func() {
			s := aggregate.Summarize(nil)
			So(s, ShouldResemble, aggregate.Stats{})
		})
	})
}

func TestDay(t *testing.T) {
	Convey("Given a day's events", t, func() {
		Convey("When events spread across hours", func() {
			events := []model.Event{
				ev(5, "a", model.Entry, 14, 0),
				ev(4, "b", model.Exit, 9, 45),
				ev(3, "a", model.Exit, 9, 30),
				ev(2, "b", model.Entry, 9, 10),
				ev(1, "a", model.Entry, 9, 0),
			}
			r := aggregate.Day(events, time.Local)

			Convey("Then the hourly histograms are bucketed by local hour", func() {
				So(r.Hours.Labels, ShouldHaveLength, 24)
				So(r.Hours.Entries[9], ShouldEqual, 2)
				So(r.Hours.Exits[9], ShouldEqual, 2)
				So(r.Hours.Entries[14], ShouldEqual, 1)
				So(r.Hours.Exits[14], ShouldEqual, 0)
			})

			Convey("Then the peak hour tracks the combined count", func() {
				So(r.Indicators.PeakHour, ShouldEqual, 9)
				So(r.Indicators.PeakValue, ShouldEqual, 4)
			})

			Convey("Then the ratio is entries over exits", func() {
				So(r.Indicators.Ratio, ShouldNotBeNil)
				So(*r.Indicators.Ratio, ShouldAlmostEqual, 1.5)
			})

			Convey("Then the last events keep ledger order", func() {
				So(r.LastEvents, ShouldHaveLength, 5)
				So(r.LastEvents[0].ID, ShouldEqual, 5)
			})

			Convey("Then no cumulative series is attached", func() {
				So(r.Cumulative, ShouldBeNil)
			})
		})

		Convey("When two hours tie for the peak", func() {
			events := []model.Event{
				ev(4, "a", model.Exit, 5, 0),
				ev(3, "a", model.Entry, 5, 0),
				ev(2, "b", model.Exit, 2, 0),
				ev(1, "b", model.Entry, 2, 0),
			}

			Convey("Then the earliest hour wins", func() {
				r := aggregate.Day(events, time.Local)
				So(r.Indicators.PeakHour, ShouldEqual, 2)
				So(r.Indicators.PeakValue, ShouldEqual, 2)
			})
		})

		Convey("When the window has no exits", func() {
			events := []model.Event{
				ev(1, "a", model.Entry, 9, 0),
			}

			Convey("Then the ratio is absent, not zero", func() {
				r := aggregate.Day(events, time.Local)
				So(r.Indicators.Ratio, ShouldBeNil)
			})
		})

		Convey("When more than ten entities appear", func() {
			events := make([]model.Event, 0, 13)
			id := int64(13)
			// "busy" has two events, every other entity one.
			events = append(events,
				ev(id, "busy", model.Exit, 12, 0),
				ev(id-1, "busy", model.Entry, 11, 0),
			)
			id -= 2
			for _, name := range []string{"k", "j", "i", "h", "g", "f", "e", "d", "c", "b", "a"} {
				events = append(events, ev(id, name, model.Entry, 10, 0))
				id--
			}
			r := aggregate.Day(events, time.Local)

			Convey("Then the ranking is capped at ten", func() {
				So(r.TopEntities, ShouldHaveLength, 10)
			})

			Convey("Then the busiest entity ranks first", func() {
				So(r.TopEntities[0].EntityID, ShouldEqual, "busy")
				So(r.TopEntities[0].Total, ShouldEqual, 2)
			})

			Convey("Then ties keep encounter order", func() {
				So(r.TopEntities[1].EntityID, ShouldEqual, "k")
				So(r.TopEntities[2].EntityID, ShouldEqual, "j")
			})
		})

		Convey("When there are no events", func() {
			r := aggregate.Day(nil, time.Local)
			So(r.Hours.Labels, ShouldHaveLength, 24)
			So(r.TopEntities, ShouldBeEmpty)
			So(r.LastEvents, ShouldBeEmpty)
			So(r.Indicators.PeakValue, ShouldEqual, 0)
			So(r.Indicators.Ratio, ShouldBeNil)
		})
	})
}

func TestRange(t *testing.T) {
	Convey("Given a multi-day range", t, func() {
		events := []model.Event{
			ev(3, "a", model.Entry, 12, 0),
			ev(2, "b", model.Exit, 10, 0),
			ev(1, "a", model.Entry, 9, 0),
		}
		r := aggregate.Range(events, time.Local)

		Convey("Then the cumulative series runs oldest first", func() {
			So(r.Cumulative, ShouldHaveLength, 3)
			So(r.Cumulative[0].Entries, ShouldEqual, 1)
			So(r.Cumulative[0].Exits, ShouldEqual, 0)
			So(r.Cumulative[1].Exits, ShouldEqual, 1)
			So(r.Cumulative[2].Total, ShouldEqual, 3)
		})

		Convey("Then each point carries a millisecond timestamp", func() {
			So(r.Cumulative[0].Timestamp, ShouldContainSubstring, "2024-03-10T09:00:00.000")
		})
	})
}
