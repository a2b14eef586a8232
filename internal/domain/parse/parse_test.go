package parse_test

import (
	"testing"

	"github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/internal/domain/parse"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScan(t *testing.T) {
	Convey("Given raw scan lines from a reader", t, func() {
		Convey("When the line is a bare id", func() {
			scan, ok := parse.Scan("12345")
			So(ok, ShouldBeTrue)
			So(scan.EntityID, ShouldEqual, "12345")
			So(scan.Hint, ShouldEqual, model.HintNone)
		})

		Convey("When the id is embedded in reader noise", func() {
			scan, ok := parse.Scan("reader: id=987 ts=ignored")
			So(ok, ShouldBeTrue)
			So(scan.EntityID, ShouldEqual, "987")
		})

		Convey("When the line has multiple digit runs", func() {
			Convey("Then only the first run becomes the id", func() {
				scan, ok := parse.Scan("card 42 slot 7")
				So(ok, ShouldBeTrue)
				So(scan.EntityID, ShouldEqual, "42")
			})
		})

		Convey("When the line carries no digits", func() {
			_, ok := parse.Scan("reader online")
			So(ok, ShouldBeFalse)

			_, ok = parse.Scan("")
			So(ok, ShouldBeFalse)
		})

		Convey("When the line carries an entry keyword", func() {
			for _, line := range []string{
				"card 42 entrada",
				"42 INGRESO",
				"Entry badge 42",
			} {
				scan, ok := parse.Scan(line)
				So(ok, ShouldBeTrue)
				So(scan.Hint, ShouldEqual, model.HintEntry)
			}
		})

		Convey("When the line carries an exit keyword", func() {
			for _, line := range []string{
				"card 42 salida",
				"42 EGRESO",
				"exit badge 42",
			} {
				scan, ok := parse.Scan(line)
				So(ok, ShouldBeTrue)
				So(scan.Hint, ShouldEqual, model.HintExit)
			}
		})

		Convey("When keywords appear as substrings of larger words", func() {
			scan, ok := parse.Scan("42 reentrada")
			So(ok, ShouldBeTrue)
			So(scan.Hint, ShouldEqual, model.HintEntry)
		})

		Convey("When the line carries both entry and exit keywords", func() {
			Convey("Then the hint is dropped and history decides", func() {
				scan, ok := parse.Scan("42 entrada salida")
				So(ok, ShouldBeTrue)
				So(scan.Hint, ShouldEqual, model.HintNone)
			})
		})

		Convey("When leading zeros are present", func() {
			Convey("Then the id keeps them verbatim", func() {
				scan, ok := parse.Scan("007 entrada")
				So(ok, ShouldBeTrue)
				So(scan.EntityID, ShouldEqual, "007")
			})
		})
	})
}
