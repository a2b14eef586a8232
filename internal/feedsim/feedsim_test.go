package feedsim_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/okian/aforo/internal/feedsim"
	"github.com/okian/aforo/internal/domain/parse"
	"github.com/okian/aforo/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	Convey("Given a listening ingest endpoint", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		defer ln.Close()

		received := make(chan string, 64)
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				received <- scanner.Text()
			}
			close(received)
		}()

		Convey("When a bounded simulation runs", func() {
			cfg := &feedsim.Config{
				Addr:     ln.Addr().String(),
				Count:    10,
				Interval: time.Millisecond,
				Entities: 3,
				HintedPC: 50,
				BaseID:   500,
			}
			stats, err := feedsim.Run(context.Background(), cfg)
			So(err, ShouldBeNil)

			Convey("Then all lines arrive and parse to scans", func() {
				So(stats.LinesSent, ShouldEqual, 10)
				So(stats.Hinted+stats.Bare, ShouldEqual, 10)

				for i := 0; i < 10; i++ {
					select {
					case line := <-received:
						scan, ok := parse.Scan(line)
						So(ok, ShouldBeTrue)
						So(scan.EntityID, ShouldBeIn, "500", "501", "502")
					case <-time.After(2 * time.Second):
						t.Fatal("timed out waiting for simulated lines")
					}
				}
			})
		})

		Convey("When the simulation is cancelled early", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			cfg := &feedsim.Config{
				Addr:     ln.Addr().String(),
				Count:    0,
				Interval: time.Millisecond,
				Entities: 1,
				HintedPC: 0,
				BaseID:   1,
			}
			stats, err := feedsim.Run(ctx, cfg)

			Convey("Then it returns the context error with partial stats", func() {
				So(err, ShouldNotBeNil)
				So(stats, ShouldNotBeNil)
				So(stats.LinesSent, ShouldEqual, 0)
			})
		})
	})
}

func TestRun_DialFailure(t *testing.T) {
	Convey("Given no listener at the target address", t, func() {
		cfg := &feedsim.Config{
			Addr:     "127.0.0.1:1",
			Count:    1,
			Interval: time.Millisecond,
			Entities: 1,
			HintedPC: 0,
			BaseID:   1,
		}
		stats, err := feedsim.Run(context.Background(), cfg)
		So(err, ShouldNotBeNil)

		Convey("Then empty stats are still returned", func() {
			So(stats, ShouldNotBeNil)
			So(stats.LinesSent, ShouldEqual, 0)
		})
	})
}
