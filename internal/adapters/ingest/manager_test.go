package ingest_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/aforo/internal/adapters/ingest"
	"github.com/okian/aforo/internal/adapters/mq/queue"
	"github.com/okian/aforo/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// captureSink records every emitted line.
type captureSink struct {
	mu    sync.Mutex
	lines []queue.Line
}

func (c *captureSink) Enqueue(_ context.Context, l queue.Line) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, l)
	return true
}

func (c *captureSink) captured() []queue.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]queue.Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestManager_TCPListener(t *testing.T) {
	Convey("Given a manager with a TCP listener", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sink := &captureSink{}
		m := ingest.NewManager(sink, ingest.WithListenAddr("127.0.0.1:0"))
		So(m.Start(ctx), ShouldBeNil)
		defer m.Stop()
		So(m.Addr(), ShouldNotBeEmpty)

		Convey("When a peer connects and sends framed lines", func() {
			conn, err := net.Dial("tcp", m.Addr())
			So(err, ShouldBeNil)
			defer conn.Close()

			_, err = conn.Write([]byte("123 entrada\r\n45"))
			So(err, ShouldBeNil)
			_, err = conn.Write([]byte("6\n"))
			So(err, ShouldBeNil)

			Convey("Then decoded lines reach the sink with a tcp source", func() {
				So(waitFor(func() bool { return len(sink.captured()) == 2 }), ShouldBeTrue)
				lines := sink.captured()
				So(lines[0].Text, ShouldEqual, "123 entrada")
				So(lines[1].Text, ShouldEqual, "456")
				So(lines[0].Source, ShouldStartWith, "tcp:")
				So(lines[0].At.IsZero(), ShouldBeFalse)
			})

			Convey("Then the connection shows up in the source list", func() {
				So(waitFor(func() bool {
					for _, s := range m.Sources() {
						if s.Kind == "tcp" && s.Connected {
							return true
						}
					}
					return false
				}), ShouldBeTrue)
			})
		})

		Convey("When a peer disconnects", func() {
			conn, err := net.Dial("tcp", m.Addr())
			So(err, ShouldBeNil)
			So(waitFor(func() bool { return len(m.Sources()) == 1 }), ShouldBeTrue)

			conn.Close()

			Convey("Then its source is removed", func() {
				So(waitFor(func() bool { return len(m.Sources()) == 0 }), ShouldBeTrue)
			})
		})
	})
}

func TestManager_DeviceSources(t *testing.T) {
	Convey("Given a manager with device paths", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// A regular file stands in for a device node; it drains to EOF.
		path := filepath.Join(t.TempDir(), "reader0")
		So(os.WriteFile(path, []byte("42 entrada\n77\n"), 0o600), ShouldBeNil)

		sink := &captureSink{}
		m := ingest.NewManager(sink, ingest.WithDevicePaths([]string{path, "/nonexistent/reader1"}))
		So(m.Start(ctx), ShouldBeNil)
		defer m.Stop()

		Convey("Then the readable device feeds the sink", func() {
			So(waitFor(func() bool { return len(sink.captured()) == 2 }), ShouldBeTrue)
			So(sink.captured()[0].Source, ShouldEqual, path)
		})

		Convey("Then the missing device is listed as disconnected", func() {
			So(waitFor(func() bool {
				for _, s := range m.Sources() {
					if s.Name == "/nonexistent/reader1" && !s.Connected && s.Kind == "device" {
						return true
					}
				}
				return false
			}), ShouldBeTrue)
		})

		Convey("When a reconnect is requested", func() {
			So(waitFor(func() bool { return len(sink.captured()) == 2 }), ShouldBeTrue)

			infos := m.Reconnect(ctx)

			Convey("Then the device is reopened and replays from the file", func() {
				So(len(infos), ShouldBeGreaterThanOrEqualTo, 1)
				So(waitFor(func() bool { return len(sink.captured()) == 4 }), ShouldBeTrue)
			})
		})
	})
}

func TestManager_MockFeed(t *testing.T) {
	Convey("Given a manager in mock mode", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sink := &captureSink{}
		m := ingest.NewManager(sink, ingest.WithMockFeed(10*time.Millisecond))
		So(m.Start(ctx), ShouldBeNil)

		Convey("Then synthetic id lines flow at the configured rate", func() {
			So(waitFor(func() bool { return len(sink.captured()) >= 3 }), ShouldBeTrue)
			line := sink.captured()[0]
			So(line.Source, ShouldEqual, "mock")
			So(line.Text, ShouldNotBeEmpty)
		})

		cancel()
		m.Stop()
	})
}
