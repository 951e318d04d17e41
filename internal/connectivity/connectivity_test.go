package connectivity

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeConn struct{ net.Conn }

func (fakeConn) Close() error { return nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// newTestProber builds a prober whose dial outcome is controlled by the
// reachable function, without starting the probe loop.
func newTestProber(reachable func() bool) *Prober {
	p := &Prober{
		addr:     "test:0",
		interval: time.Hour,
		logger:   quietLogger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	p.dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		if reachable() {
			return fakeConn{}, nil
		}
		return nil, fmt.Errorf("dial %s: connection refused", addr)
	}
	p.online = p.probe()
	return p
}

func TestProber_InitialStatus(t *testing.T) {
	up := newTestProber(func() bool { return true })
	if !up.Online() {
		t.Error("Online() = false with reachable endpoint")
	}

	down := newTestProber(func() bool { return false })
	if down.Online() {
		t.Error("Online() = true with unreachable endpoint")
	}
}

func TestProber_TransitionNotifiesSubscribers(t *testing.T) {
	reachable := true
	p := newTestProber(func() bool { return reachable })

	ch := p.Subscribe()

	reachable = false
	p.setOnline(p.probe())

	select {
	case status := <-ch:
		if status != Offline {
			t.Errorf("status = %v, want Offline", status)
		}
	default:
		t.Fatal("subscriber did not receive transition")
	}

	if p.Online() {
		t.Error("Online() = true after offline transition")
	}
}

func TestProber_NoNotificationWithoutTransition(t *testing.T) {
	p := newTestProber(func() bool { return true })
	ch := p.Subscribe()

	// Same status twice: no event.
	p.setOnline(true)

	select {
	case status := <-ch:
		t.Errorf("unexpected notification: %v", status)
	default:
	}
}

func TestProber_SlowSubscriberDoesNotBlock(t *testing.T) {
	reachable := true
	p := newTestProber(func() bool { return reachable })
	p.Subscribe() // never drained

	// More transitions than the channel buffer holds; must not hang.
	for i := 0; i < 10; i++ {
		reachable = !reachable
		p.setOnline(reachable)
	}
}

func TestProber_SubscribeAfterClose(t *testing.T) {
	p := newTestProber(func() bool { return true })
	p.Start()

	before := p.Subscribe()
	p.Close()

	if _, open := <-before; open {
		t.Error("pre-Close subscription left open after Close")
	}

	// A late subscriber must get a terminated channel, not one that
	// nothing will ever feed or close.
	after := p.Subscribe()
	select {
	case _, open := <-after:
		if open {
			t.Error("post-Close subscription delivered a value")
		}
	default:
		t.Fatal("post-Close subscription is not closed")
	}
}

func TestStatus_String(t *testing.T) {
	if Online.String() != "online" {
		t.Errorf("Online.String() = %q", Online.String())
	}
	if Offline.String() != "offline" {
		t.Errorf("Offline.String() = %q", Offline.String())
	}
}
