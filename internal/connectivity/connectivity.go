package connectivity

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the current connectivity state.
type Status int

const (
	Offline Status = iota
	Online
)

func (s Status) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

// Monitor exposes a synchronous connectivity snapshot and a push-based
// subscription emitting status transitions.
type Monitor interface {
	Online() bool
	Subscribe() <-chan Status
}

const probeTimeout = 3 * time.Second

// Prober is a Monitor that decides reachability by dialing a TCP
// address on an interval. Transitions fan out to all subscribers.
type Prober struct {
	addr     string
	interval time.Duration
	dial     func(network, addr string, timeout time.Duration) (net.Conn, error)
	logger   *logrus.Logger

	mu      sync.Mutex
	online  bool
	subs    []chan Status
	stopped bool

	stop chan struct{}
	done chan struct{}
}

// NewProber creates a prober for addr and performs one synchronous probe
// so Online is meaningful before Start.
func NewProber(addr string, interval time.Duration, logger *logrus.Logger) *Prober {
	if logger == nil {
		logger = logrus.New()
	}
	p := &Prober{
		addr:     addr,
		interval: interval,
		dial:     net.DialTimeout,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	p.online = p.probe()
	return p
}

// Start launches the background probe loop. Call Close to stop it.
func (p *Prober) Start() {
	go p.loop()
}

// Close stops the probe loop and closes all subscriber channels.
func (p *Prober) Close() {
	select {
	case <-p.stop:
		return
	default:
	}
	close(p.stop)
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
	p.stopped = true
}

// Online returns the last observed status.
func (p *Prober) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Subscribe returns a channel receiving each status transition. The
// channel is buffered; a subscriber that falls behind drops transitions
// rather than blocking the prober. After Close the returned channel is
// already closed, so late subscribers terminate instead of waiting on a
// channel nothing feeds.
func (p *Prober) Subscribe() <-chan Status {
	ch := make(chan Status, 4)
	p.mu.Lock()
	if p.stopped {
		close(ch)
	} else {
		p.subs = append(p.subs, ch)
	}
	p.mu.Unlock()
	return ch
}

func (p *Prober) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.setOnline(p.probe())
		}
	}
}

func (p *Prober) probe() bool {
	conn, err := p.dial("tcp", p.addr, probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (p *Prober) setOnline(online bool) {
	p.mu.Lock()
	if p.online == online {
		p.mu.Unlock()
		return
	}
	p.online = online

	status := Offline
	if online {
		status = Online
	}
	subs := make([]chan Status, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	p.logger.WithField("status", status.String()).Info("connectivity changed")

	for _, ch := range subs {
		select {
		case ch <- status:
		default:
		}
	}
}
