package httpapi

import (
	"sync"
	"sync/atomic"
)

// RejectReason says why admission was refused.
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectDraining    RejectReason = "draining"
	RejectGlobalLimit RejectReason = "max_connections"
	RejectIPLimit     RejectReason = "max_connections_per_ip"
)

// ConnRegistry tracks active WebSocket sessions and enforces admission
// control: a global connection cap, a per-remote-address cap, and graceful
// draining for shutdown. A single mutex guards the draining flag, the global
// count, and the per-address map, making the check-and-increment atomic.
type ConnRegistry struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	count    atomic.Int64

	maxGlobal int
	maxPerIP  int
	perIP     map[string]int
}

func NewConnRegistry(maxGlobal, maxPerIP int) *ConnRegistry {
	if maxGlobal <= 0 {
		maxGlobal = 50
	}
	if maxPerIP <= 0 {
		maxPerIP = 5
	}
	return &ConnRegistry{
		maxGlobal: maxGlobal,
		maxPerIP:  maxPerIP,
		perIP:     make(map[string]int),
	}
}

// Add admits a new session for the given remote address. On refusal the
// reason distinguishes draining from quota.
func (cr *ConnRegistry) Add(ip string) RejectReason {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.draining {
		return RejectDraining
	}
	if int(cr.count.Load()) >= cr.maxGlobal {
		return RejectGlobalLimit
	}
	if cr.perIP[ip] >= cr.maxPerIP {
		return RejectIPLimit
	}

	cr.perIP[ip]++
	cr.count.Add(1)
	cr.wg.Add(1)
	return RejectNone
}

// Done releases a session admitted by Add. Cleanup on disconnect is
// mandatory; a leaked entry permanently consumes quota for that address.
func (cr *ConnRegistry) Done(ip string) {
	cr.mu.Lock()
	if n := cr.perIP[ip]; n <= 1 {
		delete(cr.perIP, ip)
	} else {
		cr.perIP[ip] = n - 1
	}
	cr.mu.Unlock()

	cr.count.Add(-1)
	cr.wg.Done()
}

// StartDraining refuses all future Add calls.
func (cr *ConnRegistry) StartDraining() {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.draining = true
}

// ActiveCount returns the number of admitted sessions.
func (cr *ConnRegistry) ActiveCount() int64 {
	return cr.count.Load()
}

// Wait blocks until every admitted session has released its slot.
func (cr *ConnRegistry) Wait() {
	cr.wg.Wait()
}
