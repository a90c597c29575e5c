package semaphore

// Guard policies.
const (
	// Defer constructs a guard that owns nothing yet.
	Defer = iota
	// Try attempts a TryAcquire at construction.
	Try
	// Adopt constructs a guard over a permit already held.
	Adopt
)

// NewGuard scopes one permit of s under the given policy. Close releases
// the permit when owned; use it with defer.
func NewGuard(s *Semaphore, policy int) *Guard {
	g := &Guard{s: s}
	switch policy {
	case Try:
		g.owned = s.TryAcquire()
	case Adopt:
		g.owned = true
	default:
	}
	return g
}

type Guard struct {
	s     *Semaphore
	owned bool
}

// Acquire takes a permit for a guard that owns none, posting fn to the
// executor once the permit is held. The guard owns the permit from the
// moment fn runs; release it through the guard, not the semaphore.
func (g *Guard) Acquire(fn func()) {
	if g.owned {
		g.s.exec.PostFunc(fn)
		return
	}
	g.s.AsyncAcquire(func() {
		g.owned = true
		fn()
	})
}

// TryAcquire takes a permit for a guard that owns none.
func (g *Guard) TryAcquire() bool {
	if g.owned {
		return true
	}
	g.owned = g.s.TryAcquire()
	return g.owned
}

// Release drops ownership early, returning the permit.
func (g *Guard) Release() {
	if g.owned {
		g.owned = false
		g.s.Release(1)
	}
}

func (g *Guard) Owned() bool {
	return g.owned
}

func (g *Guard) Close() error {
	g.Release()
	return nil
}
