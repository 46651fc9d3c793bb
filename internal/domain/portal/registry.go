package portal

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Factory builds an unstarted portal for a new viewer.
type Factory func() *Portal

// RegistryConfig bounds how long portals are kept. Zero values disable the
// corresponding limit.
type RegistryConfig struct {
	// IdleTTL evicts portals not looked up for this long.
	IdleTTL time.Duration
	// MaxPortals evicts the least recently used portals beyond this count.
	MaxPortals int
	Now        func() time.Time
}

func (c RegistryConfig) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

type entry struct {
	portal    *Portal
	expiresAt time.Time
	lastSeen  time.Time
}

// Registry tracks live portals by session id.
type Registry struct {
	newPortal Factory
	cfg       RegistryConfig
	logger    *slog.Logger

	mu      sync.Mutex
	portals map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry(newPortal Factory, cfg RegistryConfig, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		newPortal: newPortal,
		cfg:       cfg,
		logger:    logger,
		portals:   make(map[string]*entry),
	}
}

// Open starts a portal for cred. A portal that fails to sign in is returned
// with the error but not registered, so its failure state can still be shown.
// The caller owns that portal and must Close it.
func (r *Registry) Open(ctx context.Context, cred Credential) (*Portal, error) {
	p := r.newPortal()
	if err := p.Start(ctx, cred); err != nil {
		return p, err
	}

	signIn, ok := p.Session()
	if !ok {
		return p, ErrClosed
	}

	id := signIn.Session.ID
	r.mu.Lock()
	var evicted []*Portal
	if previous := r.portals[id]; previous != nil {
		evicted = append(evicted, previous.portal)
	}
	r.portals[id] = &entry{portal: p, expiresAt: signIn.Session.ExpiresAt, lastSeen: r.cfg.now()}
	evicted = append(evicted, r.overflowLocked(id)...)
	r.mu.Unlock()
	closePortals(evicted)

	r.logger.Debug("portal opened", "session_id", id, "uid", signIn.User.UID)
	return p, nil
}

// Get returns the portal for a session id and marks it as recently used.
func (r *Registry) Get(sessionID string) (*Portal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.portals[sessionID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.cfg.now()
	return e.portal, true
}

// Close tears down and forgets the portal for a session id.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	e, ok := r.portals[sessionID]
	delete(r.portals, sessionID)
	r.mu.Unlock()
	if ok {
		e.portal.Close()
	}
}

// Sweep closes portals whose session has expired, that have been idle past
// IdleTTL, or whose loop has already stopped. It returns how many it removed.
func (r *Registry) Sweep() int {
	now := r.cfg.now()

	r.mu.Lock()
	var evicted []*Portal
	for id, e := range r.portals {
		expired := !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
		idle := r.cfg.IdleTTL > 0 && now.Sub(e.lastSeen) >= r.cfg.IdleTTL
		if expired || idle || stopped(e.portal) {
			delete(r.portals, id)
			evicted = append(evicted, e.portal)
		}
	}
	r.mu.Unlock()

	closePortals(evicted)
	if len(evicted) > 0 {
		r.logger.Debug("portals evicted", "count", len(evicted))
	}
	return len(evicted)
}

// Run sweeps on every interval until ctx ends.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll tears down every portal.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	portals := make([]*Portal, 0, len(r.portals))
	for _, e := range r.portals {
		portals = append(portals, e.portal)
	}
	r.portals = make(map[string]*entry)
	r.mu.Unlock()

	closePortals(portals)
}

// Len returns the number of live portals.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.portals)
}

// overflowLocked removes the least recently used portals beyond MaxPortals,
// never the one just opened.
func (r *Registry) overflowLocked(keep string) []*Portal {
	excess := len(r.portals) - r.cfg.MaxPortals
	if r.cfg.MaxPortals <= 0 || excess <= 0 {
		return nil
	}

	ids := make([]string, 0, len(r.portals)-1)
	for id := range r.portals {
		if id != keep {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.portals[ids[i]].lastSeen.Before(r.portals[ids[j]].lastSeen)
	})

	evicted := make([]*Portal, 0, excess)
	for _, id := range ids[:excess] {
		evicted = append(evicted, r.portals[id].portal)
		delete(r.portals, id)
	}
	return evicted
}

func stopped(p *Portal) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

func closePortals(portals []*Portal) {
	var wg sync.WaitGroup
	for _, p := range portals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Close()
		}()
	}
	wg.Wait()
}
