package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/project"
)

// Config holds the per-deployment settings a portal needs.
type Config struct {
	AppID       string
	SeedEnabled bool
}

type eventKind int

const (
	eventSync eventKind = iota
	eventFail
	eventSelectProject
	eventSelectTab
)

type event struct {
	kind  eventKind
	id    string
	tab   Tab
	fail  ErrorKind
	err   error
	reply chan error
}

// Portal is one viewer's dashboard session. A single goroutine owns all state;
// callers interact through methods that post events to it.
type Portal struct {
	cfg      Config
	auth     AuthClient
	projects Projects
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan event
	done   chan struct{}

	authMu    sync.Mutex
	authQueue []*identity.User
	authKick  chan struct{}

	startMu     sync.Mutex
	started     bool
	unsubscribe func()

	mu       sync.Mutex
	state    State
	watchers map[*Watcher]struct{}
	closed   bool

	// owned by the loop goroutine
	sub      *project.Subscription
	subUID   string
	signedIn bool
	awaiting bool
	seeded   map[string]bool
}

// New creates a portal in the loading phase and starts its event loop.
func New(cfg Config, auth AuthClient, projects Projects, logger *slog.Logger) *Portal {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Portal{
		cfg:      cfg,
		auth:     auth,
		projects: projects,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan event),
		done:     make(chan struct{}),
		authKick: make(chan struct{}, 1),
		state:    State{Phase: PhaseLoading, Tab: TabOverview, Projects: []project.Project{}},
		watchers: make(map[*Watcher]struct{}),
		seeded:   make(map[string]bool),
	}
	go p.run()
	return p
}

// Start registers the auth listener and signs the viewer in. A failed sign-in
// moves the portal to its AuthenticationFailed error state and is returned.
func (p *Portal) Start(ctx context.Context, cred Credential) error {
	p.startMu.Lock()
	if p.started {
		p.startMu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.unsubscribe = p.auth.OnAuthStateChange(p.onAuthStateChange)
	p.startMu.Unlock()

	if err := p.signIn(ctx, cred); err != nil {
		p.logger.Warn("sign in failed", "error", err)
		if postErr := p.post(ctx, event{kind: eventFail, fail: ErrorAuthenticationFailed, err: err}); postErr != nil {
			return postErr
		}
		return err
	}
	return p.post(ctx, event{kind: eventSync})
}

func (p *Portal) signIn(ctx context.Context, cred Credential) error {
	if cred.SessionToken != "" {
		_, err := p.auth.Resume(ctx, cred.SessionToken)
		if err == nil {
			return nil
		}
		if !errors.Is(err, identity.ErrSessionNotFound) {
			return err
		}
		p.logger.Debug("session not resumable, signing in again", "error", err)
	}
	if cred.CustomToken != "" {
		_, err := p.auth.SignInWithToken(ctx, cred.CustomToken)
		return err
	}
	_, err := p.auth.SignInAnonymous(ctx)
	return err
}

// SelectProject makes id the active project. It must be in the visible set.
func (p *Portal) SelectProject(ctx context.Context, id string) error {
	return p.post(ctx, event{kind: eventSelectProject, id: id})
}

// SelectTab switches the active navigation tab.
func (p *Portal) SelectTab(ctx context.Context, tab Tab) error {
	if _, err := ParseTab(string(tab)); err != nil {
		return err
	}
	return p.post(ctx, event{kind: eventSelectTab, tab: tab})
}

// SignOut ends the viewer's session. The portal moves to signed_out once the
// identity change has been applied.
func (p *Portal) SignOut(ctx context.Context) error {
	if err := p.auth.SignOut(ctx); err != nil {
		return err
	}
	return p.post(ctx, event{kind: eventSync})
}

// State returns a copy of the current state.
func (p *Portal) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// Session returns the viewer's current sign-in.
func (p *Portal) Session() (identity.SignIn, bool) {
	return p.auth.Current()
}

// Done is closed when the portal's loop has stopped.
func (p *Portal) Done() <-chan struct{} {
	return p.done
}

// Close stops the loop, the project subscription and the auth listener. It does
// not sign the viewer out.
func (p *Portal) Close() {
	p.cancel()
	<-p.done
}

// post delivers an event to the loop and waits for it to be handled.
func (p *Portal) post(ctx context.Context, ev event) error {
	ev.reply = make(chan error, 1)
	select {
	case p.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrClosed
	}
	select {
	case err := <-ev.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrClosed
	}
}

func (p *Portal) onAuthStateChange(user *identity.User) {
	p.authMu.Lock()
	p.authQueue = append(p.authQueue, user)
	p.authMu.Unlock()
	select {
	case p.authKick <- struct{}{}:
	default:
	}
}

func (p *Portal) run() {
	defer close(p.done)
	defer p.teardown()

	for {
		var snapshots <-chan []project.Project
		if p.sub != nil {
			snapshots = p.sub.Projects()
		}

		select {
		case <-p.ctx.Done():
			return
		case <-p.authKick:
			p.drainAuth()
		case ev := <-p.events:
			// Auth changes queued before the event are applied first so callers
			// observe their own sign-in or sign-out.
			p.drainAuth()
			ev.reply <- p.handle(ev)
		case projects, ok := <-snapshots:
			if !ok {
				p.subscriptionEnded()
				continue
			}
			p.applySnapshot(projects)
		}
	}
}

func (p *Portal) drainAuth() {
	p.authMu.Lock()
	queue := p.authQueue
	p.authQueue = nil
	p.authMu.Unlock()

	for _, user := range queue {
		p.applyUser(user)
	}
}

func (p *Portal) handle(ev event) error {
	if p.failed() && ev.kind != eventSync {
		return ErrPortalFailed
	}

	switch ev.kind {
	case eventSync:
		return nil
	case eventFail:
		p.fail(ev.fail, ev.err)
		return nil
	case eventSelectProject:
		p.mu.Lock()
		_, ok := project.Find(p.state.Projects, ev.id)
		p.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownProject, ev.id)
		}
		p.update(func(s *State) { s.SelectedID = ev.id })
		return nil
	case eventSelectTab:
		p.update(func(s *State) { s.Tab = ev.tab })
		return nil
	default:
		return fmt.Errorf("unknown event %d", ev.kind)
	}
}

func (p *Portal) applyUser(user *identity.User) {
	if p.failed() {
		return
	}

	if user == nil {
		if !p.signedIn {
			return
		}
		p.signedIn = false
		p.closeSubscription()
		p.update(func(s *State) {
			s.Phase = PhaseSignedOut
			s.User = nil
			s.Projects = []project.Project{}
			s.SelectedID = ""
		})
		p.logger.Info("viewer signed out")
		return
	}

	p.signedIn = true
	u := *user
	if p.sub != nil && p.subUID == u.UID {
		p.update(func(s *State) { s.User = &u })
		return
	}

	p.closeSubscription()
	p.update(func(s *State) {
		s.Phase = PhaseLoading
		s.User = &u
		s.Projects = []project.Project{}
		s.SelectedID = ""
	})

	sub, err := p.projects.Watch(p.ctx, p.cfg.AppID, u.UID)
	if err != nil {
		p.fail(ErrorDataLoadFailed, err)
		return
	}
	p.sub = sub
	p.subUID = u.UID
	p.awaiting = true
	p.logger.Debug("project subscription opened", "uid", u.UID)
}

func (p *Portal) applySnapshot(projects []project.Project) {
	if p.failed() {
		return
	}

	first := p.awaiting
	p.awaiting = false
	// A new user's first empty snapshot is followed by the seeded one, so the
	// portal stays loading until that arrives.
	seeding := first && len(projects) == 0 && p.cfg.SeedEnabled && !p.seeded[p.subUID]

	p.update(func(s *State) {
		s.Projects = projects
		if _, ok := project.Find(projects, s.SelectedID); !ok {
			s.SelectedID = ""
			if len(projects) > 0 {
				s.SelectedID = projects[0].ID
			}
		}
		if !seeding {
			s.Phase = PhaseReady
		}
	})

	if !seeding {
		return
	}
	p.seeded[p.subUID] = true
	if _, err := p.projects.Seed(p.ctx, p.cfg.AppID, p.subUID); err != nil {
		p.logger.Warn("seed failed", "uid", p.subUID, "error", err)
		p.update(func(s *State) { s.Phase = PhaseReady })
	}
}

func (p *Portal) subscriptionEnded() {
	sub := p.sub
	p.sub = nil
	p.subUID = ""
	if err := sub.Err(); err != nil {
		p.fail(ErrorDataLoadFailed, err)
	}
}

func (p *Portal) fail(kind ErrorKind, err error) {
	if p.failed() {
		return
	}
	p.closeSubscription()
	p.logger.Error("portal failed", "kind", kind, "error", err)
	p.update(func(s *State) {
		s.Phase = PhaseError
		s.Failure = NewFailure(kind)
		s.Projects = []project.Project{}
		s.SelectedID = ""
	})
}

func (p *Portal) failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Phase == PhaseError
}

func (p *Portal) closeSubscription() {
	if p.sub == nil {
		return
	}
	p.sub.Close()
	p.sub = nil
	p.subUID = ""
	p.awaiting = false
}

// update applies fn to the state and publishes the result to watchers.
func (p *Portal) update(fn func(*State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
	p.state.Version++
	for w := range p.watchers {
		w.deliver(p.state.Clone())
	}
}

func (p *Portal) teardown() {
	p.startMu.Lock()
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	p.startMu.Unlock()

	p.closeSubscription()

	p.mu.Lock()
	p.closed = true
	for w := range p.watchers {
		w.end()
	}
	p.watchers = map[*Watcher]struct{}{}
	p.mu.Unlock()
}
