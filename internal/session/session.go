package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
)

var (
	// ErrRequestInFlight is returned while another request is still running.
	ErrRequestInFlight = errors.New("another request is still in progress")
	// ErrUnsaved is returned when the user declines to discard unsaved changes.
	ErrUnsaved = errors.New("the timesheet has unsaved changes")
	// ErrDeclined is returned when the user answers "no" to a confirmation.
	ErrDeclined = errors.New("cancelled by user")
	// ErrNoTimesheet is returned by actions that need a loaded timesheet.
	ErrNoTimesheet = errors.New("no timesheet loaded")
	// ErrWrongState is returned for actions the current state does not allow.
	ErrWrongState = errors.New("action not allowed in the current state")
)

// Client is the server side of the session.
type Client interface {
	Me(ctx context.Context) (model.User, error)
	Current(ctx context.Context) (*model.Timesheet, error)
	ForDate(ctx context.Context, day string) (*model.Timesheet, error)
	Next(ctx context.Context, begin string) (*model.Timesheet, error)
	Save(ctx context.Context, id int, payload string) error
	Complete(ctx context.Context, id int, payload string) error
	Fix(ctx context.Context, id int) error
}

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, title, question string) (bool, error)
}

// Prompter asks for a single line of text. An error means the user dismissed
// the prompt.
type Prompter interface {
	Prompt(ctx context.Context, title, label string) (string, error)
}

// ActivityTimer is notified of loads and user interaction.
type ActivityTimer interface {
	Start()
	Reset()
}

// Mirror keeps a local copy of every fetched timesheet.
type Mirror interface {
	SaveTimesheet(ts *model.Timesheet) error
}

// Options wires a Session to its collaborators. Client, Confirmer and
// Prompter are required.
type Options struct {
	Client    Client
	Confirmer Confirmer
	Prompter  Prompter
	Timer     ActivityTimer
	Mirror    Mirror
	// Now defaults to time.Now.
	Now func() time.Time
}

// Session holds the displayed timesheet, its cell index and edit tracker,
// and drives the submission lifecycle.
type Session struct {
	client  Client
	confirm Confirmer
	prompt  Prompter
	timer   ActivityTimer
	mirror  Mirror
	now     func() time.Time

	mu      sync.Mutex
	busy    bool
	user    *model.User
	cache   map[int]*model.Timesheet
	current *model.Timesheet
	tracker *grid.Tracker
	state   State
}

// New returns a Session with nothing loaded.
func New(opts Options) (*Session, error) {
	if opts.Client == nil || opts.Confirmer == nil || opts.Prompter == nil {
		return nil, errors.New("session: client, confirmer and prompter are required")
	}
	s := &Session{
		client:  opts.Client,
		confirm: opts.Confirmer,
		prompt:  opts.Prompter,
		timer:   opts.Timer,
		mirror:  opts.Mirror,
		now:     opts.Now,
		cache:   make(map[int]*model.Timesheet),
	}
	if s.timer == nil {
		s.timer = nopTimer{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

type nopTimer struct{}

func (nopTimer) Start() {}
func (nopTimer) Reset() {}

// acquire marks the session busy for the duration of one action.
func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrRequestInFlight
	}
	s.busy = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// State returns the lifecycle state of the displayed timesheet.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Timesheet returns the displayed document, or nil.
func (s *Session) Timesheet() *model.Timesheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Cached returns a previously fetched document by id.
func (s *Session) Cached(id int) (*model.Timesheet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.cache[id]
	return ts, ok
}

// Tracker returns the edit tracker of the displayed timesheet, or nil.
func (s *Session) Tracker() *grid.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker
}

// User returns the authenticated user once a timesheet has been loaded.
func (s *Session) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// CanComplete reports whether Complete is currently offered.
func (s *Session) CanComplete() bool { return s.State() == Editable }

// CanFix reports whether Fix is currently offered.
func (s *Session) CanFix() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Completed && s.current != nil && !s.current.Approved
}

// install replaces the displayed timesheet and rebuilds index and tracker.
func (s *Session) install(ts *model.Timesheet) error {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	if user == nil {
		return errors.New("session: user not known")
	}

	idx, err := grid.Build(ts, grid.Options{UserID: user.ID, Now: s.now()})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[ts.ID] = ts
	s.current = ts
	s.tracker = grid.NewTracker(idx, s.now)
	s.state = stateFor(ts, user.ID)
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.SaveTimesheet(ts); err != nil {
			return fmt.Errorf("mirror timesheet %d: %w", ts.ID, err)
		}
	}
	s.timer.Start()
	return nil
}

func stateFor(ts *model.Timesheet, userID int) State {
	switch {
	case ts.User.ID != userID:
		return ReadOnly
	case ts.Completed:
		return Completed
	}
	return Editable
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
