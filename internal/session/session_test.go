package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/session"
)

var me = model.User{ID: 5, Login: "jdoe", FirstName: "Jane", LastName: "Doe"}

func sheet(id int, begin, end string, bills ...model.Bill) *model.Timesheet {
	return &model.Timesheet{
		ID:        id,
		User:      me,
		PayPeriod: model.PayPeriod{Type: model.BiWeekly, Begin: begin, End: end},
		Tasks:     []model.Task{{ID: 7, Description: "Overhead", Administrative: true, Bills: bills}},
	}
}

func clone(ts *model.Timesheet) *model.Timesheet {
	data, err := json.Marshal(ts)
	if err != nil {
		panic(err)
	}
	var out model.Timesheet
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

type fakeClient struct {
	mu      sync.Mutex
	sheets  map[string]*model.Timesheet // by pay period begin
	current string
	calls   []string
	payload map[int]string
	err     error

	// When set, Current signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func newFakeClient(sheets ...*model.Timesheet) *fakeClient {
	c := &fakeClient{sheets: make(map[string]*model.Timesheet), payload: make(map[int]string)}
	for _, ts := range sheets {
		c.sheets[ts.PayPeriod.Begin] = ts
	}
	c.current = sheets[0].PayPeriod.Begin
	return c
}

func (c *fakeClient) record(call string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.err
}

func (c *fakeClient) count(call string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.calls {
		if s == call {
			n++
		}
	}
	return n
}

func (c *fakeClient) byID(id int) *model.Timesheet {
	for _, ts := range c.sheets {
		if ts.ID == id {
			return ts
		}
	}
	return nil
}

func (c *fakeClient) Me(ctx context.Context) (model.User, error) {
	return me, c.record("me")
}

func (c *fakeClient) Current(ctx context.Context) (*model.Timesheet, error) {
	if c.entered != nil {
		c.entered <- struct{}{}
		<-c.release
	}
	if err := c.record("current"); err != nil {
		return nil, err
	}
	return clone(c.sheets[c.current]), nil
}

func (c *fakeClient) ForDate(ctx context.Context, day string) (*model.Timesheet, error) {
	if err := c.record("date"); err != nil {
		return nil, err
	}
	for _, ts := range c.sheets {
		if ts.PayPeriod.Contains(day) {
			return clone(ts), nil
		}
	}
	return nil, fmt.Errorf("no timesheet for %s", day)
}

func (c *fakeClient) Next(ctx context.Context, begin string) (*model.Timesheet, error) {
	if err := c.record("next"); err != nil {
		return nil, err
	}
	pp, err := c.sheets[begin].PayPeriod.Next()
	if err != nil {
		return nil, err
	}
	return clone(c.sheets[pp.Begin]), nil
}

func (c *fakeClient) Save(ctx context.Context, id int, payload string) error {
	if err := c.record("save"); err != nil {
		return err
	}
	c.payload[id] = payload
	return nil
}

func (c *fakeClient) Complete(ctx context.Context, id int, payload string) error {
	if err := c.record("complete"); err != nil {
		return err
	}
	c.payload[id] = payload
	ts := c.byID(id)
	ts.Completed = true
	next, _ := ts.PayPeriod.Next()
	c.current = next.Begin
	return nil
}

func (c *fakeClient) Fix(ctx context.Context, id int) error {
	if err := c.record("fix"); err != nil {
		return err
	}
	c.byID(id).Completed = false
	return nil
}

type answers struct {
	mu      sync.Mutex
	confirm []bool
	prompts []string
	asked   int
}

func (a *answers) Confirm(ctx context.Context, title, question string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.confirm) == 0 {
		return false, errors.New("dismissed")
	}
	ok := a.confirm[0]
	a.confirm = a.confirm[1:]
	return ok, nil
}

func (a *answers) Prompt(ctx context.Context, title, label string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.asked++
	if len(a.prompts) == 0 {
		return "", errors.New("dismissed")
	}
	s := a.prompts[0]
	a.prompts = a.prompts[1:]
	return s, nil
}

type countingTimer struct{ starts, resets int }

func (t *countingTimer) Start() { t.starts++ }
func (t *countingTimer) Reset() { t.resets++ }

type env struct {
	s      *session.Session
	client *fakeClient
	ask    *answers
	timer  *countingTimer
}

func newEnv(t *testing.T, sheets ...*model.Timesheet) *env {
	t.Helper()
	e := &env{client: newFakeClient(sheets...), ask: &answers{}, timer: &countingTimer{}}
	s, err := session.New(session.Options{
		Client:    e.client,
		Confirmer: e.ask,
		Prompter:  e.ask,
		Timer:     e.timer,
		Now:       func() time.Time { return time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatal(err)
	}
	e.s = s
	if err := s.LoadCurrent(context.Background()); err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	return e
}

func first() *model.Timesheet {
	return sheet(42, "20240101", "20240114", model.Bill{Day: "20240101", Hours: decimal.NewFromInt(8)})
}

func second() *model.Timesheet { return sheet(43, "20240115", "20240128") }

func cell(ts int, d string) grid.CellKey {
	return grid.CellKey{Timesheet: ts, Task: 7, Day: d}
}

func TestLoadCurrent(t *testing.T) {
	e := newEnv(t, first(), second())
	if st := e.s.State(); st != session.Editable {
		t.Errorf("State = %s, want editable", st)
	}
	if ts := e.s.Timesheet(); ts == nil || ts.ID != 42 {
		t.Fatalf("Timesheet = %+v", ts)
	}
	if _, ok := e.s.Cached(42); !ok {
		t.Error("timesheet 42 not cached")
	}
	if e.timer.starts != 1 {
		t.Errorf("timer starts = %d, want 1", e.timer.starts)
	}
	if u, ok := e.s.User(); !ok || u.ID != me.ID {
		t.Errorf("User = %+v, %v", u, ok)
	}
}

func TestEditPromptsUntilReason(t *testing.T) {
	e := newEnv(t, first(), second())
	e.ask.prompts = []string{"", "  ", "client:call"}

	out, err := e.s.Edit(context.Background(), cell(42, "20240101"), "6")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !out.ReasonRequired || out.Value != "6.00" {
		t.Errorf("outcome = %+v", out)
	}
	if e.ask.asked != 3 {
		t.Errorf("prompted %d times, want 3", e.ask.asked)
	}
	r, ok := e.s.Tracker().Reason(grid.CellKey{Timesheet: 42, Task: 7, Day: "20240101"})
	if !ok || r != "client call" {
		t.Errorf("reason = %q, %v", r, ok)
	}
}

func TestDismissedReasonBlocksNavigation(t *testing.T) {
	e := newEnv(t, first(), second())
	ctx := context.Background()

	_, err := e.s.Edit(ctx, cell(42, "20240101"), "6")
	if !errors.Is(err, grid.ErrReasonPending) {
		t.Fatalf("Edit with dismissed prompt: err = %v", err)
	}
	if err := e.s.LoadNext(ctx); !errors.Is(err, grid.ErrReasonPending) {
		t.Errorf("LoadNext: err = %v, want ErrReasonPending", err)
	}
	if err := e.s.Save(ctx); !errors.Is(err, grid.ErrReasonPending) {
		t.Errorf("Save: err = %v, want ErrReasonPending", err)
	}
	if n := e.client.count("next"); n != 0 {
		t.Errorf("next called %d times", n)
	}

	e.ask.prompts = []string{"forgot"}
	if err := e.s.ResumeReason(ctx); err != nil {
		t.Fatalf("ResumeReason: %v", err)
	}
	e.ask.confirm = []bool{true}
	if err := e.s.LoadNext(ctx); err != nil {
		t.Fatalf("LoadNext after reason: %v", err)
	}
	if ts := e.s.Timesheet(); ts.ID != 43 {
		t.Errorf("displayed timesheet = %d, want 43", ts.ID)
	}
}

func TestDirtyNavigationNeedsConfirmation(t *testing.T) {
	e := newEnv(t, first(), second())
	ctx := context.Background()
	if _, err := e.s.Edit(ctx, cell(42, "20240102"), "3"); err != nil {
		t.Fatal(err)
	}

	e.ask.confirm = []bool{false}
	if err := e.s.LoadDate(ctx, "20240120"); !errors.Is(err, session.ErrUnsaved) {
		t.Fatalf("LoadDate declined: err = %v, want ErrUnsaved", err)
	}
	if ts := e.s.Timesheet(); ts.ID != 42 || !e.s.Tracker().Dirty() {
		t.Error("declined navigation replaced the timesheet or lost edits")
	}

	e.ask.confirm = []bool{true}
	if err := e.s.LoadDate(ctx, "20240120"); err != nil {
		t.Fatalf("LoadDate confirmed: %v", err)
	}
	if ts := e.s.Timesheet(); ts.ID != 43 {
		t.Errorf("displayed timesheet = %d, want 43", ts.ID)
	}

	if err := e.s.LoadPrevious(ctx); err != nil {
		t.Fatalf("LoadPrevious: %v", err)
	}
	if ts := e.s.Timesheet(); ts.ID != 42 {
		t.Errorf("after LoadPrevious timesheet = %d, want 42", ts.ID)
	}
}

func TestFailedNavigationKeepsEdits(t *testing.T) {
	e := newEnv(t, first(), second())
	ctx := context.Background()
	e.ask.prompts = []string{"client call"}
	if _, err := e.s.Edit(ctx, cell(42, "20240101"), "6"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.s.Edit(ctx, cell(42, "20240102"), "3"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		load func(context.Context) error
	}{
		{"next", e.s.LoadNext},
		{"date", func(ctx context.Context) error { return e.s.LoadDate(ctx, "20240120") }},
		{"reload", e.s.Reload},
	}
	e.client.err = errors.New("connection refused")
	for _, tt := range tests {
		e.ask.confirm = []bool{true}
		if err := tt.load(ctx); err == nil {
			t.Fatalf("%s: expected fetch error", tt.name)
		}
		tr := e.s.Tracker()
		if ts := e.s.Timesheet(); ts.ID != 42 {
			t.Errorf("%s: displayed timesheet = %d, want 42", tt.name, ts.ID)
		}
		if !tr.Dirty() || !tr.IsCellDirty(cell(42, "20240102")) {
			t.Errorf("%s: failed fetch dropped the dirty marks", tt.name)
		}
		if r, ok := tr.Reason(cell(42, "20240101")); !ok || r != "client call" {
			t.Errorf("%s: reason = %q, %v", tt.name, r, ok)
		}
	}

	e.client.err = nil
	if err := e.s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := "7_:20240101:6.00:client call;7_:20240102:3.00"
	if got := e.client.payload[42]; got != want {
		t.Errorf("payload = %q, want %q", got, want)
	}
}

func TestSave(t *testing.T) {
	e := newEnv(t, first(), second())
	ctx := context.Background()
	if _, err := e.s.Edit(ctx, cell(42, "20240102"), "2.5"); err != nil {
		t.Fatal(err)
	}
	if err := e.s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := e.client.payload[42]; got != "7_:20240101:8.00;7_:20240102:2.50" {
		t.Errorf("payload = %q", got)
	}
	if e.s.Tracker().Dirty() {
		t.Error("Save left the timesheet dirty")
	}
	if e.s.State() != session.Editable {
		t.Errorf("State = %s after save", e.s.State())
	}
	if b := model.FindBill(e.s.Timesheet().Tasks[0].Bills, "20240102"); b == nil || !b.Hours.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("held document not updated: %+v", e.s.Timesheet().Tasks[0].Bills)
	}
}

func TestCompleteRefetches(t *testing.T) {
	e := newEnv(t, first(), second())
	ctx := context.Background()
	if _, err := e.s.Edit(ctx, cell(42, "20240102"), "4"); err != nil {
		t.Fatal(err)
	}

	e.ask.confirm = []bool{true}
	if err := e.s.Complete(ctx); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := e.client.payload[42]; got != "7_:20240101:8.00;7_:20240102:4.00" {
		t.Errorf("payload = %q", got)
	}
	if n := e.client.count("current"); n != 2 {
		t.Errorf("current fetched %d times, want 2", n)
	}
	if ts := e.s.Timesheet(); ts.ID != 43 {
		t.Errorf("displayed timesheet = %d, want 43", ts.ID)
	}
	if st := e.s.State(); st != session.Editable {
		t.Errorf("State = %s, want editable", st)
	}
}

func TestCompleteDeclinedAndFailed(t *testing.T) {
	e := newEnv(t, first(), second())
	ctx := context.Background()
	if _, err := e.s.Edit(ctx, cell(42, "20240102"), "4"); err != nil {
		t.Fatal(err)
	}

	e.ask.confirm = []bool{false}
	if err := e.s.Complete(ctx); !errors.Is(err, session.ErrDeclined) {
		t.Errorf("declined Complete: err = %v", err)
	}
	if n := e.client.count("complete"); n != 0 {
		t.Errorf("declined Complete reached the server %d times", n)
	}
	if st := e.s.State(); st != session.Editable {
		t.Errorf("State after decline = %s", st)
	}

	e.client.err = errors.New("boom")
	e.ask.confirm = []bool{true}
	if err := e.s.Complete(ctx); err == nil {
		t.Fatal("Complete with failing server: expected error")
	}
	if st := e.s.State(); st != session.Editable {
		t.Errorf("State after failure = %s", st)
	}
	if !e.s.Tracker().Dirty() || e.s.Timesheet().Completed {
		t.Error("failed Complete changed the held document")
	}
}

func TestFixPatchesLocally(t *testing.T) {
	done := first()
	done.Completed = true
	e := newEnv(t, done, second())
	ctx := context.Background()

	if st := e.s.State(); st != session.Completed || !e.s.CanFix() {
		t.Fatalf("State = %s, CanFix = %v", st, e.s.CanFix())
	}
	if _, err := e.s.Edit(ctx, cell(42, "20240102"), "1"); !errors.Is(err, grid.ErrNotEditable) {
		t.Errorf("Edit on completed timesheet: err = %v", err)
	}

	e.ask.confirm = []bool{true}
	if err := e.s.Fix(ctx); err != nil {
		t.Fatalf("Fix: %v", err)
	}
	if n := e.client.count("current"); n != 1 {
		t.Errorf("Fix refetched: current called %d times", n)
	}
	if st := e.s.State(); st != session.Editable {
		t.Errorf("State after fix = %s", st)
	}
	if e.s.Timesheet().Completed {
		t.Error("held document still completed")
	}
	if !e.s.Tracker().Index().Editable() {
		t.Error("redisplayed grid has no input cells")
	}
}

func TestFixGuards(t *testing.T) {
	e := newEnv(t, first(), second())
	if err := e.s.Fix(context.Background()); !errors.Is(err, session.ErrWrongState) {
		t.Errorf("Fix on open timesheet: err = %v", err)
	}

	approved := first()
	approved.Completed, approved.Approved = true, true
	e = newEnv(t, approved, second())
	if err := e.s.Fix(context.Background()); !errors.Is(err, session.ErrWrongState) {
		t.Errorf("Fix on approved timesheet: err = %v", err)
	}

	done := first()
	done.Completed = true
	e = newEnv(t, done, second())
	e.ask.confirm = []bool{false}
	if err := e.s.Fix(context.Background()); !errors.Is(err, session.ErrDeclined) {
		t.Errorf("declined Fix: err = %v", err)
	}
	if n := e.client.count("fix"); n != 0 || e.s.State() != session.Completed {
		t.Errorf("declined Fix: calls = %d, state = %s", n, e.s.State())
	}
}

func TestForeignTimesheetIsReadOnly(t *testing.T) {
	other := first()
	other.User = model.User{ID: 99}
	e := newEnv(t, other, second())
	if st := e.s.State(); st != session.ReadOnly {
		t.Errorf("State = %s, want read-only", st)
	}
	if e.s.CanComplete() || e.s.CanFix() {
		t.Error("actions offered on a foreign timesheet")
	}
}

func TestRequestInFlight(t *testing.T) {
	e := newEnv(t, first(), second())
	e.client.entered = make(chan struct{})
	e.client.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- e.s.LoadCurrent(context.Background()) }()
	<-e.client.entered

	if err := e.s.LoadDate(context.Background(), "20240120"); !errors.Is(err, session.ErrRequestInFlight) {
		t.Errorf("second request: err = %v, want ErrRequestInFlight", err)
	}
	if err := e.s.Save(context.Background()); !errors.Is(err, session.ErrRequestInFlight) {
		t.Errorf("save during request: err = %v, want ErrRequestInFlight", err)
	}

	close(e.client.release)
	if err := <-done; err != nil {
		t.Fatalf("first request: %v", err)
	}
	e.client.entered = nil
	if err := e.s.LoadDate(context.Background(), "20240120"); err != nil {
		t.Errorf("request after the first finished: %v", err)
	}
}
