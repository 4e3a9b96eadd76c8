package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/server"
	"github.com/Tiliavir/timegrid/internal/store"
)

// Wednesday of the first seeded pay period, 20240101-20240114.
var now = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

type env struct {
	t     *testing.T
	store *store.Store
	srv   *server.Server
	token string
}

// Seeded ids: tasks Overhead=1, Vacation=2 (administrative), Timesheet
// service=3 with assignment 1; user demo=1.
func setup(t *testing.T, devMode bool) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "timegrid.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	st.SetClock(func() time.Time { return now })
	if err := server.Seed(st, now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	e := &env{t: t, store: st, srv: server.New(st, server.Options{DevMode: devMode, Now: func() time.Time { return now }})}
	token, _, err := st.IssueToken(1, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	e.token = token
	return e
}

func (e *env) do(method, path, token string, form url.Values) (*httptest.ResponseRecorder, model.Envelope) {
	e.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)

	var body model.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func (e *env) save(id, payload string) (*httptest.ResponseRecorder, model.Envelope) {
	return e.do(http.MethodPost, "/rest/user/timesheet/"+id+"/save", e.token, url.Values{"data": {payload}})
}

func TestSeedIsIdempotent(t *testing.T) {
	e := setup(t, false)
	if err := server.Seed(e.store, now); err != nil {
		t.Fatal(err)
	}
	if _, err := e.store.UserByLogin(server.SeedLogin); err != nil {
		t.Fatal(err)
	}
	pp, err := e.store.LatestPayPeriod()
	if err != nil || pp.Begin != "20240101" || pp.End != "20240114" {
		t.Errorf("seeded pay period = %+v, %v", pp, err)
	}
}

func TestTokenEndpoint(t *testing.T) {
	e := setup(t, false)

	tests := []struct {
		name   string
		form   url.Values
		status int
	}{
		{"ok", url.Values{"grant_type": {"client_credentials"}, "client_id": {"demo"}, "client_secret": {"demo"}}, http.StatusOK},
		{"wrong secret", url.Values{"grant_type": {"client_credentials"}, "client_id": {"demo"}, "client_secret": {"nope"}}, http.StatusUnauthorized},
		{"wrong grant", url.Values{"grant_type": {"password"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := e.do(http.MethodPost, "/oauth/token", "", tt.form)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.status, w.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var tok struct {
				AccessToken string `json:"access_token"`
				TokenType   string `json:"token_type"`
				ExpiresIn   int    `json:"expires_in"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil {
				t.Fatal(err)
			}
			if tok.AccessToken == "" || tok.TokenType != "Bearer" || tok.ExpiresIn != int(server.DefaultTokenTTL.Seconds()) {
				t.Errorf("token = %+v", tok)
			}
			if w, body := e.do(http.MethodGet, "/rest/user/me", tok.AccessToken, nil); w.Code != http.StatusOK || body.User.Login != "demo" {
				t.Errorf("me with issued token: %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestAuthentication(t *testing.T) {
	tests := []struct {
		name    string
		devMode bool
		token   string
		status  int
	}{
		{"missing", false, "", http.StatusUnauthorized},
		{"unknown", false, "nope", http.StatusUnauthorized},
		{"login outside dev mode", false, "demo", http.StatusUnauthorized},
		{"login in dev mode", true, "demo", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t, tt.devMode)
			w, body := e.do(http.MethodGet, "/rest/user/me", tt.token, nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status != http.StatusOK && (body.Success || body.Msg == "") {
				t.Errorf("error envelope = %+v", body)
			}
		})
	}
}

func TestCurrentCreatesTimesheet(t *testing.T) {
	e := setup(t, false)
	w, body := e.do(http.MethodGet, "/rest/user/timesheet/current", e.token, nil)
	if w.Code != http.StatusOK || !body.Success {
		t.Fatalf("current: %d %s", w.Code, w.Body.String())
	}
	ts := body.Timesheet
	if ts.PayPeriod.Begin != "20240101" || ts.User.Login != "demo" || len(ts.Tasks) != 3 {
		t.Errorf("timesheet = %+v", ts)
	}

	// A date far ahead derives and stores the pay period.
	w, body = e.do(http.MethodGet, "/rest/user/timesheet/custom/20240220", e.token, nil)
	if w.Code != http.StatusOK || body.Timesheet.PayPeriod.Begin != "20240212" {
		t.Errorf("custom: %d %s", w.Code, w.Body.String())
	}
	if w, _ := e.do(http.MethodGet, "/rest/user/timesheet/custom/2024-02-20", e.token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("custom with bad date: %d", w.Code)
	}

	w, body = e.do(http.MethodGet, "/rest/user/timesheet/next/20240101", e.token, nil)
	if w.Code != http.StatusOK || body.Timesheet.PayPeriod.Begin != "20240115" {
		t.Errorf("next: %d %s", w.Code, w.Body.String())
	}
	if w, _ := e.do(http.MethodGet, "/rest/user/timesheet/next/20240102", e.token, nil); w.Code != http.StatusNotFound {
		t.Errorf("next from a day that begins no period: %d", w.Code)
	}
}

func TestSaveCompleteFix(t *testing.T) {
	e := setup(t, false)
	_, body := e.do(http.MethodGet, "/rest/user/timesheet/current", e.token, nil)
	id := "1"
	if body.Timesheet.ID != 1 {
		t.Fatalf("timesheet id = %d", body.Timesheet.ID)
	}

	w, body := e.save(id, "1_:20240102:8.00;3_1:20240103:7.50")
	if w.Code != http.StatusOK || body.Msg != "The timesheet was saved successfully." {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}
	_, body = e.do(http.MethodGet, "/rest/user/timesheet/custom/20240105", e.token, nil)
	ts := body.Timesheet
	if b := model.FindBill(ts.Task(1).Bills, "20240102"); b == nil || b.Hours.String() != "8" {
		t.Errorf("admin bill = %+v", ts.Task(1).Bills)
	}
	if got := ts.Task(3).Assignment(1).Bills; len(got) != 1 {
		t.Errorf("assignment bills = %+v", got)
	}

	w, body = e.do(http.MethodPost, "/rest/user/timesheet/"+id+"/complete", e.token,
		url.Values{"data": {"1_:20240102:6.00:left early;3_1:20240103:7.50"}})
	if w.Code != http.StatusOK || body.Msg != "The timesheet was completed successfully." {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}
	if w, _ := e.save(id, ""); w.Code != http.StatusConflict {
		t.Errorf("save on completed timesheet: %d", w.Code)
	}

	// Completing created the next timesheet, which is now current.
	_, body = e.do(http.MethodGet, "/rest/user/timesheet/current", e.token, nil)
	if body.Timesheet.PayPeriod.Begin != "20240115" || body.Timesheet.Completed {
		t.Errorf("current after complete = %+v", body.Timesheet)
	}

	w, body = e.do(http.MethodGet, "/rest/user/timesheet/"+id+"/fix", e.token, nil)
	if w.Code != http.StatusOK || body.Msg != "The timesheet was reopened successfully." {
		t.Fatalf("fix: %d %s", w.Code, w.Body.String())
	}
	if w, _ := e.do(http.MethodPost, "/rest/user/timesheet/"+id+"/fix", e.token, url.Values{}); w.Code != http.StatusConflict {
		t.Errorf("fix on open timesheet: %d", w.Code)
	}

	_, body = e.do(http.MethodGet, "/rest/user/timesheet/"+id+"/audit", e.token, nil)
	var logs []string
	for _, l := range body.Logs {
		logs = append(logs, l.Log)
	}
	want := []string{
		"Added 8.00 hours for task Overhead on 2024-01-02",
		"Added 7.50 hours for task Timesheet service (LCAT: Engineer) on 2024-01-03",
		"Hours for task Overhead on 2024-01-02 changed from 8.00 to 6.00. The user-specified reason: left early",
		"Timesheet completed",
		"Timesheet reopened",
	}
	if strings.Join(logs, "\n") != strings.Join(want, "\n") {
		t.Errorf("audit logs:\n%s\nwant:\n%s", strings.Join(logs, "\n"), strings.Join(want, "\n"))
	}
}

func TestSaveRejects(t *testing.T) {
	e := setup(t, false)
	e.do(http.MethodGet, "/rest/user/timesheet/current", e.token, nil)

	other, err := e.store.CreateUser(model.User{Login: "other"}, "")
	if err != nil {
		t.Fatal(err)
	}
	pp, err := e.store.LatestPayPeriod()
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := e.store.EnsureTimesheet(other.ID, pp)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		id      string
		payload string
		status  int
	}{
		{"malformed record", "1", "1_:20240102", http.StatusBadRequest},
		{"too many hours", "1", "1_:20240102:25.00", http.StatusBadRequest},
		{"negative hours", "1", "1_:20240102:-1.00", http.StatusBadRequest},
		{"outside pay period", "1", "1_:20240120:1.00", http.StatusBadRequest},
		{"unknown task", "1", "99_:20240102:1.00", http.StatusBadRequest},
		{"unknown assignment", "1", "3_7:20240102:1.00", http.StatusBadRequest},
		{"bad id", "x", "", http.StatusBadRequest},
		{"missing timesheet", "999", "", http.StatusNotFound},
		{"foreign timesheet", "2", "", http.StatusForbidden},
	}
	if foreign != 2 {
		t.Fatalf("foreign timesheet id = %d", foreign)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := e.save(tt.id, tt.payload)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d, body=%s", w.Code, tt.status, w.Body.String())
			}
			if body.Success {
				t.Error("success = true")
			}
		})
	}

	logs, err := e.store.AuditLogs(1)
	if err != nil || len(logs) != 0 {
		t.Errorf("rejected saves wrote audit logs: %v, %v", logs, err)
	}
}
