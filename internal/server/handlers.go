package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Tiliavir/timegrid/internal/grid"
	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/store"
	"github.com/Tiliavir/timegrid/internal/timecalc"
)

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, model.Envelope{Msg: msg})
}

// failErr maps store errors to a status. Unexpected errors are logged and
// reported without detail.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, store.ErrCompleted):
		fail(c, http.StatusConflict, err.Error())
		return
	}
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	fail(c, http.StatusInternalServerError, "internal error")
}

func (s *Server) sendTimesheet(c *gin.Context, id int) {
	ts, err := s.store.Timesheet(id)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Envelope{Success: true, Timesheet: ts})
}

// GET /rest/user/me
func (s *Server) me(c *gin.Context) {
	u := currentUser(c)
	c.JSON(http.StatusOK, model.Envelope{Success: true, User: &u})
}

// GET /rest/user/timesheet/current
func (s *Server) current(c *gin.Context) {
	u := currentUser(c)
	id, err := s.store.LatestTimesheetID(u.ID)
	if errors.Is(err, store.ErrNotFound) {
		id, err = s.timesheetFor(u.ID, timecalc.FormatDay(s.opts.Now()))
	}
	if err != nil {
		failErr(c, err)
		return
	}
	s.sendTimesheet(c, id)
}

// timesheetFor returns the id of the user's timesheet for the pay period
// containing day, creating both when missing.
func (s *Server) timesheetFor(userID int, day string) (int, error) {
	pp, err := s.store.PayPeriodContaining(day)
	if err != nil {
		return 0, err
	}
	return s.store.EnsureTimesheet(userID, pp)
}

func dayParam(c *gin.Context) (string, bool) {
	day := c.Param("date")
	if _, err := timecalc.ParseDay(day); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return day, true
}

// GET /rest/user/timesheet/custom/:date
func (s *Server) custom(c *gin.Context) {
	day, ok := dayParam(c)
	if !ok {
		return
	}
	id, err := s.timesheetFor(currentUser(c).ID, day)
	if err != nil {
		failErr(c, err)
		return
	}
	s.sendTimesheet(c, id)
}

// GET /rest/user/timesheet/next/:date, date being the begin of the current
// pay period.
func (s *Server) next(c *gin.Context) {
	begin, ok := dayParam(c)
	if !ok {
		return
	}
	pp, err := s.store.PayPeriod(begin)
	if err != nil {
		failErr(c, fmt.Errorf("pay period beginning %s: %w", begin, err))
		return
	}
	next, err := s.store.NextPayPeriod(pp)
	if err != nil {
		failErr(c, err)
		return
	}
	id, err := s.store.EnsureTimesheet(currentUser(c).ID, next)
	if err != nil {
		failErr(c, err)
		return
	}
	s.sendTimesheet(c, id)
}

// owned loads the timesheet named by :id and checks it belongs to the caller.
func (s *Server) owned(c *gin.Context) (*model.Timesheet, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid timesheet id "+strconv.Quote(c.Param("id")))
		return nil, false
	}
	ts, err := s.store.Timesheet(id)
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	if ts.User.ID != currentUser(c).ID {
		fail(c, http.StatusForbidden, "timesheet belongs to another user")
		return nil, false
	}
	return ts, true
}

// payloadChanges checks the bills in the form field data against ts and
// returns the changes they make.
func (s *Server) payloadChanges(c *gin.Context, ts *model.Timesheet) ([]grid.Change, bool) {
	if ts.Completed {
		fail(c, http.StatusConflict, "the timesheet is completed")
		return nil, false
	}
	recs, err := grid.ParseRecords(c.PostForm("data"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	for _, r := range recs {
		if !ts.PayPeriod.Contains(r.Day) {
			fail(c, http.StatusBadRequest, fmt.Sprintf("day %s is outside the pay period", r.Day))
			return nil, false
		}
	}
	changes, err := grid.Diff(ts, recs)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return changes, true
}

// POST /rest/user/timesheet/:id/save
func (s *Server) save(c *gin.Context) {
	ts, ok := s.owned(c)
	if !ok {
		return
	}
	changes, ok := s.payloadChanges(c, ts)
	if !ok {
		return
	}
	if err := s.store.ApplyChanges(ts.ID, ts.User.ID, changes); err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Envelope{Success: true, Msg: "The timesheet was saved successfully."})
}

// POST /rest/user/timesheet/:id/complete
func (s *Server) complete(c *gin.Context) {
	ts, ok := s.owned(c)
	if !ok {
		return
	}
	changes, ok := s.payloadChanges(c, ts)
	if !ok {
		return
	}
	if _, err := s.store.CompleteTimesheet(ts.ID, ts.User.ID, ts.PayPeriod, changes); err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Envelope{Success: true, Msg: "The timesheet was completed successfully."})
}

// GET|POST /rest/user/timesheet/:id/fix
func (s *Server) fix(c *gin.Context) {
	ts, ok := s.owned(c)
	if !ok {
		return
	}
	if !ts.Completed {
		fail(c, http.StatusConflict, "the timesheet is not completed")
		return
	}
	if err := s.store.SetCompleted(ts.ID, false, "Timesheet reopened"); err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Envelope{Success: true, Msg: "The timesheet was reopened successfully."})
}

// GET /rest/user/timesheet/:id/audit
func (s *Server) audit(c *gin.Context) {
	ts, ok := s.owned(c)
	if !ok {
		return
	}
	logs, err := s.store.AuditLogs(ts.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Envelope{Success: true, Logs: logs})
}
