package server

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Tiliavir/timegrid/internal/model"
	"github.com/Tiliavir/timegrid/internal/store"
	"github.com/Tiliavir/timegrid/internal/timecalc"
)

// SeedLogin and SeedSecret are the credentials of the demo user.
const (
	SeedLogin  = "demo"
	SeedSecret = "demo"
)

// Seed fills an empty database with a demo user, a bi-weekly pay period
// starting on the Monday of now's week, two administrative tasks and a
// project assignment spanning the period. It does nothing when the demo
// user already exists.
func Seed(st *store.Store, now time.Time) error {
	if _, err := st.UserByLogin(SeedLogin); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	today := timecalc.StartOfDay(now)
	offset := (int(today.Weekday()) + 6) % 7
	begin := timecalc.FormatDay(today.AddDate(0, 0, -offset))
	end, err := timecalc.AddDays(begin, 13)
	if err != nil {
		return err
	}
	pp := model.PayPeriod{Type: model.BiWeekly, Begin: begin, End: end}
	if err := st.AddPayPeriod(pp); err != nil {
		return err
	}

	u, err := st.CreateUser(model.User{Login: SeedLogin, FirstName: "Demo", LastName: "User"}, SeedSecret)
	if err != nil {
		return err
	}
	for _, desc := range []string{"Overhead", "Vacation"} {
		if _, err := st.AddTask(model.Task{Description: desc, Administrative: true}); err != nil {
			return err
		}
	}
	project, err := st.AddTask(model.Task{Description: "Timesheet service"})
	if err != nil {
		return err
	}
	if _, err := st.AddAssignment(project, u.ID, model.Assignment{LaborCat: "Engineer", Begin: begin, End: end}); err != nil {
		return err
	}
	if _, err := st.EnsureTimesheet(u.ID, pp); err != nil {
		return fmt.Errorf("seed timesheet: %w", err)
	}
	log.Printf("seeded user %q with pay period %s-%s", SeedLogin, begin, end)
	return nil
}
