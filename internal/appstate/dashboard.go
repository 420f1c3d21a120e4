package appstate

import (
	"sort"
	"time"

	"github.com/2beens/apexhq/internal/athlete"
)

const upcomingEventsLimit = 5

type Dashboard struct {
	Today               athlete.Day             `json:"today"`
	Profile             *athlete.Profile        `json:"profile"`
	TodaysEvents        []athlete.CalendarEvent `json:"todaysEvents"`
	UpcomingEvents      []athlete.CalendarEvent `json:"upcomingEvents"`
	LatestMentalLog     *athlete.MentalLog      `json:"latestMentalLog"`
	TodaysMeals         []athlete.MealLog       `json:"todaysMeals"`
	TodaysCalories      int                     `json:"todaysCalories"`
	NextCompetitionDate athlete.Day             `json:"nextCompetitionDate,omitempty"`
	DaysToCompetition   *int                    `json:"daysToCompetition,omitempty"`
}

// BuildDashboard summarizes the document as of now. Meal timestamps are
// compared in now's location.
func BuildDashboard(doc athlete.Document, now time.Time) Dashboard {
	today := athlete.DayOf(now)
	d := Dashboard{
		Today:          today,
		Profile:        doc.Profile,
		TodaysEvents:   []athlete.CalendarEvent{},
		UpcomingEvents: []athlete.CalendarEvent{},
		TodaysMeals:    []athlete.MealLog{},
	}

	sorted := append([]athlete.CalendarEvent{}, doc.Events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	for _, e := range sorted {
		switch {
		case e.Date == today:
			d.TodaysEvents = append(d.TodaysEvents, e)
		case e.Date.After(today) && len(d.UpcomingEvents) < upcomingEventsLimit:
			d.UpcomingEvents = append(d.UpcomingEvents, e)
		}
	}

	// logs are kept newest first
	if len(doc.MentalLogs) > 0 {
		latest := doc.MentalLogs[0]
		d.LatestMentalLog = &latest
	}

	for _, m := range doc.MealLogs {
		if athlete.DayOf(m.Timestamp.In(now.Location())) != today {
			continue
		}
		d.TodaysMeals = append(d.TodaysMeals, m)
		if m.Calories != nil {
			d.TodaysCalories += *m.Calories
		}
	}

	if doc.Profile != nil && doc.Profile.NextCompetitionDate.IsValid() {
		d.NextCompetitionDate = doc.Profile.NextCompetitionDate
		if days, ok := daysBetween(today, d.NextCompetitionDate); ok {
			d.DaysToCompetition = &days
		}
	}

	return d
}

func daysBetween(from, to athlete.Day) (int, bool) {
	fromTime, err := time.Parse(time.DateOnly, from.String())
	if err != nil {
		return 0, false
	}
	toTime, err := time.Parse(time.DateOnly, to.String())
	if err != nil {
		return 0, false
	}
	return int(toTime.Sub(fromTime).Hours() / 24), true
}
