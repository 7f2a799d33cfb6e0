package appointment

import "time"

// The fixed daily consultation times offered by every doctor.
var slotTimes = [4]struct{ Hour, Minute int }{
	{9, 0},
	{10, 30},
	{13, 0},
	{14, 30},
}

// SlotsPerWeek is the size of one generated week: 5 weekdays x 4 times.
const SlotsPerWeek = 5 * len(slotTimes)

// NextMonday returns midnight of the next Monday strictly after now. If now
// is itself a Monday the following Monday is returned.
func NextMonday(now time.Time) time.Time {
	d := now.AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
}

// WeekGrid computes the bookable slots for the week after now: Monday through
// Friday, four fixed times per day, in day-then-time order. Pure; month and
// year rollover fall out of time.AddDate.
func WeekGrid(now time.Time) []Slot {
	monday := NextMonday(now)

	slots := make([]Slot, 0, SlotsPerWeek)
	for day := 0; day < 5; day++ {
		date := monday.AddDate(0, 0, day)
		for _, t := range slotTimes {
			slots = append(slots, Slot{
				Year:   date.Year(),
				Month:  date.Month(),
				Day:    date.Day(),
				Hour:   t.Hour,
				Minute: t.Minute,
			})
		}
	}
	return slots
}
