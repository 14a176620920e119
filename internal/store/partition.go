package store

import (
	"sort"
	"time"

	"github.com/aisessions/server/internal/model"
)

// Partition splits sessions around now. Upcoming sessions (strictly after
// now) are sorted by date ascending; past sessions keep their input order. A
// session dated exactly now is past.
func Partition(sessions []model.Session, now time.Time) (upcoming, past []model.Session) {
	upcoming = make([]model.Session, 0, len(sessions))
	past = make([]model.Session, 0, len(sessions))

	for _, s := range sessions {
		if s.Date.After(now) {
			upcoming = append(upcoming, s)
		} else {
			past = append(past, s)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Date.Before(upcoming[j].Date)
	})

	return upcoming, past
}
