package automation

import (
	"math/rand"
	"sort"
	"time"

	"dealradar/offers-service/internal/model"
)

// PlanSlots computes the randomised posting timestamps for the hour starting
// at hourStart.
//
// The slot count is postsPerHour, raised during a configured peak window by
// its priority: count = postsPerHour * (10 + priority) / 10, so priority 10
// doubles the rate. The hour is split into count equal sub-intervals with
// one timestamp placed uniformly at random inside each — posts stay spread
// across the hour, bounded within it, and never collide on a sub-interval.
//
// Slots are kept clear of the hour's final minute so the last per-minute
// dispatch tick of the hour can still reach all of them.
func PlanSlots(cfg model.AutomationConfig, hourStart time.Time, rnd *rand.Rand) []time.Time {
	count := cfg.PostsPerHour
	if count <= 0 {
		return nil
	}
	if peak, ok := PeakWindow(cfg, hourStart.Hour()); ok && peak.Priority > 0 {
		count = count * (10 + peak.Priority) / 10
	}

	sub := (time.Hour - time.Minute) / time.Duration(count)
	slots := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		offset := time.Duration(rnd.Int63n(int64(sub)))
		slots = append(slots, hourStart.Add(time.Duration(i)*sub+offset))
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}
