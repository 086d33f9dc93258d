package service

import (
	"sort"
	"time"

	"medibook/pkg/model"
)

// GroupAvailableSlots partitions a doctor's unbooked slots into
// calendar-day buckets relative to asOf's local day boundary. Past
// slots are kept (in the today bucket) rather than silently dropped;
// filtering them out is a display decision, not the engine's.
func GroupAvailableSlots(slots []model.Slot, asOf time.Time) model.GroupedSlots {
	grouped := model.GroupedSlots{
		Today:    []model.Slot{},
		Tomorrow: []model.Slot{},
		Later:    []model.Slot{},
	}

	for _, s := range slots {
		if s.Booked {
			continue
		}

		switch diff := dayDiff(s.Time, asOf); {
		case diff <= 0:
			grouped.Today = append(grouped.Today, s)
		case diff == 1:
			grouped.Tomorrow = append(grouped.Tomorrow, s)
		default:
			grouped.Later = append(grouped.Later, s)
		}
	}

	sortSlots(grouped.Today)
	sortSlots(grouped.Tomorrow)
	sortSlots(grouped.Later)

	return grouped
}

// dayDiff counts whole calendar days between the slot's day and asOf's
// day, both taken in asOf's location. Comparing UTC midnights keeps DST
// transitions from producing fractional days.
func dayDiff(slot, asOf time.Time) int {
	sy, sm, sd := slot.In(asOf.Location()).Date()
	ay, am, ad := asOf.Date()

	slotDay := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	asOfDay := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)

	return int(slotDay.Sub(asOfDay).Hours() / 24)
}

func sortSlots(slots []model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Time.Before(slots[j].Time)
	})
}
