package service

import (
	"fmt"
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// PlanSlots splits the teaching window into class slots around fixed break anchors.
//
// The full configured length of every break starting inside the window is subtracted
// before the class length is computed, even when the break runs past end. A class that
// would straddle a break is cut at the break start and the day may end with fewer than
// numClasses slots. Breaks after the final class are not emitted.
func PlanSlots(start, end models.ClockTime, breaks []models.BreakInterval, numClasses int) ([]models.Slot, error) {
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("end time %s must be after start time %s", end, start))
	}
	if numClasses <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfiguration, "classes per day must be greater than zero")
	}

	anchors := normalizeBreaks(start, end, breaks)
	available := int(end-start) - breakMinutes(start, end, breaks)
	if available <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInsufficientTime, fmt.Sprintf("breaks consume the whole %s-%s window", start, end))
	}
	classDuration := available / numClasses
	if classDuration <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInsufficientTime, fmt.Sprintf("%d minutes cannot hold %d classes", available, numClasses))
	}

	slots := make([]models.Slot, 0, numClasses+len(anchors))
	cursor := start
	next := 0
	emitted := 0
	for emitted < numClasses && cursor < end {
		if next < len(anchors) && cursor >= anchors[next].Start {
			slots = append(slots, anchors[next])
			cursor = anchors[next].End
			next++
			continue
		}
		slotEnd := cursor.Add(classDuration)
		if next < len(anchors) && anchors[next].Start < slotEnd {
			slotEnd = anchors[next].Start
		}
		if slotEnd > end {
			slotEnd = end
		}
		slots = append(slots, models.Slot{Start: cursor, End: slotEnd, Kind: models.SlotKindClass})
		cursor = slotEnd
		emitted++
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Start < slots[j].Start
	})
	return slots, nil
}

// breakMinutes totals the break time charged against the window. Breaks sharing a start
// count once with their longest duration. A break opening before start only charges the
// minutes it overlaps the window.
func breakMinutes(start, end models.ClockTime, breaks []models.BreakInterval) int {
	longest := make(map[models.ClockTime]int, len(breaks))
	for _, b := range breaks {
		if b.DurationMinutes <= 0 || b.Start >= end {
			continue
		}
		minutes := b.DurationMinutes
		if b.Start < start {
			minutes = int(b.End() - start)
		}
		if minutes > longest[b.Start] {
			longest[b.Start] = minutes
		}
	}
	total := 0
	for _, minutes := range longest {
		total += minutes
	}
	return total
}

// normalizeBreaks clips breaks to the window, sorts them and merges overlapping or
// repeated anchors so each (start, kind) pair appears once.
func normalizeBreaks(start, end models.ClockTime, breaks []models.BreakInterval) []models.Slot {
	clipped := make([]models.Slot, 0, len(breaks))
	for _, b := range breaks {
		if b.DurationMinutes <= 0 {
			continue
		}
		from, to := b.Start, b.End()
		if from < start {
			from = start
		}
		if to > end {
			to = end
		}
		if to <= from {
			continue
		}
		clipped = append(clipped, models.Slot{Start: from, End: to, Kind: models.SlotKindBreak, Label: b.DisplayLabel()})
	}
	sort.SliceStable(clipped, func(i, j int) bool {
		return clipped[i].Start < clipped[j].Start
	})

	merged := make([]models.Slot, 0, len(clipped))
	for _, slot := range clipped {
		if n := len(merged); n > 0 && slot.Start < merged[n-1].End {
			if slot.End > merged[n-1].End {
				merged[n-1].End = slot.End
			}
			continue
		}
		merged = append(merged, slot)
	}
	return merged
}
