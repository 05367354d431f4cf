package model

// CalendarDay is the per-day aggregate of theoretical vs. booked slot counts
// for a business. Days with no rules report all-zero counts.
type CalendarDay struct {
	Date           string `json:"date"` // YYYY-MM-DD
	TotalSlots     int    `json:"totalSlots"`
	BookedSlots    int    `json:"bookedSlots"`
	AvailableSlots int    `json:"availableSlots"`
}
