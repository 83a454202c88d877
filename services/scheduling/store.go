package scheduling

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"brightcall/models"
	"brightcall/utils"

	"go.uber.org/zap"
)

// dateLayout is the human-readable form used both in availability replies and
// inside booking datetime labels, so availability can match bookings by
// substring.
const dateLayout = "Monday, January 2, 2006"

// slotCatalog is the static per-weekday slot table. Weekends never produce
// slots.
var slotCatalog = map[time.Weekday][]string{
	time.Monday:    {"9:00 AM", "10:00 AM", "11:00 AM", "1:00 PM", "2:00 PM", "3:00 PM", "4:00 PM"},
	time.Tuesday:   {"9:00 AM", "10:00 AM", "11:00 AM", "1:00 PM", "2:00 PM", "3:00 PM", "4:00 PM"},
	time.Wednesday: {"9:00 AM", "10:00 AM", "11:00 AM", "1:00 PM", "2:00 PM", "3:00 PM", "4:00 PM"},
	time.Thursday:  {"9:00 AM", "10:00 AM", "11:00 AM", "1:00 PM", "2:00 PM", "3:00 PM", "4:00 PM"},
	time.Friday:    {"9:00 AM", "10:00 AM", "11:00 AM", "1:00 PM", "2:00 PM", "3:00 PM", "4:00 PM"},
}

// Store keeps the demo-slot catalog and the append-only booking ledger. Safe
// for concurrent use from independent call contexts.
type Store struct {
	mu       sync.Mutex
	bookings []models.Booking
	nextID   int
	now      func() time.Time
	catalog  map[time.Weekday][]string
}

// NewStore returns a Store with the default catalog and an empty ledger.
func NewStore() *Store {
	return &Store{
		nextID:  1,
		now:     time.Now,
		catalog: slotCatalog,
	}
}

// NewStoreWithClock is NewStore with an injected clock, for deterministic
// date resolution in tests.
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.now = now
	return s
}

// SetCatalog replaces the weekday slot catalog. Intended for tests.
func (s *Store) SetCatalog(catalog map[time.Weekday][]string) {
	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()
}

// resolveDate maps "today", "tomorrow", or a weekday name to the next
// occurrence at or after today. Anything unrecognized falls back to tomorrow.
func resolveDate(when string, now time.Time) time.Time {
	switch w := strings.ToLower(strings.TrimSpace(when)); w {
	case "today", "":
		return now
	case "tomorrow":
		return now.AddDate(0, 0, 1)
	default:
		if target, ok := weekdayByName(w); ok {
			delta := (int(target) - int(now.Weekday()) + 7) % 7
			return now.AddDate(0, 0, delta)
		}
		return now.AddDate(0, 0, 1)
	}
}

func weekdayByName(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, true
		}
	}
	return 0, false
}

// Availability resolves `when` to a concrete date and returns the catalog
// slots not already taken by a booking on that date. Weekends yield an
// explicit empty result with a reason, never an error.
func (s *Store) Availability(when string) (*models.AvailabilityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := resolveDate(when, s.now())
	result := &models.AvailabilityResult{
		Date:    date.Format(dateLayout),
		Weekday: date.Weekday().String(),
	}

	catalog, ok := s.catalog[date.Weekday()]
	if !ok {
		result.Slots = []string{}
		result.Reason = fmt.Sprintf("We don't schedule demos on %ss. Weekday slots run 9 AM to 4 PM.", result.Weekday)
		return result, nil
	}

	result.Slots = make([]string, 0, len(catalog))
	for _, label := range catalog {
		if !s.slotTakenLocked(result.Date, label) {
			result.Slots = append(result.Slots, label)
		}
	}
	return result, nil
}

// slotTakenLocked reports whether any booking's datetime label names both the
// formatted date and the slot label. Caller holds s.mu.
func (s *Store) slotTakenLocked(formattedDate, label string) bool {
	for _, b := range s.bookings {
		if strings.Contains(b.Datetime, formattedDate) && strings.Contains(b.Datetime, label) {
			return true
		}
	}
	return false
}

// Book validates the request and appends an immutable booking to the ledger.
// A slot already taken by another booking is not rejected here; see the
// product note in DESIGN.md.
func (s *Store) Book(req models.BookingRequest) (*models.Booking, error) {
	var missing []string
	if strings.TrimSpace(req.Organization) == "" {
		missing = append(missing, "organization")
	}
	if strings.TrimSpace(req.ContactName) == "" {
		missing = append(missing, "contact")
	}
	if strings.TrimSpace(req.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(req.Datetime) == "" {
		missing = append(missing, "datetime")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}

	s.mu.Lock()
	booking := models.Booking{
		ID:           fmt.Sprintf("demo-%d", s.nextID),
		Organization: req.Organization,
		ContactName:  req.ContactName,
		Phone:        req.Phone,
		Email:        req.Email,
		Datetime:     req.Datetime,
		Notes:        req.Notes,
		Status:       "scheduled",
		CreatedAt:    s.now(),
	}
	s.nextID++
	s.bookings = append(s.bookings, booking)
	s.mu.Unlock()

	utils.GetLogger().Info("Demo booked",
		zap.String("booking_id", booking.ID),
		zap.String("organization", booking.Organization),
		zap.String("datetime", booking.Datetime),
	)
	return &booking, nil
}

// Bookings returns a snapshot of the ledger, newest last.
func (s *Store) Bookings() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out
}
