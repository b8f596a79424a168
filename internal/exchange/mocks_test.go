package exchange_test

import (
	"errors"
	"sync"
	"time"

	"dapbuddy/backend/internal/models"

	"github.com/google/uuid"
)

// memStorage is an in-memory storage.Storage used to drive full exchange
// flows without a database. It copies records on read and write the way a
// real store would, so stale in-memory pointers cannot leak state between
// operations.
type memStorage struct {
	mu sync.Mutex

	bookings  map[string]*models.Booking
	exchanges map[string]*models.ExchangeRecord
	entries   []*models.LogEntry
	nextEntry uint
	prefs     map[string]string
	pointers  map[string]*models.ReadPointer
	cases     []*models.MediationCase
	frames    []models.Frame

	failAppend bool
}

func newMemStorage() *memStorage {
	return &memStorage{
		bookings:  make(map[string]*models.Booking),
		exchanges: make(map[string]*models.ExchangeRecord),
		prefs:     make(map[string]string),
		pointers:  make(map[string]*models.ReadPointer),
	}
}

func copyExchange(rec *models.ExchangeRecord) *models.ExchangeRecord {
	clone := *rec
	clone.JoiningDetails = make(models.JoiningDetails, len(rec.JoiningDetails))
	for k, v := range rec.JoiningDetails {
		clone.JoiningDetails[k] = v
	}
	return &clone
}

func (m *memStorage) SaveUser(user *models.User) error { return nil }

func (m *memStorage) GetUserByID(id string) (*models.User, error) { return nil, nil }

func (m *memStorage) GetPreference(userID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs[userID+"|"+key], nil
}

func (m *memStorage) SavePreference(pref *models.UserPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[pref.UserID+"|"+pref.Key] = pref.Value
	return nil
}

func (m *memStorage) SaveBooking(booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *booking
	m.bookings[booking.BookingID] = &clone
	return nil
}

func (m *memStorage) GetBookingByID(bookingID string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, errors.New("booking not found")
	}
	clone := *b
	return &clone, nil
}

func (m *memStorage) CloseBooking(bookingID string) error { return nil }

func (m *memStorage) CreateExchange(rec *models.ExchangeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = time.Now()
	for _, existing := range m.exchanges {
		if existing.BookingID == rec.BookingID && existing.ID != rec.ID && existing.SupersededBy == nil {
			id := rec.ID
			existing.SupersededBy = &id
		}
	}
	m.exchanges[rec.ID] = copyExchange(rec)
	return nil
}

func (m *memStorage) SaveExchange(rec *models.ExchangeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges[rec.ID] = copyExchange(rec)
	return nil
}

func (m *memStorage) GetExchangeByID(id string) (*models.ExchangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.exchanges[id]
	if !ok {
		return nil, nil
	}
	return copyExchange(rec), nil
}

func (m *memStorage) GetActiveExchangeForBooking(bookingID string) (*models.ExchangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active *models.ExchangeRecord
	for _, rec := range m.exchanges {
		if rec.BookingID != bookingID || rec.SupersededBy != nil {
			continue
		}
		if active == nil || rec.CreatedAt.After(active.CreatedAt) {
			active = rec
		}
	}
	if active == nil {
		return nil, nil
	}
	return copyExchange(active), nil
}

func (m *memStorage) WipeExchangePayload(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.exchanges[id]; ok {
		rec.JoiningDetails = models.JoiningDetails{}
		rec.Status = models.StatusExpired
	}
	return nil
}

func (m *memStorage) ListExpiredUnwiped(now time.Time) ([]models.ExchangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExchangeRecord
	for _, rec := range m.exchanges {
		if rec.ExpiresAt != nil && rec.ExpiresAt.Before(now) && rec.Status != models.StatusExpired {
			out = append(out, *copyExchange(rec))
		}
	}
	return out, nil
}

func (m *memStorage) AppendEntry(entry *models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return errors.New("append failed")
	}
	m.nextEntry++
	entry.ID = m.nextEntry
	entry.CreatedAt = time.Now()
	clone := *entry
	m.entries = append(m.entries, &clone)
	return nil
}

func (m *memStorage) ListEntriesBefore(bookingID string, beforeID uint, limit int) ([]models.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LogEntry
	for _, e := range m.entries {
		if e.BookingID != bookingID {
			continue
		}
		if beforeID > 0 && e.ID >= beforeID {
			continue
		}
		out = append(out, *e)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStorage) CountEntriesAfter(bookingID string, afterID uint, excludeActorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, e := range m.entries {
		if e.BookingID == bookingID && e.ID > afterID && e.ActorID != excludeActorID {
			count++
		}
	}
	return count, nil
}

func (m *memStorage) GetReadPointer(bookingID, participantID string) (*models.ReadPointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ptr, ok := m.pointers[bookingID+"|"+participantID]
	if !ok {
		return nil, nil
	}
	clone := *ptr
	return &clone, nil
}

func (m *memStorage) SaveReadPointer(ptr *models.ReadPointer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *ptr
	m.pointers[ptr.BookingID+"|"+ptr.ParticipantID] = &clone
	return nil
}

func (m *memStorage) OpenMediationCase(c *models.MediationCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *c
	m.cases = append(m.cases, &clone)
	return nil
}

func (m *memStorage) ResolveMediationCase(caseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cases {
		if c.CaseID == caseID {
			c.Status = models.MediationResolved
		}
	}
	return nil
}

func (m *memStorage) ListOpenMediationCases() ([]models.MediationCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MediationCase
	for _, c := range m.cases {
		if c.Status == models.MediationOpen {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStorage) PublishFrame(bookingID string, frame models.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame.BookingID = bookingID
	m.frames = append(m.frames, frame)
	return nil
}

func (m *memStorage) PublishReadPointer(sync models.ReadPointerSync) error {
	return m.PublishFrame(sync.BookingID, models.Frame{
		Type:        models.FrameReadPointer,
		ReadPointer: &sync,
	})
}

// entriesOfKind returns the booking's log entries with the given kind.
func (m *memStorage) entriesOfKind(bookingID, kind string) []models.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LogEntry
	for _, e := range m.entries {
		if e.BookingID == bookingID && e.Kind == kind {
			out = append(out, *e)
		}
	}
	return out
}
