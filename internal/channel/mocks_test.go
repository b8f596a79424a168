package channel_test

import (
	"time"

	"dapbuddy/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock over the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

// User operations
func (m *MockStorage) SaveUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetPreference(userID, key string) (string, error) {
	args := m.Called(userID, key)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) SavePreference(pref *models.UserPreference) error {
	args := m.Called(pref)
	return args.Error(0)
}

// Booking operations
func (m *MockStorage) SaveBooking(booking *models.Booking) error {
	args := m.Called(booking)
	return args.Error(0)
}

func (m *MockStorage) GetBookingByID(bookingID string) (*models.Booking, error) {
	args := m.Called(bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockStorage) CloseBooking(bookingID string) error {
	args := m.Called(bookingID)
	return args.Error(0)
}

// Exchange operations
func (m *MockStorage) CreateExchange(rec *models.ExchangeRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockStorage) SaveExchange(rec *models.ExchangeRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockStorage) GetExchangeByID(id string) (*models.ExchangeRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExchangeRecord), args.Error(1)
}

func (m *MockStorage) GetActiveExchangeForBooking(bookingID string) (*models.ExchangeRecord, error) {
	args := m.Called(bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExchangeRecord), args.Error(1)
}

func (m *MockStorage) WipeExchangePayload(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) ListExpiredUnwiped(now time.Time) ([]models.ExchangeRecord, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ExchangeRecord), args.Error(1)
}

// Log operations
func (m *MockStorage) AppendEntry(entry *models.LogEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockStorage) ListEntriesBefore(bookingID string, beforeID uint, limit int) ([]models.LogEntry, error) {
	args := m.Called(bookingID, beforeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LogEntry), args.Error(1)
}

func (m *MockStorage) CountEntriesAfter(bookingID string, afterID uint, excludeActorID string) (int64, error) {
	args := m.Called(bookingID, afterID, excludeActorID)
	return args.Get(0).(int64), args.Error(1)
}

// Read pointer operations
func (m *MockStorage) GetReadPointer(bookingID, participantID string) (*models.ReadPointer, error) {
	args := m.Called(bookingID, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReadPointer), args.Error(1)
}

func (m *MockStorage) SaveReadPointer(ptr *models.ReadPointer) error {
	args := m.Called(ptr)
	return args.Error(0)
}

// Mediation operations
func (m *MockStorage) OpenMediationCase(c *models.MediationCase) error {
	args := m.Called(c)
	return args.Error(0)
}

func (m *MockStorage) ResolveMediationCase(caseID string) error {
	args := m.Called(caseID)
	return args.Error(0)
}

func (m *MockStorage) ListOpenMediationCases() ([]models.MediationCase, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MediationCase), args.Error(1)
}

// Pub/sub operations
func (m *MockStorage) PublishFrame(bookingID string, frame models.Frame) error {
	args := m.Called(bookingID, frame)
	return args.Error(0)
}

func (m *MockStorage) PublishReadPointer(sync models.ReadPointerSync) error {
	args := m.Called(sync)
	return args.Error(0)
}
