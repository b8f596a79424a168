package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"dapbuddy/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Storage is the persistence boundary of the exchange core. PostgreSQL
// holds the durable records, Redis carries the realtime fan-out and the
// latest read-pointer values.
type Storage interface {
	SaveUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	GetPreference(userID, key string) (string, error)
	SavePreference(pref *models.UserPreference) error

	SaveBooking(booking *models.Booking) error
	GetBookingByID(bookingID string) (*models.Booking, error)
	CloseBooking(bookingID string) error

	CreateExchange(rec *models.ExchangeRecord) error
	SaveExchange(rec *models.ExchangeRecord) error
	GetExchangeByID(id string) (*models.ExchangeRecord, error)
	GetActiveExchangeForBooking(bookingID string) (*models.ExchangeRecord, error)
	WipeExchangePayload(id string) error
	ListExpiredUnwiped(now time.Time) ([]models.ExchangeRecord, error)

	AppendEntry(entry *models.LogEntry) error
	ListEntriesBefore(bookingID string, beforeID uint, limit int) ([]models.LogEntry, error)
	CountEntriesAfter(bookingID string, afterID uint, excludeActorID string) (int64, error)

	GetReadPointer(bookingID, participantID string) (*models.ReadPointer, error)
	SaveReadPointer(ptr *models.ReadPointer) error

	OpenMediationCase(c *models.MediationCase) error
	ResolveMediationCase(caseID string) error
	ListOpenMediationCases() ([]models.MediationCase, error)

	PublishFrame(bookingID string, frame models.Frame) error
	PublishReadPointer(sync models.ReadPointerSync) error
}

// Service implements Storage over gorm + redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// SaveUser зберігає користувача в PostgreSQL
func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetPreference повертає значення налаштування користувача, або "" якщо
// воно не встановлене.
func (s *Service) GetPreference(userID, key string) (string, error) {
	var pref models.UserPreference
	err := s.DB.Where("user_id = ? AND key = ?", userID, key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return pref.Value, nil
}

func (s *Service) SavePreference(pref *models.UserPreference) error {
	return s.DB.Save(pref).Error
}

// SaveBooking зберігає бронювання в PostgreSQL
func (s *Service) SaveBooking(booking *models.Booking) error {
	return s.DB.Save(booking).Error
}

func (s *Service) GetBookingByID(bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := s.DB.Where("booking_id = ?", bookingID).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("booking not found")
	}
	if err != nil {
		log.Printf("ERROR: Failed to get booking %s: %v", bookingID, err)
		return nil, err
	}
	return &booking, nil
}

// CloseBooking закриває бронювання, встановлюючи IsActive = false
func (s *Service) CloseBooking(bookingID string) error {
	return s.DB.Model(&models.Booking{}).
		Where("booking_id = ?", bookingID).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  gorm.Expr("NOW()"),
		}).Error
}

// CreateExchange inserts a fresh exchange record and supersedes the
// previously active one for the same booking, keeping the old row for
// audit. Гарантує, що активним лишається лише один запис на бронювання.
func (s *Service) CreateExchange(rec *models.ExchangeRecord) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			log.Printf("ERROR: Failed to create exchange for booking %s: %v", rec.BookingID, err)
			return err
		}
		return tx.Model(&models.ExchangeRecord{}).
			Where("booking_id = ? AND id <> ? AND superseded_by IS NULL", rec.BookingID, rec.ID).
			Update("superseded_by", rec.ID).Error
	})
}

func (s *Service) SaveExchange(rec *models.ExchangeRecord) error {
	return s.DB.Save(rec).Error
}

func (s *Service) GetExchangeByID(id string) (*models.ExchangeRecord, error) {
	var rec models.ExchangeRecord
	err := s.DB.First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetActiveExchangeForBooking повертає єдиний активний (не замінений)
// запис обміну для бронювання.
func (s *Service) GetActiveExchangeForBooking(bookingID string) (*models.ExchangeRecord, error) {
	var rec models.ExchangeRecord
	err := s.DB.Where("booking_id = ? AND superseded_by IS NULL", bookingID).
		Order("created_at desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to get active exchange for booking %s: %v", bookingID, err)
		return nil, err
	}
	return &rec, nil
}

// WipeExchangePayload clears the joining details of an expired record and
// stamps the stored status. The read path never returns wiped fields.
func (s *Service) WipeExchangePayload(id string) error {
	return s.DB.Model(&models.ExchangeRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"joining_details": "{}",
			"status":          string(models.StatusExpired),
		}).Error
}

// ListExpiredUnwiped returns revealed records whose window elapsed but
// whose payload is still stored. Used by the expiry sweep.
func (s *Service) ListExpiredUnwiped(now time.Time) ([]models.ExchangeRecord, error) {
	var recs []models.ExchangeRecord
	err := s.DB.Where("expires_at IS NOT NULL AND expires_at < ? AND status <> ?",
		now, string(models.StatusExpired)).
		Find(&recs).Error
	if err != nil {
		log.Printf("ERROR: Failed to list expired exchanges: %v", err)
		return nil, err
	}
	return recs, nil
}

// AppendEntry зберігає запис журналу в PostgreSQL. entry.ID заповнюється
// GORM і стає авторитетним ідентифікатором для клієнтів. Повторна спроба
// з тим самим temp_id (втрачене підтвердження) повертає наявний рядок, а
// не створює другий.
func (s *Service) AppendEntry(entry *models.LogEntry) error {
	if entry.TempID != "" {
		var existing models.LogEntry
		err := s.DB.Where("booking_id = ? AND temp_id = ?", entry.BookingID, entry.TempID).
			First(&existing).Error
		if err == nil {
			*entry = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if err := s.DB.Create(entry).Error; err != nil {
		log.Printf("ERROR: Failed to append log entry for booking %s: %v", entry.BookingID, err)
		return err
	}
	return nil
}

// ListEntriesBefore returns up to limit entries strictly older than
// beforeID, in ascending order. beforeID == 0 means the newest page.
func (s *Service) ListEntriesBefore(bookingID string, beforeID uint, limit int) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	q := s.DB.Where("booking_id = ?", bookingID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	if err := q.Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		log.Printf("ERROR: Failed to get log entries for booking %s: %v", bookingID, err)
		return nil, err
	}
	// reverse to chronological
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// CountEntriesAfter counts entries newer than afterID, skipping the
// participant's own. This is the unread badge value.
func (s *Service) CountEntriesAfter(bookingID string, afterID uint, excludeActorID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.LogEntry{}).
		Where("booking_id = ? AND id > ? AND actor_id <> ?", bookingID, afterID, excludeActorID).
		Count(&count).Error
	return count, err
}

func (s *Service) GetReadPointer(bookingID, participantID string) (*models.ReadPointer, error) {
	var ptr models.ReadPointer
	err := s.DB.Where("booking_id = ? AND participant_id = ?", bookingID, participantID).
		First(&ptr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ptr, nil
}

func (s *Service) SaveReadPointer(ptr *models.ReadPointer) error {
	return s.DB.Save(ptr).Error
}

func (s *Service) OpenMediationCase(c *models.MediationCase) error {
	if c.Status == "" {
		c.Status = models.MediationOpen
	}
	if err := s.DB.Create(c).Error; err != nil {
		log.Printf("ERROR: Failed to open mediation case for booking %s: %v", c.BookingID, err)
		return err
	}
	return nil
}

func (s *Service) ResolveMediationCase(caseID string) error {
	return s.DB.Model(&models.MediationCase{}).
		Where("case_id = ?", caseID).
		Update("status", models.MediationResolved).Error
}

func (s *Service) ListOpenMediationCases() ([]models.MediationCase, error) {
	var cases []models.MediationCase
	err := s.DB.Where("status = ?", models.MediationOpen).Find(&cases).Error
	if err != nil {
		return nil, err
	}
	return cases, nil
}

// bookingChannel is the Redis Pub/Sub channel carrying all frames of one
// booking.
func bookingChannel(bookingID string) string {
	return "booking:" + bookingID
}

// PublishFrame публікує фрейм у Redis Pub/Sub каналі бронювання.
func (s *Service) PublishFrame(bookingID string, frame models.Frame) error {
	frame.BookingID = bookingID
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := s.Redis.Publish(s.Ctx, bookingChannel(bookingID), string(payload)).Err(); err != nil {
		return err
	}
	return nil
}

// PublishReadPointer broadcasts a pointer advance on the booking's side
// channel and keeps only the latest value in Redis. The pointer sync is
// not part of the log.
func (s *Service) PublishReadPointer(sync models.ReadPointerSync) error {
	key := fmt.Sprintf("readptr:%s:%s", sync.BookingID, sync.ParticipantID)
	if err := s.Redis.Set(s.Ctx, key, sync.LastSeenLogID, 0).Err(); err != nil {
		return err
	}
	return s.PublishFrame(sync.BookingID, models.Frame{
		Type:        models.FrameReadPointer,
		ReadPointer: &sync,
	})
}

// SubscribeToAllBookings підписується на всі канали бронювань.
func (s *Service) SubscribeToAllBookings() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, "booking:*")
}
