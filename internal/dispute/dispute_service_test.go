package dispute_test

import (
	"errors"
	"testing"
	"time"

	"dapbuddy/backend/internal/dispute"
	"dapbuddy/backend/internal/exchange"
	"dapbuddy/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory storage.Storage for dispute flows.
type fakeStore struct {
	exchanges map[string]*models.ExchangeRecord
	entries   []*models.LogEntry
	nextEntry uint
	cases     []*models.MediationCase
}

func newFakeStore() *fakeStore {
	return &fakeStore{exchanges: make(map[string]*models.ExchangeRecord)}
}

func (f *fakeStore) SaveUser(*models.User) error                  { return nil }
func (f *fakeStore) GetUserByID(string) (*models.User, error)     { return nil, nil }
func (f *fakeStore) GetPreference(string, string) (string, error) { return "true", nil }
func (f *fakeStore) SavePreference(*models.UserPreference) error  { return nil }
func (f *fakeStore) SaveBooking(*models.Booking) error            { return nil }
func (f *fakeStore) GetBookingByID(string) (*models.Booking, error) {
	return nil, errors.New("not used")
}
func (f *fakeStore) CloseBooking(string) error { return nil }

func (f *fakeStore) CreateExchange(rec *models.ExchangeRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = time.Now()
	for _, existing := range f.exchanges {
		if existing.BookingID == rec.BookingID && existing.SupersededBy == nil {
			id := rec.ID
			existing.SupersededBy = &id
		}
	}
	clone := *rec
	f.exchanges[rec.ID] = &clone
	return nil
}

func (f *fakeStore) SaveExchange(rec *models.ExchangeRecord) error {
	clone := *rec
	f.exchanges[rec.ID] = &clone
	return nil
}

func (f *fakeStore) GetExchangeByID(id string) (*models.ExchangeRecord, error) {
	rec, ok := f.exchanges[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeStore) GetActiveExchangeForBooking(bookingID string) (*models.ExchangeRecord, error) {
	for _, rec := range f.exchanges {
		if rec.BookingID == bookingID && rec.SupersededBy == nil {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) WipeExchangePayload(string) error { return nil }
func (f *fakeStore) ListExpiredUnwiped(time.Time) ([]models.ExchangeRecord, error) {
	return nil, nil
}

func (f *fakeStore) AppendEntry(entry *models.LogEntry) error {
	f.nextEntry++
	entry.ID = f.nextEntry
	entry.CreatedAt = time.Now()
	clone := *entry
	f.entries = append(f.entries, &clone)
	return nil
}

func (f *fakeStore) ListEntriesBefore(bookingID string, beforeID uint, limit int) ([]models.LogEntry, error) {
	var out []models.LogEntry
	for _, e := range f.entries {
		if e.BookingID == bookingID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) CountEntriesAfter(string, uint, string) (int64, error) { return 0, nil }
func (f *fakeStore) GetReadPointer(string, string) (*models.ReadPointer, error) {
	return nil, nil
}
func (f *fakeStore) SaveReadPointer(*models.ReadPointer) error { return nil }

func (f *fakeStore) OpenMediationCase(c *models.MediationCase) error {
	clone := *c
	f.cases = append(f.cases, &clone)
	return nil
}

func (f *fakeStore) ResolveMediationCase(caseID string) error {
	for _, c := range f.cases {
		if c.CaseID == caseID {
			c.Status = models.MediationResolved
		}
	}
	return nil
}

func (f *fakeStore) ListOpenMediationCases() ([]models.MediationCase, error) {
	var out []models.MediationCase
	for _, c := range f.cases {
		if c.Status == models.MediationOpen {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) PublishFrame(string, models.Frame) error         { return nil }
func (f *fakeStore) PublishReadPointer(models.ReadPointerSync) error { return nil }

// recordingNotifier captures escalation alerts.
type recordingNotifier struct {
	alerts []*models.MediationCase
}

func (n *recordingNotifier) AlertEscalation(c *models.MediationCase) error {
	n.alerts = append(n.alerts, c)
	return nil
}

func setupDispute(t *testing.T) (*dispute.Service, *fakeStore, *recordingNotifier, *models.ExchangeRecord) {
	t.Helper()
	store := newFakeStore()
	machine := exchange.NewMachine(store)
	notifier := &recordingNotifier{}
	svc := dispute.NewService(store, machine, notifier)

	rec := &models.ExchangeRecord{
		BookingID: "b1",
		HostID:    "host-1",
		MemberID:  "member-1",
		ServiceID: "netflix",
		Status:    models.StatusPendingHost,
	}
	require.NoError(t, store.CreateExchange(rec))

	_, err := machine.SendDetails("host-1", rec.ID, models.JoiningDetails{"email": "a@b.com", "password": "x"})
	require.NoError(t, err)
	_, err = machine.Reveal("member-1", rec.ID, true)
	require.NoError(t, err)

	return svc, store, notifier, rec
}

func TestReasonLists(t *testing.T) {
	linkReasons := dispute.ReasonsFor(exchange.MethodInviteLink)
	credReasons := dispute.ReasonsFor(exchange.MethodCredentials)

	assert.Contains(t, linkReasons, "link_expired")
	assert.Contains(t, credReasons, "password_incorrect")
	assert.NotEqual(t, linkReasons, credReasons)

	assert.True(t, dispute.ValidReason(exchange.MethodInviteLink, "slots_full"))
	assert.False(t, dispute.ValidReason(exchange.MethodInviteLink, "password_incorrect"))
}

func TestReportIssue_RejectsForeignReason(t *testing.T) {
	svc, store, _, rec := setupDispute(t)

	// a link-method reason against a credentials-method service
	_, err := svc.ReportIssue("member-1", rec.ID, "link_expired")
	var verr *exchange.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reason", verr.Fields[0].Field)

	stored, err := store.GetExchangeByID(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSentToUser, stored.Status, "invalid reason must not transition")
}

func TestReportIssue_ChainsIntoReRequest(t *testing.T) {
	svc, store, _, rec := setupDispute(t)

	successor, err := svc.ReportIssue("member-1", rec.ID, "account_locked")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingHost, successor.Status)
	assert.Equal(t, "account_locked", successor.IssueReason)

	old, err := store.GetExchangeByID(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIssueReported, old.Status)
}

func TestReportMismatch_SecondStrikeOpensMediation(t *testing.T) {
	svc, store, notifier, rec := setupDispute(t)

	first, err := svc.ReportMismatch("host-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMismatchOnce, first.Status)
	assert.Empty(t, store.cases, "first strike must not open a case")
	assert.Empty(t, notifier.alerts)

	second, err := svc.ReportMismatch("host-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHumanIntervention, second.Status)
	require.Len(t, store.cases, 1)
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "b1", notifier.alerts[0].BookingID)

	// terminal: a further strike neither transitions nor re-alerts
	third, err := svc.ReportMismatch("host-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHumanIntervention, third.Status)
	assert.Len(t, store.cases, 1)
	assert.Len(t, notifier.alerts, 1)
}

func TestMediationCase_CollectsReasonHistory(t *testing.T) {
	svc, store, _, rec := setupDispute(t)

	// member reported an issue earlier in the chain
	successor, err := svc.ReportIssue("member-1", rec.ID, "password_incorrect")
	require.NoError(t, err)

	machine := svc.Machine
	_, err = machine.SendDetails("host-1", successor.ID, models.JoiningDetails{"email": "a@b.com", "password": "y"})
	require.NoError(t, err)
	_, err = machine.Reveal("member-1", successor.ID, true)
	require.NoError(t, err)

	_, err = svc.ReportMismatch("host-1", successor.ID)
	require.NoError(t, err)
	_, err = svc.ReportMismatch("host-1", successor.ID)
	require.NoError(t, err)

	require.Len(t, store.cases, 1)
	assert.Equal(t, []string{"password_incorrect"}, []string(store.cases[0].Reasons))
}

func TestResolve_ClosesCase(t *testing.T) {
	svc, store, _, rec := setupDispute(t)

	_, err := svc.ReportMismatch("host-1", rec.ID)
	require.NoError(t, err)
	_, err = svc.ReportMismatch("host-1", rec.ID)
	require.NoError(t, err)
	require.Len(t, store.cases, 1)

	require.NoError(t, svc.Resolve(store.cases[0].CaseID))
	open, err := store.ListOpenMediationCases()
	require.NoError(t, err)
	assert.Empty(t, open)
}
