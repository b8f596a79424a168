package exchange

import (
	"fmt"
	"log"
	"time"

	"dapbuddy/backend/internal/config"
	"dapbuddy/backend/internal/models"
	"dapbuddy/backend/internal/storage"
)

// Machine owns every status transition of ExchangeRecords. All mutation
// goes through it; handlers and the dispute path never touch the status
// column directly. Each successful transition appends a log entry to the
// booking channel and publishes an exchange frame.
type Machine struct {
	Storage storage.Storage

	// Now is the clock; tests override it to drive expiry.
	Now func() time.Time
}

// NewMachine creates a state machine over the given storage.
func NewMachine(s storage.Storage) *Machine {
	return &Machine{Storage: s, Now: time.Now}
}

// load fetches the record and resolves the actor's role on its booking.
func (m *Machine) load(exchangeID, actorID string) (*models.ExchangeRecord, string, error) {
	rec, err := m.Storage.GetExchangeByID(exchangeID)
	if err != nil {
		return nil, "", err
	}
	if rec == nil {
		return nil, "", ErrNotFound
	}
	var role string
	switch actorID {
	case rec.HostID:
		role = models.RoleHost
	case rec.MemberID:
		role = models.RoleMember
	default:
		return nil, "", ErrForbidden
	}
	return rec, role, nil
}

// logEvent appends a lifecycle entry to the booking log and pushes it to
// connected participants, followed by an exchange status frame.
func (m *Machine) logEvent(rec *models.ExchangeRecord, actorID, kind, text string) {
	exchangeID := rec.ID
	entry := &models.LogEntry{
		BookingID:  rec.BookingID,
		ActorID:    actorID,
		Text:       text,
		Kind:       kind,
		ExchangeID: &exchangeID,
	}
	if err := m.Storage.AppendEntry(entry); err != nil {
		log.Printf("ERROR: Failed to log %s event for exchange %s: %v", kind, rec.ID, err)
		return
	}
	wire := models.WireEntry(entry)
	if err := m.Storage.PublishFrame(rec.BookingID, models.Frame{
		Type:  models.FrameEntry,
		Entry: &wire,
	}); err != nil {
		log.Printf("ERROR: Failed to publish %s entry for booking %s: %v", kind, rec.BookingID, err)
	}
	if err := m.Storage.PublishFrame(rec.BookingID, models.Frame{
		Type: models.FrameExchange,
		Exchange: &models.ExchangeSync{
			BookingID:  rec.BookingID,
			ExchangeID: rec.ID,
			Status:     rec.EffectiveStatus(m.Now()),
		},
	}); err != nil {
		log.Printf("ERROR: Failed to publish exchange frame for booking %s: %v", rec.BookingID, err)
	}
}

// Open creates the initial pending_host record for a booking. Любий
// попередній активний запис цього бронювання стає заміненим.
func (m *Machine) Open(booking *models.Booking) (*models.ExchangeRecord, error) {
	rec := &models.ExchangeRecord{
		BookingID: booking.BookingID,
		HostID:    booking.HostID,
		MemberID:  booking.MemberID,
		ServiceID: booking.ServiceID,
		Status:    models.StatusPendingHost,
	}
	if err := m.Storage.CreateExchange(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// sendableFrom are the states a host may (re)send details from.
func sendableFrom(status models.ExchangeStatus) bool {
	switch status {
	case models.StatusPendingHost, models.StatusMismatchOnce, models.StatusIssueReported:
		return true
	}
	return false
}

// SendDetails validates and stores the joining details, moving the record
// to sent_to_user. Validation failure causes no state change and no log
// entry.
func (m *Machine) SendDetails(actorID, exchangeID string, details models.JoiningDetails) (*models.ExchangeRecord, error) {
	rec, role, err := m.load(exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleHost {
		return nil, ErrForbidden
	}
	if !sendableFrom(rec.EffectiveStatus(m.Now())) {
		return nil, fmt.Errorf("send details from %s: %w", rec.Status, ErrInvalidTransition)
	}

	rule := RuleFor(rec.ServiceID)
	if verr := ValidateDetails(rule, details); verr != nil {
		return nil, verr
	}

	rec.JoiningDetails = details
	rec.Status = models.StatusSentToUser
	if err := m.Storage.SaveExchange(rec); err != nil {
		return nil, err
	}

	m.logEvent(rec, actorID, config.EntryKindDetailsSent, "Joining details shared")
	return rec, nil
}

// Reveal records that the member viewed the details. The first call
// stamps firstSeenAt and computes the fixed expiry window; repeated calls
// are no-ops with no second log entry. Requires the risk warning to be
// acknowledged unless the member persisted an opt-out.
func (m *Machine) Reveal(actorID, exchangeID string, warningAcknowledged bool) (*models.ExchangeRecord, error) {
	rec, role, err := m.load(exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleMember {
		return nil, ErrForbidden
	}
	if rec.EffectiveStatus(m.Now()) != models.StatusSentToUser {
		return nil, fmt.Errorf("reveal from %s: %w", rec.Status, ErrInvalidTransition)
	}

	if rec.Revealed() {
		// idempotent: the window is already running
		return rec, nil
	}

	if !warningAcknowledged {
		optedOut, err := m.Storage.GetPreference(actorID, models.PrefHideRevealWarning)
		if err != nil {
			return nil, err
		}
		if optedOut != "true" {
			return nil, ErrWarningRequired
		}
	}

	now := m.Now()
	expires := now.Add(RuleFor(rec.ServiceID).RevealWindow)
	rec.FirstSeenAt = &now
	rec.ExpiresAt = &expires
	if err := m.Storage.SaveExchange(rec); err != nil {
		return nil, err
	}

	m.logEvent(rec, actorID, config.EntryKindRevealed, "Joining details viewed")
	return rec, nil
}

// ConfirmAccess is the member's confirmation that the details worked.
// Valid only after a reveal and before expiry.
func (m *Machine) ConfirmAccess(actorID, exchangeID string) (*models.ExchangeRecord, error) {
	rec, role, err := m.load(exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleMember {
		return nil, ErrForbidden
	}
	now := m.Now()
	status := rec.EffectiveStatus(now)
	if !rec.Revealed() || (status != models.StatusSentToUser && status != models.StatusMismatchOnce) {
		return nil, fmt.Errorf("confirm access from %s: %w", status, ErrInvalidTransition)
	}

	rec.Status = models.StatusConfirmed
	rec.MemberConfirmation = models.ConfirmationState{Status: "confirmed", Timestamp: &now}
	if err := m.Storage.SaveExchange(rec); err != nil {
		return nil, err
	}

	m.logEvent(rec, actorID, config.EntryKindConfirmed, "Member confirmed access")
	return rec, nil
}

// ReportIssue marks the current record issue_reported and spawns a fresh
// pending_host record carrying the reason, superseding this one for
// display. The old row stays for audit.
func (m *Machine) ReportIssue(actorID, exchangeID, reason string) (*models.ExchangeRecord, error) {
	rec, role, err := m.load(exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleMember {
		return nil, ErrForbidden
	}
	now := m.Now()
	status := rec.EffectiveStatus(now)
	if status != models.StatusSentToUser && status != models.StatusMismatchOnce {
		return nil, fmt.Errorf("report issue from %s: %w", status, ErrInvalidTransition)
	}

	rec.Status = models.StatusIssueReported
	rec.MemberConfirmation = models.ConfirmationState{Status: "issue_reported", Timestamp: &now}
	if err := m.Storage.SaveExchange(rec); err != nil {
		return nil, err
	}

	successor := &models.ExchangeRecord{
		BookingID:       rec.BookingID,
		HostID:          rec.HostID,
		MemberID:        rec.MemberID,
		ServiceID:       rec.ServiceID,
		Status:          models.StatusPendingHost,
		IssueReason:     reason,
		EscalationCount: rec.EscalationCount,
	}
	if err := m.Storage.CreateExchange(successor); err != nil {
		return nil, err
	}

	m.logEvent(rec, actorID, config.EntryKindIssueReported, reason)
	return successor, nil
}

// HostConfirm закриває обмін з боку хоста після того, як учасник
// переглянув деталі.
func (m *Machine) HostConfirm(actorID, exchangeID string) (*models.ExchangeRecord, error) {
	rec, role, err := m.load(exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleHost {
		return nil, ErrForbidden
	}
	now := m.Now()
	status := rec.EffectiveStatus(now)
	if !rec.Revealed() || status.Terminal() || status == models.StatusIssueReported {
		return nil, fmt.Errorf("host confirm from %s: %w", status, ErrInvalidTransition)
	}

	rec.Status = models.StatusResolved
	rec.HostConfirmation = models.ConfirmationState{Status: "confirmed", Timestamp: &now}
	if err := m.Storage.SaveExchange(rec); err != nil {
		return nil, err
	}

	m.logEvent(rec, actorID, config.EntryKindHostResolved, "Host confirmed the member joined")
	return rec, nil
}

// HostReportMismatch is the host's two-strike escalation. A strike is
// only valid once the member has revealed the details; the first returns
// control to the member, the second is terminal pending manual mediation.
// Further calls have no effect.
func (m *Machine) HostReportMismatch(actorID, exchangeID string) (*models.ExchangeRecord, error) {
	rec, role, err := m.load(exchangeID, actorID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleHost {
		return nil, ErrForbidden
	}
	now := m.Now()
	status := rec.EffectiveStatus(now)
	if status == models.StatusHumanIntervention {
		// strike counter caps at the terminal state
		return rec, nil
	}
	if !rec.Revealed() || status == models.StatusExpired || status == models.StatusPendingHost || status == models.StatusIssueReported {
		return nil, fmt.Errorf("report mismatch from %s: %w", status, ErrInvalidTransition)
	}

	rec.EscalationCount++
	rec.HostConfirmation = models.ConfirmationState{Status: "mismatch_reported", Timestamp: &now}
	kind := config.EntryKindMismatch
	text := "Host reported the member is not in the group"
	if rec.EscalationCount >= config.MaxMismatchStrikes {
		rec.EscalationCount = config.MaxMismatchStrikes
		rec.Status = models.StatusHumanIntervention
		kind = config.EntryKindEscalated
		text = "Repeated mismatch reported, support mediation required"
	} else {
		rec.Status = models.StatusMismatchOnce
	}
	if err := m.Storage.SaveExchange(rec); err != nil {
		return nil, err
	}

	m.logEvent(rec, actorID, kind, text)
	return rec, nil
}
