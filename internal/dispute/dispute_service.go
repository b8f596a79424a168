// Package dispute provides the escalation path layered on the exchange
// state machine: member issue reports spawn fresh re-request records, and
// repeated host mismatch reports end in mandatory human mediation.
package dispute

import (
	"fmt"
	"log"

	"dapbuddy/backend/internal/config"
	"dapbuddy/backend/internal/exchange"
	"dapbuddy/backend/internal/models"
	"dapbuddy/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Notifier alerts operators about exchanges that left the automatic flow.
type Notifier interface {
	AlertEscalation(c *models.MediationCase) error
}

// Service handles the business logic for disputes.
type Service struct {
	Storage  storage.Storage
	Machine  *exchange.Machine
	Notifier Notifier
}

// NewService creates a new dispute service. notifier may be nil when no
// ops channel is configured.
func NewService(s storage.Storage, m *exchange.Machine, notifier Notifier) *Service {
	return &Service{Storage: s, Machine: m, Notifier: notifier}
}

// Issue reasons are fixed per joining method; free-text reasons are not
// accepted.
var linkIssueReasons = []string{
	"link_expired",
	"link_invalid",
	"slots_full",
	"link_not_opening",
}

var credentialIssueReasons = []string{
	"password_incorrect",
	"account_locked",
	"profile_missing",
	"otp_required",
}

// ReasonsFor returns the fixed issue-reason list for a joining method.
func ReasonsFor(method exchange.JoiningMethod) []string {
	if method == exchange.MethodInviteLink {
		return linkIssueReasons
	}
	return credentialIssueReasons
}

// ValidReason reports whether the reason belongs to the method's list.
func ValidReason(method exchange.JoiningMethod, reason string) bool {
	for _, r := range ReasonsFor(method) {
		if r == reason {
			return true
		}
	}
	return false
}

// ReportIssue validates the reason against the service's joining method
// and chains into the state machine, which spawns the re-request record.
func (s *Service) ReportIssue(actorID, exchangeID, reason string) (*models.ExchangeRecord, error) {
	rec, err := s.Storage.GetExchangeByID(exchangeID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, exchange.ErrNotFound
	}
	method := exchange.RuleFor(rec.ServiceID).Method
	if !ValidReason(method, reason) {
		return nil, &exchange.ValidationError{Fields: []exchange.FieldError{{
			Field:   "reason",
			Message: fmt.Sprintf("unknown reason for %s method", method),
		}}}
	}
	return s.Machine.ReportIssue(actorID, exchangeID, reason)
}

// ReportMismatch runs the host's two-strike escalation. When the second
// strike lands, a mediation case is opened with the full reason history of
// the exchange chain and operators are alerted.
func (s *Service) ReportMismatch(actorID, exchangeID string) (*models.ExchangeRecord, error) {
	before, err := s.Storage.GetExchangeByID(exchangeID)
	if err != nil {
		return nil, err
	}
	if before == nil {
		return nil, exchange.ErrNotFound
	}
	alreadyTerminal := before.Status == models.StatusHumanIntervention

	rec, err := s.Machine.HostReportMismatch(actorID, exchangeID)
	if err != nil {
		return nil, err
	}

	if rec.Status == models.StatusHumanIntervention && !alreadyTerminal {
		s.openCase(rec)
	}
	return rec, nil
}

func (s *Service) openCase(rec *models.ExchangeRecord) {
	c := &models.MediationCase{
		CaseID:     uuid.New().String(),
		BookingID:  rec.BookingID,
		ExchangeID: rec.ID,
		HostID:     rec.HostID,
		MemberID:   rec.MemberID,
		Reasons:    pq.StringArray(s.reasonHistory(rec.BookingID)),
		Status:     models.MediationOpen,
	}
	if err := s.Storage.OpenMediationCase(c); err != nil {
		log.Printf("ERROR: Failed to open mediation case for exchange %s: %v", rec.ID, err)
		return
	}
	log.Printf("Mediation case %s opened for booking %s", c.CaseID, c.BookingID)
	if s.Notifier != nil {
		if err := s.Notifier.AlertEscalation(c); err != nil {
			log.Printf("ERROR: Failed to send escalation alert for case %s: %v", c.CaseID, err)
		}
	}
}

// reasonHistory collects every issue reason reported across the booking's
// exchange chain, oldest first, for the mediation record.
func (s *Service) reasonHistory(bookingID string) []string {
	entries, err := s.Storage.ListEntriesBefore(bookingID, 0, 200)
	if err != nil {
		log.Printf("ERROR: Failed to collect reason history for booking %s: %v", bookingID, err)
		return nil
	}
	var reasons []string
	for _, e := range entries {
		if e.Kind == config.EntryKindIssueReported && e.Text != "" {
			reasons = append(reasons, e.Text)
		}
	}
	return reasons
}

// Resolve closes a mediation case from the operator side. The exchange
// record itself stays in human_intervention_required; a fresh record is
// opened if the parties continue.
func (s *Service) Resolve(caseID string) error {
	return s.Storage.ResolveMediationCase(caseID)
}
