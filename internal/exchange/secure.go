package exchange

import (
	"log"
	"time"

	"dapbuddy/backend/internal/config"
	"dapbuddy/backend/internal/models"
)

// CredentialState classifies a secure credential fetch. Expired and
// NotFound are outcomes, not errors; the caller offers "request again"
// instead of retrying.
type CredentialState string

const (
	CredentialOK       CredentialState = "ok"
	CredentialMasked   CredentialState = "masked"
	CredentialExpired  CredentialState = "expired"
	CredentialNotFound CredentialState = "not_found"
)

// CredentialResult is what a credential fetch returns. Fields is the
// masked or revealed view; it is empty for expired and not-found results
// so stale values can never be re-read.
type CredentialResult struct {
	State     CredentialState   `json:"state"`
	Fields    map[string]string `json:"fields"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

// MaskedView replaces sensitive field values with a fixed-width
// placeholder and passes non-sensitive fields through.
func MaskedView(details models.JoiningDetails) map[string]string {
	view := make(map[string]string, len(details))
	for name, value := range details {
		if models.IsSensitiveField(name) {
			view[name] = config.MaskPlaceholder
		} else {
			view[name] = value
		}
	}
	return view
}

// RevealedView returns the full field values. Callable only once the
// record carries a reveal stamp; FetchCredential enforces that.
func RevealedView(details models.JoiningDetails) map[string]string {
	view := make(map[string]string, len(details))
	for name, value := range details {
		view[name] = value
	}
	return view
}

// FetchCredential resolves a credential reference for a booking
// participant. Expired records answer with a distinct Expired result and
// get their payload wiped; the previously revealed values are gone for
// good. A missing or superseded reference answers NotFound.
func (m *Machine) FetchCredential(actorID, exchangeID string) (*CredentialResult, error) {
	rec, err := m.Storage.GetExchangeByID(exchangeID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.SupersededBy != nil {
		return &CredentialResult{State: CredentialNotFound, Fields: map[string]string{}}, nil
	}
	if actorID != rec.HostID && actorID != rec.MemberID {
		return nil, ErrForbidden
	}

	now := m.Now()
	if rec.EffectiveStatus(now) == models.StatusExpired {
		if rec.Status != models.StatusExpired {
			if err := m.Storage.WipeExchangePayload(rec.ID); err != nil {
				log.Printf("ERROR: Failed to wipe expired payload for exchange %s: %v", rec.ID, err)
			}
		}
		return &CredentialResult{State: CredentialExpired, Fields: map[string]string{}}, nil
	}

	if rec.Status == models.StatusPendingHost {
		return &CredentialResult{State: CredentialNotFound, Fields: map[string]string{}}, nil
	}

	// The host always sees their own payload in full; the member sees the
	// masked view until their reveal is on record.
	if actorID == rec.MemberID && !rec.Revealed() {
		return &CredentialResult{
			State:     CredentialMasked,
			Fields:    MaskedView(rec.JoiningDetails),
			ExpiresAt: rec.ExpiresAt,
		}, nil
	}
	return &CredentialResult{
		State:     CredentialOK,
		Fields:    RevealedView(rec.JoiningDetails),
		ExpiresAt: rec.ExpiresAt,
	}, nil
}
