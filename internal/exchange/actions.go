package exchange

import "dapbuddy/backend/internal/models"

// Action names exposed to clients. The UI renders exactly this set; any
// call outside it is a guard failure, not a user error.
const (
	ActionSendDetails    = "send_details"
	ActionReveal         = "reveal"
	ActionConfirmAccess  = "confirm_access"
	ActionReportIssue    = "report_issue"
	ActionHostConfirm    = "host_confirm"
	ActionReportMismatch = "report_mismatch"
	ActionRequestAgain   = "request_again"
	ActionContactSupport = "contact_support"
)

// PermittedActions derives the action set for a role at the current flow
// position. Host actions that send details additionally carry the
// service's required field list, surfaced separately via the rule.
func PermittedActions(status models.ExchangeStatus, revealed bool, role string) []string {
	switch role {
	case models.RoleHost:
		return hostActions(status, revealed)
	case models.RoleMember:
		return memberActions(status, revealed)
	}
	return nil
}

func hostActions(status models.ExchangeStatus, revealed bool) []string {
	switch status {
	case models.StatusPendingHost, models.StatusIssueReported:
		return []string{ActionSendDetails}
	case models.StatusSentToUser:
		if revealed {
			return []string{ActionHostConfirm, ActionReportMismatch}
		}
		return nil
	case models.StatusConfirmed:
		return []string{ActionHostConfirm, ActionReportMismatch}
	case models.StatusMismatchOnce:
		return []string{ActionSendDetails, ActionHostConfirm, ActionReportMismatch}
	case models.StatusHumanIntervention:
		// terminal pending mediation, no automatic action remains
		return []string{ActionContactSupport}
	}
	return nil
}

func memberActions(status models.ExchangeStatus, revealed bool) []string {
	switch status {
	case models.StatusSentToUser:
		if revealed {
			return []string{ActionConfirmAccess, ActionReportIssue}
		}
		return []string{ActionReveal}
	case models.StatusMismatchOnce:
		if revealed {
			return []string{ActionConfirmAccess, ActionReportIssue}
		}
		return []string{ActionReveal}
	case models.StatusExpired:
		return []string{ActionRequestAgain}
	case models.StatusHumanIntervention:
		return []string{ActionContactSupport}
	}
	return nil
}
