package exchange

import (
	"regexp"
	"time"

	"dapbuddy/backend/internal/config"
)

// JoiningMethod distinguishes how a member gets into the shared seat. It
// selects both the payload shape and the issue-reason list offered when
// something goes wrong.
type JoiningMethod string

const (
	// MethodInviteLink: the host shares a service-generated invite URL.
	MethodInviteLink JoiningMethod = "invite_link"
	// MethodCredentials: the host shares account credentials directly.
	MethodCredentials JoiningMethod = "credentials"
)

// ServiceRule parametrizes the exchange lifecycle for one subscription
// service: which fields the host must provide, how link fields must look,
// and how long revealed details stay visible. One rule set replaces the
// four hand-copied flow variants.
type ServiceRule struct {
	ServiceID      string
	Method         JoiningMethod
	RequiredFields []string
	// LinkPatterns maps link-shaped field names to the service-specific
	// URL pattern they must match. Patterns are anchored.
	LinkPatterns map[string]*regexp.Regexp
	RevealWindow time.Duration
}

var serviceRules = map[string]*ServiceRule{
	"spotify": {
		ServiceID:      "spotify",
		Method:         MethodInviteLink,
		RequiredFields: []string{"invite_link"},
		LinkPatterns: map[string]*regexp.Regexp{
			"invite_link": regexp.MustCompile(`^https://www\.spotify\.com/[a-z]{2}(-[a-z]{2})?/family/join/invite/[A-Za-z0-9]+/?$`),
		},
		RevealWindow: config.DefaultRevealWindow,
	},
	"youtube_premium": {
		ServiceID:      "youtube_premium",
		Method:         MethodInviteLink,
		RequiredFields: []string{"invite_link"},
		LinkPatterns: map[string]*regexp.Regexp{
			"invite_link": regexp.MustCompile(`^https://(www\.)?youtube\.com/(paid_memberships|family_center)[A-Za-z0-9/_?=&-]*$`),
		},
		RevealWindow: config.DefaultRevealWindow,
	},
	"netflix": {
		ServiceID:      "netflix",
		Method:         MethodCredentials,
		RequiredFields: []string{"email", "password"},
		RevealWindow:   config.DefaultRevealWindow,
	},
	"prime_video": {
		ServiceID:      "prime_video",
		Method:         MethodCredentials,
		RequiredFields: []string{"email", "password"},
		RevealWindow:   config.DefaultRevealWindow,
	},
}

// defaultRule covers services without a dedicated entry: credentials
// method, free field list, default window.
var defaultRule = &ServiceRule{
	ServiceID:      "generic",
	Method:         MethodCredentials,
	RequiredFields: []string{"email", "password"},
	RevealWindow:   config.DefaultRevealWindow,
}

// RuleFor returns the rule set for a service, falling back to the generic
// credentials rule for unknown services.
func RuleFor(serviceID string) *ServiceRule {
	if rule, ok := serviceRules[serviceID]; ok {
		return rule
	}
	return defaultRule
}
