package roles

import (
	"context"
	"log/slog"
	"strings"

	"github.com/componenthub/hubauth/pkg/logger"
)

// ProfileCounter reports how many profile records exist.
type ProfileCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Reason explains why InitialRole picked a role.
type Reason string

const (
	ReasonBootstrap Reason = "bootstrap"
	ReasonAllowList Reason = "allow_list"
	ReasonLegacy    Reason = "legacy_substring"
	ReasonDefault   Reason = "default"
)

// Policy decides the role of a subject seen for the first time.
type Policy struct {
	counter   ProfileCounter
	ledger    BootstrapLedger
	allowList *AllowList
	legacy    string
	logger    *slog.Logger
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithAllowList sets the administrator allow-list.
func WithAllowList(al *AllowList) PolicyOption {
	return func(p *Policy) { p.allowList = al }
}

// WithLegacySubstringRule grants admin to any new email containing needle.
// Anyone can register an address containing the needle, so this exists only
// for deployments migrating from the old behavior.
func WithLegacySubstringRule(needle string) PolicyOption {
	return func(p *Policy) { p.legacy = strings.ToLower(needle) }
}

func WithPolicyLogger(l *slog.Logger) PolicyOption {
	return func(p *Policy) { p.logger = l }
}

// NewPolicy creates the first-contact policy. A nil ledger disables the
// bootstrap rule.
func NewPolicy(counter ProfileCounter, ledger BootstrapLedger, opts ...PolicyOption) *Policy {
	p := &Policy{
		counter: counter,
		ledger:  ledger,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// InitialRole returns the role for a subject that has no profile yet.
func (p *Policy) InitialRole(ctx context.Context, subjectID, email string) (Role, Reason) {
	if p.bootstrap(ctx, subjectID) {
		p.logger.WarnContext(ctx, "bootstrap administrator granted",
			logger.SubjectID(subjectID),
			logger.Email(email),
			logger.Component("roles"),
		)
		return Admin, ReasonBootstrap
	}
	if p.allowList.Allows(email) {
		return Admin, ReasonAllowList
	}
	if p.legacy != "" && strings.Contains(strings.ToLower(email), p.legacy) {
		p.logger.WarnContext(ctx, "admin granted by legacy substring rule",
			logger.SubjectID(subjectID),
			logger.Email(email),
			logger.Component("roles"),
		)
		return Admin, ReasonLegacy
	}
	return User, ReasonDefault
}

func (p *Policy) bootstrap(ctx context.Context, subjectID string) bool {
	if p.ledger == nil || p.counter == nil {
		return false
	}
	n, err := p.counter.Count(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to count profiles, skipping bootstrap rule",
			logger.Error(err),
			logger.Component("roles"),
		)
		return false
	}
	if n > 0 {
		return false
	}
	ok, err := p.ledger.Claim(ctx, subjectID)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to claim bootstrap ledger",
			logger.SubjectID(subjectID),
			logger.Error(err),
			logger.Component("roles"),
		)
		return false
	}
	return ok
}
