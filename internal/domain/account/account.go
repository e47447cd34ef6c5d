// Package account defines the Account domain entity.
package account

import (
	"fmt"
	"strings"

	"github.com/birdwork/roost/internal/domain/phase"
)

// Account is one managed platform account. Constructed once from
// configuration at orchestrator start and read-only during a run.
type Account struct {
	ID            string
	Active        bool
	CredentialRef string // opaque reference resolved by the authenticator
	ProxyRef      string // optional, account-scoped

	Keywords           []string
	CompetitorProfiles []string
	CommunityID        string
	SelfHandles        []string // handles considered "own posts"

	// Per-account phase overrides. A missing kind falls back to the
	// global phase config.
	Phases map[phase.Kind]phase.Config
}

// Validate checks the account is runnable.
func (a Account) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("account: empty id")
	}
	for kind, cfg := range a.Phases {
		if err := cfg.Validate(kind); err != nil {
			return fmt.Errorf("account %s: %w", a.ID, err)
		}
	}
	return nil
}

// PhaseConfig returns the effective config for a phase kind, preferring the
// account override over the given global default.
func (a Account) PhaseConfig(kind phase.Kind, global phase.Config) phase.Config {
	if cfg, ok := a.Phases[kind]; ok {
		return cfg
	}
	return global
}

// IsSelf reports whether the given author handle belongs to this account.
// Comparison is case-insensitive and ignores a leading @.
func (a Account) IsSelf(handle string) bool {
	h := normalizeHandle(handle)
	if h == "" {
		return false
	}
	if h == normalizeHandle(a.ID) {
		return true
	}
	for _, own := range a.SelfHandles {
		if h == normalizeHandle(own) {
			return true
		}
	}
	return false
}

func normalizeHandle(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
}

// Targets returns the scrape targets for the given phase kind.
func (a Account) Targets(kind phase.Kind) []string {
	switch kind {
	case phase.KindCompetitorRepost:
		return a.CompetitorProfiles
	case phase.KindKeywordReply, phase.KindKeywordRetweet, phase.KindLike:
		return a.Keywords
	case phase.KindCommunity:
		if a.CommunityID == "" {
			return nil
		}
		return []string{a.CommunityID}
	case phase.KindFeedReply:
		return []string{"home"}
	}
	return nil
}
