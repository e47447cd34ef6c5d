// Package phase defines the closed set of engagement phases and their
// typed configuration.
package phase

import (
	"fmt"
	"time"
)

// Kind names one category of engagement work. The set is closed: adding a
// phase means adding a constant here and a branch in the executor.
type Kind string

const (
	KindCompetitorRepost Kind = "competitor-repost"
	KindKeywordReply     Kind = "keyword-reply"
	KindKeywordRetweet   Kind = "keyword-retweet"
	KindLike             Kind = "like"
	KindCommunity        Kind = "community"
	KindFeedReply        Kind = "feed-reply"
)

// DefaultOrder is the fixed execution order of phases within an account run.
var DefaultOrder = []Kind{
	KindCompetitorRepost,
	KindKeywordReply,
	KindKeywordRetweet,
	KindLike,
	KindCommunity,
	KindFeedReply,
}

// ActionKind is the kind of engagement action taken on a candidate.
type ActionKind string

const (
	ActionLike   ActionKind = "like"
	ActionReply  ActionKind = "reply"
	ActionRepost ActionKind = "repost"
)

// Action returns the action kind a phase performs.
func (k Kind) Action() ActionKind {
	switch k {
	case KindKeywordReply, KindFeedReply:
		return ActionReply
	case KindLike:
		return ActionLike
	default:
		return ActionRepost
	}
}

// Valid reports whether k is a recognized phase kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCompetitorRepost, KindKeywordReply, KindKeywordRetweet,
		KindLike, KindCommunity, KindFeedReply:
		return true
	}
	return false
}

// Config holds the typed per-phase options. Unknown options are a config
// error, not a free-form map.
type Config struct {
	Enabled    bool `yaml:"enabled"`
	MaxActions int  `yaml:"max_actions"` // run quota; 0 disables the phase

	// Relevance filter.
	FilterEnabled bool    `yaml:"filter_enabled"`
	Threshold     float64 `yaml:"threshold"` // keep when score >= threshold

	// Candidate pre-filters, applied before any scoring call.
	RecencyWindow time.Duration `yaml:"recency_window"` // 0 = no age limit
	MinLikes      int           `yaml:"min_likes"`      // repost-style phases
	MinReposts    int           `yaml:"min_reposts"`    // repost-style phases
	RequireMedia  bool          `yaml:"require_media"`

	// Inter-action delay window, inclusive on both ends.
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`

	// Feed pacing (feed-reply only): per-hour cap and session length.
	// When PerHour > 0 the effective quota is PerHour*MaxHours.
	PerHour  int `yaml:"per_hour"`
	MaxHours int `yaml:"max_hours"`

	// Oversample factor for scrape batch sizing relative to quota.
	Oversample int `yaml:"oversample"`
}

// Quota returns the effective run quota for the phase.
func (c Config) Quota() int {
	if c.PerHour > 0 && c.MaxHours > 0 {
		return c.PerHour * c.MaxHours
	}
	return c.MaxActions
}

// BatchLimit returns how many candidates to request per scrape call.
func (c Config) BatchLimit() int {
	over := c.Oversample
	if over < 2 {
		over = 2
	}
	n := c.Quota() * over
	if n < 10 {
		n = 10
	}
	return n
}

// Validate checks numeric and temporal bounds.
func (c Config) Validate(kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown phase kind %q", kind)
	}
	if !c.Enabled {
		return nil
	}
	if c.Quota() < 0 {
		return fmt.Errorf("phase %s: negative quota", kind)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("phase %s: threshold %v outside [0,1]", kind, c.Threshold)
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return fmt.Errorf("phase %s: invalid delay window [%s, %s]", kind, c.MinDelay, c.MaxDelay)
	}
	return nil
}
