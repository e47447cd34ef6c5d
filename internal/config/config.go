// Package config provides hierarchical configuration loading for Roost.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"time"

	"github.com/birdwork/roost/internal/domain/account"
	"github.com/birdwork/roost/internal/domain/phase"
)

// Config holds all runtime configuration for the Roost engagement engine.
type Config struct {
	Server       Server       `yaml:"server"`
	Postgres     Postgres     `yaml:"postgres"`
	NATS         NATS         `yaml:"nats"`
	Sidecar      Sidecar      `yaml:"sidecar"`
	Scorer       Scorer       `yaml:"scorer"`
	Logging      Logging      `yaml:"logging"`
	Otel         Otel         `yaml:"otel"`
	Breaker      Breaker      `yaml:"breaker"`
	Cache        Cache        `yaml:"cache"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	Phases       Phases       `yaml:"phases"`
	Accounts     []Account    `yaml:"accounts"`
}

// Orchestrator holds cross-account scheduling configuration.
type Orchestrator struct {
	MaxConcurrent  int           `yaml:"max_concurrent"`  // accounts run in parallel (default: 2)
	RunDeadline    time.Duration `yaml:"run_deadline"`    // global deadline; 0 = none
	AccountTimeout time.Duration `yaml:"account_timeout"` // per-account deadline; 0 = none
}

// Server holds the admin HTTP listener configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Postgres holds connection pool settings for the dedup/metrics store.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds the event bus connection settings. Empty URL disables publishing.
type NATS struct {
	URL string `yaml:"url"`
}

// Sidecar holds the connection settings for the browser-automation sidecar
// that performs platform login, scraping, and engagement actions.
type Sidecar struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// Scorer holds the relevance scoring backend settings (an OpenAI-compatible
// chat completions endpoint, e.g. a LiteLLM proxy).
type Scorer struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Logging holds structured logging settings.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Otel holds OpenTelemetry export settings. Empty endpoint disables export.
type Otel struct {
	Endpoint string `yaml:"endpoint"` // OTLP gRPC collector, host:port
	Insecure bool   `yaml:"insecure"`
}

// Breaker holds circuit breaker settings for scorer calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds the in-process dedup read-cache settings.
type Cache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Phases holds the global default config per phase kind. Account overrides
// replace the whole per-kind struct.
type Phases struct {
	CompetitorRepost phase.Config `yaml:"competitor_repost"`
	KeywordReply     phase.Config `yaml:"keyword_reply"`
	KeywordRetweet   phase.Config `yaml:"keyword_retweet"`
	Like             phase.Config `yaml:"like"`
	Community        phase.Config `yaml:"community"`
	FeedReply        phase.Config `yaml:"feed_reply"`
}

// For returns the global default config for a phase kind.
func (p Phases) For(kind phase.Kind) phase.Config {
	switch kind {
	case phase.KindCompetitorRepost:
		return p.CompetitorRepost
	case phase.KindKeywordReply:
		return p.KeywordReply
	case phase.KindKeywordRetweet:
		return p.KeywordRetweet
	case phase.KindLike:
		return p.Like
	case phase.KindCommunity:
		return p.Community
	case phase.KindFeedReply:
		return p.FeedReply
	}
	return phase.Config{}
}

// Account is the YAML shape of one managed account.
type Account struct {
	ID                 string                        `yaml:"id"`
	Active             bool                          `yaml:"active"`
	CredentialRef      string                        `yaml:"credential_ref"`
	ProxyRef           string                        `yaml:"proxy_ref"`
	Keywords           []string                      `yaml:"keywords"`
	CompetitorProfiles []string                      `yaml:"competitor_profiles"`
	CommunityID        string                        `yaml:"community_id"`
	SelfHandles        []string                      `yaml:"self_handles"`
	Phases             map[phase.Kind]phase.Config   `yaml:"phases"`
}

// ToDomain converts the YAML account into the domain entity.
func (a Account) ToDomain() account.Account {
	return account.Account{
		ID:                 a.ID,
		Active:             a.Active,
		CredentialRef:      a.CredentialRef,
		ProxyRef:           a.ProxyRef,
		Keywords:           a.Keywords,
		CompetitorProfiles: a.CompetitorProfiles,
		CommunityID:        a.CommunityID,
		SelfHandles:        a.SelfHandles,
		Phases:             a.Phases,
	}
}

// ActiveAccounts returns the domain accounts marked active, in config order.
func (c *Config) ActiveAccounts() []account.Account {
	var out []account.Account
	for _, a := range c.Accounts {
		if a.Active {
			out = append(out, a.ToDomain())
		}
	}
	return out
}
