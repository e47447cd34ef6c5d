package account

import (
	"testing"

	"github.com/birdwork/roost/internal/domain/phase"
)

func TestIsSelf(t *testing.T) {
	acct := Account{ID: "alice", SelfHandles: []string{"@Alice_Dev", "alice.backup"}}

	tests := []struct {
		handle string
		want   bool
	}{
		{"alice", true},
		{"@alice", true},
		{"ALICE_DEV", true},
		{"@alice_dev", true},
		{"alice.backup", true},
		{"bob", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := acct.IsSelf(tt.handle); got != tt.want {
			t.Fatalf("IsSelf(%q) = %v, want %v", tt.handle, got, tt.want)
		}
	}
}

func TestTargets(t *testing.T) {
	acct := Account{
		ID:                 "alice",
		Keywords:           []string{"golang", "databases"},
		CompetitorProfiles: []string{"https://x.com/rival"},
		CommunityID:        "gophers",
	}

	if got := acct.Targets(phase.KindCompetitorRepost); len(got) != 1 || got[0] != "https://x.com/rival" {
		t.Fatalf("competitor targets = %v", got)
	}
	if got := acct.Targets(phase.KindKeywordReply); len(got) != 2 {
		t.Fatalf("keyword targets = %v", got)
	}
	if got := acct.Targets(phase.KindCommunity); len(got) != 1 || got[0] != "gophers" {
		t.Fatalf("community targets = %v", got)
	}
	if got := acct.Targets(phase.KindFeedReply); len(got) != 1 || got[0] != "home" {
		t.Fatalf("feed targets = %v", got)
	}

	empty := Account{ID: "bob"}
	if got := empty.Targets(phase.KindCommunity); got != nil {
		t.Fatalf("expected nil targets without a community, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	if err := (Account{ID: "alice"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Account{}).Validate(); err == nil {
		t.Fatal("expected error for empty id")
	}

	bad := Account{ID: "alice", Phases: map[phase.Kind]phase.Config{
		phase.KindLike: {Enabled: true, Threshold: 2},
	}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for invalid phase override")
	}
}
