package conversations

import (
	"encoding/json"
	"testing"
)

func TestDisplayNameFallback(t *testing.T) {
	tests := []struct {
		name string
		conv Conversation
		want string
	}{
		{
			"participant name",
			Conversation{Type: TypeOneOnOne, Other: &Participant{Name: "Juan"}, Job: JobSummary{Title: "Fix ceiling fan"}},
			"Juan",
		},
		{
			"falls back to job title",
			Conversation{Type: TypeOneOnOne, Other: &Participant{}, Job: JobSummary{Title: "Fix ceiling fan"}},
			"Fix ceiling fan",
		},
		{
			"nil participant falls back to job title",
			Conversation{Type: TypeOneOnOne, Job: JobSummary{Title: "Fix ceiling fan"}},
			"Fix ceiling fan",
		},
		{
			"placeholder when everything absent",
			Conversation{Type: TypeOneOnOne},
			"Chat",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conv.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTeamDisplayNamePluralization(t *testing.T) {
	tests := []struct {
		members int
		want    string
	}{
		{0, "Team Chat (0 workers)"},
		{1, "Team Chat (1 worker)"},
		{3, "Team Chat (3 workers)"},
	}
	for _, tt := range tests {
		team := make([]TeamMember, tt.members)
		c := Conversation{Type: TypeTeamGroup, Team: team}
		if got := c.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() with %d members = %q, want %q", tt.members, got, tt.want)
		}
	}
}

// TestUnmarshalEnforcesUnion checks that a payload carrying both participant
// arms is resolved by the discriminator, not left ambiguous.
func TestUnmarshalEnforcesUnion(t *testing.T) {
	raw := `{
		"id": "conv-1",
		"conversation_type": "TEAM_GROUP",
		"other_participant": {"name": "Ghost"},
		"team_members": [{"name": "Maria"}]
	}`
	var c Conversation
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatal(err)
	}
	if c.Other != nil {
		t.Error("Other populated on a TEAM_GROUP conversation")
	}
	if len(c.Team) != 1 || c.Team[0].Name != "Maria" {
		t.Errorf("Team = %+v, want the Maria roster", c.Team)
	}

	raw = `{
		"id": "conv-2",
		"conversation_type": "ONE_ON_ONE",
		"other_participant": {"name": "Juan"},
		"team_members": [{"name": "Stray"}]
	}`
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatal(err)
	}
	if c.Team != nil {
		t.Error("Team populated on a ONE_ON_ONE conversation")
	}
	if c.Other == nil || c.Other.Name != "Juan" {
		t.Errorf("Other = %+v, want Juan", c.Other)
	}
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	var c Conversation
	err := json.Unmarshal([]byte(`{"id":"x","conversation_type":"BROADCAST"}`), &c)
	if err == nil {
		t.Error("expected error for unknown conversation type")
	}
}

func TestNormalizeAvatar(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"relative with slash", "/avatars/1.png", "https://api.gigwire.app/avatars/1.png"},
		{"relative without slash", "avatars/1.png", "https://api.gigwire.app/avatars/1.png"},
		{"absolute https", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"absolute http", "http://cdn.example.com/a.png", "http://cdn.example.com/a.png"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeAvatar("https://api.gigwire.app", tt.ref)
			if got != tt.want {
				t.Errorf("normalizeAvatar(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}
