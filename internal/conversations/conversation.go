package conversations

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the two conversation shapes.
type Type string

const (
	TypeOneOnOne  Type = "ONE_ON_ONE"
	TypeTeamGroup Type = "TEAM_GROUP"
)

// Filter selects a conversation list bucket.
type Filter string

const (
	FilterActive   Filter = "active"
	FilterUnread   Filter = "unread"
	FilterArchived Filter = "archived"
	FilterAll      Filter = "all"
)

// Filters lists every bucket, in tab order.
var Filters = []Filter{FilterActive, FilterUnread, FilterArchived, FilterAll}

// Participant is the counterpart in a one-on-one conversation.
type Participant struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}

// TeamMember is one worker in a team-group conversation.
type TeamMember struct {
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
	Skill     string `json:"skill"`
}

// JobSummary is the denormalized job a conversation hangs off.
type JobSummary struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Budget   float64 `json:"budget"`
	Location string  `json:"location"`
}

// Conversation is a read-only projection of server state. It is a tagged
// union on Type: exactly one of Other and Team is populated.
type Conversation struct {
	ID            string       `json:"id"`
	Type          Type         `json:"conversation_type"`
	Job           JobSummary   `json:"job"`
	LastMessage   string       `json:"last_message"`
	LastMessageAt int64        `json:"last_message_time"`
	UnreadCount   int          `json:"unread_count"`
	Archived      bool         `json:"is_archived"`
	Other         *Participant `json:"other_participant,omitempty"`
	Team          []TeamMember `json:"team_members,omitempty"`
}

// UnmarshalJSON decodes a conversation and enforces the union invariant:
// whichever arm the type does not select is dropped, so a payload carrying
// both fields cannot produce an ambiguous value.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	type alias Conversation
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Conversation(a)
	switch c.Type {
	case TypeOneOnOne:
		c.Team = nil
	case TypeTeamGroup:
		c.Other = nil
	default:
		return fmt.Errorf("unknown conversation type %q", c.Type)
	}
	return nil
}

// DisplayName derives the name the list renders, never empty.
// One-on-one falls back from participant name to job title to "Chat";
// team groups synthesize a worker-count title.
func (c *Conversation) DisplayName() string {
	switch c.Type {
	case TypeTeamGroup:
		noun := "workers"
		if len(c.Team) == 1 {
			noun = "worker"
		}
		return fmt.Sprintf("Team Chat (%d %s)", len(c.Team), noun)
	default:
		if c.Other != nil && c.Other.Name != "" {
			return c.Other.Name
		}
		if c.Job.Title != "" {
			return c.Job.Title
		}
		return "Chat"
	}
}

// ConversationsResponse is the server's list payload.
type ConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
