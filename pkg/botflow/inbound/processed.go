package inbound

import (
	"encoding/json"

	"github.com/randalmurphal/botflow/pkg/botflow/update"
)

// SourceWebhook is the metadata source of every event produced here.
const SourceWebhook = "webhook"

// ValidationStatus is the structural verdict for an event.
type ValidationStatus struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// EventContext is a variant-specific summary of an event.
// Fields that do not apply to the variant, or whose source data is
// missing, are omitted.
type EventContext struct {
	Description string `json:"description"`

	MessageID          string `json:"message_id,omitempty"`
	HasText            *bool  `json:"has_text,omitempty"`
	HasAttachments     *bool  `json:"has_attachments,omitempty"`
	MessageLength      *int   `json:"message_length,omitempty"`
	HasPreviousVersion *bool  `json:"has_previous_version,omitempty"`

	CallbackID      string `json:"callback_id,omitempty"`
	CallbackPayload string `json:"callback_payload,omitempty"`

	IsFirstInteraction *bool  `json:"is_first_interaction,omitempty"`
	StartPayload       string `json:"start_payload,omitempty"`

	ChatID    *int64 `json:"chat_id,omitempty"`
	ChatTitle string `json:"chat_title,omitempty"`
	IsChannel *bool  `json:"is_channel,omitempty"`
	OldTitle  string `json:"old_title,omitempty"`
	NewTitle  string `json:"new_title,omitempty"`

	UserID           *int64 `json:"user_id,omitempty"`
	ActorID          *int64 `json:"actor_id,omitempty"`
	MembershipAction string `json:"membership_action,omitempty"`
	DeletedBy        *int64 `json:"deleted_by,omitempty"`
}

// UserContext identifies the acting user.
type UserContext struct {
	UserID      *int64 `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Locale      string `json:"locale"`
}

// ChatContext identifies the chat of an event.
type ChatContext struct {
	ChatID       *int64 `json:"chat_id"`
	ChatType     string `json:"chat_type"`
	ChatTitle    string `json:"chat_title"`
	MembersCount *int   `json:"members_count"`
}

// Metadata is the enrichment attached to an emitted event.
type Metadata struct {
	UserContext      UserContext `json:"user_context"`
	ChatContext      ChatContext `json:"chat_context"`
	Source           string      `json:"source"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
}

// ProcessedEvent is the normalized output of the inbound pipeline.
// Its JSON form is the original payload with event_id, event_context,
// validation_status and metadata set on top.
type ProcessedEvent struct {
	Event            update.Event
	EventID          string
	EventContext     EventContext
	ValidationStatus ValidationStatus
	Metadata         Metadata
}

// UpdateType returns the classified update type.
func (p ProcessedEvent) UpdateType() update.UpdateType {
	return p.Event.UpdateType
}

// MarshalJSON implements json.Marshaler.
func (p ProcessedEvent) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Event.Raw)+4)
	for k, v := range p.Event.Raw {
		out[k] = v
	}
	if _, ok := out["update_type"]; !ok {
		out["update_type"] = p.Event.UpdateType
	}
	out["event_id"] = p.EventID
	out["event_context"] = p.EventContext
	out["validation_status"] = p.ValidationStatus
	out["metadata"] = p.Metadata
	return json.Marshal(out)
}
