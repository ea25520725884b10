package update

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrEmptyBody is returned by Decode for an empty or whitespace-only body.
var ErrEmptyBody = errors.New("update: empty body")

// ErrNotObject is returned by Decode when the body is valid JSON but not an object.
var ErrNotObject = errors.New("update: body is not a JSON object")

// Decode parses a webhook body into an Event.
//
// Only bodies that cannot represent an event at all (empty, invalid JSON,
// null, or a non-object) return an error. Shape problems inside an object
// are recorded on Event.Problems.
func Decode(body []byte) (Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Event{}, ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Event{}, fmt.Errorf("update: parse body: %w", err)
	}

	m, ok := v.(map[string]any)
	if !ok {
		return Event{}, fmt.Errorf("%w: got %s", ErrNotObject, jsonKind(v))
	}
	return FromPayload(m), nil
}

// FromPayload builds an Event from an already decoded JSON object.
// A nil map yields an Event classified as Unknown.
func FromPayload(m map[string]any) Event {
	d := &decoder{}
	evt := Event{Raw: m}
	if m == nil {
		evt.UpdateType = Unknown
		return evt
	}

	raw, present := m["update_type"]
	evt.HasUpdateType = present && raw != nil
	if s, ok := raw.(string); ok {
		evt.RawUpdateType = s
	} else if evt.HasUpdateType {
		evt.RawUpdateType = fmt.Sprint(raw)
	}
	evt.UpdateType = Classify(m)

	evt.Timestamp = d.int64Field(m, "timestamp", "timestamp")
	evt.User = d.user(m, "user", "user")
	evt.Chat = d.chat(m, "chat", "chat")
	evt.Message = d.message(m, "message", "message")
	evt.Callback = d.callback(m, "callback", "callback")
	evt.EventID = d.stringField(m, "event_id", "event_id")
	evt.UserLocale = d.stringField(m, "user_locale", "user_locale")

	evt.OldMessage = d.message(m, "old_message", "old_message")
	evt.NewMessage = d.message(m, "new_message", "new_message")
	evt.DeletionContext = d.deletionContext(m)
	evt.ChatChanges = d.chatChanges(m)
	evt.MembershipContext = d.membershipContext(m)

	evt.ChatID = d.int64Field(m, "chat_id", "chat_id")
	evt.MessageID = d.stringField(m, "message_id", "message_id")
	evt.InviterID = d.int64Field(m, "inviter_id", "inviter_id")
	evt.AdminID = d.int64Field(m, "admin_id", "admin_id")
	evt.Title = d.stringField(m, "title", "title")
	evt.IsChannel = d.boolField(m, "is_channel", "is_channel")
	evt.Payload = d.stringField(m, "payload", "payload")

	evt.Problems = d.problems
	return evt
}

type decoder struct {
	problems []string
}

func (d *decoder) problem(format string, args ...any) {
	d.problems = append(d.problems, fmt.Sprintf(format, args...))
}

func (d *decoder) object(m map[string]any, key, path string) map[string]any {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		d.problem("%s must be an object, got %s", path, jsonKind(v))
		return nil
	}
	return obj
}

func (d *decoder) stringField(m map[string]any, key, path string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	}
	d.problem("%s must be a string, got %s", path, jsonKind(v))
	return ""
}

func (d *decoder) int64Field(m map[string]any, key, path string) *int64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := toInt64(v)
	if !ok {
		d.problem("%s must be an integer, got %s", path, jsonKind(v))
		return nil
	}
	return &n
}

func (d *decoder) boolField(m map[string]any, key, path string) *bool {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		d.problem("%s must be a boolean, got %s", path, jsonKind(v))
		return nil
	}
	return &b
}

func (d *decoder) user(m map[string]any, key, path string) *User {
	obj := d.object(m, key, path)
	if obj == nil {
		return nil
	}
	u := &User{
		UserID:    d.int64Field(obj, "user_id", path+".user_id"),
		Name:      d.stringField(obj, "name", path+".name"),
		FirstName: d.stringField(obj, "first_name", path+".first_name"),
		LastName:  d.stringField(obj, "last_name", path+".last_name"),
		Username:  d.stringField(obj, "username", path+".username"),
	}
	if b := d.boolField(obj, "is_bot", path+".is_bot"); b != nil {
		u.IsBot = *b
	}
	return u
}

func (d *decoder) chat(m map[string]any, key, path string) *Chat {
	obj := d.object(m, key, path)
	if obj == nil {
		return nil
	}
	c := &Chat{
		ChatID: d.int64Field(obj, "chat_id", path+".chat_id"),
		Type:   d.stringField(obj, "type", path+".type"),
		Title:  d.stringField(obj, "title", path+".title"),
	}
	if n := d.int64Field(obj, "participants_count", path+".participants_count"); n != nil {
		count := int(*n)
		c.MembersCount = &count
	}
	if n := d.int64Field(obj, "members_count", path+".members_count"); n != nil {
		count := int(*n)
		c.MembersCount = &count
	}
	return c
}

func (d *decoder) message(m map[string]any, key, path string) *Message {
	obj := d.object(m, key, path)
	if obj == nil {
		return nil
	}
	msg := &Message{
		Sender:    d.user(obj, "sender", path+".sender"),
		Timestamp: d.int64Field(obj, "timestamp", path+".timestamp"),
	}
	if r := d.object(obj, "recipient", path+".recipient"); r != nil {
		msg.Recipient = &Recipient{
			ChatID:   d.int64Field(r, "chat_id", path+".recipient.chat_id"),
			ChatType: d.stringField(r, "chat_type", path+".recipient.chat_type"),
			UserID:   d.int64Field(r, "user_id", path+".recipient.user_id"),
		}
	}
	if b := d.object(obj, "body", path+".body"); b != nil {
		msg.Body = &MessageBody{
			Mid:         d.stringField(b, "mid", path+".body.mid"),
			Seq:         d.int64Field(b, "seq", path+".body.seq"),
			Text:        d.stringField(b, "text", path+".body.text"),
			Attachments: d.attachments(b, path+".body.attachments"),
		}
	}
	return msg
}

func (d *decoder) attachments(m map[string]any, path string) []map[string]any {
	v, ok := m["attachments"]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		d.problem("%s must be an array, got %s", path, jsonKind(v))
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			d.problem("%s[%d] must be an object, got %s", path, i, jsonKind(item))
			continue
		}
		out = append(out, obj)
	}
	return out
}

func (d *decoder) callback(m map[string]any, key, path string) *Callback {
	obj := d.object(m, key, path)
	if obj == nil {
		return nil
	}
	return &Callback{
		CallbackID: d.stringField(obj, "callback_id", path+".callback_id"),
		Payload:    d.stringField(obj, "payload", path+".payload"),
		Timestamp:  d.int64Field(obj, "timestamp", path+".timestamp"),
		User:       d.user(obj, "user", path+".user"),
	}
}

func (d *decoder) deletionContext(m map[string]any) *DeletionContext {
	obj := d.object(m, "deletion_context", "deletion_context")
	if obj == nil {
		return nil
	}
	return &DeletionContext{
		MessageID: d.stringField(obj, "message_id", "deletion_context.message_id"),
		DeletedBy: d.user(obj, "deleted_by", "deletion_context.deleted_by"),
		DeletedAt: d.int64Field(obj, "deleted_at", "deletion_context.deleted_at"),
	}
}

func (d *decoder) chatChanges(m map[string]any) *ChatChanges {
	obj := d.object(m, "chat_changes", "chat_changes")
	if obj == nil {
		return nil
	}
	return &ChatChanges{
		OldTitle:  d.stringField(obj, "old_title", "chat_changes.old_title"),
		NewTitle:  d.stringField(obj, "new_title", "chat_changes.new_title"),
		ChangedBy: d.user(obj, "changed_by", "chat_changes.changed_by"),
	}
}

func (d *decoder) membershipContext(m map[string]any) *MembershipContext {
	obj := d.object(m, "membership_context", "membership_context")
	if obj == nil {
		return nil
	}
	return &MembershipContext{
		Action:    d.stringField(obj, "action", "membership_context.action"),
		AddedBy:   d.user(obj, "added_by", "membership_context.added_by"),
		RemovedBy: d.user(obj, "removed_by", "membership_context.removed_by"),
	}
}

// toInt64 converts JSON numbers and integer strings to int64.
func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true
		}
		if f, err := val.Float64(); err == nil {
			return floatToInt64(f)
		}
	case float64:
		return floatToInt64(val)
	case int:
		return int64(val), true
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64, int, int64, int32:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
