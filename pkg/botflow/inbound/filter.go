package inbound

import (
	"slices"
	"strconv"
	"strings"

	"github.com/randalmurphal/botflow/pkg/botflow/update"
)

// Drop reasons reported by FilterCriteria.Match.
const (
	ReasonChatNotAllowed = "chat_not_allowed"
	ReasonUserNotAllowed = "user_not_allowed"
)

// FilterCriteria restricts which events are emitted.
// The zero value allows every event. It is read-only after construction and
// safe to share between goroutines.
type FilterCriteria struct {
	chats map[int64]struct{}
	users map[int64]struct{}
}

// NewFilterCriteria creates criteria from explicit allow-lists.
// An empty list disables filtering on that dimension.
func NewFilterCriteria(chatIDs, userIDs []int64) FilterCriteria {
	return FilterCriteria{
		chats: idSet(chatIDs),
		users: idSet(userIDs),
	}
}

// ParseFilterCriteria creates criteria from comma-separated id lists such as
// "111111, 222222". Empty or malformed tokens are ignored.
func ParseFilterCriteria(chatIDs, userIDs string) FilterCriteria {
	return NewFilterCriteria(ParseIDList(chatIDs), ParseIDList(userIDs))
}

// ParseIDList parses a comma-separated list of integer ids, skipping
// tokens that are empty or not integers.
func ParseIDList(s string) []int64 {
	var ids []int64
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Empty reports whether the criteria allow every event.
func (f FilterCriteria) Empty() bool {
	return len(f.chats) == 0 && len(f.users) == 0
}

// ChatIDs returns the allowed chat ids in ascending order.
func (f FilterCriteria) ChatIDs() []int64 {
	return sortedIDs(f.chats)
}

// UserIDs returns the allowed user ids in ascending order.
func (f FilterCriteria) UserIDs() []int64 {
	return sortedIDs(f.users)
}

// Allows reports whether the event passes both allow-lists.
func (f FilterCriteria) Allows(pe ProcessedEvent) bool {
	ok, _ := f.Match(pe)
	return ok
}

// Match is like Allows but also returns the reason an event was rejected.
//
// An event whose variant carries no id for a dimension (bot_started has no
// chat) satisfies that dimension. An event whose variant should carry the
// id but does not is rejected when that dimension is filtered.
func (f FilterCriteria) Match(pe ProcessedEvent) (bool, string) {
	evt := pe.Event

	if len(f.chats) > 0 && update.HasChatDimension(evt.UpdateType) {
		id, ok := evt.ChatIDValue()
		if !ok || !contains(f.chats, id) {
			return false, ReasonChatNotAllowed
		}
	}

	if len(f.users) > 0 && update.HasUserDimension(evt.UpdateType) {
		id, ok := evt.UserIDValue()
		if !ok || !contains(f.users, id) {
			return false, ReasonUserNotAllowed
		}
	}

	return true, ""
}

func idSet(ids []int64) map[int64]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func contains(set map[int64]struct{}, id int64) bool {
	_, ok := set[id]
	return ok
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
