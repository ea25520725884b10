package inbound

import (
	"time"

	"github.com/randalmurphal/botflow/pkg/botflow/update"
)

// Enrich builds the metadata block for an event. start is when the pipeline
// received the body and now is the current time; a clock that moved
// backwards yields a processing time of zero.
func Enrich(evt update.Event, start, now time.Time) Metadata {
	elapsed := now.Sub(start).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return Metadata{
		UserContext:      userContext(evt),
		ChatContext:      chatContext(evt),
		Source:           SourceWebhook,
		ProcessingTimeMs: elapsed,
	}
}

func userContext(evt update.Event) UserContext {
	uc := UserContext{Locale: evt.UserLocale}
	u := evt.Actor()
	if u == nil {
		return uc
	}
	uc.UserID = u.UserID
	uc.Username = u.Username
	uc.DisplayName = u.DisplayName()
	return uc
}

func chatContext(evt update.Event) ChatContext {
	cc := ChatContext{ChatID: chatID(evt)}
	if evt.Message != nil && evt.Message.Recipient != nil {
		cc.ChatType = evt.Message.Recipient.ChatType
	}
	if c := evt.Chat; c != nil {
		if cc.ChatType == "" {
			cc.ChatType = c.Type
		}
		cc.ChatTitle = c.Title
		cc.MembersCount = c.MembersCount
	}
	if cc.ChatTitle == "" {
		cc.ChatTitle = evt.Title
	}
	return cc
}
