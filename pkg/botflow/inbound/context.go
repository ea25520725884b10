package inbound

import (
	"unicode/utf8"

	"github.com/randalmurphal/botflow/pkg/botflow/update"
)

// BuildContext summarizes an event for downstream consumers.
// Missing sub-fields leave the corresponding context fields unset.
func BuildContext(evt update.Event) EventContext {
	switch evt.UpdateType {
	case update.MessageCreated:
		ctx := messageContext(evt.Message)
		ctx.Description = "New message received"
		return ctx

	case update.MessageEdited:
		msg := evt.Message
		if msg == nil {
			msg = evt.NewMessage
		}
		ctx := messageContext(msg)
		ctx.Description = "Message edited"
		ctx.HasPreviousVersion = boolPtr(evt.OldMessage != nil)
		return ctx

	case update.MessageRemoved:
		ctx := EventContext{
			Description: "Message removed",
			MessageID:   evt.MessageIDValue(),
		}
		if evt.DeletionContext != nil && evt.DeletionContext.DeletedBy != nil {
			ctx.DeletedBy = evt.DeletionContext.DeletedBy.UserID
		} else {
			ctx.DeletedBy = userID(evt.User)
		}
		return ctx

	case update.MessageCallback:
		ctx := EventContext{
			Description: "Callback button pressed",
			MessageID:   evt.Message.ID(),
		}
		if evt.Callback != nil {
			ctx.CallbackID = evt.Callback.CallbackID
			ctx.CallbackPayload = evt.Callback.Payload
		}
		return ctx

	case update.BotStarted:
		return EventContext{
			Description:        "User started the bot",
			IsFirstInteraction: boolPtr(true),
			StartPayload:       evt.Payload,
		}

	case update.BotAdded, update.BotRemoved:
		desc := "Bot added to chat"
		if evt.UpdateType == update.BotRemoved {
			desc = "Bot removed from chat"
		}
		return EventContext{
			Description: desc,
			ChatID:      chatID(evt),
			ActorID:     userID(evt.User),
			IsChannel:   evt.IsChannel,
		}

	case update.UserAdded, update.UserRemoved:
		return membershipContext(evt)

	case update.ChatTitleChanged:
		ctx := EventContext{
			Description: "Chat title changed",
			NewTitle:    evt.Title,
			ActorID:     userID(evt.User),
		}
		if cc := evt.ChatChanges; cc != nil {
			ctx.OldTitle = cc.OldTitle
			if cc.NewTitle != "" {
				ctx.NewTitle = cc.NewTitle
			}
			if cc.ChangedBy != nil {
				ctx.ActorID = cc.ChangedBy.UserID
			}
		}
		return ctx

	case update.MessageChatCreated:
		ctx := EventContext{
			Description: "Chat created from message",
			ChatID:      chatID(evt),
			MessageID:   evt.MessageIDValue(),
			ChatTitle:   evt.Title,
		}
		if evt.Chat != nil && evt.Chat.Title != "" {
			ctx.ChatTitle = evt.Chat.Title
		}
		return ctx
	}

	return EventContext{Description: "Unknown event"}
}

func messageContext(msg *update.Message) EventContext {
	ctx := EventContext{MessageID: msg.ID()}
	if msg == nil || msg.Body == nil {
		return ctx
	}
	length := utf8.RuneCountInString(msg.Body.Text)
	ctx.HasText = boolPtr(msg.Body.Text != "")
	ctx.HasAttachments = boolPtr(len(msg.Body.Attachments) > 0)
	ctx.MessageLength = &length
	return ctx
}

func membershipContext(evt update.Event) EventContext {
	ctx := EventContext{UserID: userID(evt.User)}

	action := "added"
	fallbackActor := evt.InviterID
	ctx.Description = "User added to chat"
	if evt.UpdateType == update.UserRemoved {
		action = "removed"
		fallbackActor = evt.AdminID
		ctx.Description = "User removed from chat"
	}

	ctx.MembershipAction = action
	ctx.ActorID = fallbackActor
	if mc := evt.MembershipContext; mc != nil {
		if mc.Action != "" {
			ctx.MembershipAction = mc.Action
		}
		if actor := mc.Actor(); actor != nil && actor.UserID != nil {
			ctx.ActorID = actor.UserID
		}
	}
	return ctx
}

func chatID(evt update.Event) *int64 {
	if id, ok := evt.ChatIDValue(); ok {
		return &id
	}
	return nil
}

func userID(u *update.User) *int64 {
	if u == nil {
		return nil
	}
	return u.UserID
}

func boolPtr(b bool) *bool {
	return &b
}
