package inbound

import (
	"fmt"

	"github.com/randalmurphal/botflow/pkg/botflow/update"
)

// Validate checks the structural completeness of an event for its variant.
// It never fails; problems are reported in the returned status, in rule order.
func Validate(evt update.Event) ValidationStatus {
	errs := make([]string, 0)

	switch {
	case !evt.HasUpdateType:
		errs = append(errs, "missing update_type")
	case !evt.UpdateType.Valid():
		errs = append(errs, fmt.Sprintf("invalid update_type %q", evt.RawUpdateType))
	}

	if evt.Timestamp == nil {
		errs = append(errs, "missing timestamp")
	} else if *evt.Timestamp < 0 {
		errs = append(errs, "timestamp must be non-negative")
	}

	errs = append(errs, variantErrors(evt)...)
	errs = append(errs, evt.Problems...)

	return ValidationStatus{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

func variantErrors(evt update.Event) []string {
	switch evt.UpdateType {
	case update.MessageCreated:
		return requireMessageBody(evt.Message, "message")
	case update.MessageEdited:
		if evt.Message == nil && evt.NewMessage != nil {
			return requireMessageBody(evt.NewMessage, "new_message")
		}
		return requireMessageBody(evt.Message, "message")
	case update.MessageCallback:
		if evt.Callback == nil {
			return []string{"callback is required"}
		}
		if evt.Callback.CallbackID == "" {
			return []string{"callback.callback_id is required"}
		}
	case update.BotStarted, update.UserAdded, update.UserRemoved:
		if evt.User == nil {
			return []string{"user is required"}
		}
		if evt.User.UserID == nil {
			return []string{"user.user_id is required and must be numeric"}
		}
	case update.BotAdded, update.BotRemoved, update.ChatTitleChanged, update.MessageChatCreated:
		if _, ok := evt.ChatIDValue(); !ok {
			return []string{"chat id is required"}
		}
	case update.MessageRemoved:
		if evt.MessageIDValue() == "" {
			return []string{"message id is required"}
		}
	}
	return nil
}

func requireMessageBody(msg *update.Message, path string) []string {
	if msg == nil {
		return []string{path + " is required"}
	}
	if msg.Body == nil {
		return []string{path + ".body is required"}
	}
	if msg.Body.Mid == "" {
		return []string{path + ".body.mid is required"}
	}
	return nil
}
