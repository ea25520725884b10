package inbound

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/randalmurphal/botflow/pkg/botflow/update"
)

// keyNamespace scopes name-based event keys. It must never change, or every
// previously issued key would stop matching redeliveries.
var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/randalmurphal/botflow/webhook-event"))

// IdempotencyKey derives a deterministic key for an event from its update
// type, timestamp and first stable identifier (message id, callback id,
// user id, chat id). Redeliveries of the same event map to the same key.
func IdempotencyKey(evt update.Event) string {
	return uuid.NewSHA1(keyNamespace, []byte(canonicalKey(evt))).String()
}

func canonicalKey(evt update.Event) string {
	var b strings.Builder
	b.WriteString(evt.RawUpdateType)
	b.WriteByte('|')
	if evt.Timestamp != nil {
		b.WriteString(strconv.FormatInt(*evt.Timestamp, 10))
	}
	b.WriteByte('|')
	b.WriteString(stableIdentifier(evt))
	return b.String()
}

func stableIdentifier(evt update.Event) string {
	if id := evt.MessageIDValue(); id != "" {
		return "message:" + id
	}
	if evt.Callback != nil && evt.Callback.CallbackID != "" {
		return "callback:" + evt.Callback.CallbackID
	}
	if id, ok := evt.UserIDValue(); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	if id, ok := evt.ChatIDValue(); ok {
		return "chat:" + strconv.FormatInt(id, 10)
	}
	return ""
}
