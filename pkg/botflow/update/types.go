// Package update decodes raw bot-platform webhook bodies into typed events.
//
// Webhook payloads arrive as loosely structured JSON tagged by update_type.
// Decode turns them into an Event: a closed tagged union whose variant is
// the UpdateType and whose sub-objects are explicit optional fields. The
// decoder never fails on shape problems inside a valid JSON object; it
// records them on the Event so validation can report them later.
package update

// UpdateType identifies the structural variant of a webhook event.
type UpdateType string

const (
	BotStarted         UpdateType = "bot_started"
	MessageCreated     UpdateType = "message_created"
	MessageEdited      UpdateType = "message_edited"
	MessageRemoved     UpdateType = "message_removed"
	BotAdded           UpdateType = "bot_added"
	BotRemoved         UpdateType = "bot_removed"
	UserAdded          UpdateType = "user_added"
	UserRemoved        UpdateType = "user_removed"
	ChatTitleChanged   UpdateType = "chat_title_changed"
	MessageCallback    UpdateType = "message_callback"
	MessageChatCreated UpdateType = "message_chat_created"

	// Unknown is the classification for missing or unrecognized update types.
	Unknown UpdateType = "unknown"
)

// UpdateTypes lists the closed set of recognized update types.
var UpdateTypes = []UpdateType{
	BotStarted,
	MessageCreated,
	MessageEdited,
	MessageRemoved,
	BotAdded,
	BotRemoved,
	UserAdded,
	UserRemoved,
	ChatTitleChanged,
	MessageCallback,
	MessageChatCreated,
}

// Valid reports whether t belongs to the closed set of update types.
func (t UpdateType) Valid() bool {
	switch t {
	case BotStarted, MessageCreated, MessageEdited, MessageRemoved,
		BotAdded, BotRemoved, UserAdded, UserRemoved,
		ChatTitleChanged, MessageCallback, MessageChatCreated:
		return true
	}
	return false
}

// String returns the wire name of the update type.
func (t UpdateType) String() string {
	return string(t)
}

// User is a platform user as it appears in sender, user and actor fields.
type User struct {
	UserID    *int64
	Name      string
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
}

// DisplayName returns the full name, falling back to the first name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.FirstName
}

// Chat describes the chat an event happened in.
type Chat struct {
	ChatID       *int64
	Type         string
	Title        string
	MembersCount *int
}

// Recipient is the addressee of a message.
type Recipient struct {
	ChatID   *int64
	ChatType string
	UserID   *int64
}

// MessageBody holds the content of a message.
type MessageBody struct {
	Mid         string
	Seq         *int64
	Text        string
	Attachments []map[string]any
}

// Message is a chat message carried by message_* and callback events.
type Message struct {
	Sender    *User
	Recipient *Recipient
	Timestamp *int64
	Body      *MessageBody
}

// ID returns the message body identifier, or "" when absent.
func (m *Message) ID() string {
	if m == nil || m.Body == nil {
		return ""
	}
	return m.Body.Mid
}

// Callback is an inline-button press.
type Callback struct {
	CallbackID string
	Payload    string
	Timestamp  *int64
	User       *User
}

// DeletionContext describes a removed message.
type DeletionContext struct {
	MessageID string
	DeletedBy *User
	DeletedAt *int64
}

// ChatChanges describes a chat title change.
type ChatChanges struct {
	OldTitle  string
	NewTitle  string
	ChangedBy *User
}

// MembershipContext describes a membership change and who caused it.
type MembershipContext struct {
	Action    string
	AddedBy   *User
	RemovedBy *User
}

// Actor returns whichever of AddedBy or RemovedBy is set.
func (m *MembershipContext) Actor() *User {
	if m == nil {
		return nil
	}
	if m.AddedBy != nil {
		return m.AddedBy
	}
	return m.RemovedBy
}

// Event is a decoded webhook event.
//
// UpdateType selects the variant; all sub-objects are optional and nil when
// the payload does not carry them. Raw keeps the decoded object so output
// can echo the original fields.
type Event struct {
	UpdateType    UpdateType
	RawUpdateType string
	HasUpdateType bool

	Timestamp  *int64
	User       *User
	Chat       *Chat
	Message    *Message
	Callback   *Callback
	EventID    string
	UserLocale string

	OldMessage        *Message
	NewMessage        *Message
	DeletionContext   *DeletionContext
	ChatChanges       *ChatChanges
	MembershipContext *MembershipContext

	// Top-level fields some variants carry directly.
	ChatID    *int64
	MessageID string
	InviterID *int64
	AdminID   *int64
	Title     string
	IsChannel *bool
	Payload   string

	// Problems lists shape problems found while decoding.
	Problems []string

	Raw map[string]any
}

// ChatIDValue returns the chat id from the recipient, chat, or top-level field.
func (e Event) ChatIDValue() (int64, bool) {
	if e.Message != nil && e.Message.Recipient != nil && e.Message.Recipient.ChatID != nil {
		return *e.Message.Recipient.ChatID, true
	}
	if e.Chat != nil && e.Chat.ChatID != nil {
		return *e.Chat.ChatID, true
	}
	if e.ChatID != nil {
		return *e.ChatID, true
	}
	return 0, false
}

// Actor returns the user responsible for the event. For callbacks that is
// the user who pressed the button; the message sender there is the bot
// that posted the keyboard. Otherwise it is the message sender, then the
// top-level user, then the callback user.
func (e Event) Actor() *User {
	if e.UpdateType == MessageCallback && e.Callback != nil && e.Callback.User != nil {
		return e.Callback.User
	}
	if e.Message != nil && e.Message.Sender != nil {
		return e.Message.Sender
	}
	if e.User != nil {
		return e.User
	}
	if e.Callback != nil && e.Callback.User != nil {
		return e.Callback.User
	}
	return nil
}

// UserIDValue returns the id of the acting user.
func (e Event) UserIDValue() (int64, bool) {
	if u := e.Actor(); u != nil && u.UserID != nil {
		return *u.UserID, true
	}
	return 0, false
}

// MessageIDValue returns the first message identifier the event carries.
func (e Event) MessageIDValue() string {
	if id := e.Message.ID(); id != "" {
		return id
	}
	if id := e.NewMessage.ID(); id != "" {
		return id
	}
	if e.MessageID != "" {
		return e.MessageID
	}
	if e.DeletionContext != nil {
		return e.DeletionContext.MessageID
	}
	return ""
}

// HasChatDimension reports whether events of type t identify a chat.
// bot_started is a direct interaction with the bot and carries no chat.
func HasChatDimension(t UpdateType) bool {
	return t.Valid() && t != BotStarted
}

// HasUserDimension reports whether events of type t identify an acting user.
func HasUserDimension(t UpdateType) bool {
	return t.Valid()
}
