package inbound_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/botflow/pkg/botflow/inbound"
	"github.com/randalmurphal/botflow/pkg/botflow/update"
)

func decode(t *testing.T, body string) update.Event {
	t.Helper()
	evt, err := update.Decode([]byte(body))
	require.NoError(t, err)
	return evt
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errors []string
	}{
		{
			name:   "valid callback",
			body:   `{"update_type":"message_callback","timestamp":1,"callback":{"callback_id":"cb-1","payload":"yes"}}`,
			errors: []string{},
		},
		{
			name:   "missing everything",
			body:   `{}`,
			errors: []string{"missing update_type", "missing timestamp"},
		},
		{
			name:   "out of set type names value",
			body:   `{"update_type":"bogus","timestamp":1}`,
			errors: []string{`invalid update_type "bogus"`},
		},
		{
			name:   "negative timestamp",
			body:   `{"update_type":"bot_started","timestamp":-5,"user":{"user_id":1}}`,
			errors: []string{"timestamp must be non-negative"},
		},
		{
			name:   "message without mid",
			body:   `{"update_type":"message_created","timestamp":1,"message":{"body":{"text":"hi"}}}`,
			errors: []string{"message.body.mid is required"},
		},
		{
			name:   "message without body",
			body:   `{"update_type":"message_created","timestamp":1,"message":{}}`,
			errors: []string{"message.body is required"},
		},
		{
			name:   "edited via new_message",
			body:   `{"update_type":"message_edited","timestamp":1,"new_message":{"body":{"mid":"m2"}}}`,
			errors: []string{},
		},
		{
			name:   "callback without id",
			body:   `{"update_type":"message_callback","timestamp":1,"callback":{}}`,
			errors: []string{"callback.callback_id is required"},
		},
		{
			name:   "bot_started non-numeric user id",
			body:   `{"update_type":"bot_started","timestamp":1,"user":{"user_id":"abc"}}`,
			errors: []string{"user.user_id is required and must be numeric", "user.user_id must be an integer, got string"},
		},
		{
			name:   "user_added without user",
			body:   `{"update_type":"user_added","timestamp":1}`,
			errors: []string{"user is required"},
		},
		{
			name:   "bot_added with top-level chat id",
			body:   `{"update_type":"bot_added","timestamp":1,"chat_id":5}`,
			errors: []string{},
		},
		{
			name:   "chat_title_changed without chat",
			body:   `{"update_type":"chat_title_changed","timestamp":1,"title":"x"}`,
			errors: []string{"chat id is required"},
		},
		{
			name:   "message_removed with deletion context",
			body:   `{"update_type":"message_removed","timestamp":1,"deletion_context":{"message_id":"m9"}}`,
			errors: []string{},
		},
		{
			name:   "message_removed without id",
			body:   `{"update_type":"message_removed","timestamp":1}`,
			errors: []string{"message id is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := inbound.Validate(decode(t, tt.body))
			assert.Equal(t, len(tt.errors) == 0, status.IsValid)
			assert.Equal(t, tt.errors, status.Errors)
		})
	}
}

func TestBuildContext(t *testing.T) {
	t.Run("message_created", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"message_created","message":{"body":{"mid":"m1","text":"héllo","attachments":[{"type":"image"}]}}}`))
		assert.Equal(t, "m1", ctx.MessageID)
		require.NotNil(t, ctx.HasText)
		assert.True(t, *ctx.HasText)
		require.NotNil(t, ctx.HasAttachments)
		assert.True(t, *ctx.HasAttachments)
		require.NotNil(t, ctx.MessageLength)
		assert.Equal(t, 5, *ctx.MessageLength)
		assert.Nil(t, ctx.HasPreviousVersion)
	})

	t.Run("message_created without body", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"message_created"}`))
		assert.NotEmpty(t, ctx.Description)
		assert.Empty(t, ctx.MessageID)
		assert.Nil(t, ctx.HasText)
		assert.Nil(t, ctx.MessageLength)
	})

	t.Run("message_edited", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"message_edited","old_message":{"body":{"mid":"m1","text":"a"}},"new_message":{"body":{"mid":"m1","text":"ab"}}}`))
		assert.Equal(t, "m1", ctx.MessageID)
		require.NotNil(t, ctx.HasPreviousVersion)
		assert.True(t, *ctx.HasPreviousVersion)
		require.NotNil(t, ctx.MessageLength)
		assert.Equal(t, 2, *ctx.MessageLength)
	})

	t.Run("message_callback", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"message_callback","callback":{"callback_id":"cb","payload":"buy"},"message":{"body":{"mid":"m3"}}}`))
		assert.Equal(t, "cb", ctx.CallbackID)
		assert.Equal(t, "buy", ctx.CallbackPayload)
		assert.Equal(t, "m3", ctx.MessageID)
	})

	t.Run("bot_started", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"bot_started","payload":"ref"}`))
		require.NotNil(t, ctx.IsFirstInteraction)
		assert.True(t, *ctx.IsFirstInteraction)
		assert.Equal(t, "ref", ctx.StartPayload)
	})

	t.Run("bot_removed", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"bot_removed","chat_id":77,"user":{"user_id":3},"is_channel":true}`))
		require.NotNil(t, ctx.ChatID)
		assert.Equal(t, int64(77), *ctx.ChatID)
		require.NotNil(t, ctx.ActorID)
		assert.Equal(t, int64(3), *ctx.ActorID)
		require.NotNil(t, ctx.IsChannel)
		assert.True(t, *ctx.IsChannel)
	})

	t.Run("user_added with inviter", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"user_added","user":{"user_id":5},"inviter_id":9}`))
		require.NotNil(t, ctx.UserID)
		assert.Equal(t, int64(5), *ctx.UserID)
		require.NotNil(t, ctx.ActorID)
		assert.Equal(t, int64(9), *ctx.ActorID)
		assert.Equal(t, "added", ctx.MembershipAction)
	})

	t.Run("user_removed with membership context", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"user_removed","user":{"user_id":5},"membership_context":{"action":"kicked","removed_by":{"user_id":8}}}`))
		assert.Equal(t, "kicked", ctx.MembershipAction)
		require.NotNil(t, ctx.ActorID)
		assert.Equal(t, int64(8), *ctx.ActorID)
	})

	t.Run("chat_title_changed", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"chat_title_changed","chat_changes":{"old_title":"Old","new_title":"New","changed_by":{"user_id":4}}}`))
		assert.Equal(t, "Old", ctx.OldTitle)
		assert.Equal(t, "New", ctx.NewTitle)
		require.NotNil(t, ctx.ActorID)
		assert.Equal(t, int64(4), *ctx.ActorID)
	})

	t.Run("message_chat_created", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"message_chat_created","chat":{"chat_id":12,"title":"Thread"},"message_id":"m5"}`))
		require.NotNil(t, ctx.ChatID)
		assert.Equal(t, int64(12), *ctx.ChatID)
		assert.Equal(t, "m5", ctx.MessageID)
		assert.Equal(t, "Thread", ctx.ChatTitle)
	})

	t.Run("unknown", func(t *testing.T) {
		ctx := inbound.BuildContext(decode(t, `{"update_type":"nope"}`))
		assert.Equal(t, inbound.EventContext{Description: "Unknown event"}, ctx)
	})
}

func TestIdempotencyKey(t *testing.T) {
	a := decode(t, `{"update_type":"message_callback","timestamp":10,"callback":{"callback_id":"cb"}}`)
	b := decode(t, `{"update_type":"message_callback","timestamp":10,"callback":{"callback_id":"cb"},"user_locale":"ru"}`)
	c := decode(t, `{"update_type":"message_callback","timestamp":10,"callback":{"callback_id":"other"}}`)

	assert.Equal(t, inbound.IdempotencyKey(a), inbound.IdempotencyKey(b))
	assert.NotEqual(t, inbound.IdempotencyKey(a), inbound.IdempotencyKey(c))
	assert.Len(t, inbound.IdempotencyKey(a), 36)
}

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, inbound.ParseIDList(" 1, 2 ,,3"))
	assert.Equal(t, []int64{-100}, inbound.ParseIDList("abc,-100,1.5"))
	assert.Empty(t, inbound.ParseIDList(""))
}

func TestFilterCriteria(t *testing.T) {
	created := decode(t, `{"update_type":"message_created","message":{"sender":{"user_id":1},"recipient":{"chat_id":10}}}`)
	started := decode(t, `{"update_type":"bot_started","user":{"user_id":1}}`)
	noChat := decode(t, `{"update_type":"message_created","message":{"sender":{"user_id":1}}}`)

	tests := []struct {
		name     string
		criteria inbound.FilterCriteria
		evt      update.Event
		allowed  bool
	}{
		{"empty allows all", inbound.FilterCriteria{}, created, true},
		{"chat allowed", inbound.NewFilterCriteria([]int64{10}, nil), created, true},
		{"chat rejected", inbound.NewFilterCriteria([]int64{11}, nil), created, false},
		{"bot_started has no chat", inbound.NewFilterCriteria([]int64{11}, nil), started, true},
		{"absent chat rejected", inbound.NewFilterCriteria([]int64{10}, nil), noChat, false},
		{"user allowed", inbound.NewFilterCriteria(nil, []int64{1}), started, true},
		{"user rejected", inbound.NewFilterCriteria(nil, []int64{2}), started, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.criteria.Allows(inbound.ProcessedEvent{Event: tt.evt}))
		})
	}
}

func TestFilterCriteriaAccessors(t *testing.T) {
	fc := inbound.ParseFilterCriteria("3,1,2", "9")
	assert.False(t, fc.Empty())
	assert.Equal(t, []int64{1, 2, 3}, fc.ChatIDs())
	assert.Equal(t, []int64{9}, fc.UserIDs())
	assert.True(t, inbound.ParseFilterCriteria(",,", "x").Empty())
}

func TestEnrich(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("callback user and chat", func(t *testing.T) {
		evt := decode(t, `{"update_type":"message_callback","callback":{"callback_id":"c","user":{"user_id":6,"first_name":"Grace","username":"gh"}},"chat":{"chat_id":8,"type":"chat","title":"Team","members_count":12}}`)
		meta := inbound.Enrich(evt, start, start.Add(3*time.Millisecond))

		require.NotNil(t, meta.UserContext.UserID)
		assert.Equal(t, int64(6), *meta.UserContext.UserID)
		assert.Equal(t, "Grace", meta.UserContext.DisplayName)
		assert.Equal(t, "gh", meta.UserContext.Username)

		require.NotNil(t, meta.ChatContext.ChatID)
		assert.Equal(t, int64(8), *meta.ChatContext.ChatID)
		assert.Equal(t, "chat", meta.ChatContext.ChatType)
		assert.Equal(t, "Team", meta.ChatContext.ChatTitle)
		require.NotNil(t, meta.ChatContext.MembersCount)
		assert.Equal(t, 12, *meta.ChatContext.MembersCount)

		assert.Equal(t, "webhook", meta.Source)
		assert.Equal(t, int64(3), meta.ProcessingTimeMs)
	})

	t.Run("no actor", func(t *testing.T) {
		meta := inbound.Enrich(decode(t, `{}`), start, start)
		assert.Nil(t, meta.UserContext.UserID)
		assert.Nil(t, meta.ChatContext.ChatID)
	})

	t.Run("clock skew clamps to zero", func(t *testing.T) {
		meta := inbound.Enrich(decode(t, `{}`), start, start.Add(-time.Second))
		assert.Equal(t, int64(0), meta.ProcessingTimeMs)
	})
}

func TestCriteriaCache(t *testing.T) {
	cache, err := inbound.NewCriteriaCache(16)
	require.NoError(t, err)
	defer cache.Close()

	first := cache.Get("1,2", "3")
	cache.Wait()
	second := cache.Get("1,2", "3")

	assert.Equal(t, first.ChatIDs(), second.ChatIDs())
	assert.Equal(t, first.UserIDs(), second.UserIDs())
	assert.Equal(t, []int64{1, 2}, second.ChatIDs())
}

func TestStaticCriteria(t *testing.T) {
	cache, err := inbound.NewCriteriaCache(0)
	require.NoError(t, err)
	defer cache.Close()

	src := inbound.StaticCriteria{ChatIDs: "5", Cache: cache}
	fc, err := src.Criteria(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, fc.ChatIDs())

	fc, err = inbound.StaticCriteria{UserIDs: "7"}.Criteria(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, fc.UserIDs())
}
