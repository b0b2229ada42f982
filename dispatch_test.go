package monitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSource(t *testing.T) {
	wechat := FieldMap{Kind: "chat_type", Group: "roomid", Sender: "wxid", Text: "content"}

	t.Run("reads mapped fields", func(t *testing.T) {
		src := JSONSource("wechat", wechat, nil)

		msg, err := src.Parse([]byte(wechatPayload))
		require.NoError(t, err)

		assert.Equal(t, "wechat", src.Name())
		assert.Equal(t, TypeMessage, msg.EventType())
		assert.Equal(t, ChatGroup, msg.Kind)
		assert.Equal(t, "12345@chatroom", msg.Group)
		assert.Equal(t, "wxid_alice", msg.Sender)
		assert.Equal(t, "/天气 上海", msg.Text)
		assert.JSONEq(t, wechatPayload, string(msg.Raw))
	})

	t.Run("uses default paths", func(t *testing.T) {
		src := JSONSource("plain", FieldMap{}, nil)

		msg, err := src.Parse([]byte(`{"type": "friend_request", "sender": "bob", "text": "hi"}`))
		require.NoError(t, err)

		assert.Equal(t, "friend_request", msg.EventType())
		assert.Equal(t, "bob", msg.Sender)
		assert.Equal(t, "hi", msg.Text)
	})

	t.Run("infers kind from group", func(t *testing.T) {
		src := JSONSource("plain", FieldMap{}, nil)

		direct, err := src.Parse([]byte(`{"sender": "bob", "text": "hi"}`))
		require.NoError(t, err)
		assert.Equal(t, ChatDirect, direct.Kind)

		group, err := src.Parse([]byte(`{"group": "g1", "sender": "bob", "text": "hi"}`))
		require.NoError(t, err)
		assert.Equal(t, ChatGroup, group.Kind)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := JSONSource("plain", FieldMap{}, nil).Parse([]byte(`{nope`))

		assert.ErrorIs(t, err, ErrInvalidJSON)
	})

	t.Run("requires text", func(t *testing.T) {
		_, err := JSONSource("plain", FieldMap{}, nil).Parse([]byte(`{"sender": "bob"}`))

		assert.ErrorContains(t, err, `"text"`)
	})

	t.Run("attaches channel", func(t *testing.T) {
		ch := &recordingChannel{}
		msg, err := JSONSource("plain", FieldMap{}, ch).Parse([]byte(`{"sender": "bob", "text": "hi"}`))
		require.NoError(t, err)

		assert.Same(t, ch, msg.Channel)
	})
}

func TestApplySendOptions(t *testing.T) {
	o := ApplySendOptions(
		To("room"),
		Mention("alice"),
		Mention("bob"),
		WithExtra("quote", "123"),
	)

	assert.Equal(t, "room", o.Target)
	assert.Equal(t, []string{"alice", "bob"}, o.Mentions)
	assert.Equal(t, map[string]any{"quote": "123"}, o.Extra)
	assert.Zero(t, ApplySendOptions())
}

func TestChannelFunc(t *testing.T) {
	var got string
	ch := ChannelFunc(func(_ context.Context, target, text string, _ ...SendOption) error {
		got = target + ":" + text
		return nil
	})

	require.NoError(t, ch.SendText(context.Background(), "bob", "hello"))
	assert.Equal(t, "bob:hello", got)
}
