package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Event
	}{
		{
			name: "upvote",
			raw:  `{"type":"discussion:upvote","payload":{"type":"reply","id":7,"count":3}}`,
			want: UpvoteEvent{Kind: UpvoteReply, ID: 7, Count: 3},
		},
		{
			name: "view",
			raw:  `{"type":"discussion:view","payload":{"discussion_id":42,"count":120}}`,
			want: ViewEvent{DiscussionID: 42, Count: 120},
		},
		{
			name: "group join",
			raw:  `{"type":"study-group:join","payload":{"group_id":7,"user_name":"amina","member_count":12}}`,
			want: GroupJoinEvent{GroupID: 7, UserName: "amina", MemberCount: 12},
		},
		{
			name: "streak milestone",
			raw:  `{"type":"streak:milestone","payload":{"user_id":9,"milestone":30,"badge":"monthly"}}`,
			want: StreakMilestoneEvent{UserID: 9, Milestone: 30, Badge: "monthly"},
		},
		{
			name: "leaderboard update",
			raw:  `{"type":"leaderboard:update","payload":{"category":"points","period":"weekly"}}`,
			want: LeaderboardUpdateEvent{Category: "points", Period: "weekly"},
		},
		{
			name: "notification",
			raw:  `{"type":"notification","payload":{"type":"reply","title":"New reply","message":"hi","link":"/d/42"}}`,
			want: NotificationEvent{Type: "reply", Title: "New reply", Message: "hi", Link: "/d/42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestDecodeEventReplyCarriesRecord(t *testing.T) {
	raw := `{"type":"discussion:reply","payload":{"discussion_id":42,"reply":{"id":5,"discussion_id":42,"parent_id":1,"author_name":"joe","content":"agreed"}}}`
	ev, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)

	re, ok := ev.(ReplyEvent)
	require.True(t, ok)
	assert.Equal(t, 42, re.DiscussionID)
	assert.Equal(t, 5, re.Reply.ID)
	require.NotNil(t, re.Reply.ParentID)
	assert.Equal(t, 1, *re.Reply.ParentID)
}

func TestDecodeEventUnknownType(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"quiz:score","payload":{"id":1}}`))
	require.ErrorIs(t, err, ErrUnknownEventType)
}

func TestDecodeEventMalformed(t *testing.T) {
	for _, raw := range []string{
		`not json at all`,
		`{"type":"discussion:view"}`,
		`{"type":"discussion:view","payload":"nope"}`,
	} {
		_, err := DecodeEvent([]byte(raw))
		require.ErrorIs(t, err, ErrMalformedEvent, raw)
	}
}

func TestEncodeEventRoundTrip(t *testing.T) {
	data, err := EncodeEvent(ViewEvent{DiscussionID: 42, Count: 9})
	require.NoError(t, err)

	ev, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ViewEvent{DiscussionID: 42, Count: 9}, ev)
}

func TestControlFrameWireShape(t *testing.T) {
	data, err := json.Marshal(Subscribe("discussion:42"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"subscribe","room":"discussion:42"}`, string(data))

	data, err = json.Marshal(Unsubscribe("study-group:7"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"unsubscribe","room":"study-group:7"}`, string(data))
}
