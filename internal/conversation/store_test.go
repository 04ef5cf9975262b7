package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agents-chat/internal/kv"
	"agents-chat/internal/types"
)

func newMessage(agentID, n int) types.Message {
	role := types.RoleUser
	if n%2 == 1 {
		role = types.RoleAssistant
	}
	return types.Message{
		ID:        fmt.Sprintf("m-%d-%d", agentID, n),
		Content:   fmt.Sprintf("message %d", n),
		Role:      role,
		Timestamp: int64(1000 + n),
		AgentID:   agentID,
	}
}

func ids(msgs []types.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "chat-history-7", Key(7))
}

func TestLoadEmptyWhenMissing(t *testing.T) {
	s := New(kv.NewMemory(), nil)
	msgs := s.Load(context.Background(), 3)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestAppendKeepsLastMaxMessages(t *testing.T) {
	ctx := context.Background()
	for _, total := range []int{1, 49, 50, 51, 120} {
		t.Run(fmt.Sprintf("%d appends", total), func(t *testing.T) {
			s := New(kv.NewMemory(), nil)
			var appended []string
			for i := 0; i < total; i++ {
				msg := newMessage(1, i)
				_, err := s.Append(ctx, 1, msg)
				require.NoError(t, err)
				appended = append(appended, msg.ID)
			}

			want := appended
			if len(want) > MaxMessages {
				want = want[len(want)-MaxMessages:]
			}
			assert.Equal(t, want, ids(s.Load(ctx, 1)))
		})
	}
}

func TestAppendToFullConversationEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(), nil)
	for i := 0; i < MaxMessages; i++ {
		_, err := s.Append(ctx, 1, newMessage(1, i))
		require.NoError(t, err)
	}
	before := s.Load(ctx, 1)
	require.Len(t, before, MaxMessages)

	after, err := s.Append(ctx, 1, newMessage(1, MaxMessages))
	require.NoError(t, err)
	require.Len(t, after, MaxMessages)
	assert.Equal(t, ids(before[1:]), ids(after[:MaxMessages-1]))
	assert.Equal(t, "m-1-50", after[MaxMessages-1].ID)
}

func TestWithMaxMessages(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(), nil, WithMaxMessages(3))
	assert.Equal(t, 3, s.MaxMessages())
	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, 2, newMessage(2, i))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"m-2-2", "m-2-3", "m-2-4"}, ids(s.Load(ctx, 2)))
}

func TestLoadAppliesCapToLongerRecords(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	wide := New(backend, nil)
	for i := 0; i < 20; i++ {
		_, err := wide.Append(ctx, 6, newMessage(6, i))
		require.NoError(t, err)
	}

	narrow := New(backend, nil, WithMaxMessages(5))
	assert.Equal(t, []string{"m-6-15", "m-6-16", "m-6-17", "m-6-18", "m-6-19"}, ids(narrow.Load(ctx, 6)))

	msgs, err := narrow.Append(ctx, 6, newMessage(6, 20))
	require.NoError(t, err)
	assert.Equal(t, []string{"m-6-16", "m-6-17", "m-6-18", "m-6-19", "m-6-20"}, ids(msgs))
	assert.Len(t, wide.Load(ctx, 6), 5, "the trimmed record is what got persisted")
}

func TestAppendPersistsThrough(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	_, err := New(backend, nil).Append(ctx, 5, newMessage(5, 0))
	require.NoError(t, err)

	raw, ok, err := backend.Get(ctx, "chat-history-5")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"agentId":5`)

	// a fresh store over the same backend sees the record
	assert.Equal(t, []string{"m-5-0"}, ids(New(backend, nil).Load(ctx, 5)))
}

func TestAppendValidation(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(), nil)

	msg := newMessage(2, 0)
	_, err := s.Append(ctx, 1, msg)
	assert.ErrorIs(t, err, ErrAgentMismatch)

	blank := newMessage(1, 0)
	blank.Content = "  \n"
	_, err = s.Append(ctx, 1, blank)
	assert.ErrorIs(t, err, ErrEmptyContent)

	badRole := newMessage(1, 0)
	badRole.Role = "system"
	_, err = s.Append(ctx, 1, badRole)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = s.Append(ctx, 1, newMessage(1, 0))
	require.NoError(t, err)
	_, err = s.Append(ctx, 1, newMessage(1, 0))
	assert.ErrorIs(t, err, ErrDuplicateID)

	assert.Len(t, s.Load(ctx, 1), 1)
}

func TestAppendKeepsTimestampsNonDecreasing(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(), nil)
	first := newMessage(1, 0)
	first.Timestamp = 5000
	_, err := s.Append(ctx, 1, first)
	require.NoError(t, err)

	late := newMessage(1, 1)
	late.Timestamp = 4000
	msgs, err := s.Append(ctx, 1, late)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), msgs[1].Timestamp)
}

func TestAppendReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(), nil)
	msgs, err := s.Append(ctx, 1, newMessage(1, 0))
	require.NoError(t, err)
	msgs[0].Content = "tampered"
	assert.Equal(t, "message 0", s.Load(ctx, 1)[0].Content)
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	s := New(backend, nil)
	_, err := s.Append(ctx, 1, newMessage(1, 0))
	require.NoError(t, err)
	_, err = s.Append(ctx, 2, newMessage(2, 0))
	require.NoError(t, err)

	msgs, err := s.Clear(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, s.Load(ctx, 1))

	_, err = s.Clear(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, s.Load(ctx, 1))

	_, ok, _ := backend.Get(ctx, Key(1))
	assert.False(t, ok)
	assert.Len(t, s.Load(ctx, 2), 1, "other agents are untouched")
}

func TestCorruptRecordLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(ctx, Key(9), "{not json"))
	s := New(backend, nil)

	assert.Empty(t, s.Load(ctx, 9))

	msgs, err := s.Append(ctx, 9, newMessage(9, 0))
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "a corrupt record is replaced on the next append")
}

type failingKV struct {
	*kv.Memory
	setErr error
	getErr error
}

func (f failingKV) Set(ctx context.Context, key, value string) error { return f.setErr }

func (f failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.Memory.Get(ctx, key)
}

func TestWriteFailureIsReturned(t *testing.T) {
	boom := errors.New("disk full")
	s := New(failingKV{Memory: kv.NewMemory(), setErr: boom}, nil)
	_, err := s.Append(context.Background(), 1, newMessage(1, 0))
	assert.ErrorIs(t, err, boom)
}

func TestReadFailureLoadsEmpty(t *testing.T) {
	s := New(failingKV{Memory: kv.NewMemory(), getErr: errors.New("io")}, nil)
	assert.Empty(t, s.Load(context.Background(), 1))
}

func TestConversations(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(ctx, "settings", "{}"))
	require.NoError(t, backend.Set(ctx, "chat-history-x", "[]"))
	s := New(backend, nil)
	for _, id := range []int{3, 11} {
		_, err := s.Append(ctx, id, newMessage(id, 0))
		require.NoError(t, err)
	}

	got, err := s.Conversations(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{3, 11}, got)
}

func TestCodecRoundTrip(t *testing.T) {
	original := make([]types.Message, 0, 10)
	for i := 0; i < 10; i++ {
		original = append(original, newMessage(4, i))
	}
	original[3].Content = "unicode ✓ and \"quotes\"\nnewline"

	raw, err := Encode(original)
	require.NoError(t, err)
	decoded, err := Decode(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	empty, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	decoded, err = Decode("null")
	require.NoError(t, err)
	assert.NotNil(t, decoded)
	assert.Empty(t, decoded)

	_, err = Decode("[{")
	assert.Error(t, err)
}

func TestDecodeBrowserPayload(t *testing.T) {
	raw := `[{"id":"user-4-1700000000000","content":"hello","role":"user","timestamp":1700000000000,"agentId":4}]`
	msgs, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, 4, msgs[0].AgentID)
	assert.Equal(t, int64(1700000000000), msgs[0].Timestamp)
}
