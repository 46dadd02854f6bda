package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHub_CloseRightAfterJoin тестирует закрытие хаба сразу после подключения:
// начальное сообщение уже в буфере, канал закрывается без паники
func TestHub_CloseRightAfterJoin(t *testing.T) {
	hub := NewHub()
	projectID := uuid.New()

	sub := newSubscriber(nil, Message{Type: "board", Data: map[string]string{"id": "b1"}})
	hub.join(projectID, sub)

	assert.NotPanics(t, hub.Close)
	assert.NotPanics(t, func() { hub.leave(projectID, sub) })

	raw, ok := <-sub.send
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"board","data":{"id":"b1"}}`, string(raw))

	_, ok = <-sub.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers(projectID))
}
