package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

func newTestMessageService(store *fakeStore, metrics *MetricsService) *MessageService {
	return NewMessageService(fakeMessages{store}, store, nil, nil, metrics)
}

func TestMessageServiceSendToInstructors(t *testing.T) {
	store := newFakeStore()
	store.addUser("i1", "ivy", models.RoleInstructor, true)
	store.addUser("i2", "ian", models.RoleInstructor, true)
	store.addUser("i3", "old", models.RoleInstructor, false)
	store.addUser("t1", "bob", models.RoleTrainee, true)
	metrics := NewMetricsService()
	svc := newTestMessageService(store, metrics)

	res, err := svc.SendToInstructors(context.Background(), "t1", models.MessageRequest{Content: "  help with module 2  "})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Recipients)
	require.Len(t, store.messages, 2)
	for _, m := range store.messages {
		assert.Equal(t, "t1", m.SenderID)
		assert.Equal(t, "help with module 2", m.Content)
	}
	assert.True(t, store.messages[0].CreatedAt.Equal(store.messages[1].CreatedAt))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.messagesSent))
}

func TestMessageServiceSendRules(t *testing.T) {
	store := newFakeStore()
	store.addUser("i1", "ivy", models.RoleInstructor, true)
	store.addUser("t1", "bob", models.RoleTrainee, true)
	svc := newTestMessageService(store, nil)

	_, err := svc.SendToInstructors(context.Background(), "t1", models.MessageRequest{Content: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.SendToInstructors(context.Background(), "t1", models.MessageRequest{Content: strings.Repeat("é", models.MaxMessageLength+1)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.SendToInstructors(context.Background(), "t1", models.MessageRequest{Content: strings.Repeat("é", models.MaxMessageLength)})
	assert.NoError(t, err)

	_, err = svc.SendToInstructors(context.Background(), "i1", models.MessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Len(t, store.messages, 1)
}

func TestMessageServiceSendWithoutInstructors(t *testing.T) {
	store := newFakeStore()
	store.addUser("t1", "bob", models.RoleTrainee, true)
	svc := newTestMessageService(store, nil)

	_, err := svc.SendToInstructors(context.Background(), "t1", models.MessageRequest{Content: "anyone?"})
	assert.ErrorIs(t, err, appErrors.ErrNoRecipient)
	assert.Empty(t, store.messages)
}

func TestMessageServiceSendBatchFailureWritesNothing(t *testing.T) {
	store := newFakeStore()
	store.addUser("i1", "ivy", models.RoleInstructor, true)
	store.addUser("t1", "bob", models.RoleTrainee, true)
	store.batchErr = errors.New("tx aborted")
	svc := newTestMessageService(store, nil)

	_, err := svc.SendToInstructors(context.Background(), "t1", models.MessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, store.messages)
}

func TestMessageServiceReply(t *testing.T) {
	store := newFakeStore()
	store.addUser("i1", "ivy", models.RoleInstructor, true)
	store.addUser("i2", "ian", models.RoleInstructor, true)
	store.addUser("t1", "bob", models.RoleTrainee, true)
	store.messages = append(store.messages, &models.Message{ID: "m1", SenderID: "t1", RecipientID: "i1", Content: "q"})
	svc := newTestMessageService(store, nil)

	reply, err := svc.Reply(context.Background(), "i1", "m1", models.MessageRequest{Content: "answer"})
	require.NoError(t, err)
	assert.Equal(t, "i1", reply.SenderID)
	assert.Equal(t, "t1", reply.RecipientID)

	_, err = svc.Reply(context.Background(), "i2", "m1", models.MessageRequest{Content: "answer"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Reply(context.Background(), "t1", "m1", models.MessageRequest{Content: "answer"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestMessageServiceInboxAndThread(t *testing.T) {
	store := newFakeStore()
	store.addUser("i1", "ivy", models.RoleInstructor, true)
	store.addUser("t1", "bob", models.RoleTrainee, true)
	svc := newTestMessageService(store, nil)

	_, err := svc.SendToInstructors(context.Background(), "t1", models.MessageRequest{Content: "first"})
	require.NoError(t, err)
	_, err = svc.SendToInstructors(context.Background(), "t1", models.MessageRequest{Content: "second"})
	require.NoError(t, err)
	_, err = svc.Reply(context.Background(), "i1", store.messages[0].ID, models.MessageRequest{Content: "reply"})
	require.NoError(t, err)

	inbox, err := svc.Inbox(context.Background(), "i1")
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "second", inbox[0].Content)
	assert.Equal(t, "bob", inbox[0].SenderUsername)

	thread, err := svc.Thread(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "first", thread[0].Content)
	assert.Equal(t, "reply", thread[2].Content)

	traineeInbox, err := svc.Inbox(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, traineeInbox, 1)
	assert.Equal(t, "ivy", traineeInbox[0].SenderUsername)
}
