package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nkazmin/liveboard/models"
	"github.com/nkazmin/liveboard/mq"
	mqmocks "github.com/nkazmin/liveboard/mq/mocks"
	storemocks "github.com/nkazmin/liveboard/store/mocks"
)

func TestCascadeConsumer_DeletesPartitionAndInvitations(t *testing.T) {
	mockStore := new(storemocks.MockStore)
	mockMQ := new(mqmocks.MockMQ)

	msg := &mq.Message{Id: "receipt-1", Body: `{"canvasId":"c1"}`}

	mockMQ.On("Receive", mock.Anything, int32(visibilityTimeout)).Return(msg, nil).Once()
	// After the first message the consumer should park until shutdown
	mockMQ.On("Receive", mock.Anything, int32(visibilityTimeout)).Return(nil, context.Canceled)

	mockStore.On("DeleteCanvasRows", mock.Anything, "c1").Return(nil)
	mockStore.On("GetInvitationsByCanvas", mock.Anything, "c1").Return([]models.Invitation{
		{Id: "inv1", CanvasId: "c1"},
		{Id: "inv2", CanvasId: "c1"},
	}, nil)
	mockStore.On("DeleteInvitation", mock.Anything, "inv1").Return(nil)
	mockStore.On("DeleteInvitation", mock.Anything, "inv2").Return(nil)

	deleted := make(chan struct{})
	mockMQ.On("Delete", mock.Anything, msg).Return(nil).Run(func(args mock.Arguments) {
		close(deleted)
	})

	consumer := NewCascadeConsumer(mockMQ, mockStore)

	done := make(chan struct{})
	go func() {
		consumer.Run(context.Background())
		close(done)
	}()

	select {
	case <-deleted:
	case <-time.After(time.Second):
		assert.Fail(t, "timed out waiting for message delete")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail(t, "consumer did not stop on context.Canceled")
	}

	mockStore.AssertExpectations(t)
	mockMQ.AssertExpectations(t)
}

func TestCascadeConsumer_BadMessageIsSkipped(t *testing.T) {
	mockStore := new(storemocks.MockStore)
	mockMQ := new(mqmocks.MockMQ)

	msg := &mq.Message{Id: "receipt-1", Body: `not json`}
	mockMQ.On("Receive", mock.Anything, int32(visibilityTimeout)).Return(msg, nil).Once()
	mockMQ.On("Receive", mock.Anything, int32(visibilityTimeout)).Return(nil, context.Canceled)

	consumer := NewCascadeConsumer(mockMQ, mockStore)

	done := make(chan struct{})
	go func() {
		consumer.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail(t, "consumer did not stop")
	}

	mockStore.AssertNotCalled(t, "DeleteCanvasRows", mock.Anything, mock.Anything)
	mockMQ.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
