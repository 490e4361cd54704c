package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/nkazmin/liveboard/mq"
	"github.com/nkazmin/liveboard/store"
)

type CanvasDeletedMessage struct {
	CanvasId string `json:"canvasId"`
}

// CascadeConsumer finishes canvas deletion: the meta row is already gone, the
// worker removes the remaining partition rows (objects, permissions) and the
// canvas's invitations.
type CascadeConsumer struct {
	canvasDeletedQueue mq.MessageQueue
	liveboardStore     store.LiveboardStore
}

func NewCascadeConsumer(canvasDeletedQueue mq.MessageQueue, liveboardStore store.LiveboardStore) *CascadeConsumer {
	return &CascadeConsumer{
		canvasDeletedQueue: canvasDeletedQueue,
		liveboardStore:     liveboardStore,
	}
}

// Allow up to 5 minutes for the throttled batch deletion of a large canvas
const visibilityTimeout = 300

func (c CascadeConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := c.canvasDeletedQueue.Receive(shutdownCtx, visibilityTimeout)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("cascadeConsumer receive error: %v", err)
			continue
		}

		if msg == nil {
			continue
		}

		var deleteMsg CanvasDeletedMessage
		if err := json.Unmarshal([]byte(msg.Body), &deleteMsg); err != nil {
			continue
		}

		// timeout should be a little less than queue visibility timeout
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(visibilityTimeout-1)*time.Second)

		err = c.cascade(ctx, deleteMsg.CanvasId)
		cancel()

		if err != nil {
			log.Printf("cascadeConsumer cascade error: %v", err)
			continue
		}

		err = c.canvasDeletedQueue.Delete(context.Background(), msg)
		if err != nil {
			log.Printf("cascadeConsumer delete error: %v", err)
			continue
		}
	}
}

func (c CascadeConsumer) cascade(ctx context.Context, canvasId string) error {
	if err := c.liveboardStore.DeleteCanvasRows(ctx, canvasId); err != nil {
		return err
	}

	invitations, err := c.liveboardStore.GetInvitationsByCanvas(ctx, canvasId)
	if err != nil {
		return err
	}
	for _, inv := range invitations {
		if err := c.liveboardStore.DeleteInvitation(ctx, inv.Id); err != nil && !errors.Is(err, store.ErrItemNotFound) {
			return err
		}
	}
	return nil
}
