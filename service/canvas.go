package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/nkazmin/liveboard/models"
	"github.com/nkazmin/liveboard/worker"
)

const maxObjectPropertiesBytes = 64 * 1024

func (s *Service) CreateCanvas(ctx context.Context, user models.User, title string, description string, visibility models.Visibility) (models.Canvas, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Canvas{}, fmt.Errorf("%w: title required", ErrInvalidArgument)
	}
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
		return models.Canvas{}, fmt.Errorf("%w: invalid visibility %q", ErrInvalidArgument, visibility)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Canvas{}, err
	}

	return s.Store.CreateCanvas(ctx, models.Canvas{
		Id:          id.String(),
		Title:       title,
		Description: description,
		OwnerId:     user.Id,
		Visibility:  visibility,
	})
}

func (s *Service) GetCanvas(ctx context.Context, user models.User, canvasId string) (models.Canvas, error) {
	return s.requireCanvasTier(ctx, canvasId, user.Id, models.TierView)
}

func (s *Service) UpdateCanvas(ctx context.Context, user models.User, canvasId string, title string, description string, visibility models.Visibility) (models.Canvas, error) {
	canvas, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierOwner)
	if err != nil {
		return models.Canvas{}, err
	}

	if title = strings.TrimSpace(title); title != "" {
		canvas.Title = title
	}
	if description != "" {
		canvas.Description = description
	}
	if visibility != "" {
		if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
			return models.Canvas{}, fmt.Errorf("%w: invalid visibility %q", ErrInvalidArgument, visibility)
		}
		canvas.Visibility = visibility
	}

	return s.Store.UpdateCanvas(ctx, canvas)
}

func (s *Service) DeleteCanvas(ctx context.Context, user models.User, canvasId string) error {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierOwner); err != nil {
		return err
	}

	// Drop the meta row first so the canvas disappears immediately; the rest
	// of the partition and the invitations go through the cascade worker.
	if err := s.Store.DeleteCanvas(ctx, canvasId); err != nil {
		return err
	}

	msg := worker.CanvasDeletedMessage{CanvasId: canvasId}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.MQ.Send(ctx, string(msgBytes))
}

// ListUserCanvases returns everything the caller can open: owned canvases,
// canvases shared via a permission row, and public canvases, deduplicated.
func (s *Service) ListUserCanvases(ctx context.Context, user models.User) ([]models.Canvas, error) {
	owned, err := s.Store.GetCanvasesByOwner(ctx, user.Id)
	if err != nil {
		return nil, err
	}
	shared, err := s.Store.GetCanvasesSharedWith(ctx, user.Id)
	if err != nil {
		return nil, err
	}
	public, err := s.Store.GetPublicCanvases(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(owned)+len(shared)+len(public))
	canvases := make([]models.Canvas, 0, len(owned)+len(shared)+len(public))
	for _, group := range [][]models.Canvas{owned, shared, public} {
		for _, c := range group {
			if seen[c.Id] {
				continue
			}
			seen[c.Id] = true
			canvases = append(canvases, c)
		}
	}
	return canvases, nil
}

// Objects

func (s *Service) CreateObject(ctx context.Context, user models.User, canvasId string, objectType models.ObjectType, properties []byte) (models.CanvasObject, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierEdit); err != nil {
		return models.CanvasObject{}, err
	}

	if !models.ValidObjectType(objectType) {
		return models.CanvasObject{}, fmt.Errorf("%w: invalid object type %q", ErrInvalidArgument, objectType)
	}
	if err := validateProperties(properties); err != nil {
		return models.CanvasObject{}, err
	}

	// uuidv7 ids keep objects sorted by creation time in the canvas partition
	id, err := uuid.NewV7()
	if err != nil {
		return models.CanvasObject{}, err
	}

	return s.Store.CreateObject(ctx, models.CanvasObject{
		Id:         id.String(),
		CanvasId:   canvasId,
		Type:       objectType,
		Properties: properties,
		CreatedBy:  user.Id,
	})
}

func (s *Service) UpdateObject(ctx context.Context, user models.User, canvasId string, objectId string, properties []byte) (models.CanvasObject, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierEdit); err != nil {
		return models.CanvasObject{}, err
	}
	if err := validateProperties(properties); err != nil {
		return models.CanvasObject{}, err
	}

	obj, err := s.Store.UpdateObjectProperties(ctx, canvasId, objectId, properties, time.Now().Unix())
	if err != nil {
		return models.CanvasObject{}, mapStoreErr(err, "object "+objectId)
	}
	return obj, nil
}

func (s *Service) DeleteObject(ctx context.Context, user models.User, canvasId string, objectId string) error {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierEdit); err != nil {
		return err
	}

	if err := s.Store.DeleteObject(ctx, canvasId, objectId); err != nil {
		return mapStoreErr(err, "object "+objectId)
	}
	return nil
}

func (s *Service) GetObject(ctx context.Context, user models.User, canvasId string, objectId string) (models.CanvasObject, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierView); err != nil {
		return models.CanvasObject{}, err
	}

	obj, err := s.Store.GetObject(ctx, canvasId, objectId)
	if err != nil {
		return models.CanvasObject{}, mapStoreErr(err, "object "+objectId)
	}
	return obj, nil
}

func (s *Service) GetCanvasObjects(ctx context.Context, user models.User, canvasId string) ([]models.CanvasObject, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierView); err != nil {
		return nil, err
	}

	return s.Store.GetCanvasObjects(ctx, canvasId)
}

func validateProperties(properties []byte) error {
	if len(properties) == 0 || !json.Valid(properties) {
		return fmt.Errorf("%w: properties must be a JSON document", ErrInvalidArgument)
	}
	if len(properties) > maxObjectPropertiesBytes {
		return fmt.Errorf("%w: properties exceed %d bytes", ErrInvalidArgument, maxObjectPropertiesBytes)
	}
	return nil
}
