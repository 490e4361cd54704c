package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkazmin/liveboard/models"
	"github.com/nkazmin/liveboard/store"
)

// EffectivePermission computes the caller's tier on a canvas from current
// state: ownership beats a permission row, a permission row beats public
// visibility. Nothing is cached between calls, so revoking access takes
// effect on the next request.
func (s *Service) EffectivePermission(ctx context.Context, canvas models.Canvas, userId string) (models.PermissionTier, error) {
	if canvas.OwnerId == userId {
		return models.TierOwner, nil
	}

	perm, err := s.Store.GetPermission(ctx, canvas.Id, userId)
	if err == nil {
		return perm.Tier(), nil
	}
	if !errors.Is(err, store.ErrItemNotFound) {
		return models.TierNone, err
	}

	if canvas.Visibility == models.VisibilityPublic {
		return models.TierView, nil
	}

	return models.TierNone, nil
}

// requireCanvasTier loads the canvas and checks the caller holds at least the
// given tier. A canvas the caller cannot even see reports NotFound, not
// Forbidden, so private canvas ids are not probeable.
func (s *Service) requireCanvasTier(ctx context.Context, canvasId string, userId string, tier models.PermissionTier) (models.Canvas, error) {
	canvas, err := s.Store.GetCanvas(ctx, canvasId)
	if errors.Is(err, store.ErrItemNotFound) {
		return models.Canvas{}, fmt.Errorf("%w: canvas %s", ErrNotFound, canvasId)
	}
	if err != nil {
		return models.Canvas{}, err
	}

	effective, err := s.EffectivePermission(ctx, canvas, userId)
	if err != nil {
		return models.Canvas{}, err
	}
	if effective == models.TierNone {
		return models.Canvas{}, fmt.Errorf("%w: canvas %s", ErrNotFound, canvasId)
	}
	if effective < tier {
		return models.Canvas{}, fmt.Errorf("%w: requires %s access", ErrForbidden, tier)
	}

	return canvas, nil
}

func (s *Service) ListCollaborators(ctx context.Context, user models.User, canvasId string) ([]models.CanvasPermission, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierView); err != nil {
		return nil, err
	}

	return s.Store.GetCanvasPermissions(ctx, canvasId)
}

func (s *Service) UpdateCollaboratorPermission(ctx context.Context, user models.User, canvasId string, collaboratorId string, tierName string) (models.CanvasPermission, error) {
	canvas, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierOwner)
	if err != nil {
		return models.CanvasPermission{}, err
	}

	tier, ok := models.ParseTier(tierName)
	if !ok || tier == models.TierNone || tier == models.TierOwner {
		return models.CanvasPermission{}, fmt.Errorf("%w: invalid permission tier %q", ErrInvalidArgument, tierName)
	}
	if collaboratorId == canvas.OwnerId {
		return models.CanvasPermission{}, fmt.Errorf("%w: owner access cannot be changed", ErrInvalidArgument)
	}

	existing, err := s.Store.GetPermission(ctx, canvasId, collaboratorId)
	if errors.Is(err, store.ErrItemNotFound) {
		return models.CanvasPermission{}, fmt.Errorf("%w: no permission for user %s", ErrNotFound, collaboratorId)
	}
	if err != nil {
		return models.CanvasPermission{}, err
	}

	existing.TierName = tier.String()
	existing.GrantedBy = user.Id
	return s.Store.PutPermission(ctx, existing)
}

func (s *Service) RemoveCollaborator(ctx context.Context, user models.User, canvasId string, collaboratorId string) error {
	canvas, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierOwner)
	if err != nil {
		return err
	}
	if collaboratorId == canvas.OwnerId {
		return fmt.Errorf("%w: owner access cannot be removed", ErrInvalidArgument)
	}

	err = s.Store.DeletePermission(ctx, canvasId, collaboratorId)
	if errors.Is(err, store.ErrItemNotFound) {
		return fmt.Errorf("%w: no permission for user %s", ErrNotFound, collaboratorId)
	}
	return err
}
