package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/nkazmin/liveboard/models"
	"github.com/nkazmin/liveboard/store"
)

const invitationLifetime = 7 * 24 * time.Hour

func (s *Service) InviteCollaborator(ctx context.Context, user models.User, canvasId string, inviteeEmail string, tierName string) (models.Invitation, error) {
	canvas, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierOwner)
	if err != nil {
		return models.Invitation{}, err
	}

	tier, ok := models.ParseTier(tierName)
	if !ok || tier == models.TierNone || tier == models.TierOwner {
		return models.Invitation{}, fmt.Errorf("%w: invalid permission tier %q", ErrInvalidArgument, tierName)
	}

	inviteeEmail = strings.ToLower(strings.TrimSpace(inviteeEmail))
	if inviteeEmail == "" || !strings.Contains(inviteeEmail, "@") {
		return models.Invitation{}, fmt.Errorf("%w: invalid invitee email", ErrInvalidArgument)
	}
	if inviteeEmail == strings.ToLower(user.Email) {
		return models.Invitation{}, fmt.Errorf("%w: cannot invite yourself", ErrInvalidArgument)
	}

	// One live invitation per canvas and email
	existing, err := s.Store.GetInvitationsByCanvas(ctx, canvasId)
	if err != nil {
		return models.Invitation{}, err
	}
	now := time.Now()
	for _, inv := range existing {
		if strings.EqualFold(inv.InviteeEmail, inviteeEmail) && s.livePending(ctx, inv, now) {
			return models.Invitation{}, fmt.Errorf("%w: pending invitation already exists for %s", ErrConflict, inviteeEmail)
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Invitation{}, err
	}

	return s.Store.CreateInvitation(ctx, models.Invitation{
		Id:           id.String(),
		CanvasId:     canvas.Id,
		InviterId:    user.Id,
		InviteeEmail: inviteeEmail,
		TierName:     tier.String(),
		Status:       models.InvitationPending,
		ExpiresAt:    now.Add(invitationLifetime).Unix(),
	})
}

// livePending reports whether an invitation is still pending and unexpired,
// flipping overdue rows to expired as a side effect.
func (s *Service) livePending(ctx context.Context, inv models.Invitation, now time.Time) bool {
	if inv.Status != models.InvitationPending {
		return false
	}
	if now.Unix() <= inv.ExpiresAt {
		return true
	}

	if _, err := s.Store.SetInvitationStatus(ctx, inv.Id, models.InvitationExpired); err != nil {
		log.Println("Error expiring invitation:", err)
	}
	return false
}

func (s *Service) AcceptInvitation(ctx context.Context, user models.User, invitationId string) (models.CanvasPermission, error) {
	inv, err := s.Store.GetInvitation(ctx, invitationId)
	if errors.Is(err, store.ErrItemNotFound) {
		return models.CanvasPermission{}, fmt.Errorf("%w: invitation %s", ErrNotFound, invitationId)
	}
	if err != nil {
		return models.CanvasPermission{}, err
	}

	if !strings.EqualFold(inv.InviteeEmail, user.Email) {
		return models.CanvasPermission{}, fmt.Errorf("%w: invitation is for another user", ErrForbidden)
	}
	if inv.Status != models.InvitationPending {
		return models.CanvasPermission{}, fmt.Errorf("%w: invitation is %s", ErrConflict, inv.Status)
	}
	if time.Now().Unix() > inv.ExpiresAt {
		if _, err := s.Store.SetInvitationStatus(ctx, inv.Id, models.InvitationExpired); err != nil {
			log.Println("Error expiring invitation:", err)
		}
		return models.CanvasPermission{}, fmt.Errorf("%w: invitation expired", ErrExpired)
	}

	if _, err := s.Store.SetInvitationStatus(ctx, inv.Id, models.InvitationAccepted); err != nil {
		return models.CanvasPermission{}, err
	}

	return s.Store.PutPermission(ctx, models.CanvasPermission{
		CanvasId:  inv.CanvasId,
		UserId:    user.Id,
		TierName:  inv.TierName,
		GrantedBy: inv.InviterId,
	})
}

// DeclineInvitation works on expired invitations too, so a stale list entry
// can still be dismissed.
func (s *Service) DeclineInvitation(ctx context.Context, user models.User, invitationId string) error {
	inv, err := s.Store.GetInvitation(ctx, invitationId)
	if errors.Is(err, store.ErrItemNotFound) {
		return fmt.Errorf("%w: invitation %s", ErrNotFound, invitationId)
	}
	if err != nil {
		return err
	}

	if !strings.EqualFold(inv.InviteeEmail, user.Email) {
		return fmt.Errorf("%w: invitation is for another user", ErrForbidden)
	}
	if inv.Status == models.InvitationAccepted || inv.Status == models.InvitationDeclined {
		return fmt.Errorf("%w: invitation is %s", ErrConflict, inv.Status)
	}

	_, err = s.Store.SetInvitationStatus(ctx, inv.Id, models.InvitationDeclined)
	return err
}

// ListUserInvitations returns the caller's live invitations: pending and not
// past their expiry.
func (s *Service) ListUserInvitations(ctx context.Context, user models.User) ([]models.Invitation, error) {
	all, err := s.Store.GetInvitationsByEmail(ctx, strings.ToLower(user.Email))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	live := make([]models.Invitation, 0, len(all))
	for _, inv := range all {
		if s.livePending(ctx, inv, now) {
			live = append(live, inv)
		}
	}
	return live, nil
}

func (s *Service) ListCanvasInvitations(ctx context.Context, user models.User, canvasId string) ([]models.Invitation, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierOwner); err != nil {
		return nil, err
	}

	all, err := s.Store.GetInvitationsByCanvas(ctx, canvasId)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	live := make([]models.Invitation, 0, len(all))
	for _, inv := range all {
		if s.livePending(ctx, inv, now) {
			live = append(live, inv)
		}
	}
	return live, nil
}
