package store

import (
	"context"
	"errors"

	"github.com/nkazmin/liveboard/models"
)

// LiveboardStore is the durable storage contract. Single-row CRUD plus
// equality-filtered listings; no joins or multi-row transactions.
type LiveboardStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, userId string) (models.User, error)

	CreateCanvas(ctx context.Context, canvas models.Canvas) (models.Canvas, error)
	GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error)
	UpdateCanvas(ctx context.Context, canvas models.Canvas) (models.Canvas, error)
	DeleteCanvas(ctx context.Context, canvasId string) error
	GetCanvasesByOwner(ctx context.Context, ownerId string) ([]models.Canvas, error)
	GetPublicCanvases(ctx context.Context) ([]models.Canvas, error)
	GetCanvasesSharedWith(ctx context.Context, userId string) ([]models.Canvas, error)

	CreateObject(ctx context.Context, object models.CanvasObject) (models.CanvasObject, error)
	GetObject(ctx context.Context, canvasId string, objectId string) (models.CanvasObject, error)
	UpdateObjectProperties(ctx context.Context, canvasId string, objectId string, properties []byte, updated int64) (models.CanvasObject, error)
	DeleteObject(ctx context.Context, canvasId string, objectId string) error
	GetCanvasObjects(ctx context.Context, canvasId string) ([]models.CanvasObject, error)
	DeleteCanvasRows(ctx context.Context, canvasId string) error

	PutPermission(ctx context.Context, perm models.CanvasPermission) (models.CanvasPermission, error)
	GetPermission(ctx context.Context, canvasId string, userId string) (models.CanvasPermission, error)
	DeletePermission(ctx context.Context, canvasId string, userId string) error
	GetCanvasPermissions(ctx context.Context, canvasId string) ([]models.CanvasPermission, error)

	CreateInvitation(ctx context.Context, inv models.Invitation) (models.Invitation, error)
	GetInvitation(ctx context.Context, invitationId string) (models.Invitation, error)
	SetInvitationStatus(ctx context.Context, invitationId string, status models.InvitationStatus) (models.Invitation, error)
	GetInvitationsByEmail(ctx context.Context, email string) ([]models.Invitation, error)
	GetInvitationsByCanvas(ctx context.Context, canvasId string) ([]models.Invitation, error)
	DeleteInvitation(ctx context.Context, invitationId string) error
}

var (
	ErrItemNotFound    = errors.New("item does not exist")
	ErrConditionFailed = errors.New("condition not met")
)
