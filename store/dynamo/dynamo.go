package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/nkazmin/liveboard/models"
)

type DynamoLiveboardStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoLiveboardStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoLiveboardStore, error) {
	client, err := newDynamoDBClient(ctx, devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoLiveboardStore{client: client, tableName: tableName}, nil
}

// Users

func (ds *DynamoLiveboardStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	du := userToDynamo(user)
	du.Created = time.Now().Unix()

	// First-auth registration can race across connections; the stored row wins.
	du, _, err := ensureItem(ds, ctx, du)
	if err != nil {
		return models.User{}, err
	}

	return userFromDynamo(du), nil
}

func (ds *DynamoLiveboardStore) GetUser(ctx context.Context, userId string) (models.User, error) {
	du, err := getItem[dynamoUser](ds, ctx, userPK(userId), skProfile)
	if err != nil {
		return models.User{}, err
	}
	return userFromDynamo(du), nil
}

// Canvases

func (ds *DynamoLiveboardStore) CreateCanvas(ctx context.Context, canvas models.Canvas) (models.Canvas, error) {
	dc := canvasToDynamo(canvas)
	now := time.Now().Unix()
	dc.Created = now
	dc.Updated = now

	dc, _, err := ensureItem(ds, ctx, dc)
	if err != nil {
		return models.Canvas{}, err
	}
	return canvasFromDynamo(dc), nil
}

func (ds *DynamoLiveboardStore) GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error) {
	dc, err := getItem[dynamoCanvas](ds, ctx, canvasPK(canvasId), skMeta)
	if err != nil {
		return models.Canvas{}, err
	}
	return canvasFromDynamo(dc), nil
}

func (ds *DynamoLiveboardStore) UpdateCanvas(ctx context.Context, canvas models.Canvas) (models.Canvas, error) {
	dc := canvasToDynamo(canvas)
	dc.Updated = time.Now().Unix()

	dc, err := updateItemFields(ds, ctx, dc, []string{"Title", "Description", "Visibility", "Updated"})
	if err != nil {
		return models.Canvas{}, err
	}
	return canvasFromDynamo(dc), nil
}

func (ds *DynamoLiveboardStore) DeleteCanvas(ctx context.Context, canvasId string) error {
	return deleteExistingItem(ds, ctx, canvasPK(canvasId), skMeta)
}

func (ds *DynamoLiveboardStore) GetCanvasesByOwner(ctx context.Context, ownerId string) ([]models.Canvas, error) {
	items, err := queryByGSI[dynamoCanvas](ds, ctx, "GSI_Owner", "OwnerId", ownerId)
	if err != nil {
		return nil, err
	}

	canvases := make([]models.Canvas, 0, len(items))
	for _, dc := range items {
		canvases = append(canvases, canvasFromDynamo(dc))
	}
	return canvases, nil
}

func (ds *DynamoLiveboardStore) GetPublicCanvases(ctx context.Context) ([]models.Canvas, error) {
	items, err := queryByGSI[dynamoCanvas](ds, ctx, "GSI_Visibility", "Visibility", string(models.VisibilityPublic))
	if err != nil {
		return nil, err
	}

	canvases := make([]models.Canvas, 0, len(items))
	for _, dc := range items {
		canvases = append(canvases, canvasFromDynamo(dc))
	}
	return canvases, nil
}

func (ds *DynamoLiveboardStore) GetCanvasesSharedWith(ctx context.Context, userId string) ([]models.Canvas, error) {
	perms, err := queryByGSI[dynamoPermission](ds, ctx, "GSI_PermUser", "UserId", userId)
	if err != nil {
		return nil, err
	}

	canvases := make([]models.Canvas, 0, len(perms))
	for _, dp := range perms {
		canvas, err := ds.GetCanvas(ctx, permissionFromDynamo(dp).CanvasId)
		if err != nil {
			// Permission rows can outlive a canvas mid-cascade
			continue
		}
		canvases = append(canvases, canvas)
	}
	return canvases, nil
}

// Objects

func (ds *DynamoLiveboardStore) CreateObject(ctx context.Context, object models.CanvasObject) (models.CanvasObject, error) {
	do := objectToDynamo(object)
	now := time.Now().Unix()
	do.Created = now
	do.Updated = now

	if err := putItem(ds, ctx, do); err != nil {
		return models.CanvasObject{}, err
	}
	return objectFromDynamo(do), nil
}

func (ds *DynamoLiveboardStore) GetObject(ctx context.Context, canvasId string, objectId string) (models.CanvasObject, error) {
	do, err := getItem[dynamoObject](ds, ctx, canvasPK(canvasId), objectSK(objectId))
	if err != nil {
		return models.CanvasObject{}, err
	}
	return objectFromDynamo(do), nil
}

// UpdateObjectProperties overwrites the properties payload in place.
// There is no version check: the storage write order is the last-writer-wins
// tiebreak for concurrent updates.
func (ds *DynamoLiveboardStore) UpdateObjectProperties(ctx context.Context, canvasId string, objectId string, properties []byte, updated int64) (models.CanvasObject, error) {
	do := dynamoObject{
		PK:         canvasPK(canvasId),
		SK:         objectSK(objectId),
		Properties: properties,
		Updated:    updated,
	}

	do, err := updateItemFields(ds, ctx, do, []string{"Properties", "Updated"})
	if err != nil {
		return models.CanvasObject{}, err
	}
	return objectFromDynamo(do), nil
}

func (ds *DynamoLiveboardStore) DeleteObject(ctx context.Context, canvasId string, objectId string) error {
	return deleteExistingItem(ds, ctx, canvasPK(canvasId), objectSK(objectId))
}

func (ds *DynamoLiveboardStore) GetCanvasObjects(ctx context.Context, canvasId string) ([]models.CanvasObject, error) {
	items, err := queryByPKPrefix[dynamoObject](ds, ctx, canvasPK(canvasId), skObjectPrefix)
	if err != nil {
		return nil, err
	}

	// SK order is uuidv7 order, i.e. creation time
	objects := make([]models.CanvasObject, 0, len(items))
	for _, do := range items {
		objects = append(objects, objectFromDynamo(do))
	}
	return objects, nil
}

// DeleteCanvasRows removes every row in the canvas partition (meta, objects,
// permissions). Used by the cascade worker after the meta row is gone.
func (ds *DynamoLiveboardStore) DeleteCanvasRows(ctx context.Context, canvasId string) error {
	return batchDeletePartitionThrottled(ds, ctx, canvasPK(canvasId), 50*time.Millisecond)
}

// Permissions

func (ds *DynamoLiveboardStore) PutPermission(ctx context.Context, perm models.CanvasPermission) (models.CanvasPermission, error) {
	dp := permissionToDynamo(perm)
	if dp.Created == 0 {
		dp.Created = time.Now().Unix()
	}

	if err := putItem(ds, ctx, dp); err != nil {
		return models.CanvasPermission{}, err
	}
	return permissionFromDynamo(dp), nil
}

func (ds *DynamoLiveboardStore) GetPermission(ctx context.Context, canvasId string, userId string) (models.CanvasPermission, error) {
	dp, err := getItem[dynamoPermission](ds, ctx, canvasPK(canvasId), permissionSK(userId))
	if err != nil {
		return models.CanvasPermission{}, err
	}
	return permissionFromDynamo(dp), nil
}

func (ds *DynamoLiveboardStore) DeletePermission(ctx context.Context, canvasId string, userId string) error {
	return deleteExistingItem(ds, ctx, canvasPK(canvasId), permissionSK(userId))
}

func (ds *DynamoLiveboardStore) GetCanvasPermissions(ctx context.Context, canvasId string) ([]models.CanvasPermission, error) {
	items, err := queryByPKPrefix[dynamoPermission](ds, ctx, canvasPK(canvasId), skPermPrefix)
	if err != nil {
		return nil, err
	}

	perms := make([]models.CanvasPermission, 0, len(items))
	for _, dp := range items {
		perms = append(perms, permissionFromDynamo(dp))
	}
	return perms, nil
}

// Invitations

func (ds *DynamoLiveboardStore) CreateInvitation(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	di := invitationToDynamo(inv)
	di.Created = time.Now().Unix()

	di, _, err := ensureItem(ds, ctx, di)
	if err != nil {
		return models.Invitation{}, err
	}
	return invitationFromDynamo(di), nil
}

func (ds *DynamoLiveboardStore) GetInvitation(ctx context.Context, invitationId string) (models.Invitation, error) {
	di, err := getItem[dynamoInvitation](ds, ctx, invitationPK(invitationId), skMeta)
	if err != nil {
		return models.Invitation{}, err
	}
	return invitationFromDynamo(di), nil
}

func (ds *DynamoLiveboardStore) SetInvitationStatus(ctx context.Context, invitationId string, status models.InvitationStatus) (models.Invitation, error) {
	di := dynamoInvitation{
		PK:     invitationPK(invitationId),
		SK:     skMeta,
		Status: string(status),
	}

	di, err := updateItemFields(ds, ctx, di, []string{"Status"})
	if err != nil {
		return models.Invitation{}, err
	}
	return invitationFromDynamo(di), nil
}

func (ds *DynamoLiveboardStore) GetInvitationsByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	items, err := queryByGSI[dynamoInvitation](ds, ctx, "GSI_InviteeEmail", "InviteeEmail", email)
	if err != nil {
		return nil, err
	}

	invitations := make([]models.Invitation, 0, len(items))
	for _, di := range items {
		invitations = append(invitations, invitationFromDynamo(di))
	}
	return invitations, nil
}

func (ds *DynamoLiveboardStore) GetInvitationsByCanvas(ctx context.Context, canvasId string) ([]models.Invitation, error) {
	items, err := queryByGSI[dynamoInvitation](ds, ctx, "GSI_InviteCanvas", "CanvasId", canvasId)
	if err != nil {
		return nil, err
	}

	invitations := make([]models.Invitation, 0, len(items))
	for _, di := range items {
		invitations = append(invitations, invitationFromDynamo(di))
	}
	return invitations, nil
}

func (ds *DynamoLiveboardStore) DeleteInvitation(ctx context.Context, invitationId string) error {
	return deleteExistingItem(ds, ctx, invitationPK(invitationId), skMeta)
}
