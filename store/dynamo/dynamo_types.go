package dynamo

import (
	"strings"

	"github.com/nkazmin/liveboard/models"
)

// Single-table layout:
//
//	USER#<id>        / PROFILE
//	CANVAS#<id>      / META
//	CANVAS#<id>      / OBJECT#<uuidv7>
//	CANVAS#<id>      / PERM#<userId>
//	INVITATION#<id>  / META
//
// GSIs: GSI_Owner (OwnerId), GSI_Visibility (Visibility),
// GSI_PermUser (UserId on PERM rows), GSI_InviteeEmail (InviteeEmail),
// GSI_InviteCanvas (CanvasId on invitation rows).

const (
	skProfile      = "PROFILE"
	skMeta         = "META"
	skObjectPrefix = "OBJECT#"
	skPermPrefix   = "PERM#"
)

func userPK(userId string) string       { return "USER#" + userId }
func canvasPK(canvasId string) string   { return "CANVAS#" + canvasId }
func invitationPK(invId string) string  { return "INVITATION#" + invId }
func objectSK(objectId string) string   { return skObjectPrefix + objectId }
func permissionSK(userId string) string { return skPermPrefix + userId }

type dynamoUser struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Id        string `dynamodbav:"Id"`
	Email     string `dynamodbav:"Email"`
	Name      string `dynamodbav:"Name"`
	AvatarURL string `dynamodbav:"AvatarURL"`
	Created   int64  `dynamodbav:"Created"`
}

func userToDynamo(u models.User) dynamoUser {
	return dynamoUser{
		PK:        userPK(u.Id),
		SK:        skProfile,
		Id:        u.Id,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Created:   u.Created,
	}
}

func userFromDynamo(du dynamoUser) models.User {
	return models.User{
		Id:        du.Id,
		Email:     du.Email,
		Name:      du.Name,
		AvatarURL: du.AvatarURL,
		Created:   du.Created,
	}
}

type dynamoCanvas struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Id          string `dynamodbav:"Id"`
	Title       string `dynamodbav:"Title"`
	Description string `dynamodbav:"Description"`
	OwnerId     string `dynamodbav:"OwnerId"`
	Visibility  string `dynamodbav:"Visibility"`
	Created     int64  `dynamodbav:"Created"`
	Updated     int64  `dynamodbav:"Updated"`
}

func canvasToDynamo(c models.Canvas) dynamoCanvas {
	return dynamoCanvas{
		PK:          canvasPK(c.Id),
		SK:          skMeta,
		Id:          c.Id,
		Title:       c.Title,
		Description: c.Description,
		OwnerId:     c.OwnerId,
		Visibility:  string(c.Visibility),
		Created:     c.Created,
		Updated:     c.Updated,
	}
}

func canvasFromDynamo(dc dynamoCanvas) models.Canvas {
	return models.Canvas{
		Id:          dc.Id,
		Title:       dc.Title,
		Description: dc.Description,
		OwnerId:     dc.OwnerId,
		Visibility:  models.Visibility(dc.Visibility),
		Created:     dc.Created,
		Updated:     dc.Updated,
	}
}

type dynamoObject struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	ObjectType string `dynamodbav:"ObjectType"`
	Properties []byte `dynamodbav:"Properties"`
	CreatedBy  string `dynamodbav:"CreatedBy"`
	Created    int64  `dynamodbav:"Created"`
	Updated    int64  `dynamodbav:"Updated"`
}

func objectToDynamo(o models.CanvasObject) dynamoObject {
	return dynamoObject{
		PK:         canvasPK(o.CanvasId),
		SK:         objectSK(o.Id),
		ObjectType: string(o.Type),
		Properties: o.Properties,
		CreatedBy:  o.CreatedBy,
		Created:    o.Created,
		Updated:    o.Updated,
	}
}

func objectFromDynamo(do dynamoObject) models.CanvasObject {
	return models.CanvasObject{
		Id:         strings.TrimPrefix(do.SK, skObjectPrefix),
		CanvasId:   strings.TrimPrefix(do.PK, "CANVAS#"),
		Type:       models.ObjectType(do.ObjectType),
		Properties: do.Properties,
		CreatedBy:  do.CreatedBy,
		Created:    do.Created,
		Updated:    do.Updated,
	}
}

type dynamoPermission struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	UserId    string `dynamodbav:"UserId"`
	TierName  string `dynamodbav:"TierName"`
	GrantedBy string `dynamodbav:"GrantedBy"`
	Created   int64  `dynamodbav:"Created"`
}

func permissionToDynamo(p models.CanvasPermission) dynamoPermission {
	return dynamoPermission{
		PK:        canvasPK(p.CanvasId),
		SK:        permissionSK(p.UserId),
		UserId:    p.UserId,
		TierName:  p.TierName,
		GrantedBy: p.GrantedBy,
		Created:   p.Created,
	}
}

func permissionFromDynamo(dp dynamoPermission) models.CanvasPermission {
	return models.CanvasPermission{
		CanvasId:  strings.TrimPrefix(dp.PK, "CANVAS#"),
		UserId:    dp.UserId,
		TierName:  dp.TierName,
		GrantedBy: dp.GrantedBy,
		Created:   dp.Created,
	}
}

type dynamoInvitation struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	Id           string `dynamodbav:"Id"`
	CanvasId     string `dynamodbav:"CanvasId"`
	InviterId    string `dynamodbav:"InviterId"`
	InviteeEmail string `dynamodbav:"InviteeEmail"`
	TierName     string `dynamodbav:"TierName"`
	Status       string `dynamodbav:"Status"`
	ExpiresAt    int64  `dynamodbav:"ExpiresAt"`
	Created      int64  `dynamodbav:"Created"`
}

func invitationToDynamo(i models.Invitation) dynamoInvitation {
	return dynamoInvitation{
		PK:           invitationPK(i.Id),
		SK:           skMeta,
		Id:           i.Id,
		CanvasId:     i.CanvasId,
		InviterId:    i.InviterId,
		InviteeEmail: i.InviteeEmail,
		TierName:     i.TierName,
		Status:       string(i.Status),
		ExpiresAt:    i.ExpiresAt,
		Created:      i.Created,
	}
}

func invitationFromDynamo(di dynamoInvitation) models.Invitation {
	return models.Invitation{
		Id:           di.Id,
		CanvasId:     di.CanvasId,
		InviterId:    di.InviterId,
		InviteeEmail: di.InviteeEmail,
		TierName:     di.TierName,
		Status:       models.InvitationStatus(di.Status),
		ExpiresAt:    di.ExpiresAt,
		Created:      di.Created,
	}
}
