package models

import "encoding/json"

type User struct {
	Id        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Created   int64  `json:"created_at"`
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Canvas struct {
	Id          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OwnerId     string     `json:"owner_id"`
	Visibility  Visibility `json:"visibility"`
	Created     int64      `json:"created_at"`
	Updated     int64      `json:"updated_at"`
}

type ObjectType string

const (
	ObjectRectangle ObjectType = "rectangle"
	ObjectCircle    ObjectType = "circle"
	ObjectText      ObjectType = "text"
)

// ValidObjectType reports whether t belongs to the closed object type set.
func ValidObjectType(t ObjectType) bool {
	switch t {
	case ObjectRectangle, ObjectCircle, ObjectText:
		return true
	}
	return false
}

type CanvasObject struct {
	Id         string          `json:"id"`
	CanvasId   string          `json:"canvas_id"`
	Type       ObjectType      `json:"type"`
	Properties json.RawMessage `json:"properties"`
	CreatedBy  string          `json:"created_by"`
	Created    int64           `json:"created_at"`
	Updated    int64           `json:"updated_at"`
}

// PermissionTier orders access levels so callers can compare with >=.
type PermissionTier int

const (
	TierNone PermissionTier = iota
	TierView
	TierEdit
	TierOwner
)

func (t PermissionTier) String() string {
	switch t {
	case TierView:
		return "view"
	case TierEdit:
		return "edit"
	case TierOwner:
		return "owner"
	}
	return "none"
}

// ParseTier maps the wire names used by invitations and permission rows.
// Owner tier is implicit from Canvas.OwnerId and is never stored or parsed.
func ParseTier(s string) (PermissionTier, bool) {
	switch s {
	case "view":
		return TierView, true
	case "edit":
		return TierEdit, true
	}
	return TierNone, false
}

type CanvasPermission struct {
	CanvasId  string `json:"canvas_id"`
	UserId    string `json:"user_id"`
	TierName  string `json:"permission_type"`
	GrantedBy string `json:"granted_by"`
	Created   int64  `json:"created_at"`
}

// Tier resolves the stored tier name; unknown names degrade to none.
func (p CanvasPermission) Tier() PermissionTier {
	tier, _ := ParseTier(p.TierName)
	return tier
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

type Invitation struct {
	Id           string           `json:"id"`
	CanvasId     string           `json:"canvas_id"`
	InviterId    string           `json:"inviter_id"`
	InviteeEmail string           `json:"invitee_email"`
	TierName     string           `json:"permission_type"`
	Status       InvitationStatus `json:"status"`
	ExpiresAt    int64            `json:"expires_at"`
	Created      int64            `json:"created_at"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceEntry is the ephemeral "who is online" record. It lives only in
// the presence cache under a TTL and is never written to durable storage.
type PresenceEntry struct {
	UserId    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	AvatarURL string `json:"avatar_url"`
	Timestamp int64  `json:"timestamp"`
}

type CursorEntry struct {
	UserId    string   `json:"user_id"`
	UserName  string   `json:"user_name"`
	Position  Position `json:"position"`
	Timestamp int64    `json:"timestamp"`
}
