package domain

import (
	"fmt"
	"strings"
)

type ownerKind uint8

const (
	ownerNone ownerKind = iota
	ownerUser
	ownerAnonymous
)

// CartOwner 是购物车的归属：登录用户或匿名会话，二者只能取其一。
// 零值不属于任何人，只能通过 UserOwner / AnonymousOwner 构造有效值。
type CartOwner struct {
	kind   ownerKind
	userID int64
	token  string
}

func UserOwner(userID int64) CartOwner {
	if userID <= 0 {
		return CartOwner{}
	}
	return CartOwner{kind: ownerUser, userID: userID}
}

func AnonymousOwner(sessionToken string) CartOwner {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return CartOwner{}
	}
	return CartOwner{kind: ownerAnonymous, token: sessionToken}
}

func (o CartOwner) IsZero() bool { return o.kind == ownerNone }

func (o CartOwner) IsUser() bool { return o.kind == ownerUser }

func (o CartOwner) IsAnonymous() bool { return o.kind == ownerAnonymous }

// UserID 仅在归属为登录用户时返回 true。
func (o CartOwner) UserID() (int64, bool) {
	return o.userID, o.kind == ownerUser
}

// SessionToken 仅在归属为匿名会话时返回 true。
func (o CartOwner) SessionToken() (string, bool) {
	return o.token, o.kind == ownerAnonymous
}

func (o CartOwner) String() string {
	switch o.kind {
	case ownerUser:
		return fmt.Sprintf("user:%d", o.userID)
	case ownerAnonymous:
		return "session:" + o.token
	default:
		return "none"
	}
}
