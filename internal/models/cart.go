// internal/models/cart.go
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OwnerKind string

const (
	OwnerKindUser      OwnerKind = "user"
	OwnerKindAnonymous OwnerKind = "anonymous"
)

var ErrInvalidOwner = errors.New("cart: invalid owner")

// Owner identifies who a cart belongs to: either an authenticated user or an
// anonymous session, never both. Build one with UserOwner or AnonymousOwner.
type Owner struct {
	kind OwnerKind
	key  string
}

func UserOwner(userID uuid.UUID) Owner {
	return Owner{kind: OwnerKindUser, key: userID.String()}
}

func AnonymousOwner(sessionID string) Owner {
	return Owner{kind: OwnerKindAnonymous, key: strings.TrimSpace(sessionID)}
}

func (o Owner) Kind() OwnerKind { return o.kind }
func (o Owner) Key() string     { return o.key }

func (o Owner) IsUser() bool      { return o.kind == OwnerKindUser }
func (o Owner) IsAnonymous() bool { return o.kind == OwnerKindAnonymous }

// UserID returns the user id for user-owned carts.
func (o Owner) UserID() (uuid.UUID, bool) {
	if o.kind != OwnerKindUser {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(o.key)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (o Owner) Validate() error {
	switch o.kind {
	case OwnerKindUser:
		if id, ok := o.UserID(); !ok || id == uuid.Nil {
			return ErrInvalidOwner
		}
	case OwnerKindAnonymous:
		if o.key == "" {
			return ErrInvalidOwner
		}
	default:
		return ErrInvalidOwner
	}
	return nil
}

func (o Owner) String() string { return string(o.kind) + ":" + o.key }

// Cart is persisted as (owner_kind, owner_key); unique per owner.
type Cart struct {
	BaseModel
	OwnerKind OwnerKind  `json:"owner_kind" gorm:"type:varchar(16);not null;uniqueIndex:idx_carts_owner"`
	OwnerKey  string     `json:"-" gorm:"size:128;not null;uniqueIndex:idx_carts_owner"`
	Lines     []CartLine `json:"lines,omitempty" gorm:"foreignKey:CartID"`
}

func NewCart(owner Owner) *Cart {
	return &Cart{OwnerKind: owner.kind, OwnerKey: owner.key}
}

func (c *Cart) Owner() Owner {
	return Owner{kind: c.OwnerKind, key: c.OwnerKey}
}

type CartLine struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CartID    uuid.UUID `json:"cart_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_lines_product"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_lines_product"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *CartLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
