// Package model defines the list entity shared by every store.
//
// Stores exchange values through the Entity interface. Each backing store
// has its own concrete record type that may carry extra fields (the item
// list); those fields survive a round trip through the same store but are
// dropped when an entity is converted through a representation that does
// not carry them, such as List.
package model

import (
	"fmt"
	"reflect"
	"strings"
)

// DefaultCategory is used when a list has no category or a blank one.
const DefaultCategory = "General"

// MaxNameLength is the longest list name any store accepts.
const MaxNameLength = 200

// Entity is the abstract shape of a shopping list.
type Entity interface {
	EntityID() int
	EntityName() string
	EntityCategory() string
}

// ItemCarrier is implemented by concrete entities that also carry items.
type ItemCarrier interface {
	EntityItems() []Item
}

// Item is one line of a shopping list.
type Item struct {
	Name     string `json:"name" yaml:"name"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// List is the plain value form of Entity. It carries no items.
type List struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (l List) EntityID() int          { return l.ID }
func (l List) EntityName() string     { return l.Name }
func (l List) EntityCategory() string { return l.Category }

// CategoryOrDefault returns DefaultCategory for a blank category.
func CategoryOrDefault(category string) string {
	if strings.TrimSpace(category) == "" {
		return DefaultCategory
	}
	return category
}

// ItemsOf returns a copy of the items carried by e, or nil when e does not
// carry any.
func ItemsOf(e Entity) []Item {
	c, ok := e.(ItemCarrier)
	if !ok {
		return nil
	}
	items := c.EntityItems()
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// IsNil reports whether e is nil or a typed nil pointer.
func IsNil(e Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Validate checks the fields every store schema requires.
// Violations wrap ErrUnsupportedEntity.
func Validate(e Entity) error {
	if IsNil(e) {
		return fmt.Errorf("%w: nil entity", ErrUnsupportedEntity)
	}
	if e.EntityID() < 0 {
		return fmt.Errorf("%w: id must not be negative (got %d)", ErrUnsupportedEntity, e.EntityID())
	}
	name := e.EntityName()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrUnsupportedEntity)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name must be %d characters or less (got %d)", ErrUnsupportedEntity, MaxNameLength, len(name))
	}
	for _, it := range ItemsOf(e) {
		if it.Quantity < 0 {
			return fmt.Errorf("%w: item %q has negative quantity %d", ErrUnsupportedEntity, it.Name, it.Quantity)
		}
	}
	return nil
}
