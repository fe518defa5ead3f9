package localstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// GroceryList is the local store's row type. Besides the abstract list
// fields it keeps the item list and the time of the last local write.
type GroceryList struct {
	ID        int          `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	Category  string       `json:"category" yaml:"category"`
	Items     []model.Item `json:"items,omitempty" yaml:"items,omitempty"`
	UpdatedAt time.Time    `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

func (g *GroceryList) EntityID() int             { return g.ID }
func (g *GroceryList) EntityName() string        { return g.Name }
func (g *GroceryList) EntityCategory() string    { return g.Category }
func (g *GroceryList) EntityItems() []model.Item { return g.Items }

// ToGroceryList converts any entity into the local row type.
//
// Items are kept when e carries them and are empty otherwise. A blank
// category becomes model.DefaultCategory. Entities the schema cannot hold
// fail with model.ErrUnsupportedEntity.
func ToGroceryList(e model.Entity) (*GroceryList, error) {
	if err := model.Validate(e); err != nil {
		return nil, err
	}
	return &GroceryList{
		ID:       e.EntityID(),
		Name:     e.EntityName(),
		Category: model.CategoryOrDefault(e.EntityCategory()),
		Items:    model.ItemsOf(e),
	}, nil
}

// encodeItems serializes items for the items column.
func encodeItems(items []model.Item) (string, error) {
	if items == nil {
		items = []model.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal items: %w", err)
	}
	return string(data), nil
}

// decodeItems parses the items column. Empty or null columns decode to nil.
func decodeItems(s string) ([]model.Item, error) {
	if s == "" || s == "null" || s == "[]" {
		return nil, nil
	}
	var items []model.Item
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	return items, nil
}
