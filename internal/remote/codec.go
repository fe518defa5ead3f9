package remote

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// Attribute names of a list item in the table.
const (
	attrID       = "id"
	attrName     = "name"
	attrCategory = "category"
	attrItems    = "itemsJson"
)

// Record is the remote representation of a list. It keeps items.
type Record struct {
	ID       int
	Name     string
	Category string
	Items    []model.Item
}

func (r *Record) EntityID() int             { return r.ID }
func (r *Record) EntityName() string        { return r.Name }
func (r *Record) EntityCategory() string    { return r.Category }
func (r *Record) EntityItems() []model.Item { return r.Items }

// ToRecord converts any entity into a Record. Items are kept when e
// carries them. The table is keyed by id, so e must already have one.
func ToRecord(e model.Entity) (*Record, error) {
	if err := model.Validate(e); err != nil {
		return nil, err
	}
	if e.EntityID() == 0 {
		return nil, fmt.Errorf("%w: id is required", model.ErrUnsupportedEntity)
	}
	return &Record{
		ID:       e.EntityID(),
		Name:     e.EntityName(),
		Category: model.CategoryOrDefault(e.EntityCategory()),
		Items:    model.ItemsOf(e),
	}, nil
}

func keyOf(id int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID: &types.AttributeValueMemberN{Value: strconv.Itoa(id)},
	}
}

// encodeItem builds the attribute map written by PutItem.
func encodeItem(r *Record) (map[string]types.AttributeValue, error) {
	items := r.Items
	if items == nil {
		items = []model.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal items: %w", err)
	}

	return map[string]types.AttributeValue{
		attrID:       &types.AttributeValueMemberN{Value: strconv.Itoa(r.ID)},
		attrName:     &types.AttributeValueMemberS{Value: r.Name},
		attrCategory: &types.AttributeValueMemberS{Value: r.Category},
		attrItems:    &types.AttributeValueMemberS{Value: string(data)},
	}, nil
}

// decodeItem reads an attribute map. A missing name decodes to "", a
// missing category to model.DefaultCategory, and missing or unreadable
// itemsJson to no items. Only the key attribute is required.
func decodeItem(item map[string]types.AttributeValue) (*Record, error) {
	n, ok := item[attrID].(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("item has no numeric %q attribute", attrID)
	}
	id, err := strconv.Atoi(n.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid %q attribute %q: %w", attrID, n.Value, err)
	}

	return &Record{
		ID:       id,
		Name:     stringAttr(item, attrName),
		Category: model.CategoryOrDefault(stringAttr(item, attrCategory)),
		Items:    decodeItemsJSON(stringAttr(item, attrItems)),
	}, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// wireItem accepts both {"name","quantity"} and the older
// {"first","second"} pair encoding.
type wireItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	First    string `json:"first"`
	Second   int    `json:"second"`
}

func decodeItemsJSON(s string) []model.Item {
	if s == "" {
		return nil
	}
	var wire []wireItem
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return nil
	}
	if len(wire) == 0 {
		return nil
	}

	items := make([]model.Item, 0, len(wire))
	for _, w := range wire {
		if w.Name == "" && w.First != "" {
			items = append(items, model.Item{Name: w.First, Quantity: w.Second})
			continue
		}
		items = append(items, model.Item{Name: w.Name, Quantity: w.Quantity})
	}
	return items
}
