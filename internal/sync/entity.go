package sync

import "github.com/helpmebuyapp/helpmebuy/internal/model"

// entity is a private copy of a list taken at write time, so a caller
// reusing its value cannot change what the background task sends.
type entity struct {
	ID       int
	Name     string
	Category string
	Items    []model.Item
}

func (e *entity) EntityID() int             { return e.ID }
func (e *entity) EntityName() string        { return e.Name }
func (e *entity) EntityCategory() string    { return e.Category }
func (e *entity) EntityItems() []model.Item { return e.Items }

// detach copies e under the given id. Items are copied when e carries them.
func detach(e model.Entity, id int) *entity {
	return &entity{
		ID:       id,
		Name:     e.EntityName(),
		Category: e.EntityCategory(),
		Items:    model.ItemsOf(e),
	}
}
