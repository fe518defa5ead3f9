package model

import (
	"errors"
	"strings"
	"testing"
)

type itemList struct {
	List
	Items []Item
}

func (l *itemList) EntityItems() []Item { return l.Items }

func TestSuggest(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"mi", []string{"Milk"}},
		{"MI", []string{"Milk"}},
		{"e", []string{"Eggs", "Bread", "Apples", "Chicken"}},
		{"", []string{"Milk", "Eggs", "Bread", "Apples", "Chicken"}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		got := Suggest(tt.query)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Suggest(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestSuggest_Repeatable(t *testing.T) {
	first := Suggest("mi")
	for i := 0; i < 3; i++ {
		if got := Suggest("mi"); strings.Join(got, ",") != strings.Join(first, ",") {
			t.Fatalf("Suggest not deterministic: %v vs %v", got, first)
		}
	}
}

func TestCategoryOrDefault(t *testing.T) {
	for in, want := range map[string]string{
		"":       DefaultCategory,
		"  ":     DefaultCategory,
		"Pantry": "Pantry",
	} {
		if got := CategoryOrDefault(in); got != want {
			t.Errorf("CategoryOrDefault(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestItemsOf_Copies(t *testing.T) {
	src := &itemList{List: List{ID: 1, Name: "A"}, Items: []Item{{Name: "Milk", Quantity: 2}}}
	items := ItemsOf(src)
	items[0].Quantity = 99
	if src.Items[0].Quantity != 2 {
		t.Errorf("ItemsOf returned a shared slice")
	}
}

func TestValidate(t *testing.T) {
	var nilList *List

	tests := []struct {
		name    string
		entity  Entity
		wantErr bool
	}{
		{"valid", List{Name: "Groceries"}, false},
		{"nil", nil, true},
		{"typed nil", nilList, true},
		{"blank name", List{Name: "   "}, true},
		{"negative id", List{ID: -1, Name: "A"}, true},
		{"long name", List{Name: strings.Repeat("x", MaxNameLength+1)}, true},
		{"negative quantity", &itemList{List: List{Name: "A"}, Items: []Item{{Name: "Eggs", Quantity: -1}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.entity)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupportedEntity) {
				t.Errorf("error %v does not wrap ErrUnsupportedEntity", err)
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote(ErrRemoteUnavailable) || !IsRemote(ErrRemote) {
		t.Error("remote sentinels should be remote")
	}
	if IsRemote(ErrLocalStore) {
		t.Error("local store error should not be remote")
	}
}
