package model

import "strings"

// commonItems is the fixed suggestion vocabulary.
var commonItems = []string{"Milk", "Eggs", "Bread", "Apples", "Chicken"}

// Suggest returns the common items whose name contains query,
// ignoring case. The result keeps vocabulary order and never touches a store.
func Suggest(query string) []string {
	q := strings.ToLower(query)
	out := make([]string, 0, len(commonItems))
	for _, item := range commonItems {
		if strings.Contains(strings.ToLower(item), q) {
			out = append(out, item)
		}
	}
	return out
}
