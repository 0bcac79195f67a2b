package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrItemNotFound indicates the menu item does not exist in the catalog.
	ErrItemNotFound = errors.New("menu item not found")
	// ErrUnknownExtra indicates an extra id that the item does not offer.
	ErrUnknownExtra = errors.New("extra not offered for item")
)

// Catalog is a read-only index over a menu snapshot.
type Catalog struct {
	items []MenuItem
	byID  map[int64]int
}

// New indexes the provided items. Later duplicates of an id are ignored.
func New(items []MenuItem) *Catalog {
	c := &Catalog{
		items: append([]MenuItem(nil), items...),
		byID:  make(map[int64]int, len(items)),
	}
	for i, it := range c.items {
		if _, exists := c.byID[it.ID]; exists {
			continue
		}
		c.byID[it.ID] = i
	}
	return c
}

// Lookup returns the item with the given id.
func (c *Catalog) Lookup(id int64) (MenuItem, bool) {
	if c == nil {
		return MenuItem{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return MenuItem{}, false
	}
	return c.items[idx], true
}

// Items returns every item, optionally narrowed to one category slug.
func (c *Catalog) Items(categorySlug string) []MenuItem {
	if c == nil {
		return []MenuItem{}
	}
	slug := strings.TrimSpace(categorySlug)
	out := make([]MenuItem, 0, len(c.items))
	for _, it := range c.items {
		if slug != "" && !strings.EqualFold(it.CategorySlug, slug) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Len reports the number of indexed items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// ResolveExtras maps extra ids to the item's extras. Duplicate ids collapse.
func ResolveExtras(item MenuItem, ids []int64) ([]Extra, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	offered := make(map[int64]Extra, len(item.Extras))
	for _, e := range item.Extras {
		offered[e.ID] = e
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]Extra, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		extra, ok := offered[id]
		if !ok {
			return nil, fmt.Errorf("%w: item %d extra %d", ErrUnknownExtra, item.ID, id)
		}
		seen[id] = struct{}{}
		out = append(out, extra)
	}
	return out, nil
}
