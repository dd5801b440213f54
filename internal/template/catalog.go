// Package template holds the catalog of reusable event blueprints. Entries
// are immutable stamps for creating events; they are never scheduled
// directly.
package template

import (
	"errors"
	"fmt"
	"sync"
)

var ErrTemplateNotFound = errors.New("template not found")

// Template is a (title, duration) blueprint for quick placement.
type Template struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Defaults are the built-in blueprints shipped when no catalog is
// configured.
func Defaults() []Template {
	return []Template{
		{ID: "template_1", Title: "1 Hour Event", DurationMinutes: 60},
		{ID: "template_2", Title: "2 Hour Event", DurationMinutes: 120},
	}
}

// Catalog is a read-only enumeration for the placement engine. Replace()
// swaps the whole set atomically on config reload; individual entries never
// mutate.
type Catalog struct {
	mu    sync.RWMutex
	items []Template
	byID  map[string]Template
}

// NewCatalog validates and installs the initial set. An empty set falls
// back to Defaults().
func NewCatalog(items []Template) (*Catalog, error) {
	c := &Catalog{}
	if len(items) == 0 {
		items = Defaults()
	}
	if err := c.Replace(items); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps the catalog contents. The new set is validated as a whole;
// on error the previous set stays installed.
func (c *Catalog) Replace(items []Template) error {
	byID := make(map[string]Template, len(items))
	for _, t := range items {
		if t.ID == "" {
			return fmt.Errorf("template %q: id is required", t.Title)
		}
		if t.DurationMinutes <= 0 {
			return fmt.Errorf("template %q: duration must be a positive number of minutes, got %d", t.ID, t.DurationMinutes)
		}
		if _, dup := byID[t.ID]; dup {
			return fmt.Errorf("template id %q appears twice", t.ID)
		}
		byID[t.ID] = t
	}

	c.mu.Lock()
	c.items = append([]Template(nil), items...)
	c.byID = byID
	c.mu.Unlock()
	return nil
}

// FindByID returns the blueprint for the given id.
func (c *Catalog) FindByID(id string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byID[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}

// List returns the catalog in configured order.
func (c *Catalog) List() []Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Template(nil), c.items...)
}
