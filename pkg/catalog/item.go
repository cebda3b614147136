/*
Package catalog loads snapshots of the book catalog that the search engine
indexes.

A catalog is a JSON array of items. Every field is optional; items that end up
with no indexable text after sanitizing are dropped:

	[
	  {"id": "42", "title": "Пригоди кота", "author": "Іван Франко",
	   "category": "казки", "keywords": ["кіт", "ліс"],
	   "description": "<p>Весела історія про кота</p>"}
	]

Snapshots come from a local file (FileSource) or from an HTTP endpoint
(HTTPSource). A Watcher reloads the file source whenever it changes on disk.
*/
package catalog

import "strings"

// Item is one book as seen by the search engine.
type Item struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title,omitempty"`
	Author      string   `json:"author,omitempty"`
	Category    string   `json:"category,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Indexable reports whether the item has any text the engine can use.
func (it Item) Indexable() bool {
	if strings.TrimSpace(it.Title) != "" || strings.TrimSpace(it.Author) != "" ||
		strings.TrimSpace(it.Category) != "" || strings.TrimSpace(it.Description) != "" {
		return true
	}
	for _, kw := range it.Keywords {
		if strings.TrimSpace(kw) != "" {
			return true
		}
	}
	return false
}
