package restaurant

import "strings"

// Normalized is the part of a record the search indices see.
type Normalized struct {
	ID     string
	Name   string
	Dishes []string
	Active bool
}

// Normalize lowercases the name and every dish name. Values are trimmed but
// never dropped, so a blank name is still indexed as the empty term.
func Normalize(r *Restaurant) Normalized {
	n := Normalized{
		ID:     r.ID,
		Name:   strings.ToLower(strings.TrimSpace(r.Name)),
		Dishes: make([]string, 0, len(r.Dishes)),
		Active: r.Metadata.IsActive,
	}
	for _, d := range r.Dishes {
		n.Dishes = append(n.Dishes, strings.ToLower(strings.TrimSpace(d.Name)))
	}
	return n
}
