package matrix

import "time"

// Note is one rich-text note of the user's workspace.
type Note struct {
	ID        string    `json:"id" yaml:"id" bson:"_id"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty" bson:"title,omitempty"`
	Content   string    `json:"content" yaml:"content" bson:"content"`
	FolderID  string    `json:"folder_id,omitempty" yaml:"folder_id,omitempty" bson:"folder_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty" bson:"created_at,omitempty"`
}

// Thinker is a person on the genealogy timeline. Aliases are alternative
// spellings that also count as mentions ("Hegel" for "G. W. F. Hegel").
type Thinker struct {
	ID        string   `json:"id" yaml:"id" bson:"_id"`
	Name      string   `json:"name" yaml:"name" bson:"name"`
	BirthYear *int     `json:"birth_year,omitempty" yaml:"birth_year,omitempty" bson:"birth_year,omitempty"`
	DeathYear *int     `json:"death_year,omitempty" yaml:"death_year,omitempty" bson:"death_year,omitempty"`
	Aliases   []string `json:"aliases,omitempty" yaml:"aliases,omitempty" bson:"aliases,omitempty"`
}

// CriticalTerm is a concept tracked across notes.
type CriticalTerm struct {
	ID   string `json:"id" yaml:"id" bson:"_id"`
	Name string `json:"name" yaml:"name" bson:"name"`
}

// Corpus is everything the matrix builder reads.
type Corpus struct {
	Notes    []Note         `json:"notes" yaml:"notes"`
	Thinkers []Thinker      `json:"thinkers" yaml:"thinkers"`
	Terms    []CriticalTerm `json:"terms" yaml:"terms"`
}

// Filter narrows a matrix query. Empty fields match everything.
type Filter struct {
	FolderID string `json:"folder_id,omitempty"`
	TermID   string `json:"term_id,omitempty"`
}
