package api

import (
	"encoding/json"
	"os"
	"time"
)

// Shelf is a local export of books the visitor already owns or has read.
// It is never uploaded; it only suppresses recommendations at render time.
type Shelf struct {
	Items []*ShelfEntry
}

type ShelfEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	ShelvedAt time.Time `json:"shelved_at,omitempty"`
}

// ReadShelfFile loads a shelf export. An empty file is an empty shelf.
func ReadShelfFile(path string) (*Shelf, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return &Shelf{}, nil
	}

	var shelf Shelf
	if err := json.NewDecoder(file).Decode(&shelf); err != nil {
		return nil, err
	}
	return &shelf, nil
}

func (s *Shelf) BookIDs() []string {
	ids := make([]string, 0)
	for _, entry := range s.Items {
		ids = append(ids, entry.ID)
	}
	return ids
}
