package docstore

import (
	"encoding/json"
	"time"
)

// Document is one persisted record addressed by collection path and id.
type Document struct {
	Path      string          `json:"path"`
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.Data != nil {
		out.Data = append(json.RawMessage(nil), d.Data...)
	}
	return out
}

// Snapshot is the full set of documents in a collection at one point in time.
type Snapshot struct {
	Path      string     `json:"path"`
	Documents []Document `json:"documents"`
	ReadAt    time.Time  `json:"read_at"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Path: s.Path, ReadAt: s.ReadAt, Documents: make([]Document, len(s.Documents))}
	for i, doc := range s.Documents {
		out.Documents[i] = doc.Clone()
	}
	return out
}
