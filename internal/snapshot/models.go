package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Capture records the pre-image of one path: either the content hash of
// the file as it was, or the fact that it did not exist.
type Capture struct {
	Path        string `json:"path"`
	Existed     bool   `json:"existed"`
	ContentHash string `json:"content_hash,omitempty"`
	Size        int    `json:"size,omitempty"`
}

// Entry is one undo unit: the pre-images of every path a mutation touched,
// in capture order. Manual entries are user checkpoints with no associated
// mutation.
type Entry struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Manual      bool      `json:"manual,omitempty"`
	Captures    []Capture `json:"captures"`
}

// Summary is the minimal info for listing history.
type Summary struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Manual      bool      `json:"manual,omitempty"`
	FileCount   int       `json:"file_count"`
}

// Index is a lightweight listing of all entries for fast lookup.
type Index struct {
	Entries   []Summary `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns a lightweight summary of this entry.
func (e *Entry) Summary() Summary {
	return Summary{
		ID:          e.ID,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		Manual:      e.Manual,
		FileCount:   len(e.Captures),
	}
}

// ContentHash computes SHA-256 of content.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
