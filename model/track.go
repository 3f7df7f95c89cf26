package model

import "io"

// TrackReference identifies one downloadable track resolved from a content URL.
// It is immutable once resolved: workers read it, nothing mutates it.
type TrackReference struct {
	ID       string   `json:"id"`       // Service-assigned track ID
	Title    string   `json:"title"`    // Display title, used for progress and filenames
	Artists  []string `json:"artists"`  // Performing artists, may be empty
	Position int      `json:"position"` // 1-based position within its parent collection
}

// EncryptedStream is a single-use encrypted byte source plus the key material
// needed to decrypt it. It is owned by exactly one worker and must be closed
// after decryption completes or fails.
type EncryptedStream struct {
	TrackID string
	Key     []byte // Opaque per-track key material
	Body    io.ReadCloser
}

// Close closes the underlying byte source.
func (s *EncryptedStream) Close() error {
	if s.Body == nil {
		return nil
	}
	return s.Body.Close()
}
