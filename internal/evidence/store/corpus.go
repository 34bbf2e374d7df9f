// Package store holds the session-scoped, in-memory evidence corpus.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/kart-io/evidence-x/internal/model"
)

// ErrSessionChanged is returned by Append when the corpus was cleared after
// the caller read its session id.
var ErrSessionChanged = errors.New("corpus session changed")

// Corpus is the mutable set of embedded chunks and indexed filenames for one
// session. Reads run concurrently; Append and Clear exclude readers.
type Corpus struct {
	mu        sync.RWMutex
	sessionID string
	chunks    []model.EmbeddedChunk
	files     map[string]struct{}
	dim       int
}

// NewCorpus creates an empty corpus with a fresh session id.
func NewCorpus() *Corpus {
	return &Corpus{
		sessionID: newSessionID(),
		files:     make(map[string]struct{}),
	}
}

func newSessionID() string {
	return ulid.Make().String()
}

// SessionID returns the current session id.
func (c *Corpus) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Snapshot returns the session id and the chunks as of now. The returned
// slice must not be modified; appends never touch elements already visible.
func (c *Corpus) Snapshot() (string, []model.EmbeddedChunk) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID, c.chunks[:len(c.chunks):len(c.chunks)]
}

// Append adds the chunks and filenames of one upload as a single unit.
// It fails with ErrSessionChanged if sessionID is no longer current.
// It returns the total chunk count after the append.
func (c *Corpus) Append(sessionID string, files []string, chunks []model.EmbeddedChunk) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sessionID != c.sessionID {
		return len(c.chunks), ErrSessionChanged
	}

	c.chunks = append(c.chunks, chunks...)
	for _, f := range files {
		c.files[f] = struct{}{}
	}
	if c.dim == 0 && len(chunks) > 0 {
		c.dim = len(chunks[0].Vector)
	}
	return len(c.chunks), nil
}

// Clear drops every chunk and filename and starts a new session.
// It returns the previous and the new session id.
func (c *Corpus) Clear() (previous, current string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous = c.sessionID
	c.sessionID = newSessionID()
	c.chunks = nil
	c.files = make(map[string]struct{})
	c.dim = 0
	return previous, c.sessionID
}

// Files returns the indexed filenames, sorted.
func (c *Corpus) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.files))
	for f := range c.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of chunks.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// Stats returns counts for the current session.
func (c *Corpus) Stats() model.CorpusStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CorpusStats{
		SessionID:    c.sessionID,
		Files:        len(c.files),
		Chunks:       len(c.chunks),
		EmbeddingDim: c.dim,
	}
}
