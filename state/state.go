// Package state remembers which messages a run has already seen, so that an
// archive holding the same alert twice contributes one set of rows.
package state

import (
	"github.com/patrickmn/go-cache"
)

// Tracker records message content hashes for the duration of one run.
// Entries never expire.
type Tracker struct {
	seen *cache.Cache
}

func NewTracker() *Tracker {
	return &Tracker{seen: cache.New(cache.NoExpiration, 0)}
}

// Seen reports whether hash was marked before and, if so, the id of the
// message that first carried it.
func (t *Tracker) Seen(hash string) (string, bool) {
	if hash == "" {
		return "", false
	}
	v, ok := t.seen.Get(hash)
	if !ok {
		return "", false
	}
	id, _ := v.(string)
	return id, true
}

// Mark records hash as processed under messageID. Empty hashes are ignored
// and the first id recorded for a hash wins.
func (t *Tracker) Mark(hash, messageID string) {
	if hash == "" {
		return
	}
	// Add refuses existing keys.
	_ = t.seen.Add(hash, messageID, cache.NoExpiration)
}

// Len returns the number of distinct hashes recorded.
func (t *Tracker) Len() int {
	return t.seen.ItemCount()
}
