package ws

import (
	"sync"
	"time"
)

// typingTTL matches the client-side indicator window.
const typingTTL = 3 * time.Second

type typingEntry struct {
	userID  int64
	expires time.Time
}

// typingTable tracks who was last seen typing per conversation. Entries are
// read lazily: a lookup past the expiry reports nobody typing, so no timer or
// disconnect cleanup is needed. Best-effort only.
type typingTable struct {
	mu      sync.Mutex
	entries map[int64]typingEntry
	now     func() time.Time
}

func newTypingTable() *typingTable {
	return &typingTable{
		entries: make(map[int64]typingEntry),
		now:     time.Now,
	}
}

// Set records the user as typing in the conversation for the TTL window.
func (t *typingTable) Set(chatID, userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[chatID] = typingEntry{userID: userID, expires: t.now().Add(typingTTL)}
}

// Typist returns the user currently known to be typing, if any. Expired
// entries are removed on the way out.
func (t *typingTable) Typist(chatID int64) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[chatID]
	if !ok {
		return 0, false
	}
	if t.now().After(entry.expires) {
		delete(t.entries, chatID)
		return 0, false
	}
	return entry.userID, true
}
