package documents

import (
	"sync"
	"time"
)

// Library is the cached document and share lists of one user. All list
// changes go through Reduce.
type Library struct {
	mu           sync.Mutex
	docs         State[Document]
	shares       State[Share]
	docsLoaded   time.Time
	sharesLoaded time.Time
	lastUsed     time.Time
}

func (l *Library) applyDocs(ev Event) State[Document] {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs = Reduce(l.docs, documentID, ev)
	return l.docs
}

func (l *Library) applyShares(ev Event) State[Share] {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shares = Reduce(l.shares, shareID, ev)
	return l.shares
}

func (l *Library) Documents() State[Document] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.docs
}

func (l *Library) Shares() State[Share] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shares
}

func (l *Library) docsFresh(now time.Time, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.docsLoaded.IsZero() && now.Sub(l.docsLoaded) < ttl
}

func (l *Library) sharesFresh(now time.Time, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.sharesLoaded.IsZero() && now.Sub(l.sharesLoaded) < ttl
}

func (l *Library) markDocsLoaded(now time.Time) {
	l.mu.Lock()
	l.docsLoaded = now
	l.mu.Unlock()
}

func (l *Library) markSharesLoaded(now time.Time) {
	l.mu.Lock()
	l.sharesLoaded = now
	l.mu.Unlock()
}

func (l *Library) touch(now time.Time) {
	l.mu.Lock()
	l.lastUsed = now
	l.mu.Unlock()
}

func (l *Library) idleSince(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Sub(l.lastUsed)
}

// libraries holds one Library per user.
type libraries struct {
	mu    sync.Mutex
	byKey map[string]*Library
}

func (ls *libraries) get(user string, now time.Time) *Library {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.byKey == nil {
		ls.byKey = make(map[string]*Library)
	}
	lib, ok := ls.byKey[user]
	if !ok {
		lib = &Library{}
		ls.byKey[user] = lib
	}
	lib.touch(now)
	return lib
}

// active returns users whose library was used within maxIdle and drops the rest.
func (ls *libraries) active(now time.Time, maxIdle time.Duration) map[string]*Library {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	out := make(map[string]*Library, len(ls.byKey))
	for user, lib := range ls.byKey {
		if lib.idleSince(now) > maxIdle {
			delete(ls.byKey, user)
			continue
		}
		out[user] = lib
	}
	return out
}
