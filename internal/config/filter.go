package config

import (
	"sort"
	"sync"
)

// BoardFilter holds the whitelist and blacklist of board IDs. Only boards
// that are whitelisted and not blacklisted are eligible for tracking. It is
// safe for concurrent use by the command layer and the update runner.
type BoardFilter struct {
	mu        sync.RWMutex
	whitelist map[string]struct{}
	blacklist map[string]struct{}
}

func NewBoardFilter(whitelist, blacklist []string) *BoardFilter {
	f := &BoardFilter{
		whitelist: make(map[string]struct{}),
		blacklist: make(map[string]struct{}),
	}
	for _, id := range whitelist {
		f.whitelist[id] = struct{}{}
	}
	for _, id := range blacklist {
		f.blacklist[id] = struct{}{}
	}
	return f
}

// Eligible returns the sorted set of board IDs to fetch.
func (f *BoardFilter) Eligible() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.whitelist))
	for id := range f.whitelist {
		if _, blocked := f.blacklist[id]; !blocked {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Whitelist adds the given board IDs to the whitelist and lifts any
// blacklisting on them.
func (f *BoardFilter) Whitelist(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.whitelist[id] = struct{}{}
		delete(f.blacklist, id)
	}
}

// Blacklist adds the given board IDs to the blacklist.
func (f *BoardFilter) Blacklist(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.blacklist[id] = struct{}{}
	}
}

// Snapshot returns sorted copies of both lists.
func (f *BoardFilter) Snapshot() (whitelist, blacklist []string) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	whitelist = make([]string, 0, len(f.whitelist))
	for id := range f.whitelist {
		whitelist = append(whitelist, id)
	}
	blacklist = make([]string, 0, len(f.blacklist))
	for id := range f.blacklist {
		blacklist = append(blacklist, id)
	}
	sort.Strings(whitelist)
	sort.Strings(blacklist)
	return whitelist, blacklist
}
