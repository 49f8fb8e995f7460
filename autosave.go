package ruleflow

import (
	"context"
	"sync"
	"time"
)

// DefaultAutosaveDelay is the debounce window between the last graph change
// and the background write.
const DefaultAutosaveDelay = 2 * time.Second

// Autosaver watches an editing session and keeps the backing rule eventually
// consistent with the canvas. Every graph change arms a debounce timer; the
// timer's expiry serializes the graph and pushes a silent update. A new
// change always supersedes a pending one, and switching rules or closing the
// session cancels any in-flight timer so a stale write never lands on the
// wrong record.
//
// The change immediately following a fresh load is swallowed: it is the
// canvas rendering the record that was just read, not an edit.
type Autosaver struct {
	store Store
	delay time.Duration

	mu         sync.Mutex
	editor     *Editor
	base       *Rule
	pending    *Graph
	timer      *time.Timer
	gen        int
	justLoaded bool
}

// NewAutosaver wires a debounced saver against the persistence store.
// A non-positive delay falls back to DefaultAutosaveDelay.
func NewAutosaver(store Store, delay time.Duration) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Autosaver{store: store, delay: delay}
}

// Track starts watching an editing session for the given rule. Any timer
// pending for a previously tracked rule is cancelled.
func (a *Autosaver) Track(rule *Rule, editor *Editor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
	a.base = rule
	a.editor = editor
	a.justLoaded = true
}

// GraphChanged notes that the canvas changed and (re)arms the debounce timer.
// The first change after Track is the post-load render and does not save.
//
// The graph is deep-copied here, on the editing goroutine: the timer fires on
// its own goroutine while the user may still be mutating node data, so it
// must only ever see the snapshot. Each change replaces the previous
// snapshot, so the eventual write reflects the latest state.
func (a *Autosaver) GraphChanged() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.base == nil || a.editor == nil {
		return
	}
	if a.justLoaded {
		a.justLoaded = false
		return
	}
	a.cancelLocked()
	a.pending = a.editor.Graph().Clone()
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

// fire runs on the timer goroutine. A generation mismatch means the session
// moved on (rule switch, close, or a newer edit) and the write is dropped.
// Only the snapshot taken in GraphChanged is read, never the live editor.
func (a *Autosaver) fire(gen int) {
	a.mu.Lock()
	if gen != a.gen || a.base == nil || a.pending == nil {
		a.mu.Unlock()
		return
	}
	rule := GraphToRule(a.pending, a.base)
	id := a.base.ID
	a.pending = nil
	a.mu.Unlock()

	// Fire-and-forget: a failed autosave is indistinguishable from "no change
	// yet" and is retried implicitly by the next debounce window.
	saved, err := a.store.UpdateRule(context.Background(), id, rule, true)
	if err != nil {
		return
	}

	a.mu.Lock()
	if gen == a.gen && a.base != nil && a.base.ID == id {
		a.base = saved
	}
	a.mu.Unlock()
}

// Flush saves immediately, bypassing the debounce. Used by explicit save
// affordances; errors surface to the caller unlike the silent path.
func (a *Autosaver) Flush(ctx context.Context) (*Rule, error) {
	a.mu.Lock()
	if a.base == nil || a.editor == nil {
		a.mu.Unlock()
		return nil, ErrRuleNotFound
	}
	a.cancelLocked()
	// Serialize from a snapshot for the same reason fire does: the store call
	// below runs unlocked and must not share maps with the live editor.
	rule := GraphToRule(a.editor.Graph().Clone(), a.base)
	id := a.base.ID
	a.mu.Unlock()

	saved, err := a.store.UpdateRule(ctx, id, rule, false)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	if a.base != nil && a.base.ID == id {
		a.base = saved
	}
	a.mu.Unlock()
	return saved, nil
}

// Close stops tracking and cancels any pending write. Called on navigation
// away from the editor.
func (a *Autosaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
	a.base = nil
	a.editor = nil
}

// cancelLocked invalidates any pending timer and drops its snapshot. Callers
// hold a.mu.
func (a *Autosaver) cancelLocked() {
	a.gen++
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
