package store

import (
	"strings"

	"github.com/spetersoncode/unistore/event"
)

// SyncPrefix is prepended to the action of every change produced by Sync.
// Sync rules ignore actions carrying it, which is what stops a derived
// change from triggering another sync pass.
const SyncPrefix = "sync."

// SyncRule derives further state from a change. Apply runs when Filter
// returns true; a non-nil result is merged one level deep into the state.
type SyncRule struct {
	Filter func(action string, changes State) bool
	Apply  func(action string, changes State) State
}

func (r SyncRule) valid() bool {
	return r.Filter != nil && r.Apply != nil
}

// Sync subscribes rules to every change. For each action not prefixed with
// SyncPrefix, the rules are evaluated in order and their results folded
// into a copy of the current state. If any rule produced a result, the
// folded state replaces the store's state in a single Set whose action is
// SyncPrefix followed by the original action, and onSynced (if non-nil)
// receives the new state and that action. Rules missing Filter or Apply are
// skipped.
//
// The returned subscription's Unsubscribe stops syncing.
func (s *Store) Sync(rules []SyncRule, onSynced func(state State, action string)) *event.Subscription {
	return s.Subscribe("", func(action string, data ...any) {
		if strings.HasPrefix(action, SyncPrefix) {
			return
		}
		acc := s.Get()
		if acc == nil {
			return
		}

		changes := Changes(data...)
		synced := false
		for _, rule := range rules {
			if !rule.valid() || !rule.Filter(action, changes) {
				continue
			}
			if result := rule.Apply(action, changes); result != nil {
				acc = merge(acc, result)
				synced = true
			}
		}
		if !synced {
			return
		}

		syncAction := SyncPrefix + action
		next := s.Set(acc, WithOverwrite(), WithAction(syncAction))
		if onSynced != nil && next != nil {
			onSynced(next, syncAction)
		}
	})
}
