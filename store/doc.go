// Package store provides an observable state container with throttled
// persistence.
//
// A [Store] owns a single JSON-like [State] value. Every mutation installs a
// new top-level map, notifies subscribers through an embedded event bus and,
// when persistence is configured, schedules a throttled write of the keys
// selected by its [Policies] to an [Adapter].
//
// # Basic Usage
//
//	s := store.New(store.State{"count": 0})
//	defer s.Destroy()
//
//	s.Subscribe("", func(action string, data ...any) {
//	    fmt.Println(action, store.Changes(data...))
//	})
//
//	s.Set(store.State{"count": 1})                              // merge, action "set"
//	s.Set(store.State{"count": 2}, store.WithAction("inc"))     // named action
//	s.Set(store.State{"user": nil}, store.WithOverwrite())      // replace everything
//
// # Persistence
//
// Persistence is active when both policies and an adapter are configured.
// The store hydrates itself from the adapter before New returns:
//
//	s := store.New(store.State{},
//	    store.WithAdapter(store.NewMemoryAdapter()),
//	    store.WithPolicies(store.Policies{
//	        "session": store.Persist(),
//	        "prefs":   store.Exclude("draft", "ui.scroll"),
//	        "cache":   store.Skip(), // purged from storage on start
//	    }),
//	)
//
// Writes are coalesced: a burst of Set calls produces one write per
// persistence interval carrying the latest state. Storage and JSON failures
// are logged and swallowed.
//
// # Derived State
//
// Sync registers rules that derive further state from each change:
//
//	s.Sync([]store.SyncRule{{
//	    Filter: func(action string, changes store.State) bool { _, ok := changes["items"]; return ok },
//	    Apply: func(action string, changes store.State) store.State {
//	        return store.State{"total": len(changes["items"].([]any))}
//	    },
//	}}, nil)
//
// The derived change is applied with an action prefixed by [SyncPrefix],
// which sync rules ignore, so a rule cannot retrigger itself.
package store
