// Package unistore is an observable state container with throttled,
// policy-driven persistence.
//
// The library is split into small packages:
//
//   - [github.com/spetersoncode/unistore/event]: a synchronous event bus with
//     namespaced event names, one-shot and asynchronous subscriptions
//   - [github.com/spetersoncode/unistore/store]: the Store itself, its
//     persistence policies and the in-memory storage adapter
//   - [github.com/spetersoncode/unistore/store/sqlite]: a SQLite storage adapter
//   - [github.com/spetersoncode/unistore/devtools]: action history, time
//     travel, AG-UI state events and MCP tools for debugging a store
//
// # Basic Usage
//
//	s := store.New(store.State{"count": 0},
//	    store.WithAdapter(store.NewMemoryAdapter()),
//	    store.WithPolicies(store.Policies{"count": store.Persist()}),
//	)
//	defer s.Destroy()
//
//	s.Subscribe("inc", func(action string, data ...any) {
//	    fmt.Println("count is now", s.Get()["count"])
//	})
//
//	s.Set(store.State{"count": 1}, store.WithAction("inc"))
//
// The command in cmd/unistore-devtools serves a SQLite-backed store over
// HTTP and SSE, or as MCP tools over stdio.
package unistore
