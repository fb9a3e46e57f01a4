// Package devtools exposes a store to debugging tools.
//
// A [Bridge] records every action a store emits together with the state it
// produced, and can move the store back to any recorded state. The history
// can be streamed to AG-UI clients as STATE_SNAPSHOT and STATE_DELTA events
// through a [Mapper], or driven by MCP clients through [NewMCPServer].
//
// # Time Travel
//
//	s := store.New(store.State{"count": 0})
//	b := devtools.New(s, devtools.WithHistorySize(50))
//	defer b.Close()
//
//	s.Set(store.State{"count": 1})
//	s.Set(store.State{"count": 2})
//
//	b.Jump(1) // state is {"count": 1} again
//
// Jumps replace the whole state with an overwrite Set tagged [JumpAction],
// so UI subscribers re-render. The bridge does not record its own jumps.
//
// # AG-UI
//
//	m := devtools.NewMapper("", "")
//	last, _ := b.Last()
//	send(m.MapEntry(last))
//	b.Watch(func(e devtools.Entry) {
//	    if ev := m.MapEntry(e); ev != nil {
//	        send(ev)
//	    }
//	})
//
// # MCP
//
//	if err := devtools.ServeStdio(b); err != nil {
//	    log.Fatal(err)
//	}
package devtools
