// Package event provides the synchronous event bus that every unistore
// store is built on.
//
// Handlers subscribe to an event name, optionally qualified with a namespace
// after a colon ("save:conflict"). Triggering the base name ("save") reaches
// every namespaced subscription; the namespace only matters when filtering
// subscriptions for removal.
//
// # Basic Usage
//
//	bus := event.New()
//	defer bus.Destroy()
//
//	sub := bus.Subscribe("save:ui", func(name string, data ...any) {
//	    fmt.Println("saved", data)
//	})
//	bus.Trigger("save", 42)
//	sub.Unsubscribe()
//
// # Delivery
//
// Handlers run synchronously in subscription order inside Trigger, unless
// they were registered with [WithAsync], in which case they run later on
// their own goroutine. Subscriptions created with [WithOnce] are removed
// before their first delivery, so they fire at most once even if the handler
// triggers the same event again.
//
// # Removal
//
// Unsubscribe takes any combination of [ByEvent], [ByContext] and
// [BySubscription] filters and removes the subscriptions matching all of
// them:
//
//	bus.Unsubscribe(event.ByContext(view))                  // everything owned by view
//	bus.Unsubscribe(event.ByEvent("save:ui"), event.ByContext(view))
//	bus.Unsubscribe()                                       // everything
package event
