// Package resource maps integer handles to host-side values.
//
// The guest never sees Go values. Every lockfile, workspace and resolver it
// creates lives in a Table and is addressed by a Handle:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	h := table.Insert(resource.KindWorkspace, ws)
//
//	// Type-checked retrieval
//	v, ok := table.GetTyped(h, resource.KindWorkspace) // ok
//	v, ok = table.GetTyped(h, resource.KindResolver)   // !ok
//
//	// Release
//	table.Remove(h)
//
// # Stale Handles
//
// Slots are reused after Remove, but each reuse bumps the slot's
// generation, which is encoded in the handle. A handle kept after its value
// was removed never resolves to the slot's new occupant.
//
// # Observers
//
// Observers are notified after every insert and remove:
//
//	table.Subscribe(observer)
//
// Handle 0 is never issued.
package resource
