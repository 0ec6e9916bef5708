// Package store implements the interpreter's span store: State, the
// single mutable state object, and the four operations defined over
// it — InventSID, Create, Emit, Modify. It indexes spans the way a
// session store indexes sessions: a primary map plus secondary
// translation maps, each a plain Go map, since the fold that owns
// State is strictly single-threaded and no other goroutine ever
// observes it directly.
package store
