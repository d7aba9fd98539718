// Package resource provides the handle table that holds escaped cells
// between the moment they leave their scope and the moment a receiver
// claims them.
//
// # Handle Table
//
// The Table maps integer handles to parked values:
//
//	table := resource.NewTable()
//
//	// Park a value, get a handle
//	handle, err := table.Park("outer/inner", cell)
//
//	// Look at it without taking it
//	value, ok := table.Get(handle)
//
//	// Take it out (ownership moves to the receiver)
//	value, ok := table.Claim(handle, "outer")
//
//	// Or take it out and release it
//	ok, err := table.Drop(handle)
//
// Handle 0 is never issued. Handles of claimed entries are reused.
//
// # Observers
//
// Register observers to track parking events. A drop is reported before
// the value is released:
//
//	table.Subscribe(observer)
//
// # Leaks
//
// Anything still parked when Close is called was never claimed. Close
// releases it and reports the release errors; callers that care about the
// leak itself should inspect Len or Each first.
//
// A Table is not safe for concurrent use.
package resource
