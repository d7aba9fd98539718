// Package script runs ownership scenarios written in HCL against a heap.
//
// A scenario is a sequence of blocks executed in source order. Top-level
// blocks run in a root scope named "script".
//
//	scope "outer" {
//	  scope "inner" {
//	    create "z" {
//	      destructor = true
//	    }
//	    transfer "z" {}
//	  }
//	  expect {
//	    destroyed = []
//	  }
//	}
//	expect {
//	  destroyed = ["z"]
//	}
//
// Blocks:
//
//	scope "name" { ... }   nested scope, closed at the end of the block
//	create "x" {...}       new cell; destructor = bool logs "x" when destroyed,
//	                       value = string sets the payload
//	retain "x" {}          add an owner
//	release "x" {}         drop an owner
//	transfer "x" {...}     escape x from the current scope; receiver =
//	                       "adopt" (default, enclosing scope takes it),
//	                       "release" (enclosing scope drops it) or "none"
//	                       (nobody does; reported as a leak)
//	expect {...}           assert destroyed = [names in order], live = n,
//	                       pending = n at this point
package script
