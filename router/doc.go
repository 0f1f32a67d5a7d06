// Package router multiplexes a single stream of input values out to any
// number of keyed receivers. A Router starts in a building
// state where AddRoute registers one receiver per key; SetReady freezes
// the route table (sorted by key) and arms every receiver; Dispatch then
// submits each input to the router's executor, which classifies it into
// zero or more keys and forwards a copy of the value to every matching
// route's sender.
package router
