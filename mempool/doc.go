// Package mempool provides tiered memory sources and the selector that
// picks one for a requested allocation.
//
// Constrained targets typically expose more than one RAM tier: a wide
// but slower external pool and a small fast internal pool. The selector
// tries each source in priority order and reports which tier satisfied
// the request, so hosts can log provenance and place the engine's heap
// deliberately.
//
// Sources are budget-accounted: every allocation is charged against the
// tier's capacity and returned on Release. The accounting is what lets
// callers verify that teardown paths leak nothing.
package mempool
