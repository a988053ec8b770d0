// Package netbound mediates between a local cache and a remote call for
// user-facing operations, reporting the result as an ordered stream of states
// (loading, then success, error or empty).
//
// Components:
//   - Mediator: runs a Resource and produces a Stream. One live job per slot;
//     starting a new job for a slot silently supersedes the old one.
//   - Jobs: the slot -> active job table behind supersession and Cancel.
//   - Store[V]: provider-agnostic cache with compare-and-swap writes via
//     per-key generations (see provider, codec and genstore packages).
//
// Run flow:
//
//	Loading -> [interim Success from cache] -> Success | Error | Empty
//
// A superseded or cancelled run closes its stream without a final state.
//
// CAS pattern for persisting network results:
//
//	obs := store.SnapshotGen(k) // before the remote call
//	v   := call()
//	_   = store.SetWithGen(ctx, k, v, obs, 0) // write iff current gen == obs
package netbound
