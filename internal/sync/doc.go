// Package sync keeps the local list store and the remote mirror consistent.
//
// Overview
//
// The Coordinator is itself a repository. Every write lands in the local
// store first and the caller sees only the local outcome. The same write is
// then handed to a task.Launcher to be replayed against the remote mirror;
// whether that succeeds is logged and otherwise ignored. Reads are always
// served by the local store, so the UI keeps working with no network.
//
// Architecture
//
//	UI intents (CLI, dashboard)
//	     ↓
//	 Coordinator ──(sync)──→ local store   (authoritative for reads)
//	     └──────(launcher)─→ remote mirror (best effort)
//
// Reconciliation
//
// Reconcile repairs drift in two phases that run one after the other:
//
//  1. Push: every local list is written to the remote mirror. Remote lists
//     the local store does not have are left alone.
//  2. Pull: every remote list is written to the local store, updating
//     known ids and inserting unknown ones under the remote id. The remote
//     copy wins. Local lists the remote does not have are kept. Remote rows
//     with no id are counted as failures and left alone.
//
// A failure on one list is counted in the Report and the loop goes on.
// A failure to read a whole snapshot ends that phase only.
//
// Usage
//
//	local, err := localstore.Open(path)
//	if err != nil {
//	    return err
//	}
//	mirror, err := remote.New(ctx, remote.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	coord := sync.New(local, mirror)
//
//	id, err := coord.Insert(ctx, model.List{Name: "Weekly"})
//	report := coord.Reconcile(ctx)
//
// Known weaknesses
//
// There are no timestamps, so the pull phase cannot tell a newer local edit
// from an older remote one: the remote copy always wins. Reconcile runs are
// serialized, but ordinary writes are not held off, so a local write that
// lands between the pull phase's snapshot and its write-back may be
// overwritten. Deletions are not
// reconciled; a list deleted locally while offline comes back on the next
// pull if the remote still has it.
package sync
