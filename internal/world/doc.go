// Package world coordinates the API client and every registered backing
// store as one atomic unit.
//
// The World is the single authority over the live system under test. It
// assembles States from per-system observations, bundles checkpoints (one
// opaque handle per system), and rolls every system back together so the
// agent can revisit an earlier branch point without re-executing its
// prefix.
//
// Rollback validity depends on each adapter's checkpoint semantics:
// savepoint-style stores only tolerate strictly LIFO rollback order (the
// DFS strategy), while snapshot-copy stores tolerate jumps to arbitrary
// earlier checkpoints. The World cannot verify this generically; the
// compatibility is documented on each adapter in internal/systems.
package world
