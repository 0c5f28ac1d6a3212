package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestNode starts a small Node for one test and guarantees it is torn
// down afterwards. Tests in this package must not call t.Parallel():
// Node is a process-wide singleton (spec §4 "at most one Node at a time"),
// so concurrent subtests would race on Init/Finalize.
func newTestNode(t *testing.T, opts ...NodeOption) *Node {
	t.Helper()
	n, err := Init(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Finalize() })
	return n
}
