package sftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTableFirstAllocation(t *testing.T) {
	var tbl requestTable

	r := tbl.allocate()
	assert.Equal(t, uint32(reservedRequestIDs), r.id)
	assert.Equal(t, 1, tbl.len())
}

func TestRequestTableAllocatesLowestFreeID(t *testing.T) {
	var tbl requestTable

	r0 := tbl.allocate()
	r1 := tbl.allocate()
	r2 := tbl.allocate()

	assert.Equal(t, []uint32{256, 257, 258}, []uint32{r0.id, r1.id, r2.id})

	tbl.register(r0)
	tbl.register(r1)
	tbl.register(r2)

	// Freeing the middle ID must make the allocator reissue exactly that ID
	// next, not merely continue counting upward.
	_, err := tbl.findRequest(r1.id)
	require.NoError(t, err)

	r3 := tbl.allocate()
	assert.Equal(t, uint32(257), r3.id)

	// With the hole filled, the next allocation resumes past the dense
	// prefix rather than re-finding the same hole.
	tbl.register(r3)
	r4 := tbl.allocate()
	assert.Equal(t, uint32(259), r4.id)
}

func TestRequestTableNeverIssuesReservedIDs(t *testing.T) {
	var tbl requestTable

	for i := 0; i < 16; i++ {
		r := tbl.allocate()
		assert.GreaterOrEqual(t, r.id, uint32(reservedRequestIDs))
		tbl.register(r)
	}
}

func TestRequestTableFindUnregisteredIsMismatch(t *testing.T) {
	var tbl requestTable

	r := tbl.allocate()

	// Not yet registered: a reply arriving for this ID before the send that
	// allocated it has completed must not be matched.
	_, err := tbl.findRequest(r.id)
	assert.Equal(t, errRequestIDMismatch, err)
	assert.Equal(t, 1, tbl.len())
}

func TestRequestTableFindUnknownIDIsMismatch(t *testing.T) {
	var tbl requestTable

	r := tbl.allocate()
	tbl.register(r)

	_, err := tbl.findRequest(r.id + 1)
	assert.Equal(t, errRequestIDMismatch, err)

	// The table is untouched by a failed lookup.
	assert.Equal(t, 1, tbl.len())
}

func TestRequestTableFindRemovesOnSuccess(t *testing.T) {
	var tbl requestTable

	r := tbl.allocate()
	tbl.register(r)

	found, err := tbl.findRequest(r.id)
	require.NoError(t, err)
	assert.Same(t, r, found)
	assert.Equal(t, 0, tbl.len())

	// A second lookup for the same ID now fails: it has been consumed.
	_, err = tbl.findRequest(r.id)
	assert.Equal(t, errRequestIDMismatch, err)
}

func TestRequestTableIndexedAccessMatchesIDOrder(t *testing.T) {
	var tbl requestTable

	var allocated []*request
	for i := 0; i < 8; i++ {
		allocated = append(allocated, tbl.allocate())
	}

	for k, r := range allocated {
		assert.Same(t, r, tbl.at(k))
	}
}

func TestRequestTableDrain(t *testing.T) {
	var tbl requestTable

	tbl.allocate()
	tbl.allocate()
	tbl.allocate()

	drained := tbl.drain()
	assert.Len(t, drained, 3)
	assert.Equal(t, 0, tbl.len())
}
