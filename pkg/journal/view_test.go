package journal_test

import (
	"testing"

	"github.com/aretw0/studio/pkg/journal"
	"github.com/stretchr/testify/assert"
)

func TestJournal_EntriesRoundTripToViews(t *testing.T) {
	j := journal.New()
	j.Append(tx("add cube"))
	j.Append(txWith("move cube", "/World/Cube", "xform"))
	_, err := j.Fork(tx("delete cube"))
	assert.NoError(t, err)
	j.Append(tx("add light"))

	entries := j.Entries()
	assert.Len(t, entries, j.Live())

	views := journal.ViewsFromEntries(entries)
	assert.Equal(t, j.Snapshot(), views)
}

func TestViewsFromEntries_Empty(t *testing.T) {
	assert.Empty(t, journal.ViewsFromEntries(nil))
}
