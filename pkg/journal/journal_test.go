package journal_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(msg string) domain.Transaction {
	return domain.NewTransaction(msg, func() {})
}

func txWith(msg, entity, key string) domain.Transaction {
	return domain.NewTransaction(msg, func() {}, domain.WithAffinity(entity, key))
}

func TestJournal_New(t *testing.T) {
	j := journal.New()

	assert.Equal(t, j.Root(), j.Current())
	assert.Equal(t, 1, j.Live())
	assert.True(t, j.Validate())

	root, ok := j.Node(j.Root())
	require.True(t, ok)
	assert.Equal(t, journal.RootMessage, root.Message)
}

func TestJournal_UndoRootFails(t *testing.T) {
	j := journal.New()
	err := j.Undo()
	assert.ErrorIs(t, err, domain.ErrRootUndo)
	assert.Equal(t, j.Root(), j.Current())
}

func TestJournal_AppendDestroysRedoHistory(t *testing.T) {
	for n := 1; n <= 6; n++ {
		for back := 1; back <= n; back++ {
			t.Run(fmt.Sprintf("append_%d_undo_%d", n, back), func(t *testing.T) {
				j := journal.New()
				for i := 0; i < n; i++ {
					j.Append(tx(fmt.Sprintf("edit-%d", i)))
				}
				for i := 0; i < back; i++ {
					require.NoError(t, j.Undo())
				}

				j.Append(tx("new edit"))

				assert.True(t, j.Validate())
				assert.Equal(t, n-back+2, j.Live())
				assert.Equal(t, j.Live(), j.Reachable())
				assert.ErrorIs(t, j.Redo(), domain.ErrNothingToRedo)
			})
		}
	}
}

func TestJournal_Coalescing(t *testing.T) {
	t.Run("identical affinity overwrites in place", func(t *testing.T) {
		j := journal.New()
		first, coalesced := j.Append(txWith("drag 1", "/World/Cube", "xformOp:translate"))
		assert.False(t, coalesced)
		second, coalesced := j.Append(txWith("drag 2", "/World/Cube", "xformOp:translate"))
		assert.True(t, coalesced)

		assert.Equal(t, first, second)
		assert.Equal(t, 2, j.Live())
		view, _ := j.Node(second)
		assert.Equal(t, "drag 2", view.Message)
	})

	t.Run("different affinity appends", func(t *testing.T) {
		j := journal.New()
		j.Append(txWith("a", "/World/Cube", "xformOp:translate"))
		j.Append(txWith("b", "/World/Cube", "xformOp:scale"))
		assert.Equal(t, 3, j.Live())
	})

	t.Run("empty affinity appends", func(t *testing.T) {
		j := journal.New()
		j.Append(tx("a"))
		j.Append(tx("b"))
		assert.Equal(t, 3, j.Live())
	})

	t.Run("root never coalesces", func(t *testing.T) {
		j := journal.New()
		j.Append(txWith("a", "/World", "visibility"))
		require.NoError(t, j.Undo())
		j.Append(txWith("b", "/World", "visibility"))
		assert.Equal(t, 2, j.Live())
		assert.NotEqual(t, j.Root(), j.Current())
	})
}

func TestJournal_ForkAppendsAtChainEnd(t *testing.T) {
	for k := 0; k <= 5; k++ {
		t.Run(fmt.Sprintf("siblings_%d", k), func(t *testing.T) {
			j := journal.New()
			first, _ := j.Append(tx("original"))
			for i := 0; i < k; i++ {
				_, err := j.Fork(tx(fmt.Sprintf("fork-%d", i)))
				require.NoError(t, err)
			}

			// Fork again from the original node, not the last sibling.
			require.NoError(t, j.Undo())
			require.NoError(t, j.Redo())
			require.Equal(t, first, j.Current())

			id, err := j.Fork(tx("tail"))
			require.NoError(t, err)

			children := j.Children(j.Root())
			require.Len(t, children, k+2)
			assert.Equal(t, id, children[k+1])
			assert.Equal(t, id, j.Current())

			view, _ := j.Node(id)
			assert.Equal(t, j.Root(), view.Parent)
			assert.True(t, j.Validate())
		})
	}
}

func TestJournal_ForkRoot(t *testing.T) {
	j := journal.New()
	_, err := j.Fork(tx("nope"))
	assert.ErrorIs(t, err, domain.ErrRootUndo)
	assert.Equal(t, 1, j.Live())
}

func TestJournal_Remove(t *testing.T) {
	t.Run("removes next subtree and moves cursor", func(t *testing.T) {
		j := journal.New()
		a, _ := j.Append(tx("a"))
		j.Append(tx("b"))
		j.Append(tx("c"))

		removed, err := j.Remove(a)
		require.NoError(t, err)

		assert.Equal(t, "a", removed.Message)
		assert.Equal(t, j.Root(), j.Current())
		assert.Equal(t, 1, j.Live())
		assert.True(t, j.Validate())
	})

	t.Run("unlinks from sibling chain", func(t *testing.T) {
		j := journal.New()
		a, _ := j.Append(tx("a"))
		b, err := j.Fork(tx("b"))
		require.NoError(t, err)
		c, err := j.Fork(tx("c"))
		require.NoError(t, err)

		_, err = j.Remove(b)
		require.NoError(t, err)

		assert.Equal(t, []journal.NodeID{a}, j.Children(j.Root()))
		_, ok := j.Node(c)
		assert.False(t, ok, "later siblings are pruned with the removed node")
		assert.Equal(t, j.Root(), j.Current())
		assert.True(t, j.Validate())
	})

	t.Run("cursor outside removed region stays", func(t *testing.T) {
		j := journal.New()
		a, _ := j.Append(tx("a"))
		b, _ := j.Append(tx("b"))
		require.NoError(t, j.Undo())

		_, err := j.Remove(b)
		require.NoError(t, err)

		assert.Equal(t, a, j.Current())
		assert.Empty(t, j.Children(a))
		assert.True(t, j.Validate())
	})

	t.Run("root and unknown handles", func(t *testing.T) {
		j := journal.New()
		_, err := j.Remove(j.Root())
		assert.ErrorIs(t, err, domain.ErrRootUndo)
		_, err = j.Remove(42)
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})
}

func TestJournal_Truncate(t *testing.T) {
	t.Run("frees the branch and its later siblings", func(t *testing.T) {
		j := journal.New()
		a, _ := j.Append(tx("a"))
		j.Append(tx("a2"))
		require.NoError(t, j.Undo())
		b, err := j.Fork(tx("b"))
		require.NoError(t, err)
		_, err = j.Fork(tx("c"))
		require.NoError(t, err)

		require.NoError(t, j.Truncate(b))

		assert.Equal(t, []journal.NodeID{a}, j.Children(j.Root()))
		assert.Equal(t, j.Root(), j.Current())
		assert.Equal(t, 3, j.Live())
		assert.True(t, j.Validate())

		// Freed slots are reused without corrupting the surviving branch.
		j.Append(tx("d"))
		j.Append(tx("e"))
		assert.True(t, j.Validate())
	})

	t.Run("first child clears the next slot", func(t *testing.T) {
		j := journal.New()
		a, _ := j.Append(tx("a"))
		j.Append(tx("b"))

		require.NoError(t, j.Truncate(a))

		assert.Empty(t, j.Children(j.Root()))
		assert.Equal(t, j.Root(), j.Current())
		assert.Equal(t, 1, j.Live())
		assert.True(t, j.Validate())
		assert.ErrorIs(t, j.Redo(), domain.ErrNothingToRedo)
	})

	t.Run("root and unknown handles", func(t *testing.T) {
		j := journal.New()
		j.Append(tx("a"))

		assert.ErrorIs(t, j.Truncate(j.Root()), domain.ErrRootUndo)
		assert.ErrorIs(t, j.Truncate(42), domain.ErrNodeNotFound)
		assert.Equal(t, 2, j.Live())
		_, ok := j.Node(j.Current())
		assert.True(t, ok)
		assert.True(t, j.Validate())
	})
}

func TestJournal_UndoRedo(t *testing.T) {
	x := 0
	j := journal.New()
	j.Append(domain.NewTransaction("x=1", func() { x = 1 }, domain.WithUndo(func() { x = 0 })))
	x = 1

	require.NoError(t, j.Undo())
	assert.Equal(t, 0, x)
	require.NoError(t, j.Redo())
	assert.Equal(t, 1, x)
	assert.ErrorIs(t, j.Redo(), domain.ErrNothingToRedo)
}

func TestJournal_SlotsAreRecycled(t *testing.T) {
	j := journal.New()
	for i := 0; i < 10; i++ {
		j.Append(tx("edit"))
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, j.Undo())
	}
	j.Append(tx("replacement"))

	assert.Equal(t, 2, j.Live())
	assert.Len(t, j.Snapshot(), 2)
	assert.Equal(t, []journal.NodeID{j.Root(), j.Current()}, j.Path())
}

func TestJournal_ValidateAfterRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	j := journal.New()

	for step := 0; step < 2000; step++ {
		switch rng.Intn(5) {
		case 0, 1:
			if rng.Intn(3) == 0 {
				j.Append(txWith("drag", "/World/Cube", "xformOp:translate"))
			} else {
				j.Append(tx("edit"))
			}
		case 2:
			_, _ = j.Fork(tx("fork"))
		case 3:
			_ = j.Undo()
		case 4:
			snap := j.Snapshot()
			victim := snap[rng.Intn(len(snap))].ID
			if rng.Intn(2) == 0 {
				_, _ = j.Remove(victim)
			} else {
				_ = j.Truncate(victim)
			}
		}
		require.True(t, j.Validate(), "step %d", step)
		_, ok := j.Node(j.Current())
		require.True(t, ok, "cursor must stay live at step %d", step)
	}
}
