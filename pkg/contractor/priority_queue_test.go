package contractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeap(t *testing.T) {
	pq := NewMinHeap[int64]()
	pq.Insert(PriorityQueueNode[int64]{Rank: 5, Item: 1})
	pq.Insert(PriorityQueueNode[int64]{Rank: 3, Item: 2})
	pq.Insert(PriorityQueueNode[int64]{Rank: 8, Item: 3})
	pq.Insert(PriorityQueueNode[int64]{Rank: 1, Item: 4})

	require.NoError(t, pq.DecreaseKey(PriorityQueueNode[int64]{Rank: 0.5, Item: 3}))
	assert.Error(t, pq.DecreaseKey(PriorityQueueNode[int64]{Rank: 10, Item: 1}))

	order := []int64{}
	for pq.Size() > 0 {
		n, err := pq.ExtractMin()
		require.NoError(t, err)
		order = append(order, n.Item)
		assert.False(t, pq.Contains(n.Item))
	}
	assert.Equal(t, []int64{3, 4, 2, 1}, order)

	_, err := pq.ExtractMin()
	assert.Error(t, err)
}
