package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemType_Valid(t *testing.T) {
	tests := []struct {
		itemType ItemType
		expected bool
	}{
		{TypeVideo, true},
		{TypeImage, true},
		{ItemType("audio"), false},
		{ItemType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.itemType), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.itemType.Valid())
		})
	}
}

func TestSortMediaItems(t *testing.T) {
	items := []MediaItem{
		{OriginalIndex: 3, LocalPath: "d.mp4"},
		{OriginalIndex: 0, LocalPath: "a.mp4"},
		{OriginalIndex: 2, LocalPath: "c.mp4"},
		{OriginalIndex: 1, LocalPath: "b.mp4"},
	}

	SortMediaItems(items)

	for i, item := range items {
		assert.Equal(t, i, item.OriginalIndex)
	}
	assert.Equal(t, "a.mp4", items[0].LocalPath)
	assert.Equal(t, "d.mp4", items[3].LocalPath)
}
