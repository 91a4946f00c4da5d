// Package timeline models the ordered content sequence of a render and the
// allocation of per-item screen durations.
package timeline

import "sort"

// ItemType identifies the kind of visual content an item references.
type ItemType string

// Supported content types.
const (
	TypeVideo ItemType = "video"
	TypeImage ItemType = "image"
)

// Valid returns true for a known content type.
func (t ItemType) Valid() bool {
	return t == TypeVideo || t == TypeImage
}

// Item is one ordered request for a visual unit. Slice position within a
// sequence is the authoritative render order.
type Item struct {
	Type         ItemType
	ContentID    string
	Duration     float64 // target seconds; zero when only an aggregate total is given
	SectionIndex int
}

// SourceDescriptor is a resolved download location for a content ID.
// Width and height are optional hints from the upstream search result.
type SourceDescriptor struct {
	URL    string
	Width  int
	Height int
}

// MediaItem is a fetched artifact ready for normalization.
type MediaItem struct {
	Type      ItemType
	LocalPath string
	// Duration is the target duration currently assigned to this item. It
	// may be refined by allocation before normalization.
	Duration float64
	// NativeDuration is the probed source duration for videos and the
	// synthesized length for placeholder clips. Zero for images.
	NativeDuration float64
	Width          int
	Height         int
	// OriginalIndex is the item's position in the input sequence. Concurrent
	// fetching completes out of order; this index restores render order.
	OriginalIndex int
}

// FailureRecord reports one item that could not be fetched. Failures are
// metadata alongside a successful render, not an error, unless every item
// fails.
type FailureRecord struct {
	Index  int
	Reason string
}

// OutcomeKind tags the result of one fetch task.
type OutcomeKind int

// Fetch task outcomes.
const (
	// OutcomeSuccess means the item was fetched and verified.
	OutcomeSuccess OutcomeKind = iota
	// OutcomePlaceholder means the item could not be fetched and a synthetic
	// clip fills its slot.
	OutcomePlaceholder
	// OutcomeFailed means the item could not be fetched and its slot was
	// dropped.
	OutcomeFailed
)

// Outcome is the tagged per-task fetch result. Item is populated for
// OutcomeSuccess and OutcomePlaceholder; Reason for OutcomePlaceholder and
// OutcomeFailed.
type Outcome struct {
	Kind   OutcomeKind
	Index  int
	Item   MediaItem
	Reason string
}

// SortMediaItems orders items by their original sequence index.
func SortMediaItems(items []MediaItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].OriginalIndex < items[j].OriginalIndex
	})
}
