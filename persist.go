package agent

import "context"

// ThoughtUpdate carries the fields written back to a stored reasoning
// record. Zero-valued fields are still written; the record reflects the
// loop's current view of the iteration.
type ThoughtUpdate struct {
	Thought     string
	ToolName    string
	ToolInput   string
	Observation string
	Answer      string
	Usage       *Usage
}

// ThoughtStore persists reasoning records as the loop produces them.
//
// Persistence is best effort: the loop logs nothing and never aborts on a
// store error, it only drops that write. Implementations own their
// durability and retry policy.
type ThoughtStore interface {
	// CreateThought allocates a record for a new iteration and returns
	// its id, used in subsequent UpdateThought calls and in events.
	CreateThought(ctx context.Context) (string, error)

	// UpdateThought overwrites the record's mutable fields.
	UpdateThought(ctx context.Context, id string, upd ThoughtUpdate) error
}

// NopThoughtStore discards all writes. Create returns an empty id.
type NopThoughtStore struct{}

var _ ThoughtStore = NopThoughtStore{}

func (NopThoughtStore) CreateThought(context.Context) (string, error) {
	return "", nil
}

func (NopThoughtStore) UpdateThought(context.Context, string, ThoughtUpdate) error {
	return nil
}
