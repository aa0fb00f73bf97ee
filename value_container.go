package fileindex

import (
	json "github.com/goccy/go-json"
)

// ValueContainer holds, for one key, the set of input file ids that
// produced each distinct value. Most keys map to a single value shared by
// many files (e.g. every file with the same word count), so the container
// is keyed by value rather than by file id.
type ValueContainer[V comparable] struct {
	inputIDs map[V]map[int]struct{}
}

// NewValueContainer returns an empty container.
func NewValueContainer[V comparable]() *ValueContainer[V] {
	return &ValueContainer[V]{inputIDs: make(map[V]map[int]struct{})}
}

// Add records that inputID produced value.
func (c *ValueContainer[V]) Add(value V, inputID int) {
	set, ok := c.inputIDs[value]
	if !ok {
		set = make(map[int]struct{})
		c.inputIDs[value] = set
	}
	set[inputID] = struct{}{}
}

// Remove drops the association between value and inputID. The value's
// entry is pruned once its last input id is removed.
func (c *ValueContainer[V]) Remove(value V, inputID int) {
	set, ok := c.inputIDs[value]
	if !ok {
		return
	}
	delete(set, inputID)
	if len(set) == 0 {
		delete(c.inputIDs, value)
	}
}

// RemoveInput drops inputID from every value in the container, used when a
// file is reindexed or deleted and its prior contributions must be undone
// before new ones (if any) are added.
func (c *ValueContainer[V]) RemoveInput(inputID int) {
	for value, set := range c.inputIDs {
		delete(set, inputID)
		if len(set) == 0 {
			delete(c.inputIDs, value)
		}
	}
}

// IsEmpty reports whether the container has no values left, meaning its
// owning key can be dropped from the forward index entirely.
func (c *ValueContainer[V]) IsEmpty() bool {
	return len(c.inputIDs) == 0
}

// Values returns every distinct value currently present.
func (c *ValueContainer[V]) Values() []V {
	out := make([]V, 0, len(c.inputIDs))
	for v := range c.inputIDs {
		out = append(out, v)
	}
	return out
}

// InputIDsFor returns the input ids that produced value.
func (c *ValueContainer[V]) InputIDsFor(value V) []int {
	set, ok := c.inputIDs[value]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// AllInputIDs returns the union of input ids across every value, i.e. every
// file that contributed something under this key.
func (c *ValueContainer[V]) AllInputIDs() []int {
	seen := make(map[int]struct{})
	for _, set := range c.inputIDs {
		for id := range set {
			seen[id] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// ProcessValues visits each (value, inputIDs) pair. visit returns false to
// stop early.
func (c *ValueContainer[V]) ProcessValues(visit func(value V, inputIDs []int) bool) {
	for value, set := range c.inputIDs {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		if !visit(value, ids) {
			return
		}
	}
}

// Clone returns a deep copy of the container.
func (c *ValueContainer[V]) Clone() *ValueContainer[V] {
	out := NewValueContainer[V]()
	for value, set := range c.inputIDs {
		clone := make(map[int]struct{}, len(set))
		for id := range set {
			clone[id] = struct{}{}
		}
		out.inputIDs[value] = clone
	}
	return out
}

// wireValueContainer is the on-disk shape of a ValueContainer: one entry
// per distinct value, each carrying the input ids that produced it.
type wireValueContainer[V comparable] struct {
	Value    V     `json:"v"`
	InputIDs []int `json:"ids"`
}

// valueContainerCodec adapts ValueContainer[V] to store.ValueCodec so a
// forward index's PersistentMap can persist it directly.
type valueContainerCodec[V comparable] struct{}

func (valueContainerCodec[V]) EncodeValue(c *ValueContainer[V]) ([]byte, error) {
	wire := make([]wireValueContainer[V], 0, len(c.inputIDs))
	c.ProcessValues(func(value V, ids []int) bool {
		wire = append(wire, wireValueContainer[V]{Value: value, InputIDs: ids})
		return true
	})
	return json.Marshal(wire)
}

func (valueContainerCodec[V]) DecodeValue(b []byte) (*ValueContainer[V], error) {
	var wire []wireValueContainer[V]
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, err
	}
	c := NewValueContainer[V]()
	for _, entry := range wire {
		for _, id := range entry.InputIDs {
			c.Add(entry.Value, id)
		}
	}
	return c, nil
}
