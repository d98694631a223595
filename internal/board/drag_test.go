package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDragEndToEnd(t *testing.T) {
	b := New([]card{cardA, cardB, cardC}, nil)
	c := NewCoordinator(b)

	payload := c.DragStart(cardB)
	assert.Equal(t, "2", payload)
	assert.True(t, c.DragOver())
	require.True(t, c.DropOnList(payload))

	assert.Equal(t, []string{"A", "C"}, labels(b.Pool()))
	assert.Equal(t, []string{"B"}, labels(b.Ranked()))
	_, dragging := c.Dragging()
	assert.False(t, dragging, "drop must clear the drag session")

	payload = c.DragStart(cardA)
	action, ok := c.DropOnRow(payload, cardB.id)
	require.True(t, ok)
	assert.Equal(t, ActionInsertAt, action)
	assert.Equal(t, []string{"A", "B"}, labels(b.Ranked()))
	assert.Equal(t, []string{"C"}, labels(b.Pool()))
	assert.Equal(t, []RankRow{{9, 1, 1}, {9, 2, 2}}, Rows(9, b.Keys()))
}

func TestDropClearsSessionOnFailure(t *testing.T) {
	b := New([]card{cardA}, nil)
	c := NewCoordinator(b)

	c.DragStart(cardA)
	assert.False(t, c.DropOnPool("not-a-number"))
	_, dragging := c.Dragging()
	assert.False(t, dragging)

	c.DragStart(cardA)
	assert.False(t, c.DropOnList("404"))
	_, dragging = c.Dragging()
	assert.False(t, dragging)
}

func TestHandleEvents(t *testing.T) {
	tests := []struct {
		name       string
		ranked     []card
		pool       []card
		events     []Event
		wantLast   Outcome
		wantRanked []string
		wantPool   []string
	}{
		{
			name: "drag start on unknown item",
			pool: []card{cardA},
			events: []Event{
				{Type: EventDragStart, ItemID: 77},
			},
			wantLast: Outcome{},
			wantPool: []string{"A"},
		},
		{
			name: "drag over is always accepted",
			pool: []card{cardA},
			events: []Event{
				{Type: EventDragOver, Region: RegionList},
			},
			wantLast: Outcome{Accepted: true},
			wantPool: []string{"A"},
		},
		{
			name: "drop on list",
			pool: []card{cardA, cardB},
			events: []Event{
				{Type: EventDragStart, ItemID: 1},
				{Type: EventDrop, Region: RegionList, Payload: "1"},
			},
			wantLast:   Outcome{Applied: true, Action: ActionMoveToList},
			wantRanked: []string{"A"},
			wantPool:   []string{"B"},
		},
		{
			name:   "duplicate drop on list",
			ranked: []card{cardA},
			events: []Event{
				{Type: EventDrop, Region: RegionList, Payload: "1"},
			},
			wantLast:   Outcome{Applied: false, Action: ActionMoveToList},
			wantRanked: []string{"A"},
		},
		{
			name:   "drop back on pool",
			ranked: []card{cardA, cardB},
			events: []Event{
				{Type: EventDrop, Region: RegionPool, Payload: "2"},
			},
			wantLast:   Outcome{Applied: true, Action: ActionMoveToPool},
			wantRanked: []string{"A"},
			wantPool:   []string{"B"},
		},
		{
			name:   "row drop without payload uses drag session",
			ranked: []card{cardA, cardB, cardC},
			events: []Event{
				{Type: EventDragStart, ItemID: 3},
				{Type: EventDrop, Region: RegionRow, TargetID: 1},
			},
			wantLast:   Outcome{Applied: true, Action: ActionReorder},
			wantRanked: []string{"C", "A", "B"},
		},
		{
			name: "list drop without payload uses drag session",
			pool: []card{cardA, cardB},
			events: []Event{
				{Type: EventDragStart, ItemID: 2},
				{Type: EventDrop, Region: RegionList},
			},
			wantLast:   Outcome{Applied: true, Action: ActionMoveToList},
			wantRanked: []string{"B"},
			wantPool:   []string{"A"},
		},
		{
			name:   "pool drop without payload uses drag session",
			ranked: []card{cardA, cardB},
			events: []Event{
				{Type: EventDragStart, ItemID: 1},
				{Type: EventDrop, Region: RegionPool},
			},
			wantLast:   Outcome{Applied: true, Action: ActionMoveToPool},
			wantRanked: []string{"B"},
			wantPool:   []string{"A"},
		},
		{
			name:   "drop without payload or drag session",
			pool:   []card{cardA},
			events: []Event{
				{Type: EventDrop, Region: RegionList},
			},
			wantLast: Outcome{Applied: false, Action: ActionMoveToList},
			wantPool: []string{"A"},
		},
		{
			name:   "row drop with garbage payload",
			ranked: []card{cardA, cardB},
			events: []Event{
				{Type: EventDrop, Region: RegionRow, Payload: "{oops", TargetID: 1},
			},
			wantLast:   Outcome{Applied: false, Action: ActionReorder},
			wantRanked: []string{"A", "B"},
		},
		{
			name:   "unknown region",
			ranked: []card{cardA},
			events: []Event{
				{Type: EventDrop, Region: "sidebar", Payload: "1"},
			},
			wantLast:   Outcome{},
			wantRanked: []string{"A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.pool, tt.ranked)
			c := NewCoordinator(b)

			var last Outcome
			for _, ev := range tt.events {
				last = c.Handle(ev)
			}
			if last.Payload != "" {
				last.Payload = ""
			}
			assert.Equal(t, tt.wantLast, last)

			wantRanked := tt.wantRanked
			if wantRanked == nil {
				wantRanked = []string{}
			}
			wantPool := tt.wantPool
			if wantPool == nil {
				wantPool = []string{}
			}
			assert.Equal(t, wantRanked, labels(b.Ranked()))
			assert.Equal(t, wantPool, labels(b.Pool()))
		})
	}
}

func TestDecodePayload(t *testing.T) {
	key, ok := DecodePayload(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, int64(42), key)

	_, ok = DecodePayload(`{"CompanyID":1}`)
	assert.False(t, ok)
}
