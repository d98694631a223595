package board

import (
	"strconv"
	"strings"
)

// EventType is the kind of drag-and-drop event sent by the client
type EventType string

const (
	EventDragStart EventType = "dragstart"
	EventDragOver  EventType = "dragover"
	EventDrop      EventType = "drop"
)

// Region is where a drop landed
type Region string

const (
	RegionPool Region = "pool" // anywhere over the candidate pool
	RegionList Region = "list" // empty area or end of the ranked list
	RegionRow  Region = "row"  // a specific ranked row, see Event.TargetID
)

// Event is one drag-and-drop interaction
type Event struct {
	Type     EventType `json:"type"`
	Region   Region    `json:"region,omitempty"`
	ItemID   int64     `json:"item_id,omitempty"`
	Payload  string    `json:"payload,omitempty"`
	TargetID int64     `json:"target_id,omitempty"`
}

// Outcome is the coordinator's answer to an Event
type Outcome struct {
	Applied  bool   `json:"applied"`
	Accepted bool   `json:"accepted,omitempty"`
	Payload  string `json:"payload,omitempty"`
	Action   string `json:"action,omitempty"`
}

// Actions reported in Outcome.Action
const (
	ActionDragStart  = "drag_start"
	ActionMoveToList = "move_to_list"
	ActionMoveToPool = "move_to_pool"
	ActionReorder    = "reorder"
	ActionInsertAt   = "insert_at"
)

// EncodePayload serializes an item's identity for the drag transfer payload
func EncodePayload[T Item](item T) string {
	return strconv.FormatInt(item.Key(), 10)
}

// DecodePayload parses a transfer payload back into a key
func DecodePayload(payload string) (int64, bool) {
	key, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil {
		return 0, false
	}
	return key, true
}

// Coordinator turns drag-and-drop events into board operations.
// It holds the drag session: the one item currently being dragged.
type Coordinator[T Item] struct {
	board    *Board[T]
	dragging *T
}

// NewCoordinator creates a coordinator driving b
func NewCoordinator[T Item](b *Board[T]) *Coordinator[T] {
	return &Coordinator[T]{board: b}
}

// Dragging returns the item of the active drag session, if any
func (c *Coordinator[T]) Dragging() (T, bool) {
	if c.dragging == nil {
		var zero T
		return zero, false
	}
	return *c.dragging, true
}

// DragStart records item as being dragged and returns its transfer payload
func (c *Coordinator[T]) DragStart(item T) string {
	c.dragging = &item
	return EncodePayload(item)
}

// DragOver accepts the drop. Without it the client never fires the drop event.
func (c *Coordinator[T]) DragOver() bool {
	return true
}

// DropOnPool returns the payload's item to the pool
func (c *Coordinator[T]) DropOnPool(payload string) bool {
	defer c.endDrag()
	item, ok := c.resolve(payload)
	if !ok {
		return false
	}
	return c.board.MoveToPool(item)
}

// DropOnList appends the payload's item to the ranked list
func (c *Coordinator[T]) DropOnList(payload string) bool {
	defer c.endDrag()
	item, ok := c.resolve(payload)
	if !ok {
		return false
	}
	return c.board.MoveToList(item)
}

// DropOnRow positions the dragged item at target's row. An item coming from the pool is
// ranked and positioned in one step.
func (c *Coordinator[T]) DropOnRow(payload string, targetKey int64) (string, bool) {
	defer c.endDrag()

	item, ok := c.resolve(payload)
	if !ok || !c.board.InList(targetKey) {
		return "", false
	}
	target, _ := c.board.Find(targetKey)

	if c.board.InList(item.Key()) {
		return ActionReorder, c.board.Reorder(item, target)
	}
	c.board.MoveToList(item)
	c.board.Reorder(item, target)
	return ActionInsertAt, true
}

// Handle dispatches a single event
func (c *Coordinator[T]) Handle(ev Event) Outcome {
	switch ev.Type {
	case EventDragStart:
		item, ok := c.board.Find(ev.ItemID)
		if !ok {
			return Outcome{}
		}
		return Outcome{Applied: true, Payload: c.DragStart(item), Action: ActionDragStart}
	case EventDragOver:
		return Outcome{Accepted: c.DragOver()}
	case EventDrop:
		return c.drop(ev)
	}
	return Outcome{}
}

func (c *Coordinator[T]) drop(ev Event) Outcome {
	switch ev.Region {
	case RegionPool:
		return Outcome{Applied: c.DropOnPool(ev.Payload), Action: ActionMoveToPool}
	case RegionList:
		return Outcome{Applied: c.DropOnList(ev.Payload), Action: ActionMoveToList}
	case RegionRow:
		action, applied := c.DropOnRow(ev.Payload, ev.TargetID)
		if action == "" {
			action = ActionReorder
		}
		return Outcome{Applied: applied, Action: action}
	}
	c.endDrag()
	return Outcome{}
}

// resolve maps a drop payload to its item. An empty payload falls back to the drag
// session, for clients that cannot read the transfer data on drop.
func (c *Coordinator[T]) resolve(payload string) (T, bool) {
	if strings.TrimSpace(payload) == "" {
		return c.Dragging()
	}
	key, ok := DecodePayload(payload)
	if !ok {
		var zero T
		return zero, false
	}
	return c.board.Find(key)
}

func (c *Coordinator[T]) endDrag() {
	c.dragging = nil
}
