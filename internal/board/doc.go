/*
Package board implements the ranking board shared by every ranking page.

A board splits a universe of candidate items into two disjoint containers:
the pool (unranked, shown sorted by label and optionally filtered by category)
and the ranked list (ordered, best first). Items move between them only through
MoveToList, MoveToPool and Reorder.

The Coordinator translates drag-and-drop events into those operations and keeps
the drag session, the single item currently being dragged. A drop on a ranked
row coming straight from the pool ranks the item and positions it in one step.

A Session wraps a board with its persistence Adapter and the page lifecycle:

	loading → ready → submitting → submitted | ready-with-error

Submitting converts the ranked list to RankRow values with contiguous 1-based
ranks and hands the ordered ids to the adapter, which replaces any ranking the
owner saved before. An empty ranking is rejected before the adapter is called.
*/
package board
