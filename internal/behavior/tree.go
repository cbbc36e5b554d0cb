package behavior

import (
	"fmt"
	"strings"

	"github.com/talgya/hearthvale/internal/ecs"
)

// TreeStats are the running totals of a tree's tick outcomes.
type TreeStats struct {
	Total   int `json:"total_ticks"`
	Success int `json:"successful_ticks"`
	Failure int `json:"failed_ticks"`
	Running int `json:"running_ticks"`
}

// Tree is a root node plus the entity it drives.
type Tree struct {
	Name   string
	Entity ecs.EntityID
	root   Node
	stats  TreeStats
}

// NewTree wraps root.
func NewTree(name string, root Node) *Tree {
	return &Tree{Name: name, Entity: ecs.NoEntity, root: root}
}

// Root returns the root node.
func (t *Tree) Root() Node { return t.root }

// Tick runs the root once. A tree without a root fails.
func (t *Tree) Tick(ctx *Context) Status {
	ctx.begin()
	defer ctx.end()
	if t.root == nil {
		return Failure
	}
	t.stats.Total++
	ctx.TickCount++
	s := t.root.Tick(ctx)
	switch s {
	case Success:
		t.stats.Success++
	case Failure:
		t.stats.Failure++
	case Running:
		t.stats.Running++
	}
	return s
}

// Reset clears resume state across the whole tree, so a sequence or
// selector that was running starts again from its first child.
func (t *Tree) Reset() {
	if t.root != nil {
		t.root.Reset()
	}
}

// Stats returns the tick totals.
func (t *Tree) Stats() TreeStats { return t.stats }

// SetStats restores totals loaded from a save.
func (t *Tree) SetStats(s TreeStats) { t.stats = s }

// Walk visits n and its descendants depth first. fn returning false skips
// the children of that node.
func Walk(n Node, fn func(n Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, ch := range n.Children() {
		walk(ch, depth+1, fn)
	}
}

// Find returns the first node named name.
func Find(n Node, name string) Node {
	var found Node
	Walk(n, func(c Node, _ int) bool {
		if found == nil && c.Name() == name {
			found = c
		}
		return found == nil
	})
	return found
}

// Describe renders the tree with per-node counters, one node per line.
func (t *Tree) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (ticks=%d success=%d failure=%d running=%d)\n",
		t.Name, t.stats.Total, t.stats.Success, t.stats.Failure, t.stats.Running)
	Walk(t.root, func(n Node, depth int) bool {
		info := n.Info()
		fmt.Fprintf(&b, "%s[%s] %s (runs=%d last=%s)\n",
			strings.Repeat("  ", depth+1), info.Type, info.Name, info.Executions, info.LastStatus)
		return true
	})
	return b.String()
}
