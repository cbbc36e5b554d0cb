// Package behavior is the behavior-tree interpreter that drives villagers.
// Composites and decorators decide which leaf runs; leaves either check a
// condition or act on the world through the handles on a Context.
package behavior

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/hearthvale/internal/decision"
)

// MaxChildren bounds the children of a composite node.
const MaxChildren = 10

var ErrTooManyChildren = errors.New("node has no free child slots")

// Status is the result of ticking a node.
type Status uint8

const (
	Success Status = iota
	Failure
	Running
)

func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case Running:
		return "RUNNING"
	}
	return "UNKNOWN"
}

// Node is one vertex of a behavior tree.
type Node interface {
	Name() string
	Tick(ctx *Context) Status
	// Reset clears resume state on this node and everything below it.
	Reset()
	Children() []Node
	Info() NodeInfo
}

// NodeInfo is what a node remembers about its own ticks.
type NodeInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Executions int    `json:"execution_count"`
	Last       Status `json:"-"`
	LastStatus string `json:"last_status"`
}

// Condition is a predicate over the ticking context.
type Condition interface {
	Eval(ctx *Context) bool
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(ctx *Context) bool

func (f ConditionFunc) Eval(ctx *Context) bool { return f(ctx) }

// Action changes the world and reports how it went.
type Action interface {
	Run(ctx *Context) Status
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx *Context) Status

func (f ActionFunc) Run(ctx *Context) Status { return f(ctx) }

type base struct {
	name       string
	typ        string
	executions int
	last       Status
}

func (b *base) Name() string { return b.name }

func (b *base) Info() NodeInfo {
	return NodeInfo{Name: b.name, Type: b.typ, Executions: b.executions, Last: b.last, LastStatus: b.last.String()}
}

func (b *base) enter() { b.executions++ }

func (b *base) leave(ctx *Context, s Status) Status {
	b.last = s
	if ctx.Logging {
		slog.Debug("bt", "entity", ctx.Entity, "node", b.name, "status", s.String())
	}
	return s
}

type composite struct {
	base
	children []Node
	current  int
}

// AddChild appends child.
func (c *composite) AddChild(child Node) error {
	if child == nil {
		return fmt.Errorf("add child to %s: nil node", c.name)
	}
	if len(c.children) >= MaxChildren {
		return fmt.Errorf("add child to %s: %w", c.name, ErrTooManyChildren)
	}
	c.children = append(c.children, child)
	return nil
}

func (c *composite) mustAdd(children []Node) {
	for _, ch := range children {
		if err := c.AddChild(ch); err != nil {
			panic(fmt.Sprintf("behavior: %v", err))
		}
	}
}

func (c *composite) Children() []Node { return append([]Node(nil), c.children...) }

func (c *composite) Reset() {
	c.current = 0
	for _, ch := range c.children {
		ch.Reset()
	}
}

// Sequence runs children in order and fails on the first failure. A running
// child is resumed on the next tick.
type Sequence struct{ composite }

// NewSequence builds a sequence. It panics past MaxChildren.
func NewSequence(name string, children ...Node) *Sequence {
	n := &Sequence{composite{base: base{name: name, typ: "sequence"}}}
	n.mustAdd(children)
	return n
}

func (n *Sequence) Tick(ctx *Context) Status {
	n.enter()
	for i := n.current; i < len(n.children); i++ {
		switch n.children[i].Tick(ctx) {
		case Failure:
			n.current = 0
			return n.leave(ctx, Failure)
		case Running:
			n.current = i
			return n.leave(ctx, Running)
		}
	}
	n.current = 0
	return n.leave(ctx, Success)
}

// Selector runs children in order until one succeeds.
type Selector struct{ composite }

// NewSelector builds a selector. It panics past MaxChildren.
func NewSelector(name string, children ...Node) *Selector {
	n := &Selector{composite{base: base{name: name, typ: "selector"}}}
	n.mustAdd(children)
	return n
}

func (n *Selector) Tick(ctx *Context) Status {
	n.enter()
	for i := n.current; i < len(n.children); i++ {
		switch n.children[i].Tick(ctx) {
		case Success:
			n.current = 0
			return n.leave(ctx, Success)
		case Running:
			n.current = i
			return n.leave(ctx, Running)
		}
	}
	n.current = 0
	return n.leave(ctx, Failure)
}

// Parallel ticks every child each time. Any running child keeps it
// running; otherwise it succeeds only if every child did.
type Parallel struct{ composite }

// NewParallel builds a parallel node. It panics past MaxChildren.
func NewParallel(name string, children ...Node) *Parallel {
	n := &Parallel{composite{base: base{name: name, typ: "parallel"}}}
	n.mustAdd(children)
	return n
}

func (n *Parallel) Tick(ctx *Context) Status {
	n.enter()
	succeeded, running := 0, 0
	for _, ch := range n.children {
		switch ch.Tick(ctx) {
		case Success:
			succeeded++
		case Running:
			running++
		}
	}
	switch {
	case running > 0:
		return n.leave(ctx, Running)
	case succeeded == len(n.children):
		return n.leave(ctx, Success)
	}
	return n.leave(ctx, Failure)
}

type decorator struct {
	base
	child Node
}

func (d *decorator) Children() []Node {
	if d.child == nil {
		return nil
	}
	return []Node{d.child}
}

// Inverter swaps success and failure. Running passes through.
type Inverter struct{ decorator }

func NewInverter(name string, child Node) *Inverter {
	return &Inverter{decorator{base: base{name: name, typ: "inverter"}, child: child}}
}

func (n *Inverter) Tick(ctx *Context) Status {
	n.enter()
	if n.child == nil {
		return n.leave(ctx, Failure)
	}
	switch s := n.child.Tick(ctx); s {
	case Success:
		return n.leave(ctx, Failure)
	case Failure:
		return n.leave(ctx, Success)
	default:
		return n.leave(ctx, s)
	}
}

func (n *Inverter) Reset() {
	if n.child != nil {
		n.child.Reset()
	}
}

// Repeater succeeds once its child has succeeded Count times, reporting
// running in between. A child failure resets the count.
type Repeater struct {
	decorator
	Count   int
	current int
}

func NewRepeater(name string, child Node, count int) *Repeater {
	return &Repeater{decorator: decorator{base: base{name: name, typ: "repeater"}, child: child}, Count: max(count, 1)}
}

func (n *Repeater) Tick(ctx *Context) Status {
	n.enter()
	if n.child == nil {
		return n.leave(ctx, Failure)
	}
	switch s := n.child.Tick(ctx); s {
	case Success:
		n.current++
		if n.current < n.Count {
			return n.leave(ctx, Running)
		}
		n.current = 0
		return n.leave(ctx, Success)
	case Failure:
		n.current = 0
		return n.leave(ctx, Failure)
	default:
		return n.leave(ctx, s)
	}
}

// Repeats is how many successes have been counted towards Count.
func (n *Repeater) Repeats() int { return n.current }

func (n *Repeater) Reset() {
	n.current = 0
	if n.child != nil {
		n.child.Reset()
	}
}

// ConditionNode succeeds when its condition holds.
type ConditionNode struct {
	base
	cond Condition
}

func NewCondition(name string, c Condition) *ConditionNode {
	return &ConditionNode{base: base{name: name, typ: "condition"}, cond: c}
}

func (n *ConditionNode) Tick(ctx *Context) Status {
	n.enter()
	ok := n.cond != nil && n.cond.Eval(ctx)
	ctx.note(n.name, ok)
	if ok {
		return n.leave(ctx, Success)
	}
	return n.leave(ctx, Failure)
}

func (n *ConditionNode) Reset()           {}
func (n *ConditionNode) Children() []Node { return nil }

// ActionNode runs an action. Each tick is offered to the context as an
// option of the given kind; a non-failing tick makes it the choice.
type ActionNode struct {
	base
	kind   decision.Action
	action Action
}

func NewAction(name string, kind decision.Action, a Action) *ActionNode {
	return &ActionNode{base: base{name: name, typ: "action"}, kind: kind, action: a}
}

// Kind is the decision action this node stands for.
func (n *ActionNode) Kind() decision.Action { return n.kind }

func (n *ActionNode) Tick(ctx *Context) Status {
	n.enter()
	if n.action == nil {
		return n.leave(ctx, Failure)
	}
	idx := ctx.consider(n.kind, n.name)
	s := n.action.Run(ctx)
	ctx.settle(idx, s)
	return n.leave(ctx, s)
}

func (n *ActionNode) Reset()           {}
func (n *ActionNode) Children() []Node { return nil }
