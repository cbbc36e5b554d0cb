package behavior

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/hearthvale/internal/agriculture"
	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/weather"
	"github.com/talgya/hearthvale/internal/world"
)

// DefaultBlackboardCapacity bounds the blackboard when none is configured.
const DefaultBlackboardCapacity = 50

// Blackboard keys read by the stock actions.
const (
	KeyTargetLocation = "target_location"
	KeyTargetEntity   = "target_entity"
	KeyGiftItem       = "gift_item"
	KeyShop           = "shop_id"
)

var ErrBlackboardFull = errors.New("blackboard full")

// Context carries one agent through one tick. The handles other than
// Registry are optional; stock actions fall back to simpler behavior when
// a handle is nil.
type Context struct {
	Entity   ecs.EntityID
	Registry *ecs.Registry
	Clock    clock.Clock
	Weather  weather.Kind
	Snapshot *decision.Context

	Graph     *world.Graph
	Farms     *agriculture.Manager
	Social    *social.Manager
	Market    *economy.Market
	Bus       *event.Bus
	Events    *event.Log
	Decisions *decision.Log

	TickCount int
	Logging   bool

	board    map[string]any
	boardCap int

	trace     []string
	options   []decision.Option
	current   int
	chosen    int
	pending   string
	outcome   string
	failure   string
	published []uint64
}

// NewContext returns a context for entity id with an empty blackboard.
func NewContext(id ecs.EntityID, reg *ecs.Registry) *Context {
	return &Context{
		Entity:   id,
		Registry: reg,
		board:    make(map[string]any),
		boardCap: DefaultBlackboardCapacity,
		current:  -1,
		chosen:   -1,
	}
}

// SetBlackboardCapacity changes the blackboard bound.
func (c *Context) SetBlackboardCapacity(n int) {
	if n > 0 {
		c.boardCap = n
	}
}

// Set stores v under key, overwriting an existing entry.
func (c *Context) Set(key string, v any) error {
	if c.board == nil {
		c.board = make(map[string]any)
	}
	if _, ok := c.board[key]; !ok && len(c.board) >= c.boardCap {
		return fmt.Errorf("set %q: %w", key, ErrBlackboardFull)
	}
	c.board[key] = v
	return nil
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.board[key]
	return v, ok
}

// Has reports whether key is set.
func (c *Context) Has(key string) bool {
	_, ok := c.board[key]
	return ok
}

// Delete removes key.
func (c *Context) Delete(key string) { delete(c.board, key) }

// Text returns the string stored under key.
func (c *Context) Text(key string) (string, bool) {
	s, ok := c.board[key].(string)
	return s, ok && s != ""
}

// EntityRef returns the entity ID stored under key.
func (c *Context) EntityRef(key string) (ecs.EntityID, bool) {
	id, ok := c.board[key].(ecs.EntityID)
	return id, ok && id != ecs.NoEntity
}

// BlackboardLen is the number of blackboard entries.
func (c *Context) BlackboardLen() int { return len(c.board) }

// Name returns the ticking entity's name.
func (c *Context) Name() string { return c.Registry.Name(c.Entity) }

// Publish sends e on the bus, if there is one, and remembers its ID.
func (c *Context) Publish(e *event.Event) {
	if c.Bus == nil {
		return
	}
	if e.Location == "" {
		if pos := c.Registry.Position(c.Entity); pos != nil {
			e.Location = pos.Location
		}
	}
	id, err := c.Bus.Publish(e)
	if err != nil {
		slog.Warn("behavior publish failed", "entity", c.Entity, "event", e.SubKind.String(), "error", err)
		return
	}
	c.published = append(c.published, id)
}

// Report sets the outcome line of the running action.
func (c *Context) Report(format string, args ...any) {
	c.pending = fmt.Sprintf(format, args...)
}

// SetAction changes the kind of the running action, for leaves that decide
// what they are doing only once they look at the world.
func (c *Context) SetAction(a decision.Action) {
	if c.current >= 0 && c.current < len(c.options) {
		c.options[c.current].Action = a
	}
}

// begin clears the per-tick decision bookkeeping.
func (c *Context) begin() {
	c.trace = c.trace[:0]
	c.options = c.options[:0]
	c.current, c.chosen = -1, -1
	c.pending, c.outcome, c.failure = "", "", ""
	c.published = c.published[:0]
}

// end drops the blackboard. Entries live for one tick; a caller may seed
// them between ticks as inputs for the next one.
func (c *Context) end() { clear(c.board) }

func (c *Context) note(name string, ok bool) {
	c.trace = append(c.trace, fmt.Sprintf("%s %t", name, ok))
}

func (c *Context) consider(kind decision.Action, name string) int {
	c.current = -1
	if len(c.options) >= decision.MaxOptions {
		return -1
	}
	c.options = append(c.options, decision.Option{
		Action:        kind,
		Description:   name,
		TargetEntity:  ecs.NoEntity,
		SuccessChance: 1,
	})
	c.current = len(c.options) - 1
	return c.current
}

func (c *Context) settle(idx int, s Status) {
	c.note(c.optionName(idx), s != Failure)
	if s == Failure {
		c.failure = c.pending
	} else {
		c.outcome = c.pending
	}
	c.pending = ""
	if idx < 0 {
		return
	}
	opt := &c.options[idx]
	if target, ok := c.EntityRef(KeyTargetEntity); ok {
		opt.TargetEntity = target
	}
	switch s {
	case Failure:
		opt.SuccessChance = 0
	case Running:
		opt.Utility = 0.5
		c.chosen = idx
	default:
		opt.Utility = 1
		c.chosen = idx
	}
	c.current = -1
}

func (c *Context) optionName(idx int) string {
	if idx < 0 || idx >= len(c.options) {
		return "action"
	}
	return c.options[idx].Description
}

// Options returns the actions tried during the last tick, in order.
func (c *Context) Options() []decision.Option {
	return append([]decision.Option(nil), c.options...)
}

// Chosen is the index of the action that carried the last tick, or -1.
func (c *Context) Chosen() int { return c.chosen }

// Reasoning renders the checks and attempts of the last tick.
func (c *Context) Reasoning() string { return strings.Join(c.trace, "; ") }

// Outcome is the report left by the chosen action, or by the last failed
// one when nothing carried the tick.
func (c *Context) Outcome() string {
	if c.outcome != "" {
		return c.outcome
	}
	return c.failure
}

// Published lists the IDs of events published during the last tick.
func (c *Context) Published() []uint64 { return append([]uint64(nil), c.published...) }
