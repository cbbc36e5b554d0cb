// Package decision records what an agent saw, what it considered and what
// it chose, so every autonomous action can be explained after the fact.
package decision

import (
	"errors"
	"fmt"

	"github.com/talgya/hearthvale/internal/ecs"
)

// Limits on a single record.
const (
	MaxOptions   = 10
	MaxReasoning = 1024
	MaxOutcome   = 256
)

var (
	ErrUnknownAction   = errors.New("unknown decision action")
	ErrTooManyOptions  = errors.New("too many decision options")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Action is the kind of thing an agent decided to do.
type Action uint8

const (
	Move Action = iota
	Talk
	Trade
	Work
	Rest
	Eat
	Plant
	Harvest
	Water
	GiveGift
	Wait
	None
	actionCount
)

var actionNames = [actionCount]string{
	"move", "talk", "trade", "work", "rest", "eat",
	"plant", "harvest", "water", "give_gift", "wait", "none",
}

func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return "unknown"
}

// Valid reports whether a is a defined action.
func (a Action) Valid() bool { return a < actionCount }

// Actions lists every action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, actionCount)
	for a := Action(0); a < actionCount; a++ {
		out = append(out, a)
	}
	return out
}

// ParseAction converts a saved action name.
func ParseAction(s string) (Action, error) {
	for i, n := range actionNames {
		if n == s {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, uint8(a))
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Option is one course of action the agent weighed.
type Option struct {
	Action        Action       `json:"action"`
	Description   string       `json:"description"`
	Utility       float64      `json:"utility"`
	Cost          float64      `json:"cost"`
	SuccessChance float64      `json:"success_chance"`
	TargetEntity  ecs.EntityID `json:"target_entity_id"`
	TargetItem    string       `json:"target_item,omitempty"`
	TargetX       float64      `json:"target_x"`
	TargetY       float64      `json:"target_y"`
}

// Record is one closed-over decision: the context, the options, the choice
// and, once executed, the outcome.
type Record struct {
	ID         uint64       `json:"id"`
	Timestamp  int64        `json:"timestamp"`
	GameDay    int          `json:"game_day"`
	GameTime   string       `json:"game_time"`
	EntityID   ecs.EntityID `json:"entity_id"`
	EntityName string       `json:"entity_name"`

	Context      Context  `json:"context"`
	Options      []Option `json:"options"`
	Chosen       int      `json:"chosen_option_index"`
	ChosenAction Action   `json:"chosen_action"`
	Reasoning    string   `json:"reasoning"`

	Executed      bool    `json:"executed"`
	Succeeded     bool    `json:"succeeded"`
	ActualUtility float64 `json:"actual_utility"`
	Outcome       string  `json:"outcome_description"`
}

// NewRecord builds an open record from a captured context. chosen indexes
// options; with no options it must be -1 and the chosen action is None.
func NewRecord(ctx Context, options []Option, chosen int, reasoning string) (*Record, error) {
	if len(options) > MaxOptions {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyOptions, len(options), MaxOptions)
	}
	act := None
	switch {
	case len(options) == 0 && chosen == -1:
	case chosen < 0 || chosen >= len(options):
		return nil, fmt.Errorf("%w: chosen option %d of %d", ErrInvalidArgument, chosen, len(options))
	default:
		act = options[chosen].Action
		if !act.Valid() {
			return nil, fmt.Errorf("chosen option: %w", ErrUnknownAction)
		}
	}
	return &Record{
		GameDay:      ctx.Day,
		GameTime:     ctx.Period.Title(),
		EntityID:     ctx.EntityID,
		EntityName:   ctx.EntityName,
		Context:      ctx.Clone(),
		Options:      append([]Option(nil), options...),
		Chosen:       chosen,
		ChosenAction: act,
		Reasoning:    truncate(reasoning, MaxReasoning),
	}, nil
}

// SetOutcome closes the record.
func (r *Record) SetOutcome(succeeded bool, utility float64, desc string) {
	r.Executed = true
	r.Succeeded = succeeded
	r.ActualUtility = utility
	r.Outcome = truncate(desc, MaxOutcome)
}

// ChosenOption returns the selected option, if any.
func (r *Record) ChosenOption() (Option, bool) {
	if r.Chosen < 0 || r.Chosen >= len(r.Options) {
		return Option{}, false
	}
	return r.Options[r.Chosen], true
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	r.Context = r.Context.Clone()
	r.Options = append([]Option(nil), r.Options...)
	return r
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
