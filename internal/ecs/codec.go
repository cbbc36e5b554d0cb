package ecs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalComponent encodes c as a flat object tagged with its kind:
// {"kind":"position","location":"Village Square","x":1,"y":2}.
func MarshalComponent(c Component) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", c.Kind(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("marshal %s: not an object", c.Kind())
	}
	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	kind, _ := json.Marshal(c.Kind().String())
	buf.Write(kind)
	if len(body) > 2 {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

// UnmarshalComponent decodes a kind-tagged object. Unknown keys are ignored;
// an unknown kind is an error.
func UnmarshalComponent(data []byte) (Component, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode component: %w", err)
	}
	k, err := ParseKind(head.Kind)
	if err != nil {
		return nil, err
	}
	c := newComponent(k)
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", k, err)
	}
	normalize(c)
	return c, nil
}

func newComponent(k Kind) Component {
	switch k {
	case KindPosition:
		return &Position{}
	case KindHealth:
		return &Health{}
	case KindInventory:
		return &Inventory{}
	case KindCurrency:
		return &Currency{}
	case KindNeeds:
		return &Needs{}
	case KindRelationship:
		return NewRelationship()
	case KindSchedule:
		return &Schedule{}
	case KindOccupation:
		return &Occupation{}
	case KindMemory:
		return &Memory{}
	case KindGoal:
		return &Goal{}
	}
	panic(fmt.Sprintf("ecs: no constructor for kind %d", k))
}

// normalize fills defaults a hand-edited save may have left out.
func normalize(c Component) {
	switch v := c.(type) {
	case *Inventory:
		if v.Capacity <= 0 {
			v.Capacity = DefaultInventoryCapacity
		}
	case *Memory:
		if v.Capacity <= 0 {
			v.Capacity = DefaultMemoryCapacity
		}
	case *Relationship:
		if v.Values == nil {
			v.Values = make(map[EntityID]int)
		}
	}
}
