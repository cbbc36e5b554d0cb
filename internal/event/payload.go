package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/talgya/hearthvale/internal/ecs"
)

// Payload is the sub-kind specific detail attached to an event.
// Implementations are plain values so copying an Event never shares state.
type Payload interface {
	payloadType() string
}

type TradePayload struct {
	Item     string `json:"item_name"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

type RelationshipPayload struct {
	Before int    `json:"relationship_before"`
	After  int    `json:"relationship_after"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type CropPayload struct {
	CropType       string `json:"crop_type"`
	PlotX          int    `json:"plot_x"`
	PlotY          int    `json:"plot_y"`
	Stage          string `json:"growth_stage"`
	DaysToMaturity int    `json:"days_to_maturity"`
}

type WeatherPayload struct {
	From string `json:"from_weather"`
	To   string `json:"to_weather"`
}

type CurrencyPayload struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

type ItemPayload struct {
	Item     string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

type MovePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (TradePayload) payloadType() string        { return "trade" }
func (RelationshipPayload) payloadType() string { return "relationship" }
func (CropPayload) payloadType() string         { return "crop" }
func (WeatherPayload) payloadType() string      { return "weather" }
func (CurrencyPayload) payloadType() string     { return "currency" }
func (ItemPayload) payloadType() string         { return "item" }
func (MovePayload) payloadType() string         { return "move" }

// PayloadType names the variant of p, or "" for nil.
func PayloadType(p Payload) string {
	if p == nil {
		return ""
	}
	return p.payloadType()
}

// wire is the JSON layout of an Event.
type wire struct {
	ID          uint64          `json:"id"`
	Kind        Kind            `json:"type"`
	SubKind     SubKind         `json:"subtype"`
	Timestamp   int64           `json:"timestamp"`
	GameDay     int             `json:"game_day"`
	GameTime    string          `json:"game_time"`
	Source      int             `json:"source_entity_id"`
	Target      int             `json:"target_entity_id"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"data,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	w := wire{
		ID:          e.ID,
		Kind:        e.Kind,
		SubKind:     e.SubKind,
		Timestamp:   e.Timestamp,
		GameDay:     e.GameDay,
		GameTime:    e.GameTime,
		Source:      int(e.Source),
		Target:      int(e.Target),
		Location:    e.Location,
		Description: e.Description,
	}
	if e.Payload != nil {
		body, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		var buf bytes.Buffer
		fmt.Fprintf(&buf, `{"kind":%q`, e.Payload.payloadType())
		if len(body) > 2 {
			buf.WriteByte(',')
			buf.Write(body[1 : len(body)-1])
		}
		buf.WriteByte('}')
		w.Payload = buf.Bytes()
	}
	return json.Marshal(w)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.SubKind.Kind() != w.Kind {
		return fmt.Errorf("%w: subtype %s does not belong to %s", ErrUnknownKind, w.SubKind, w.Kind)
	}
	*e = Event{
		ID:          w.ID,
		Kind:        w.Kind,
		SubKind:     w.SubKind,
		Timestamp:   w.Timestamp,
		GameDay:     w.GameDay,
		GameTime:    w.GameTime,
		Location:    w.Location,
		Description: w.Description,
	}
	e.Source = ecs.EntityID(w.Source)
	e.Target = ecs.EntityID(w.Target)
	if len(w.Payload) == 0 || string(w.Payload) == "null" {
		return nil
	}
	p, err := decodePayload(w.Payload)
	if err != nil {
		return err
	}
	e.Payload = p
	return nil
}

func decodePayload(data []byte) (Payload, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	var err error
	switch head.Kind {
	case "trade":
		var p TradePayload
		err = json.Unmarshal(data, &p)
		return p, err
	case "relationship":
		var p RelationshipPayload
		err = json.Unmarshal(data, &p)
		return p, err
	case "crop":
		var p CropPayload
		err = json.Unmarshal(data, &p)
		return p, err
	case "weather":
		var p WeatherPayload
		err = json.Unmarshal(data, &p)
		return p, err
	case "currency":
		var p CurrencyPayload
		err = json.Unmarshal(data, &p)
		return p, err
	case "item":
		var p ItemPayload
		err = json.Unmarshal(data, &p)
		return p, err
	case "move":
		var p MovePayload
		err = json.Unmarshal(data, &p)
		return p, err
	}
	return nil, fmt.Errorf("%w: payload %q", ErrUnknownKind, head.Kind)
}
