// Package dash models the Plotly Dash callback protocol spoken by the
// target application: the request payload sent when the fetch button is
// clicked, and the nested component tree that comes back.
package dash

import (
	"encoding/json"
	"fmt"
)

// Component output IDs carrying the two trade tables in a callback response.
const (
	SourceBuy  = "broker-akum-stalker"
	SourceSell = "broker-dist-stalker"
)

// Child component kinds the parser understands. Anything else is ignored.
const (
	ChildTypeDataTable = "DataTable"
	ChildTypeLabel     = "Label"
)

// CallbackResponse is the top-level envelope of a Dash callback reply.
type CallbackResponse struct {
	Response map[string]Component `json:"response"`
}

// Component is one output component in the reply.
type Component struct {
	Children ChildList `json:"children"`
}

// Child is a typed node inside a component's children.
type Child struct {
	Type  string `json:"type"`
	Props Props  `json:"props"`
}

// Props carries the payload of a child node. Only DataTable children have
// row data; Label children carry text we do not consume.
type Props struct {
	Data     []RawRow        `json:"data"`
	Children json.RawMessage `json:"children"`
}

// ChildList tolerates the shapes Dash emits for "children": an array of
// nodes, a single node, or a bare string. Unrecognized shapes decode to an
// empty list rather than an error, because a missing table means "no data
// for this category".
type ChildList []Child

// UnmarshalJSON implements json.Unmarshaler.
func (l *ChildList) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err == nil {
		// Arrays may mix node objects with bare strings; keep the nodes.
		list := make(ChildList, 0, len(elems))
		for _, elem := range elems {
			var child Child
			if err := json.Unmarshal(elem, &child); err == nil {
				list = append(list, child)
			}
		}
		*l = list
		return nil
	}
	var single Child
	if err := json.Unmarshal(data, &single); err == nil {
		*l = ChildList{single}
		return nil
	}
	*l = nil
	return nil
}

// RawRow is one loosely-typed table row. Field values may arrive as JSON
// numbers or strings; coercion happens during parsing.
type RawRow struct {
	Symbol json.RawMessage `json:"symbol"`
	NetVal json.RawMessage `json:"netval"`
	BVal   json.RawMessage `json:"bval"`
	SVal   json.RawMessage `json:"sval"`
	BAvg   json.RawMessage `json:"bavg"`
	SAvg   json.RawMessage `json:"savg"`
}

// DecodeCallback parses a callback response body.
func DecodeCallback(body []byte) (CallbackResponse, error) {
	var resp CallbackResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return CallbackResponse{}, fmt.Errorf("decode callback response: %w", err)
	}
	return resp, nil
}

// DataTable returns the rows of the first DataTable child, or nil when the
// component carries no tabular data.
func (c Component) DataTable() []RawRow {
	for _, child := range c.Children {
		if child.Type == ChildTypeDataTable {
			return child.Props.Data
		}
	}
	return nil
}

// BuildFetchPayload constructs the callback request body that mimics
// clicking the fetch button for one broker.
func BuildFetchPayload(brokerCode, durationValue string) map[string]any {
	return map[string]any{
		"output": fmt.Sprintf("..%s.children...%s.children..", SourceBuy, SourceSell),
		"outputs": []map[string]any{
			{"id": SourceBuy, "property": "children"},
			{"id": SourceSell, "property": "children"},
		},
		"inputs": []map[string]any{
			{"id": "submit-button", "property": "n_clicks", "value": 1},
			{"id": "duration-picker", "property": "value", "value": durationValue},
		},
		"changedPropIds":        []string{"submit-button.n_clicks"},
		"parsedChangedPropsIds": []string{"submit-button.n_clicks"},
		"state": []map[string]any{
			{"id": "broker", "property": "value", "value": []string{brokerCode}},
		},
	}
}
