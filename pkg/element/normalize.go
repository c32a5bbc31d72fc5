package element

import "fmt"

// Normalize returns the canonical flat form of raw:
//   - Group is inferred when missing: data with both source and target is an edge.
//   - Missing ids are generated ("n<index>" for nodes, "<source>-><target>" for edges).
//   - Data is deep-copied and numeric values are widened to float64 so that
//     JSON and YAML inputs compare equal.
//
// The input is never modified.
func Normalize(raw []Element) []Element {
	out := make([]Element, 0, len(raw))
	for i, e := range raw {
		n := e.Clone()
		if n.Data == nil {
			n.Data = Data{}
		}
		for k, v := range n.Data {
			n.Data[k] = widen(v)
		}
		if n.Group == "" {
			if n.Data.Source() != "" && n.Data.Target() != "" {
				n.Group = GroupEdges
			} else {
				n.Group = GroupNodes
			}
		}
		if n.Data.ID() == "" {
			if n.IsEdge() {
				n.Data[KeyID] = fmt.Sprintf("%s->%s", n.Data.Source(), n.Data.Target())
			} else {
				n.Data[KeyID] = fmt.Sprintf("n%d", i)
			}
		} else if _, ok := n.Data[KeyID].(string); !ok {
			n.Data[KeyID] = n.Data.ID()
		}
		if n.IsEdge() {
			n.Position = nil
		}
		out = append(out, n)
	}
	return out
}

func widen(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case map[string]any:
		for k, vv := range x {
			x[k] = widen(vv)
		}
		return x
	case []any:
		for i, vv := range x {
			x[i] = widen(vv)
		}
		return x
	default:
		return v
	}
}
