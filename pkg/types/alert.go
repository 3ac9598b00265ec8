package types

// Alert is a single finding reported by the engine. Name is the alert type
// and is the key findings are grouped by for remediation.
type Alert struct {
	ID          string            `json:"id"`
	PluginID    string            `json:"plugin_id,omitempty"`
	Name        string            `json:"name"`
	Severity    Severity          `json:"severity"`
	Description string            `json:"description,omitempty"`
	CWEID       int               `json:"cwe_id,omitempty"`
	Solution    string            `json:"solution,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	URLs        []string          `json:"urls,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Evidence    map[string]string `json:"evidence,omitempty"`
	Confirmed   bool              `json:"confirmed"`
}

// clone returns a deep copy so stored alerts cannot be mutated through
// slices or maps held by the caller.
func (a Alert) clone() Alert {
	out := a
	if a.URLs != nil {
		out.URLs = append([]string(nil), a.URLs...)
	}
	if a.Params != nil {
		out.Params = make(map[string]string, len(a.Params))
		for k, v := range a.Params {
			out.Params[k] = v
		}
	}
	if a.Evidence != nil {
		out.Evidence = make(map[string]string, len(a.Evidence))
		for k, v := range a.Evidence {
			out.Evidence[k] = v
		}
	}
	return out
}
