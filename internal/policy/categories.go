package policy

// Category is a fixed group of engine rule ids.
type Category struct {
	Name  string
	Rules []int
}

// Rule ids are the engine's active scan rule identifiers.
var (
	SQLInjection     = Category{"sql-injection", []int{40018, 40019, 40020, 40021, 40022, 40024, 40027, 90018}}
	XSS              = Category{"xss", []int{40012, 40014, 40016, 40017, 40026}}
	Injection        = Category{"injection", []int{90020, 90019, 40003, 90021, 90017, 40015, 90035, 90036}}
	PathTraversal    = Category{"path-traversal", []int{6, 7}}
	XXE              = Category{"xxe", []int{90023}}
	SSRF             = Category{"ssrf", []int{40046}}
	Misconfiguration = Category{"misconfiguration", []int{0, 10045, 40032, 40034, 90034}}
	AccessControl    = Category{"access-control", []int{10104, 40035, 40044, 40045}}
	Deserialization  = Category{"deserialization", []int{90002, 90001}}
	Crypto           = Category{"crypto", []int{10011, 10095, 20015, 20019}}
	Components       = Category{"components", []int{10003, 10098, 40043, 40048}}
	API              = Category{"api", []int{40033, 40042, 90024, 90025, 90026, 90028, 90029}}
)

// Categories lists every category in a fixed order.
var Categories = []Category{
	SQLInjection, XSS, Injection, PathTraversal, XXE, SSRF,
	Misconfiguration, AccessControl, Deserialization, Crypto, Components, API,
}

func union(cats ...Category) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, c := range cats {
		for _, id := range c.Rules {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// prefix returns at most n rules of c.
func prefix(c Category, n int) []int {
	if n > len(c.Rules) {
		n = len(c.Rules)
	}
	return c.Rules[:n]
}
