package route

import (
	"fmt"
	"strings"
)

// GroupKey selects the Route attribute that clusters structurally similar
// routes together.
type GroupKey int

// Supported group keys.
const (
	GroupByDefinitionPath GroupKey = iota
	GroupByDefinitionName
	GroupByPath
)

// ParseGroupKey accepts the dotted configuration spellings ("route.definition.path",
// "route.name", "route.definition.name", "route.path", "path"). An empty value
// and "route.name" select the matched template, GroupByDefinitionPath.
func ParseGroupKey(raw string) (GroupKey, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "route.")
	switch key {
	case "", "definition.path", "name", "template":
		return GroupByDefinitionPath, nil
	case "definition.name":
		return GroupByDefinitionName, nil
	case "path":
		return GroupByPath, nil
	default:
		return 0, fmt.Errorf("unknown route group key %q", raw)
	}
}

// Value returns the grouping value of r.
func (k GroupKey) Value(r Route) string {
	switch k {
	case GroupByDefinitionName:
		return r.Definition.Name
	case GroupByPath:
		return r.Path
	default:
		return r.Definition.Path
	}
}

func (k GroupKey) String() string {
	switch k {
	case GroupByDefinitionName:
		return "route.definition.name"
	case GroupByPath:
		return "route.path"
	default:
		return "route.definition.path"
	}
}
