package route

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	integerSegment = regexp.MustCompile(`^\d+$`)
	hexSegment     = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	dateSegment    = regexp.MustCompile(`^\d{4}-\d{2}(-\d{2})?$`)
	slugSegment    = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+){2,}$`)
)

// Matcher maps canonical paths onto route templates. Explicit definitions are
// tried first, most specific first; anything left over gets a template
// inferred from the shape of its segments.
type Matcher struct {
	defs []compiledDefinition
}

type compiledDefinition struct {
	def      Definition
	segments []string
	catchAll bool
	statics  int
}

// NewMatcher compiles template patterns such as "/blog/:slug" or "/docs/*".
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		if !strings.HasPrefix(pattern, "/") {
			return nil, fmt.Errorf("route definition %q must start with /", pattern)
		}
		compiled := compiledDefinition{
			def: Definition{Name: definitionName(pattern), Path: pattern},
		}
		segments := splitSegments(pattern)
		for i, seg := range segments {
			if seg == "*" {
				if i != len(segments)-1 {
					return nil, fmt.Errorf("route definition %q: * is only allowed as the last segment", pattern)
				}
				compiled.catchAll = true
				break
			}
			if seg == ":" {
				return nil, fmt.Errorf("route definition %q: empty parameter name", pattern)
			}
			if !strings.HasPrefix(seg, ":") {
				compiled.statics++
			}
			compiled.segments = append(compiled.segments, seg)
		}
		m.defs = append(m.defs, compiled)
	}
	sort.SliceStable(m.defs, func(i, j int) bool {
		a, b := m.defs[i], m.defs[j]
		if a.catchAll != b.catchAll {
			return !a.catchAll
		}
		if a.statics != b.statics {
			return a.statics > b.statics
		}
		return len(a.segments) > len(b.segments)
	})
	return m, nil
}

// Match returns the template for a canonical path.
func (m *Matcher) Match(p string) Definition {
	segments := splitSegments(p)
	if m != nil {
		for _, d := range m.defs {
			if d.matches(segments) {
				return d.def
			}
		}
	}
	return inferDefinition(segments)
}

func (d compiledDefinition) matches(segments []string) bool {
	if d.catchAll {
		if len(segments) <= len(d.segments) {
			return false
		}
	} else if len(segments) != len(d.segments) {
		return false
	}
	for i, seg := range d.segments {
		if strings.HasPrefix(seg, ":") {
			continue
		}
		if seg != segments[i] {
			return false
		}
	}
	return true
}

func inferDefinition(segments []string) Definition {
	if len(segments) == 0 {
		return Definition{Name: "index", Path: "/"}
	}
	out := make([]string, len(segments))
	used := make(map[string]int)
	for i, seg := range segments {
		param := dynamicParam(seg, i)
		if param == "" {
			out[i] = seg
			continue
		}
		used[param]++
		if n := used[param]; n > 1 {
			param += strconv.Itoa(n)
		}
		out[i] = ":" + param
	}
	template := "/" + strings.Join(out, "/")
	return Definition{Name: definitionName(template), Path: template}
}

func dynamicParam(seg string, position int) string {
	switch {
	case integerSegment.MatchString(seg):
		return "id"
	case isUUID(seg):
		return "uuid"
	case hexSegment.MatchString(seg):
		return "hash"
	case dateSegment.MatchString(seg):
		return "date"
	case position > 0 && slugSegment.MatchString(seg):
		return "slug"
	default:
		return ""
	}
}

func isUUID(seg string) bool {
	if len(seg) != 36 {
		return false
	}
	_, err := uuid.Parse(seg)
	return err == nil
}

// definitionName flattens a template into a readable label: "/" becomes
// "index", "/blog/:slug" becomes "blog-slug". Labels are not unique across
// templates; group by Definition.Path when that matters.
func definitionName(template string) string {
	segments := splitSegments(template)
	if len(segments) == 0 {
		return "index"
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimPrefix(seg, ":")
		if seg == "*" {
			seg = "all"
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "-")
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
