package discovery

import (
	"math/rand/v2"

	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// Sample keeps at most size routes per group, where groups are formed by the
// value key selects. Groups appear in the order their key was first seen;
// order within a group is random. A size <= 0 returns routes unchanged.
// A nil rng uses the package-level source.
func Sample(routes []route.Route, key route.GroupKey, size int, rng *rand.Rand) []route.Route {
	if size <= 0 {
		return routes
	}
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	groups := make(map[string][]route.Route)
	var order []string
	for _, r := range routes {
		k := key.Value(r)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	out := make([]route.Route, 0, min(len(routes), len(order)*size))
	for _, k := range order {
		out = append(out, sampleGroup(groups[k], size, intN)...)
	}
	return out
}

// sampleGroup runs a partial Fisher-Yates shuffle over group, which it owns.
func sampleGroup(group []route.Route, size int, intN func(int) int) []route.Route {
	n := min(size, len(group))
	for i := 0; i < n; i++ {
		j := i + intN(len(group)-i)
		group[i], group[j] = group[j], group[i]
	}
	return group[:n]
}
