// Package include validates and normalizes dotted include paths
// ("project.client.name") against the schema registry.
package include

import (
	"sort"
	"strings"
	"sync"

	"github.com/jcolombo/paymo/internal/schema"
)

// MaxDepth is the deepest include path, in segments, the API accepts.
const MaxDepth = 3

// Scrubber validates include lists. Results are memoized per
// (entity, sorted input) key; the memo is owned by the Scrubber so
// independent sessions never share it. Concurrent population is idempotent:
// two goroutines racing on one key compute and store the same value.
type Scrubber struct {
	registry *schema.Registry

	mu   sync.RWMutex
	memo map[string][]string
}

// NewScrubber creates a scrubber backed by the given registry.
func NewScrubber(registry *schema.Registry) *Scrubber {
	return &Scrubber{
		registry: registry,
		memo:     make(map[string][]string),
	}
}

// Scrub returns the minimal, deduplicated, sorted set of valid include paths
// for entity. Unknown entities and unknown include names are dropped rather
// than reported, so the result cannot be used to probe the schema.
func (s *Scrubber) Scrub(entity string, paths []string) []string {
	unique := dedupe(paths)
	key := entity + "\x00" + strings.Join(unique, "\x00")

	s.mu.RLock()
	cached, ok := s.memo[key]
	s.mu.RUnlock()
	if ok {
		return clone(cached)
	}

	result := s.scrub(entity, unique)

	s.mu.Lock()
	s.memo[key] = result
	s.mu.Unlock()
	return clone(result)
}

// Rejected returns the input paths that contribute nothing to the scrubbed
// result, for callers that want to warn about them.
func (s *Scrubber) Rejected(entity string, paths []string) []string {
	var out []string
	for _, p := range dedupe(paths) {
		if len(s.Scrub(entity, []string{p})) == 0 {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of memoized include sets.
func (s *Scrubber) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memo)
}

// Join renders scrubbed paths as the comma-separated include query value.
func Join(paths []string) string {
	return strings.Join(paths, ",")
}

func (s *Scrubber) scrub(entity string, paths []string) []string {
	d, ok := s.registry.Get(entity)
	if !ok {
		return []string{}
	}
	set := make(map[string]struct{})
	for _, p := range paths {
		s.expand(d, p, set)
	}
	prune(set)
	return sortedSet(set)
}

// expand validates one path against d and adds the resulting paths to out.
func (s *Scrubber) expand(d *schema.Descriptor, path string, out map[string]struct{}) {
	segs := strings.SplitN(path, ".", MaxDepth)
	switch len(segs) {
	case 1:
		if d.HasInclude(segs[0]) {
			out[segs[0]] = struct{}{}
		}
	case 2:
		s.expandPair(d, "", segs[0], segs[1], out)
	case 3:
		first, ok := d.Include(segs[0])
		if !ok {
			return
		}
		middle, ok := s.registry.Get(first.Entity)
		if !ok {
			return
		}
		second, ok := middle.Include(segs[1])
		if !ok {
			return
		}

		found := make(map[string]struct{})
		prefix := segs[0] + "."
		if !strings.Contains(segs[2], ".") {
			s.expandPair(middle, prefix, segs[1], segs[2], found)
		} else {
			prefix += segs[1] + "."
			for _, p := range s.scrub(second.Entity, []string{segs[2]}) {
				found[prefix+p] = struct{}{}
			}
		}

		added := false
		for p := range found {
			if strings.Count(p, ".")+1 <= MaxDepth {
				out[p] = struct{}{}
				added = true
			}
		}
		if added {
			out[segs[0]+".id"] = struct{}{}
		}
	}
}

// expandPair handles "rel.leaf" relative to d, writing results under prefix.
// A scalar leaf also pulls in "rel.id" so the related identity is fetched.
func (s *Scrubber) expandPair(d *schema.Descriptor, prefix, rel, leaf string, out map[string]struct{}) {
	inc, ok := d.Include(rel)
	if !ok {
		return
	}
	target, ok := s.registry.Get(inc.Entity)
	if !ok {
		return
	}
	switch {
	case target.HasField(leaf):
		out[prefix+rel+"."+leaf] = struct{}{}
		if target.HasField("id") {
			out[prefix+rel+".id"] = struct{}{}
		}
	case target.HasInclude(leaf):
		out[prefix+rel+"."+leaf] = struct{}{}
	}
}

// prune removes "X.id" whenever "X" itself is requested.
func prune(set map[string]struct{}) {
	for p := range set {
		base, ok := strings.CutSuffix(p, ".id")
		if !ok {
			continue
		}
		if _, whole := set[base]; whole {
			delete(set, p)
		}
	}
}

func dedupe(paths []string) []string {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = struct{}{}
		}
	}
	return sortedSet(set)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
