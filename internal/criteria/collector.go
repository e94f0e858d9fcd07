package criteria

// collector holds the top-level filters of a query in insertion order.
// Entries are ANDed together when compiled.
type collector struct {
	entries []*entry
	byKey   map[string]*entry
}

type entry struct {
	key    string
	filter *Filter
}

func newCollector() *collector {
	return &collector{byKey: make(map[string]*entry)}
}

// add attaches f with conj. OR attaches to the most recent entry. AND with merge set
// attaches in place to the entry on the same column, otherwise f becomes a new entry.
// A filter the collector already holds is ignored.
func (c *collector) add(conj Conjunction, f *Filter, merge bool) {
	if c.holds(f) {
		return
	}
	if len(c.entries) == 0 {
		c.push(f)
		return
	}
	if conj == Or {
		c.entries[len(c.entries)-1].filter.AddOr(f)
		return
	}
	if merge {
		if key := f.key(); key != "" {
			if e, ok := c.byKey[key]; ok {
				e.filter.AddAnd(f)
				return
			}
		}
	}
	c.push(f)
}

func (c *collector) holds(f *Filter) bool {
	for _, e := range c.entries {
		if e.filter.contains(f) {
			return true
		}
	}
	return false
}

func (c *collector) push(f *Filter) {
	e := &entry{key: f.key(), filter: f}
	c.entries = append(c.entries, e)
	if e.key != "" {
		if _, ok := c.byKey[e.key]; !ok {
			c.byKey[e.key] = e
		}
	}
}

// fold turns every entry into a single filter: the first entry becomes the root
// and the others attach to it with AND. The collector must not be used afterwards.
func (c *collector) fold() *Filter {
	if len(c.entries) == 0 {
		return nil
	}
	root := c.entries[0].filter
	for _, e := range c.entries[1:] {
		root.AddAnd(e.filter)
	}
	return root
}

func (c *collector) filters() []*Filter {
	out := make([]*Filter, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.filter
	}
	return out
}

func (c *collector) clone() *collector {
	out := newCollector()
	for _, e := range c.entries {
		ce := &entry{key: e.key, filter: e.filter.Clone()}
		out.entries = append(out.entries, ce)
		if ce.key != "" {
			if _, ok := out.byKey[ce.key]; !ok {
				out.byKey[ce.key] = ce
			}
		}
	}
	return out
}

func (c *collector) equal(o *collector) bool {
	if len(c.entries) != len(o.entries) {
		return false
	}
	for i, e := range c.entries {
		if !e.filter.Equal(o.entries[i].filter) {
			return false
		}
	}
	return true
}

// combiner stacks collectors for CombineFilters brackets.
// While a bracket is open every filter goes to its collector.
type combiner struct {
	root  *collector
	stack []scope
}

type scope struct {
	conj Conjunction
	coll *collector
}

func newCombiner() *combiner {
	return &combiner{root: newCollector()}
}

func (c *combiner) current() *collector {
	if n := len(c.stack); n > 0 {
		return c.stack[n-1].coll
	}
	return c.root
}

func (c *combiner) add(conj Conjunction, f *Filter, merge bool) {
	c.current().add(conj, f, merge)
}

func (c *combiner) open(conj Conjunction) {
	c.stack = append(c.stack, scope{conj: conj, coll: newCollector()})
}

// close folds the innermost bracket into its parent. It returns false when no bracket is open.
func (c *combiner) close() bool {
	n := len(c.stack)
	if n == 0 {
		return false
	}
	top := c.stack[n-1]
	c.stack = c.stack[:n-1]
	if f := top.coll.fold(); f != nil {
		c.current().add(top.conj, f, false)
	}
	return true
}

// depth returns the number of open brackets.
func (c *combiner) depth() int { return len(c.stack) }

func (c *combiner) clone() *combiner {
	out := &combiner{root: c.root.clone()}
	for _, s := range c.stack {
		out.stack = append(out.stack, scope{conj: s.conj, coll: s.coll.clone()})
	}
	return out
}

// closed returns a copy with every open bracket folded, leaving c untouched.
func (c *combiner) closed() *collector {
	if len(c.stack) == 0 {
		return c.root
	}
	cp := c.clone()
	for cp.close() {
	}
	return cp.root
}

func (c *combiner) equal(o *combiner) bool {
	if len(c.stack) != len(o.stack) || !c.root.equal(o.root) {
		return false
	}
	for i, s := range c.stack {
		if s.conj != o.stack[i].conj || !s.coll.equal(o.stack[i].coll) {
			return false
		}
	}
	return true
}
