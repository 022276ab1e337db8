package expressions

import "sync"

const defaultCacheLimit = 512

// programs memoizes compiled expressions by source text. Past limit the
// oldest entry is evicted; view constraints and branch conditions repeat
// far more than they vary, so FIFO is enough.
type programs[P any] struct {
	mu    sync.Mutex
	limit int
	items map[string]P
	order []string
}

func newPrograms[P any](limit int) *programs[P] {
	return &programs[P]{limit: limit, items: make(map[string]P)}
}

// get returns the program for src, compiling it on a miss. Failed
// compilations are not cached.
func (c *programs[P]) get(src string, compile func(string) (P, error)) (P, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.items[src]; ok {
		return p, nil
	}
	p, err := compile(src)
	if err != nil {
		return p, err
	}
	if len(c.order) >= c.limit {
		delete(c.items, c.order[0])
		c.order = c.order[1:]
	}
	c.items[src] = p
	c.order = append(c.order, src)
	return p, nil
}

func (c *programs[P]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
