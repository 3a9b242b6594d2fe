package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache is a bounded LRU map from text to its embedding. Vectors are copied
// on the way in and out, so callers may modify what they get back.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	byText   map[string]*list.Element
}

type cached struct {
	text   string
	vector []float32
}

// NewEmbeddingCache creates a cache holding at most capacity embeddings (minimum 1).
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity < 1 {
		capacity = 1
	}
	return &EmbeddingCache{
		capacity: capacity,
		order:    list.New(),
		byText:   make(map[string]*list.Element, capacity),
	}
}

// Get returns a copy of the embedding cached for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.byText[text]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return clone(elem.Value.(*cached).vector), true
}

// Set caches a copy of vector for text, evicting the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.byText[text]; ok {
		elem.Value.(*cached).vector = clone(vector)
		c.order.MoveToFront(elem)
		return
	}
	c.byText[text] = c.order.PushFront(&cached{text: text, vector: clone(vector)})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.byText, oldest.Value.(*cached).text)
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}
