// Package tokens counts prompt tokens for trace metadata. Counts are
// informational: a failed count degrades to an estimate, never an error.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter resolves a tokenizer codec per model and caches it.
type Counter struct {
	mu    sync.RWMutex
	cache map[tokenizer.Encoding]tokenizer.Codec
}

// NewCounter creates a counter.
func NewCounter() *Counter {
	return &Counter{cache: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// Count returns the token count of text for the given model id, falling
// back to a bytes/4 estimate when no codec is available.
func (c *Counter) Count(model, text string) int {
	codec, err := c.codecFor(model)
	if err != nil {
		return estimate(text)
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return estimate(text)
	}
	return len(ids)
}

func (c *Counter) codecFor(model string) (tokenizer.Codec, error) {
	if codec, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		return codec, nil
	}

	// Unknown models use the cl100k encoding, which tracks modern chat
	// models closely enough for audit metadata.
	encoding := encodingFor(model)

	c.mu.RLock()
	if cached, ok := c.cache[encoding]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[encoding] = codec
	c.mu.Unlock()

	return codec, nil
}

func encodingFor(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return tokenizer.O200kBase
	default:
		return tokenizer.Cl100kBase
	}
}

// estimate approximates one token per four bytes.
func estimate(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
