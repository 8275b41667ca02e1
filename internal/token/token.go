// internal/token/token.go
package token

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens using the cl100k_base encoding. If the encoding
// cannot be initialised (missing embedded vocabulary, offline download),
// it falls back permanently to a word-count estimate.
type Counter struct {
	once      sync.Once
	tokenizer *tiktoken.Tiktoken
}

// NewCounter returns a Counter. Initialisation of the underlying encoding
// is deferred to the first Count call.
func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) init() {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// Leave tokenizer nil; Count falls back to the estimate.
		return
	}
	c.tokenizer = enc
}

// Count returns the number of tokens in text. When the encoding is
// unavailable the estimate is word count * 1.3.
func (c *Counter) Count(text string) int {
	c.once.Do(c.init)
	if c.tokenizer == nil {
		return int(float64(len(strings.Fields(text))) * 1.3)
	}
	return len(c.tokenizer.Encode(text, nil, nil))
}

// FormatSize converts a byte count to a human-readable string like
// "1.5 KB" or "23.4 MB".
func FormatSize(size int64) string {
	v := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if v < 1024.0 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.1f TB", v)
}
