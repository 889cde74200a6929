package tokenizer

import (
	"errors"
	"sync"

	"github.com/tiktoken-go/tokenizer"
	"go.uber.org/zap"
)

// elision is inserted where Truncate drops the middle of a text.
const elision = "\n[...]\n"

var (
	mu    sync.RWMutex
	codec tokenizer.Codec
)

var ErrNotInitialized = errors.New("tokenizer not initialized")

// Init loads the cl100k_base encoding. Safe to call more than once.
func Init(log *zap.Logger) error {
	mu.Lock()
	defer mu.Unlock()
	if codec != nil {
		return nil
	}
	c, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return err
	}
	codec = c
	if log != nil {
		log.Debug("tokenizer initialized", zap.String("encoding", string(tokenizer.Cl100kBase)))
	}
	return nil
}

func get() (tokenizer.Codec, error) {
	mu.RLock()
	defer mu.RUnlock()
	if codec == nil {
		return nil, ErrNotInitialized
	}
	return codec, nil
}

func CountTokens(text string) (int, error) {
	c, err := get()
	if err != nil {
		return 0, err
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Truncate keeps the head and tail of text so that it fits in limit tokens,
// dropping the middle. Texts already within the limit are returned unchanged.
func Truncate(text string, limit int) (string, error) {
	c, err := get()
	if err != nil {
		return "", err
	}
	if limit <= 0 {
		return text, nil
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return "", err
	}
	if len(ids) <= limit {
		return text, nil
	}

	head := limit / 2
	tail := limit - head
	h, err := c.Decode(ids[:head])
	if err != nil {
		return "", err
	}
	t, err := c.Decode(ids[len(ids)-tail:])
	if err != nil {
		return "", err
	}
	return h + elision + t, nil
}
