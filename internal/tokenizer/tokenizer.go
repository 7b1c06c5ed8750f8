// Package tokenizer wraps tiktoken with a per-model BPE handle cache.
package tokenizer

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"tauritavern/internal/domain"
)

// fallbackModel is used whenever the requested model has no known encoding.
const fallbackModel = "gpt-4o"

// Service exposes encode/decode/count over cached BPE handles. The cache is
// read-mostly, so it sits behind an RW lock.
type Service struct {
	mu    sync.RWMutex
	cache map[string]*tiktoken.Tiktoken
}

// NewService creates a tokenizer service.
func NewService() *Service {
	return &Service{cache: map[string]*tiktoken.Tiktoken{}}
}

func normalizeModel(model string) string {
	trimmed := strings.TrimSpace(model)
	if trimmed == "" {
		return fallbackModel
	}
	return trimmed
}

func (s *Service) bpe(model string) (*tiktoken.Tiktoken, error) {
	model = normalizeModel(model)

	s.mu.RLock()
	if tkm, ok := s.cache[model]; ok {
		s.mu.RUnlock()
		return tkm, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if tkm, ok := s.cache[model]; ok {
		return tkm, nil
	}

	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown models silently fall back to the default encoding.
		tkm, err = tiktoken.EncodingForModel(fallbackModel)
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, err, "failed to initialize tokenizer for model %q", model)
		}
	}
	s.cache[model] = tkm
	return tkm, nil
}

// Encode tokenizes text with the model's encoding, special tokens allowed.
func (s *Service) Encode(model, text string) ([]int, error) {
	tkm, err := s.bpe(model)
	if err != nil {
		return nil, err
	}
	return tkm.Encode(text, []string{"all"}, nil), nil
}

// Decode converts token ids back to text.
func (s *Service) Decode(model string, ids []int) (string, error) {
	tkm, err := s.bpe(model)
	if err != nil {
		return "", err
	}
	return tkm.Decode(ids), nil
}

// Chunks decodes each token individually, for echo-style displays.
func (s *Service) Chunks(model string, ids []int) ([]string, error) {
	tkm, err := s.bpe(model)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, len(ids))
	for i, id := range ids {
		chunks[i] = tkm.Decode([]int{id})
	}
	return chunks, nil
}

func isLegacy0301(model string) bool {
	return strings.Contains(model, "gpt-3.5-turbo-0301")
}

func valueToText(value json.RawMessage) string {
	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		return text
	}
	return string(value)
}

// CountMessages estimates prompt tokens the way OpenAI's cookbook does:
// per-message overhead 3 and per-name overhead 1 plus a final 3, with the
// legacy gpt-3.5-turbo-0301 compensation of 4 / -1 / +9.
func (s *Service) CountMessages(model string, messages []map[string]json.RawMessage) (int, error) {
	tkm, err := s.bpe(model)
	if err != nil {
		return 0, err
	}
	legacy := isLegacy0301(model)
	tokensPerMessage := 3
	tokensPerName := 1
	if legacy {
		tokensPerMessage = 4
		tokensPerName = -1
	}

	total := 0
	for _, message := range messages {
		total += tokensPerMessage
		for key, value := range message {
			total += len(tkm.Encode(valueToText(value), []string{"all"}, nil))
			if key == "name" {
				total += tokensPerName
			}
		}
	}
	total += 3
	if legacy {
		total += 9
	}
	if total < 0 {
		total = 0
	}
	return total, nil
}

// LogitBiasEntry pairs a text (or an inline "[id, id]" array of token ids)
// with a bias value.
type LogitBiasEntry struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// BuildLogitBias tokenizes each entry and maps every token id to the entry's
// bias value. Inline JSON arrays of ids bypass tokenization.
func (s *Service) BuildLogitBias(model string, entries []LogitBiasEntry) (map[string]float64, error) {
	bias := map[string]float64{}
	for _, entry := range entries {
		ids, ok := parseInlineTokenIDs(entry.Text)
		if !ok {
			encoded, err := s.Encode(model, entry.Text)
			if err != nil {
				return nil, err
			}
			ids = encoded
		}
		for _, id := range ids {
			bias[strconv.Itoa(id)] = entry.Value
		}
	}
	return bias, nil
}

func parseInlineTokenIDs(text string) ([]int, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, false
	}
	var ids []int
	if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
		return nil, false
	}
	return ids, true
}

