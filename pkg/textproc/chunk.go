// Package textproc splits page text into token-bounded chunks.
package textproc

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultEncoding  = "cl100k_base"
	DefaultMaxTokens = 512
)

type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads a BPE encoding such as cl100k_base. The first call may
// download the vocabulary unless TIKTOKEN_CACHE_DIR already holds it.
func NewTiktoken(encoding string) (Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Chunk encodes text and decodes consecutive windows of maxTokens tokens.
// Every chunk but the last holds exactly maxTokens tokens.
func Chunk(tok Tokenizer, text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	tokens := tok.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(tokens)+maxTokens-1)/maxTokens)
	for start := 0; start < len(tokens); start += maxTokens {
		end := min(start+maxTokens, len(tokens))
		chunks = append(chunks, tok.Decode(tokens[start:end]))
	}
	return chunks
}
