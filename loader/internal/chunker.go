package internal

import (
	"fmt"
	"knowledge/types"
	"strings"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
)

// Chunker splits extracted text into token-bounded windows. Sizes are in
// tokens of the cl100k_base encoding, the same vocabulary the embedding
// model was trained against, so a chunk never exceeds the model's window.
type Chunker struct {
	enc     *tiktoken.Tiktoken
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		size = 400
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 8
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &Chunker{enc: enc, size: size, overlap: overlap}, nil
}

// Split produces the chunk rows for one piece of content. Offsets are byte
// positions into the original text; embeddings are filled in later by the
// pipeline. Empty and whitespace-only windows are dropped.
func (c *Chunker) Split(contentID uuid.UUID, text, sourceName string) []types.Chunk {
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	// Byte offset of every token boundary. BPE tokens are byte sequences,
	// so decoded pieces concatenate back to the original text exactly.
	offsets := make([]int, len(tokens)+1)
	for i, tok := range tokens {
		offsets[i+1] = offsets[i] + len(c.enc.Decode([]int{tok}))
	}

	var chunks []types.Chunk
	index := 0
	step := c.size - c.overlap

	for start := 0; start < len(tokens); start += step {
		end := start + c.size
		if end > len(tokens) {
			end = len(tokens)
		}

		piece := c.enc.Decode(tokens[start:end])
		if strings.TrimSpace(piece) == "" {
			if end == len(tokens) {
				break
			}
			continue
		}

		chunks = append(chunks, types.Chunk{
			ID:          uuid.New(),
			ContentID:   contentID,
			Index:       index,
			Text:        piece,
			StartOffset: offsets[start],
			EndOffset:   offsets[end],
			SourceRef:   fmt.Sprintf("%s#%d", sourceName, index),
		})
		index++

		if end == len(tokens) {
			break
		}
	}
	return chunks
}
