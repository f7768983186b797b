package pulseapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pulse-analytics/pulse-go/internal/transport"
)

// MaxItems is the per-request item ceiling enforced by the API. Similarity
// submissions above it are split into blocks and reassembled client-side.
const MaxItems = 10_000

// halfChunk sizes the blocks of fully chunked requests so that any two
// blocks combined stay under the ceiling.
const halfChunk = MaxItems / 2

// simBody is the request document of POST /similarity. Self-similarity
// sends Set; cross-similarity sends SetA and SetB.
type simBody struct {
	Set     []string `json:"set,omitempty"`
	SetA    []string `json:"set_a,omitempty"`
	SetB    []string `json:"set_b,omitempty"`
	Flatten bool     `json:"flatten"`
	Fast    bool     `json:"fast,omitempty"`
}

// selfChunks splits one set into pieces small enough that any pair of them
// fits into a single request.
func selfChunks(items []string) [][]string {
	if len(items) <= MaxItems {
		return [][]string{items}
	}
	var chunks [][]string
	for i := 0; i < len(items); i += halfChunk {
		chunks = append(chunks, items[i:min(i+halfChunk, len(items))])
	}
	return chunks
}

// chunkOffsets returns the start offset of each chunk plus the total length.
func chunkOffsets(chunks [][]string) []int {
	offsets := make([]int, len(chunks)+1)
	for i, c := range chunks {
		offsets[i+1] = offsets[i] + len(c)
	}
	return offsets
}

// similarityBlock submits one block and returns its matrix. Blocks never
// request the fast path; a deferred block is awaited on the client's own
// monitor before the full matrix is stitched.
func (c *Client) similarityBlock(ctx context.Context, body simBody) ([][]float64, error) {
	out, err := c.post(ctx, "/similarity", body, false, "")
	if err != nil {
		return nil, err
	}
	raw := out.Result
	if out.Job != nil {
		j := c.monitor.Track(*out.Job)
		raw, err = c.monitor.Wait(ctx, j, 0)
		if err != nil {
			return nil, err
		}
	}
	var p transport.SimilarityPayload
	if err := json.Unmarshal(raw.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode similarity block: %w", err)
	}
	return p.SimilarityMatrix()
}

// batchedSelf computes an oversized self-similarity matrix block by block.
// Only the upper triangle of blocks is submitted; the mirror half is filled
// by transposition.
func (c *Client) batchedSelf(ctx context.Context, items []string) ([][]float64, error) {
	chunks := selfChunks(items)
	offsets := chunkOffsets(chunks)

	n := len(items)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for i := range chunks {
		for j := i; j < len(chunks); j++ {
			var body simBody
			if i == j {
				body = simBody{Set: chunks[i], Flatten: true}
			} else {
				body = simBody{SetA: chunks[i], SetB: chunks[j], Flatten: true}
			}
			block, err := c.similarityBlock(ctx, body)
			if err != nil {
				return nil, fmt.Errorf("similarity block (%d,%d): %w", i, j, err)
			}
			if err := placeBlock(matrix, block, offsets[i], offsets[j], len(chunks[i]), len(chunks[j])); err != nil {
				return nil, fmt.Errorf("similarity block (%d,%d): %w", i, j, err)
			}
			if i != j {
				for r := 0; r < len(chunks[i]); r++ {
					for col := 0; col < len(chunks[j]); col++ {
						matrix[offsets[j]+col][offsets[i]+r] = block[r][col]
					}
				}
			}
		}
	}
	return matrix, nil
}

// batchedCross computes an oversized cross-similarity matrix. When one side
// fits alongside a chunk of the other, it is kept intact; otherwise both
// sides are chunked.
func (c *Client) batchedCross(ctx context.Context, a, b []string) ([][]float64, error) {
	na, nb := len(a), len(b)
	matrix := make([][]float64, na)
	for i := range matrix {
		matrix[i] = make([]float64, nb)
	}

	switch {
	case na <= nb && nb < MaxItems:
		chunk := MaxItems - na
		for off := 0; off < nb; off += chunk {
			end := min(off+chunk, nb)
			block, err := c.similarityBlock(ctx, simBody{SetA: a, SetB: b[off:end], Flatten: true})
			if err != nil {
				return nil, err
			}
			if err := placeBlock(matrix, block, 0, off, na, end-off); err != nil {
				return nil, err
			}
		}
	case nb <= na && na < MaxItems:
		chunk := MaxItems - nb
		for off := 0; off < na; off += chunk {
			end := min(off+chunk, na)
			block, err := c.similarityBlock(ctx, simBody{SetA: a[off:end], SetB: b, Flatten: true})
			if err != nil {
				return nil, err
			}
			if err := placeBlock(matrix, block, off, 0, end-off, nb); err != nil {
				return nil, err
			}
		}
	default:
		for ri := 0; ri < na; ri += halfChunk {
			rEnd := min(ri+halfChunk, na)
			for ci := 0; ci < nb; ci += halfChunk {
				cEnd := min(ci+halfChunk, nb)
				block, err := c.similarityBlock(ctx, simBody{SetA: a[ri:rEnd], SetB: b[ci:cEnd], Flatten: true})
				if err != nil {
					return nil, err
				}
				if err := placeBlock(matrix, block, ri, ci, rEnd-ri, cEnd-ci); err != nil {
					return nil, err
				}
			}
		}
	}
	return matrix, nil
}

// placeBlock copies a block into the full matrix at the given offsets after
// checking its dimensions.
func placeBlock(matrix, block [][]float64, rowOff, colOff, rows, cols int) error {
	if len(block) != rows {
		return fmt.Errorf("block has %d rows, want %d", len(block), rows)
	}
	for r := 0; r < rows; r++ {
		if len(block[r]) != cols {
			return fmt.Errorf("block row %d has %d columns, want %d", r, len(block[r]), cols)
		}
		copy(matrix[rowOff+r][colOff:colOff+cols], block[r])
	}
	return nil
}
