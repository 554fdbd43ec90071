package record

import (
	"fmt"

	"github.com/elastic/go-freelru"
	"github.com/zeebo/xxh3"
)

// DefaultMemoSize is the number of distinct result cells kept by a Memo.
const DefaultMemoSize = 1 << 14

// Memo caches SplitResult outcomes. Instruction traces revisit the same code
// over and over, so identical result cells are common.
type Memo struct {
	lru    *freelru.LRU[string, ResultFields]
	hits   uint64
	misses uint64
}

// NewMemo creates a memo holding up to size entries.
func NewMemo(size uint32) (*Memo, error) {
	if size == 0 {
		size = DefaultMemoSize
	}
	lru, err := freelru.New[string, ResultFields](size, hashString)
	if err != nil {
		return nil, fmt.Errorf("result memo: %w", err)
	}
	return &Memo{lru: lru}, nil
}

// hashString is the LRU hash callback; xxh3 is the fastest string hash in the
// freelru benchmarks.
func hashString(s string) uint32 {
	return uint32(xxh3.HashString(s))
}

// SplitResult returns the same fields as the package level SplitResult.
func (m *Memo) SplitResult(result, mnemonic string) ResultFields {
	if m == nil {
		return SplitResult(result, mnemonic)
	}
	// Only the return family changes the outcome, so that is all the key needs.
	key := result + "\x00-"
	if IsReturn(mnemonic) {
		key = result + "\x00r"
	}
	if f, ok := m.lru.Get(key); ok {
		m.hits++
		return f
	}
	m.misses++
	f := SplitResult(result, mnemonic)
	m.lru.Add(key, f)
	return f
}

// New builds a record like the package level New, splitting the result cell
// through the memo.
func (m *Memo) New(thread, address, instruction, result string) Record {
	r := Record{
		Thread:      thread,
		Address:     address,
		Instruction: instruction,
		Result:      result,
	}
	r.Segment, r.Function, r.Offset = SplitAddress(address)
	r.Mnemonic, r.Operands = SplitInstruction(instruction)
	r.applyResult(m.SplitResult(result, r.Mnemonic))
	return r
}

// Stats returns hit and miss counters.
func (m *Memo) Stats() (hits, misses uint64) {
	if m == nil {
		return 0, 0
	}
	return m.hits, m.misses
}
