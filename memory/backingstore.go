package memory

// BackingStore is a fixed pool of blocks holding units that are not resident
// in physical memory. Blocks are only read during translation.
type BackingStore struct {
	blockSize int
	blocks    [][]int32
}

// NewBackingStore creates a backing store of blockCount blocks of blockSize
// words each.
func NewBackingStore(blockCount, blockSize int) *BackingStore {
	if blockCount <= 0 || blockSize <= 0 {
		panic("backing store must have a positive geometry")
	}

	backing := make([]int32, blockCount*blockSize)
	blocks := make([][]int32, blockCount)
	for i := range blocks {
		blocks[i] = backing[i*blockSize : (i+1)*blockSize : (i+1)*blockSize]
	}

	return &BackingStore{
		blockSize: blockSize,
		blocks:    blocks,
	}
}

// NumBlocks returns the number of blocks.
func (s *BackingStore) NumBlocks() int {
	return len(s.blocks)
}

// BlockSize returns the number of words in a block.
func (s *BackingStore) BlockSize() int {
	return s.blockSize
}

// ReadBlock returns a copy of a block.
func (s *BackingStore) ReadBlock(block int) []int32 {
	return append([]int32(nil), s.blocks[block]...)
}

// WriteBlock overwrites a whole block.
func (s *BackingStore) WriteBlock(block int, words []int32) {
	if len(words) != s.blockSize {
		panic("writing a block with data of a different size")
	}

	copy(s.blocks[block], words)
}

// ReadWordInBlock reads a single word of a block.
func (s *BackingStore) ReadWordInBlock(block, offset int) int32 {
	return s.blocks[block][offset]
}

// WriteWordInBlock writes a single word of a block.
func (s *BackingStore) WriteWordInBlock(block, offset int, value int32) {
	s.blocks[block][offset] = value
}
