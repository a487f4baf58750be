// Package memory provides the word-addressed stores a translation engine
// works on: a physical memory made of frames and a backing store made of
// blocks of the same shape.
package memory

// A Frame is a fixed-size unit of physical memory.
type Frame struct {
	Free bool
	Data []int32
}

// PhysicalMemory is a fixed pool of frames. All frames start free and
// zeroed. Indices are not checked beyond slice indexing; callers are expected
// to pass frames and offsets derived from validated values.
type PhysicalMemory struct {
	frameSize int
	frames    []Frame
}

// NewPhysicalMemory creates a physical memory of frameCount frames of
// frameSize words each.
func NewPhysicalMemory(frameCount, frameSize int) *PhysicalMemory {
	if frameCount <= 0 || frameSize <= 0 {
		panic("physical memory must have a positive geometry")
	}

	backing := make([]int32, frameCount*frameSize)
	frames := make([]Frame, frameCount)
	for i := range frames {
		frames[i] = Frame{
			Free: true,
			Data: backing[i*frameSize : (i+1)*frameSize : (i+1)*frameSize],
		}
	}

	return &PhysicalMemory{
		frameSize: frameSize,
		frames:    frames,
	}
}

// NumFrames returns the number of frames.
func (m *PhysicalMemory) NumFrames() int {
	return len(m.frames)
}

// FrameSize returns the number of words in a frame.
func (m *PhysicalMemory) FrameSize() int {
	return m.frameSize
}

// ReadWord reads the word at an absolute address.
func (m *PhysicalMemory) ReadWord(address int) int32 {
	return m.frames[address/m.frameSize].Data[address%m.frameSize]
}

// ReadWordInFrame reads a word by frame and in-frame offset.
func (m *PhysicalMemory) ReadWordInFrame(frame, offset int) int32 {
	return m.frames[frame].Data[offset]
}

// WriteWord writes the word at an absolute address.
func (m *PhysicalMemory) WriteWord(address int, value int32) {
	m.frames[address/m.frameSize].Data[address%m.frameSize] = value
}

// WriteWordInFrame writes a word by frame and in-frame offset.
func (m *PhysicalMemory) WriteWordInFrame(frame, offset int, value int32) {
	m.frames[frame].Data[offset] = value
}

// LoadFrame overwrites a whole frame with the given words.
func (m *PhysicalMemory) LoadFrame(frame int, words []int32) {
	if len(words) != m.frameSize {
		panic("loading a frame with a block of a different size")
	}

	copy(m.frames[frame].Data, words)
}

// IsFree tells if a frame is available for allocation.
func (m *PhysicalMemory) IsFree(frame int) bool {
	return m.frames[frame].Free
}

// SetFree marks a frame as free or used.
func (m *PhysicalMemory) SetFree(frame int, free bool) {
	m.frames[frame].Free = free
}

// FreeFrameCount returns the number of frames marked free.
func (m *PhysicalMemory) FreeFrameCount() int {
	n := 0
	for i := range m.frames {
		if m.frames[i].Free {
			n++
		}
	}

	return n
}

// Frame returns a copy of a frame.
func (m *PhysicalMemory) Frame(frame int) Frame {
	f := m.frames[frame]

	return Frame{
		Free: f.Free,
		Data: append([]int32(nil), f.Data...),
	}
}
