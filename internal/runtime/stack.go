package runtime

// StackEventKind discriminates stack notifications.
type StackEventKind string

const (
	StackInitial StackEventKind = "initial"
	StackPush    StackEventKind = "push"
	StackPop     StackEventKind = "pop"
)

// StackEvent is delivered to stack listeners after each change.
type StackEvent struct {
	Kind  StackEventKind
	Block *Block // pushed/popped block; current block for initial
	Depth int    // depth after the change
}

type stackListener struct {
	id int
	fn func(StackEvent)
}

// Stack is the LIFO container of active blocks. It performs no lifecycle
// calls itself; the push/pop actions drive mount and unmount.
type Stack struct {
	blocks    []*Block
	listeners []stackListener
	nextID    int
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push places b on top and notifies listeners.
func (s *Stack) Push(b *Block) {
	s.blocks = append(s.blocks, b)
	s.notify(StackEvent{Kind: StackPush, Block: b, Depth: len(s.blocks)})
}

// Pop removes and returns the top block, or nil when empty.
func (s *Stack) Pop() *Block {
	if len(s.blocks) == 0 {
		return nil
	}
	top := s.blocks[len(s.blocks)-1]
	s.blocks[len(s.blocks)-1] = nil
	s.blocks = s.blocks[:len(s.blocks)-1]
	s.notify(StackEvent{Kind: StackPop, Block: top, Depth: len(s.blocks)})
	return top
}

// Current returns the top block, or nil when empty.
func (s *Stack) Current() *Block {
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}

// Depth returns the number of blocks on the stack.
func (s *Stack) Depth() int {
	return len(s.blocks)
}

// Blocks returns the blocks bottom to top.
func (s *Stack) Blocks() []*Block {
	return append([]*Block(nil), s.blocks...)
}

// Keys returns block keys innermost first, the order used for memory search.
func (s *Stack) Keys() []string {
	keys := make([]string, 0, len(s.blocks))
	for i := len(s.blocks) - 1; i >= 0; i-- {
		keys = append(keys, s.blocks[i].Key)
	}
	return keys
}

// Contains reports whether a block with key is on the stack.
func (s *Stack) Contains(key string) bool {
	return s.indexOf(key) >= 0
}

// Parent returns the block directly below key, or nil.
func (s *Stack) Parent(key string) *Block {
	i := s.indexOf(key)
	if i <= 0 {
		return nil
	}
	return s.blocks[i-1]
}

func (s *Stack) indexOf(key string) int {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if s.blocks[i].Key == key {
			return i
		}
	}
	return -1
}

// Subscribe registers fn for stack changes. fn immediately receives an
// initial event describing the current top. The returned function removes
// the listener.
func (s *Stack) Subscribe(fn func(StackEvent)) func() {
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, stackListener{id: id, fn: fn})
	fn(StackEvent{Kind: StackInitial, Block: s.Current(), Depth: len(s.blocks)})

	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Stack) notify(ev StackEvent) {
	listeners := append([]stackListener(nil), s.listeners...)
	for _, l := range listeners {
		l.fn(ev)
	}
}
