package store

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultMemorySize is the number of turns a conversation remembers.
const DefaultMemorySize = 10

type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Memory keeps the most recent turns in insertion order and drops the oldest
// one once full.
type Memory struct {
	capacity int
	entries  []Entry
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemorySize
	}
	return &Memory{capacity: capacity, entries: make([]Entry, 0, capacity)}
}

func (m *Memory) Append(role Role, content string) {
	if len(m.entries) == m.capacity {
		copy(m.entries, m.entries[1:])
		m.entries = m.entries[:m.capacity-1]
	}
	m.entries = append(m.entries, Entry{Role: role, Content: content})
}

// Entries returns a copy of the stored turns, oldest first.
func (m *Memory) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Memory) Len() int { return len(m.entries) }

func (m *Memory) Capacity() int { return m.capacity }

func (m *Memory) Clear() {
	m.entries = m.entries[:0]
}
