package testutils

import (
	"sync"

	"github.com/volatiq/gotdi/logger"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  []logger.Field
}

// MockLogger records log calls for assertions.
type MockLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func NewMockLogger() *MockLogger { return &MockLogger{} }

func (m *MockLogger) Info(msg string, fields ...logger.Field)  { m.append("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logger.Field)  { m.append("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logger.Field) { m.append("error", msg, fields) }

func (m *MockLogger) append(level, msg string, fields []logger.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

// LastMessage returns the most recent message, or "" when nothing was logged.
func (m *MockLogger) LastMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return ""
	}
	return m.Entries[len(m.Entries)-1].Message
}

// Has reports whether any entry carries the given message.
func (m *MockLogger) Has(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}
