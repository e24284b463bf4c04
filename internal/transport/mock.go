package transport

import "sync"

// MockSender records everything the lane sends, for tests.
type MockSender struct {
	mu    sync.Mutex
	sent  [][]byte
	err   error
	state State
}

// NewMockSender creates a sender that accepts everything.
func NewMockSender() *MockSender {
	return &MockSender{state: Connected}
}

// SetError makes every subsequent Send fail with err.
func (m *MockSender) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockSender) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.sent = append(m.sent, cp)
	return nil
}

func (m *MockSender) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockSender) Close() error {
	return nil
}

// Sent returns a copy of all recorded payloads.
func (m *MockSender) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}
