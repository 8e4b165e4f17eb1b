package platform

import "sync"

// SentMessage is one outbound message captured by RecordingMessenger.
type SentMessage struct {
	Channel string
	Method  string
	Args    any // JSON-decoded
}

// RecordingMessenger is a Messenger that keeps every message for assertions.
type RecordingMessenger struct {
	mu   sync.Mutex
	sent []SentMessage
	// Err, if set, is returned from Send after recording.
	Err error
}

// Send records the message.
func (m *RecordingMessenger) Send(channel, method string, args []byte) error {
	decoded, _ := DefaultCodec.Decode(args)
	m.mu.Lock()
	m.sent = append(m.sent, SentMessage{Channel: channel, Method: method, Args: decoded})
	err := m.Err
	m.mu.Unlock()
	return err
}

// Messages returns a copy of everything sent so far.
func (m *RecordingMessenger) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// MessagesFor returns messages sent with the given method name.
func (m *RecordingMessenger) MessagesFor(method string) []SentMessage {
	var out []SentMessage
	for _, msg := range m.Messages() {
		if msg.Method == method {
			out = append(out, msg)
		}
	}
	return out
}

// Reset drops the recorded messages.
func (m *RecordingMessenger) Reset() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}

// SetupTestMessenger installs a RecordingMessenger and registers a teardown
// that calls ResetForTest. Pass testing.T.Cleanup:
//
//	msgs := platform.SetupTestMessenger(t.Cleanup)
func SetupTestMessenger(cleanup func(func())) *RecordingMessenger {
	ResetForTest()
	m := &RecordingMessenger{}
	SetMessenger(m)
	cleanup(ResetForTest)
	return m
}

// RecordingResult is a Result that remembers how it was resolved.
type RecordingResult struct {
	mu            sync.Mutex
	Calls         int
	Value         any
	Code          string
	Message       string
	Details       any
	Unimplemented bool
	done          chan struct{}
}

// NewRecordingResult creates an unresolved RecordingResult.
func NewRecordingResult() *RecordingResult {
	return &RecordingResult{done: make(chan struct{})}
}

func (r *RecordingResult) resolve(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	fn()
	if r.Calls == 1 && r.done != nil {
		close(r.done)
	}
}

func (r *RecordingResult) Success(value any) {
	r.resolve(func() { r.Value = value })
}

func (r *RecordingResult) Error(code, message string, details any) {
	r.resolve(func() { r.Code, r.Message, r.Details = code, message, details })
}

func (r *RecordingResult) NotImplemented() {
	r.resolve(func() { r.Unimplemented = true })
}

// Done is closed on the first resolution.
func (r *RecordingResult) Done() <-chan struct{} {
	return r.done
}

// Resolved reports how many times the result has been resolved.
func (r *RecordingResult) Resolved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls
}

// Snapshot returns the recorded fields under the lock.
func (r *RecordingResult) Snapshot() (calls int, value any, code string, notImplemented bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls, r.Value, r.Code, r.Unimplemented
}
