package models

// Session holds the conversational state of one chat session. It is owned
// exclusively by that session and discarded once a booking is confirmed or
// abandoned.
type Session struct {
	ID        string            `json:"id"`
	Stage     string            `json:"stage"`
	Collected map[string]string `json:"collected,omitempty"`
}

func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Stage:     StageIdle,
		Collected: make(map[string]string),
	}
}

func (s *Session) Get(key string) string {
	if s.Collected == nil {
		return ""
	}
	return s.Collected[key]
}

func (s *Session) Set(key, value string) {
	if s.Collected == nil {
		s.Collected = make(map[string]string)
	}
	s.Collected[key] = value
}

// Reset returns the session to idle and drops everything collected so far.
func (s *Session) Reset() {
	s.Stage = StageIdle
	s.Collected = make(map[string]string)
}
