package session

const messagesKey = "_messages"

const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Message is a one-shot notice shown on the next page the visitor loads.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"message"`
}

func (s *Session) AddFlash(level, text string) {
	messages := append(s.peekFlashes(), Message{Level: level, Text: text})
	s.Set(messagesKey, messages)
}

// Flashes returns the pending messages and removes them from the session.
func (s *Session) Flashes() []Message {
	messages := s.peekFlashes()
	s.Delete(messagesKey)
	return messages
}

func (s *Session) peekFlashes() []Message {
	raw, ok := s.values[messagesKey]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []Message:
		return append([]Message(nil), v...)
	case []any:
		// decoded from the store
		messages := make([]Message, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			level, _ := m["level"].(string)
			text, _ := m["message"].(string)
			if text == "" {
				continue
			}
			messages = append(messages, Message{Level: level, Text: text})
		}
		return messages
	default:
		return nil
	}
}
