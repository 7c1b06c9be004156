package core

// Request is the closed set of decoded inbound frames.
type Request interface {
	request()
}

// SendMessage asks to persist and broadcast a chat message.
type SendMessage struct {
	Text string
	File *FileData
}

// FileData is an inline attachment; Content is still transport (base64) encoded.
type FileData struct {
	Name    string
	Content string
}

// SetTyping toggles the sender's typing indicator.
type SetTyping struct {
	IsTyping bool
}

// MarkRead records that the sender has read a message.
type MarkRead struct {
	MessageID int64
}

func (SendMessage) request() {}
func (SetTyping) request()   {}
func (MarkRead) request()    {}
