package kafka

// ParseError is a message that can never be handled; it goes to the DLQ without retries
type ParseError struct {
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}
