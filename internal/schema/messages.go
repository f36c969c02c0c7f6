package schema

// Messages is an ordered run of conversation messages.
type Messages []Message

// TotalTokens sums the token counts of all counted messages.
func (ms Messages) TotalTokens() int {
	total := 0
	for _, m := range ms {
		if n, ok := m.TokenCount(); ok {
			total += n
		}
	}
	return total
}

// Clone returns a copy that shares no backing array with ms.
func (ms Messages) Clone() Messages {
	out := make(Messages, len(ms))
	copy(out, ms)
	return out
}
