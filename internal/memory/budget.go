package memory

import "github.com/projectlily/lily/internal/schema"

// SelectRecent returns the longest suffix of msgs whose token counts sum to
// at most maxTokens. It walks newest-first and stops at the first message
// that would push the running total over the limit, so the result is always
// contiguous and in chronological order. Uncounted messages cost nothing.
func SelectRecent(msgs schema.Messages, maxTokens int) schema.Messages {
	if maxTokens < 0 {
		return nil
	}
	total := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		n, _ := msgs[i].TokenCount()
		if total+n > maxTokens {
			break
		}
		total += n
		start = i
	}
	return msgs[start:]
}
