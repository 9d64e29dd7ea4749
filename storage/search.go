package storage

import (
	"github.com/sahilm/fuzzy"

	"aide/model"
)

// MessageMatch is one transcript search hit.
type MessageMatch struct {
	MessageID string
	Role      model.Role
	Content   string
	Preview   string
	Score     int
}

// SearchTranscript fuzzy-searches the persisted transcript, best matches
// first. Incomplete (still streaming) messages are skipped.
func (s *Store) SearchTranscript(query string) ([]MessageMatch, error) {
	if query == "" {
		return []MessageMatch{}, nil
	}

	messages, err := s.Messages()
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Message, 0, len(messages))
	contents := make([]string, 0, len(messages))
	for _, msg := range messages {
		if !msg.Complete {
			continue
		}
		candidates = append(candidates, msg)
		contents = append(contents, msg.Content)
	}

	results := fuzzy.Find(query, contents)

	matches := make([]MessageMatch, 0, len(results))
	for _, r := range results {
		msg := candidates[r.Index]
		preview := msg.Content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		matches = append(matches, MessageMatch{
			MessageID: msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			Preview:   preview,
			Score:     r.Score,
		})
	}

	return matches, nil
}
