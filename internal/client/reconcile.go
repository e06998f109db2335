package client

import (
	"slices"
	"sort"

	"github.com/Tyrowin/chatroom/internal/chat"
)

// appendUnique adds msg unless an identical message is already present, then
// trims the oldest entries beyond limit.
func appendUnique(current []chat.Message, msg chat.Message, limit int) []chat.Message {
	if containsMessage(current, msg) {
		return current
	}
	return capTail(append(current, msg), limit)
}

// mergeHistory folds fetched into local, dropping duplicates, ordering by
// send time and keeping the most recent limit messages.
func mergeHistory(local, fetched []chat.Message, limit int) []chat.Message {
	merged := make([]chat.Message, 0, len(local)+len(fetched))
	for _, msg := range slices.Concat(local, fetched) {
		if !containsMessage(merged, msg) {
			merged = append(merged, msg)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SentAt.Before(merged[j].SentAt)
	})
	return capTail(merged, limit)
}

func containsMessage(messages []chat.Message, msg chat.Message) bool {
	return slices.ContainsFunc(messages, msg.SameAs)
}

func capTail(messages []chat.Message, limit int) []chat.Message {
	if limit > 0 && len(messages) > limit {
		return slices.Clone(messages[len(messages)-limit:])
	}
	return messages
}
