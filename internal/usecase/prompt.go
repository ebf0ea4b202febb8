package usecase

import (
	"strings"

	"people-partner/internal/category"
	"people-partner/internal/domain"
)

func buildCompletionRequest(opts Options, cat category.Category, history []domain.Turn, message string) domain.CompletionRequest {
	messages := historyToPromptMessages(history, opts.HistoryWindow)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: message,
	})
	return domain.CompletionRequest{
		Model:     opts.Model,
		System:    cat.Template(),
		Messages:  messages,
		MaxTokens: opts.MaxOutputTokens,
	}
}

// historyToPromptMessages keeps at most the last window turns in their stored
// order. Leading assistant turns are dropped so the replayed conversation
// always opens with the user.
func historyToPromptMessages(history []domain.Turn, window int) []domain.ChatMessage {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	messages := make([]domain.ChatMessage, 0, len(history)+1)
	for _, t := range history {
		if t.Role != domain.RoleUser && t.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		if len(messages) == 0 && t.Role != domain.RoleUser {
			continue
		}
		messages = append(messages, t.Message())
	}
	return messages
}
