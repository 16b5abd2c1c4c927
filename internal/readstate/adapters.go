package readstate

import "teamchat/internal/models"

// FromMessages maps a chat log to entries, preserving order.
func FromMessages(msgs []models.Message) []Entry {
	out := make([]Entry, len(msgs))
	for i, m := range msgs {
		out[i] = Entry{ID: m.ID, AuthorID: m.AuthorID, At: m.CreatedAt, Deleted: m.IsDeleted}
	}
	return out
}

// FromComments maps post comments to entries, preserving order.
func FromComments(comments []models.Comment) []Entry {
	out := make([]Entry, len(comments))
	for i, c := range comments {
		out[i] = Entry{ID: c.ID, AuthorID: c.AuthorID, At: c.CreatedAt}
	}
	return out
}

// ChatStates builds a State per user from the chat's read markers.
func ChatStates(chat models.Chat) map[string]State {
	out := make(map[string]State, len(chat.ReadMessagesByUser))
	for userID, marker := range chat.ReadMessagesByUser {
		out[userID] = FromWatermark(marker)
	}
	return out
}

// CommentState collects the comments userID acknowledged.
func CommentState(comments []models.Comment, userID string) State {
	var ids []string
	for _, c := range comments {
		if c.IsReadBy(userID) {
			ids = append(ids, c.ID)
		}
	}
	return State{}.WithAck(ids...)
}

// ChatUnread is the badge count of a chat for userID. Favorites is a
// self-chat and never has unread messages.
func ChatUnread(chat models.Chat, msgs []models.Message, userID string) int {
	if chat.IsFavoritesChat {
		return 0
	}
	return UnreadCount(FromMessages(msgs), userID, ChatStates(chat)[userID])
}

// MessageReceipts reports which participants have read msg.
func MessageReceipts(chat models.Chat, msg models.Message) map[string]bool {
	e := Entry{ID: msg.ID, AuthorID: msg.AuthorID, At: msg.CreatedAt, Deleted: msg.IsDeleted}
	return Receipts(e, chat.ParticipantIDs, ChatStates(chat))
}

// UnreadComments counts comments by others that userID has not acknowledged.
func UnreadComments(comments []models.Comment, userID string) int {
	return UnreadCount(FromComments(comments), userID, CommentState(comments, userID))
}
