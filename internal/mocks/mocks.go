package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"teamchat/internal/models"
	"teamchat/internal/repositories"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	var list []models.Chat
	if val := args.Get(0); val != nil {
		list = val.([]models.Chat)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID, viewerID string) (models.Chat, error) {
	args := m.Called(ctx, chatID, viewerID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) CreateChat(ctx context.Context, chat models.Chat) (models.Chat, error) {
	args := m.Called(ctx, chat)
	var out models.Chat
	if val := args.Get(0); val != nil {
		out = val.(models.Chat)
	}
	return out, args.Error(1)
}

func (m *ChatRepositoryMock) FindDirectChat(ctx context.Context, userA, userB string) (models.Chat, error) {
	args := m.Called(ctx, userA, userB)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) EnsureSystemChat(ctx context.Context, chat models.Chat) (models.Chat, error) {
	args := m.Called(ctx, chat)
	var out models.Chat
	if val := args.Get(0); val != nil {
		out = val.(models.Chat)
	}
	return out, args.Error(1)
}

func (m *ChatRepositoryMock) DeleteChat(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) SetPinned(ctx context.Context, chatID, userID string, pinned bool) error {
	args := m.Called(ctx, chatID, userID, pinned)
	return args.Error(0)
}

func (m *ChatRepositoryMock) SetReadMarker(ctx context.Context, chatID, userID string, marker models.ReadMarker) (bool, error) {
	args := m.Called(ctx, chatID, userID, marker)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID, authorID, content string, at time.Time) (models.Message, error) {
	args := m.Called(ctx, messageID, authorID, content, at)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID, authorID string, at time.Time) error {
	args := m.Called(ctx, messageID, authorID, at)
	return args.Error(0)
}

func (m *MessageRepositoryMock) PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *UserRepositoryMock) GetUsers(ctx context.Context, userIDs []string) ([]models.User, error) {
	args := m.Called(ctx, userIDs)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) SetPresence(ctx context.Context, userID string, online bool, at time.Time) error {
	args := m.Called(ctx, userID, online, at)
	return args.Error(0)
}

type ContentRepositoryMock struct {
	mock.Mock
}

func (m *ContentRepositoryMock) ListPosts(ctx context.Context) ([]models.ContentPost, error) {
	args := m.Called(ctx)
	var posts []models.ContentPost
	if val := args.Get(0); val != nil {
		posts = val.([]models.ContentPost)
	}
	return posts, args.Error(1)
}

func (m *ContentRepositoryMock) GetPost(ctx context.Context, postID string) (models.ContentPost, error) {
	args := m.Called(ctx, postID)
	var post models.ContentPost
	if val := args.Get(0); val != nil {
		post = val.(models.ContentPost)
	}
	return post, args.Error(1)
}

func (m *ContentRepositoryMock) CreatePost(ctx context.Context, post models.ContentPost) (models.ContentPost, error) {
	args := m.Called(ctx, post)
	var out models.ContentPost
	if val := args.Get(0); val != nil {
		out = val.(models.ContentPost)
	}
	return out, args.Error(1)
}

func (m *ContentRepositoryMock) UpdatePost(ctx context.Context, post models.ContentPost) (models.ContentPost, error) {
	args := m.Called(ctx, post)
	var out models.ContentPost
	if val := args.Get(0); val != nil {
		out = val.(models.ContentPost)
	}
	return out, args.Error(1)
}

func (m *ContentRepositoryMock) DeletePost(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *ContentRepositoryMock) AddComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	args := m.Called(ctx, comment)
	var out models.Comment
	if val := args.Get(0); val != nil {
		out = val.(models.Comment)
	}
	return out, args.Error(1)
}

func (m *ContentRepositoryMock) GetComment(ctx context.Context, commentID string) (models.Comment, error) {
	args := m.Called(ctx, commentID)
	var out models.Comment
	if val := args.Get(0); val != nil {
		out = val.(models.Comment)
	}
	return out, args.Error(1)
}

func (m *ContentRepositoryMock) UpdateComment(ctx context.Context, commentID, content string, at time.Time) (models.Comment, error) {
	args := m.Called(ctx, commentID, content, at)
	var out models.Comment
	if val := args.Get(0); val != nil {
		out = val.(models.Comment)
	}
	return out, args.Error(1)
}

func (m *ContentRepositoryMock) DeleteComment(ctx context.Context, commentID string) error {
	args := m.Called(ctx, commentID)
	return args.Error(0)
}

func (m *ContentRepositoryMock) MarkCommentsRead(ctx context.Context, postID, userID string) error {
	args := m.Called(ctx, postID, userID)
	return args.Error(0)
}

// BroadcasterMock records push hints.
type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) Broadcast(chatID string, event models.ChatEvent) {
	m.Called(chatID, event)
}

// NotifierMock records mention fan-out requests.
type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) MessageMentions(ctx context.Context, chat models.Chat, msg models.Message) {
	m.Called(ctx, chat, msg)
}

func (m *NotifierMock) CommentMentions(ctx context.Context, post models.ContentPost, comment models.Comment) {
	m.Called(ctx, post, comment)
}

var (
	_ repositories.ChatRepository    = (*ChatRepositoryMock)(nil)
	_ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
	_ repositories.UserRepository    = (*UserRepositoryMock)(nil)
	_ repositories.ContentRepository = (*ContentRepositoryMock)(nil)
)
