package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"room-service/internal/models"
	"room-service/internal/relationship"
	"room-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, owner string) (models.Room, error) {
	args := m.Called(ctx, owner)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) JoinRoom(ctx context.Context, roomID string, user string) error {
	args := m.Called(ctx, roomID, user)
	return args.Error(0)
}

func (m *RoomRepositoryMock) LeaveRoom(ctx context.Context, roomID string, user string) error {
	args := m.Called(ctx, roomID, user)
	return args.Error(0)
}

func (m *RoomRepositoryMock) DeleteRoom(ctx context.Context, roomID string, requester string) error {
	args := m.Called(ctx, roomID, requester)
	return args.Error(0)
}

func (m *RoomRepositoryMock) Members(ctx context.Context, roomID string) ([]string, error) {
	args := m.Called(ctx, roomID)
	var members []string
	if val := args.Get(0); val != nil {
		members = val.([]string)
	}
	return members, args.Error(1)
}

func (m *RoomRepositoryMock) IsMember(ctx context.Context, roomID string, user string) (bool, error) {
	args := m.Called(ctx, roomID, user)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, user string) ([]models.Room, error) {
	args := m.Called(ctx, user)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, roomID string, params repositories.AppendParams) (models.Message, bool, error) {
	args := m.Called(ctx, roomID, params)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) Edit(ctx context.Context, roomID string, messageID string, requester string, newBody string) (bool, error) {
	args := m.Called(ctx, roomID, messageID, requester, newBody)
	return args.Bool(0), args.Error(1)
}

func (m *MessageRepositoryMock) Delete(ctx context.Context, roomID string, messageID string, requester string) (bool, error) {
	args := m.Called(ctx, roomID, messageID, requester)
	return args.Bool(0), args.Error(1)
}

func (m *MessageRepositoryMock) React(ctx context.Context, roomID string, messageID string, symbol string) (map[string]int, bool, error) {
	args := m.Called(ctx, roomID, messageID, symbol)
	var reactions map[string]int
	if val := args.Get(0); val != nil {
		reactions = val.(map[string]int)
	}
	return reactions, args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, roomID string, reader string, messageIDs []string) ([]string, error) {
	args := m.Called(ctx, roomID, reader, messageIDs)
	var marked []string
	if val := args.Get(0); val != nil {
		marked = val.([]string)
	}
	return marked, args.Error(1)
}

func (m *MessageRepositoryMock) ListByRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) UnreadSummary(ctx context.Context, user string) (map[string]models.UnreadRoomSummary, error) {
	args := m.Called(ctx, user)
	var summary map[string]models.UnreadRoomSummary
	if val := args.Get(0); val != nil {
		summary = val.(map[string]models.UnreadRoomSummary)
	}
	return summary, args.Error(1)
}

type PresenceRepositoryMock struct {
	mock.Mock
}

func (m *PresenceRepositoryMock) SetOnline(ctx context.Context, user string, roomID string) error {
	args := m.Called(ctx, user, roomID)
	return args.Error(0)
}

func (m *PresenceRepositoryMock) SetOffline(ctx context.Context, user string) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *PresenceRepositoryMock) ClearRoom(ctx context.Context, user string, roomID string) error {
	args := m.Called(ctx, user, roomID)
	return args.Error(0)
}

func (m *PresenceRepositoryMock) RoomPresence(ctx context.Context, roomID string) ([]models.MemberPresence, error) {
	args := m.Called(ctx, roomID)
	var members []models.MemberPresence
	if val := args.Get(0); val != nil {
		members = val.([]models.MemberPresence)
	}
	return members, args.Error(1)
}

func (m *PresenceRepositoryMock) SetPushToken(ctx context.Context, user string, token string) error {
	args := m.Called(ctx, user, token)
	return args.Error(0)
}

func (m *PresenceRepositoryMock) OfflineTargets(ctx context.Context, roomID string, excludeUser string) ([]models.PushTarget, error) {
	args := m.Called(ctx, roomID, excludeUser)
	var targets []models.PushTarget
	if val := args.Get(0); val != nil {
		targets = val.([]models.PushTarget)
	}
	return targets, args.Error(1)
}

type InviteRepositoryMock struct {
	mock.Mock
}

func (m *InviteRepositoryMock) Invite(ctx context.Context, roomID string, user string, invitedBy string) (bool, error) {
	args := m.Called(ctx, roomID, user, invitedBy)
	return args.Bool(0), args.Error(1)
}

func (m *InviteRepositoryMock) ListForUser(ctx context.Context, user string) ([]models.RoomInvite, error) {
	args := m.Called(ctx, user)
	var invites []models.RoomInvite
	if val := args.Get(0); val != nil {
		invites = val.([]models.RoomInvite)
	}
	return invites, args.Error(1)
}

func (m *InviteRepositoryMock) Remove(ctx context.Context, roomID string, user string) (bool, error) {
	args := m.Called(ctx, roomID, user)
	return args.Bool(0), args.Error(1)
}

type RelationshipClientMock struct {
	mock.Mock
}

func (m *RelationshipClientMock) Related(ctx context.Context, user string, other string) (bool, error) {
	args := m.Called(ctx, user, other)
	return args.Bool(0), args.Error(1)
}

func (m *RelationshipClientMock) BulkRelated(ctx context.Context, user string, others []string) (map[string]bool, error) {
	args := m.Called(ctx, user, others)
	var related map[string]bool
	if val := args.Get(0); val != nil {
		related = val.(map[string]bool)
	}
	return related, args.Error(1)
}

type PushSinkMock struct {
	mock.Mock
}

func (m *PushSinkMock) Push(ctx context.Context, token string, title string, body string) error {
	args := m.Called(ctx, token, title, body)
	return args.Error(0)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.PresenceRepository = (*PresenceRepositoryMock)(nil)
var _ repositories.InviteRepository = (*InviteRepositoryMock)(nil)
var _ relationship.Client = (*RelationshipClientMock)(nil)
