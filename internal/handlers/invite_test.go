package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"room-service/internal/middleware"
	"room-service/internal/mocks"
	"room-service/internal/models"
)

func setupInviteRouter(handler *InviteHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserContextKey, "alice")
		c.Next()
	})
	r.POST("/rooms/:room_id/invites", handler.CreateInvite)
	r.GET("/invites", handler.ListInvites)
	r.POST("/invites/:room_id/accept", handler.AcceptInvite)
	r.DELETE("/invites/:room_id", handler.DeclineInvite)
	return r
}

func TestCreateInviteSuccess(t *testing.T) {
	invites := new(mocks.InviteRepositoryMock)
	rooms := new(mocks.RoomRepositoryMock)
	relations := new(mocks.RelationshipClientMock)
	handler := NewInviteHandler(invites, rooms, relations, zap.NewNop())
	router := setupInviteRouter(handler)

	rooms.On("IsMember", mock.Anything, "ROOMCODEAA", "alice").Return(true, nil).Once()
	relations.On("Related", mock.Anything, "alice", "bob").Return(true, nil).Once()
	invites.On("Invite", mock.Anything, "ROOMCODEAA", "bob", "alice").Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/ROOMCODEAA/invites", bytes.NewBufferString(`{"user":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	invites.AssertExpectations(t)
	rooms.AssertExpectations(t)
	relations.AssertExpectations(t)
}

func TestCreateInviteNotMember(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	handler := NewInviteHandler(new(mocks.InviteRepositoryMock), rooms, new(mocks.RelationshipClientMock), zap.NewNop())
	router := setupInviteRouter(handler)

	rooms.On("IsMember", mock.Anything, "ROOMCODEAA", "alice").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/ROOMCODEAA/invites", bytes.NewBufferString(`{"user":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	rooms.AssertExpectations(t)
}

func TestCreateInviteUnrelatedUser(t *testing.T) {
	rooms := new(mocks.RoomRepositoryMock)
	relations := new(mocks.RelationshipClientMock)
	handler := NewInviteHandler(new(mocks.InviteRepositoryMock), rooms, relations, zap.NewNop())
	router := setupInviteRouter(handler)

	rooms.On("IsMember", mock.Anything, "ROOMCODEAA", "alice").Return(true, nil).Once()
	relations.On("Related", mock.Anything, "alice", "mallory").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/ROOMCODEAA/invites", bytes.NewBufferString(`{"user":"mallory"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	relations.AssertExpectations(t)
}

func TestCreateInviteDuplicate(t *testing.T) {
	invites := new(mocks.InviteRepositoryMock)
	rooms := new(mocks.RoomRepositoryMock)
	relations := new(mocks.RelationshipClientMock)
	handler := NewInviteHandler(invites, rooms, relations, zap.NewNop())
	router := setupInviteRouter(handler)

	rooms.On("IsMember", mock.Anything, "ROOMCODEAA", "alice").Return(true, nil).Once()
	relations.On("Related", mock.Anything, "alice", "bob").Return(true, nil).Once()
	invites.On("Invite", mock.Anything, "ROOMCODEAA", "bob", "alice").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/ROOMCODEAA/invites", bytes.NewBufferString(`{"user":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "already invited")
	invites.AssertExpectations(t)
}

func TestCreateInviteInvalidBody(t *testing.T) {
	handler := NewInviteHandler(new(mocks.InviteRepositoryMock), new(mocks.RoomRepositoryMock), new(mocks.RelationshipClientMock), zap.NewNop())
	router := setupInviteRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/rooms/ROOMCODEAA/invites", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInvitesSuccess(t *testing.T) {
	invites := new(mocks.InviteRepositoryMock)
	handler := NewInviteHandler(invites, new(mocks.RoomRepositoryMock), new(mocks.RelationshipClientMock), zap.NewNop())
	router := setupInviteRouter(handler)

	invites.On("ListForUser", mock.Anything, "alice").Return([]models.RoomInvite{{RoomID: "ROOMCODEAA", UserID: "alice", InvitedBy: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/invites", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	invites.AssertExpectations(t)
}

func TestAcceptInviteSuccess(t *testing.T) {
	invites := new(mocks.InviteRepositoryMock)
	rooms := new(mocks.RoomRepositoryMock)
	handler := NewInviteHandler(invites, rooms, new(mocks.RelationshipClientMock), zap.NewNop())
	router := setupInviteRouter(handler)

	invites.On("Remove", mock.Anything, "ROOMCODEAA", "alice").Return(true, nil).Once()
	rooms.On("JoinRoom", mock.Anything, "ROOMCODEAA", "alice").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/invites/ROOMCODEAA/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	invites.AssertExpectations(t)
	rooms.AssertExpectations(t)
}

func TestAcceptInviteNotFound(t *testing.T) {
	invites := new(mocks.InviteRepositoryMock)
	handler := NewInviteHandler(invites, new(mocks.RoomRepositoryMock), new(mocks.RelationshipClientMock), zap.NewNop())
	router := setupInviteRouter(handler)

	invites.On("Remove", mock.Anything, "ROOMCODEAA", "alice").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/invites/ROOMCODEAA/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	invites.AssertExpectations(t)
}

func TestDeclineInviteSuccess(t *testing.T) {
	invites := new(mocks.InviteRepositoryMock)
	handler := NewInviteHandler(invites, new(mocks.RoomRepositoryMock), new(mocks.RelationshipClientMock), zap.NewNop())
	router := setupInviteRouter(handler)

	invites.On("Remove", mock.Anything, "ROOMCODEAA", "alice").Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/invites/ROOMCODEAA", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	invites.AssertExpectations(t)
}
