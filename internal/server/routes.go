package server

import (
	"safeguard/internal/access"
	"safeguard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// routeTable is the whole HTTP surface. Specific paths are listed before
// the parameterized paths they would otherwise shadow.
func (s *Server) routeTable() []access.Route {
	const (
		get  = fiber.MethodGet
		post = fiber.MethodPost
		put  = fiber.MethodPut
		del  = fiber.MethodDelete
	)
	admin, root := models.RoleAdmin, models.RoleSuperAdmin

	return []access.Route{
		// Health
		{Method: get, Path: "/health/live", Handler: s.LivenessCheck},
		{Method: get, Path: "/health/ready", Handler: s.ReadinessCheck},

		// Auth
		{Method: post, Path: "/login", Handler: s.Login, RateLimit: 10},
		{Method: post, Path: "/auth/reset-password", Handler: s.ResetPassword, RateLimit: 5},
		{Method: post, Path: "/logout", Handler: s.Logout, Auth: true, AllowDuringReset: true},
		{Method: get, Path: "/ws/:token", Handler: s.WebSocketHandler()},

		// Profile
		{Method: get, Path: "/users/me", Handler: s.GetMyProfile, Auth: true},
		{Method: put, Path: "/users/me", Handler: s.UpdateMyProfile, Auth: true},
		{Method: post, Path: "/users/me/photo", Handler: s.UploadMyPhoto, Auth: true, RateLimit: 10},
		{Method: post, Path: "/users/me/password", Handler: s.ChangePassword, Auth: true, RateLimit: 5, AllowDuringReset: true},
		{Method: get, Path: "/users/:id/photo", Handler: s.GetUserPhoto, Auth: true},

		// User management
		{Method: get, Path: "/admin/users", Handler: s.ListUsers, Auth: true, MinRole: admin},
		{Method: post, Path: "/admin/users", Handler: s.CreateUser, Auth: true, MinRole: admin},
		{Method: del, Path: "/admin/users/:id", Handler: s.DeleteUser, Auth: true, MinRole: admin},
		{Method: put, Path: "/admin/users/:id/capabilities", Handler: s.SetCapability, Auth: true, MinRole: admin},
		{Method: post, Path: "/admin/users/:id/force-reset", Handler: s.FlagForReset, Auth: true, MinRole: admin},
		{Method: put, Path: "/admin/admins/:id/settings", Handler: s.UpdateAdminSettings, Auth: true, MinRole: root},
		{Method: get, Path: "/admin/companies", Handler: s.ListCompanies, Auth: true, MinRole: admin},
		{Method: post, Path: "/admin/companies", Handler: s.CreateCompany, Auth: true, MinRole: root},
		{Method: get, Path: "/admin/companies/:id/user-count", Handler: s.CompanyUserCount, Auth: true, MinRole: admin},
		{Method: get, Path: "/routes", Handler: s.ListRoutes, Auth: true, MinRole: admin},

		// Chat
		{Method: post, Path: "/chat/rooms", Handler: s.StartChat, Auth: true},
		{Method: get, Path: "/chat/rooms", Handler: s.ListRooms, Auth: true},
		{Method: get, Path: "/chat/rooms/:roomId/messages", Handler: s.GetRoomMessages, Auth: true},
		{Method: post, Path: "/chat/rooms/:roomId/messages", Handler: s.SendRoomMessage, Auth: true, RateLimit: 30},
		{Method: post, Path: "/chat/rooms/:roomId/read", Handler: s.MarkRoomRead, Auth: true},
		{Method: get, Path: "/chat/channels/company", Handler: s.GetCompanyChannel, Auth: true},
		{Method: get, Path: "/chat/channels/global", Handler: s.GetGlobalChannel, Auth: true},
		{Method: post, Path: "/chat/channels/:scope/messages", Handler: s.SendChannelMessage, Auth: true, RateLimit: 30},
		{Method: post, Path: "/chat/messages", Handler: s.SendToTarget, Auth: true, RateLimit: 30},
		{Method: get, Path: "/chat/private/:userId/messages", Handler: s.GetPrivateMessages, Auth: true},
		{Method: get, Path: "/chat/private/:userId/unread", Handler: s.GetUnreadCount, Auth: true},
		{Method: post, Path: "/chat/private/:userId/read", Handler: s.MarkPrivateRead, Auth: true},
		{Method: get, Path: "/chat/conversations", Handler: s.GetConversations, Auth: true},
		{Method: get, Path: "/chat/users/search", Handler: s.SearchChatUsers, Auth: true},
		{Method: post, Path: "/chat/upload", Handler: s.UploadChatFile, Auth: true, RateLimit: 10},
		{Method: get, Path: "/chat/file/:fileId", Handler: s.GetChatFile, Auth: true},

		// Observations
		{Method: post, Path: "/observations/analyze", Handler: s.AnalyzeObservation, Auth: true, Capability: models.CapObservation, RateLimit: 10},
		{Method: post, Path: "/observations", Handler: s.CreateObservation, Auth: true, Capability: models.CapObservation},
		{Method: get, Path: "/observations", Handler: s.ListObservations, Auth: true, Capability: models.CapObservation},
		{Method: get, Path: "/observations/:id", Handler: s.GetObservation, Auth: true, Capability: models.CapObservation},
		{Method: get, Path: "/observations/:id/photo", Handler: s.GetObservationPhoto, Auth: true, Capability: models.CapObservation},
		{Method: del, Path: "/observations/:id", Handler: s.DeleteObservation, Auth: true, Capability: models.CapObservation},

		// Training
		{Method: get, Path: "/trainings", Handler: s.ListTrainings, Auth: true, Capability: models.CapTraining},
		{Method: post, Path: "/trainings", Handler: s.CreateTraining, Auth: true, MinRole: admin, Capability: models.CapTraining},
		{Method: get, Path: "/training-attempts/:attemptId", Handler: s.GetMyAttempt, Auth: true, Capability: models.CapTraining},
		{Method: get, Path: "/trainings/:id", Handler: s.GetTraining, Auth: true, Capability: models.CapTraining},
		{Method: put, Path: "/trainings/:id", Handler: s.UpdateTraining, Auth: true, MinRole: admin, Capability: models.CapTraining},
		{Method: del, Path: "/trainings/:id", Handler: s.DeleteTraining, Auth: true, MinRole: admin, Capability: models.CapTraining},
		{Method: post, Path: "/trainings/:id/attempts", Handler: s.SubmitAttempt, Auth: true, Capability: models.CapTraining},
		{Method: get, Path: "/trainings/:id/results", Handler: s.TrainingResults, Auth: true, MinRole: admin, Capability: models.CapTraining},

		// Lost & found
		{Method: get, Path: "/lost-found", Handler: s.ListLostFound, Auth: true, Capability: models.CapLostAndFound},
		{Method: post, Path: "/lost-found", Handler: s.CreateLostFound, Auth: true, Capability: models.CapLostAndFound},
		{Method: get, Path: "/lost-found/:id", Handler: s.GetLostFound, Auth: true, Capability: models.CapLostAndFound},
		{Method: get, Path: "/lost-found/:id/photo", Handler: s.GetLostFoundPhoto, Auth: true, Capability: models.CapLostAndFound},
		{Method: put, Path: "/lost-found/:id/claim", Handler: s.ClaimLostFound, Auth: true, Capability: models.CapLostAndFound},
		{Method: del, Path: "/lost-found/:id", Handler: s.DeleteLostFound, Auth: true, Capability: models.CapLostAndFound},

		// Gate pass
		{Method: get, Path: "/gate-passes", Handler: s.ListGatePasses, Auth: true, Capability: models.CapGatePass},
		{Method: post, Path: "/gate-passes", Handler: s.CreateGatePass, Auth: true, Capability: models.CapGatePass},
		{Method: get, Path: "/gate-passes/:id", Handler: s.GetGatePass, Auth: true, Capability: models.CapGatePass},
		{Method: get, Path: "/gate-passes/:id/photo", Handler: s.GetGatePassPhoto, Auth: true, Capability: models.CapGatePass},
		{Method: get, Path: "/gate-passes/:id/return-photo", Handler: s.GetGatePassReturnPhoto, Auth: true, Capability: models.CapGatePass},
		{Method: put, Path: "/gate-passes/:id/return", Handler: s.ReturnGatePass, Auth: true, Capability: models.CapGatePass},
		{Method: del, Path: "/gate-passes/:id", Handler: s.DeleteGatePass, Auth: true, Capability: models.CapGatePass},

		// AI
		{Method: post, Path: "/ai/ask", Handler: s.AskAI, Auth: true, Capability: models.CapAskAI, RateLimit: 10},

		// Posts
		{Method: get, Path: "/posts", Handler: s.ListPosts, Auth: true},
		{Method: get, Path: "/posts/mine", Handler: s.MyPosts, Auth: true},
		{Method: post, Path: "/posts", Handler: s.CreatePost, Auth: true, RateLimit: 5},
		{Method: get, Path: "/posts/:id", Handler: s.GetPost, Auth: true},
		{Method: get, Path: "/posts/:id/photo", Handler: s.GetPostPhoto, Auth: true},
		{Method: put, Path: "/posts/:id", Handler: s.UpdatePost, Auth: true},
		{Method: post, Path: "/posts/:id/toggle-visibility", Handler: s.TogglePostVisibility, Auth: true},
		{Method: del, Path: "/posts/:id", Handler: s.DeletePost, Auth: true},
	}
}

// Routes describes the mounted route table without handlers.
func (s *Server) Routes() []access.RouteInfo {
	return access.Describe(s.routes)
}

// ListRoutes handles GET /routes
func (s *Server) ListRoutes(c *fiber.Ctx) error {
	return c.JSON(s.Routes())
}
