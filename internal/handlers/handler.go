package handlers

import (
	"net/http"
	"time"

	"hermes/internal/logger"
	"hermes/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Workspace WorkspaceService
}

func NewHandler(ws WorkspaceService) Handler {
	return Handler{
		Workspace: ws,
	}
}

// Register вешает маршруты API на роутер. Всё, кроме /health, требует X-User-ID.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Owner)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)   // GET /api/projects
			r.Post("/", h.CreateProject) // POST /api/projects

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProject)
				r.Patch("/", h.UpdateProject)
				r.Delete("/", h.DeleteProject)

				r.Get("/members", h.ListMembers)
				r.Post("/members", h.AddMember)
				r.Get("/invitations", h.ListProjectInvitations)
				r.Post("/invitations", h.Invite)

				r.Get("/tasks", h.ListTasks)
				r.Post("/tasks", h.CreateTask)
				r.Get("/documents", h.ListDocuments)
				r.Post("/documents", h.CreateDocument)
				r.Get("/activity", h.ProjectActivity)

				r.Get("/board", h.GetBoard)          // GET /api/projects/{id}/board
				r.Post("/board/move", h.MoveTask)    // POST /api/projects/{id}/board/move
				r.Get("/board/ws", h.SubscribeBoard) // GET /api/projects/{id}/board/ws
			})
		})

		r.Route("/members/{id}", func(r chi.Router) {
			r.Patch("/", h.UpdateMemberRole)
			r.Delete("/", h.RemoveMember)
		})

		r.Get("/invitations", h.ListInvitations)
		r.Post("/invitations/{id}/respond", h.RespondInvitation)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/search", h.SearchTasks) // GET /api/tasks/search?q=...

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTask)
				r.Patch("/", h.UpdateTask)
				r.Delete("/", h.DeleteTask)

				r.Get("/comments", h.ListComments)
				r.Post("/comments", h.AddComment)
			})
		})
		r.Delete("/comments/{id}", h.DeleteComment)

		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/", h.GetDocument)
			r.Patch("/", h.UpdateDocument)
			r.Delete("/", h.DeleteDocument)
			r.Get("/render", h.RenderDocument)
			r.Put("/file", h.UploadFile)
			r.Get("/file", h.DownloadFile)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Get("/{id}", h.GetTemplate)
		})

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.SaveSettings)
		r.Get("/activity", h.Activity)

		r.Get("/profile", h.GetOwnProfile)
		r.Put("/profile", h.SaveProfile)
		r.Get("/profiles/{id}", h.GetProfile)

		r.Route("/data", func(r chi.Router) {
			r.Get("/export", h.Export)  // GET /api/data/export
			r.Post("/import", h.Import) // POST /api/data/import
			r.Delete("/", h.Clear)      // DELETE /api/data
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.Workspace.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("error", err.Error()))
		return
	}

	logger.Debug("HTTP_OUT: Проверка здоровья",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}

// logOut пишет итог обработки запроса
func logOut(msg string, start time.Time, status int, fields ...zap.Field) {
	fields = append(fields,
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", status))
	logger.Info("HTTP_OUT: "+msg, fields...)
}
