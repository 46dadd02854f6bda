package handlers

import (
	"net/http"
	"time"

	"hermes/internal/handlers/dto"
	"hermes/internal/logger"
	"hermes/internal/middleware"
	"hermes/internal/models"

	"go.uber.org/zap"
)

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	projects, err := h.Workspace.ListProjects(r.Context(), middleware.GetOwner(r.Context()))
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить проекты")
		return
	}

	logOut("Проекты получены", start, http.StatusOK, zap.Int("count", len(projects)))
	responseWithData(w, http.StatusOK, projects)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.CreateProjectRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	project, err := h.Workspace.CreateProject(r.Context(), middleware.GetOwner(r.Context()), request.Project())
	if err != nil {
		handleServiceError(w, r, err, "не удалось создать проект")
		return
	}

	logOut("Проект создан", start, http.StatusCreated, zap.String("project_id", project.ID.String()))
	responseWithData(w, http.StatusCreated, project)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := h.Workspace.GetProject(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить проект")
		return
	}

	logOut("Проект получен", start, http.StatusOK)
	responseWithData(w, http.StatusOK, project)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.UpdateProjectRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	version, err := expectedVersion(r, request.Version)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.Workspace.UpdateProject(r.Context(), middleware.GetOwner(r.Context()), id, version, request.Apply)
	if err != nil {
		handleServiceError(w, r, err, "не удалось обновить проект")
		return
	}

	logOut("Проект обновлён", start, http.StatusOK, zap.Int("version", project.Version))
	responseWithData(w, http.StatusOK, project)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Workspace.DeleteProject(r.Context(), middleware.GetOwner(r.Context()), id); err != nil {
		handleServiceError(w, r, err, "не удалось удалить проект")
		return
	}

	logOut("Проект удалён", start, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	members, err := h.Workspace.ListMembers(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить участников")
		return
	}

	logOut("Участники получены", start, http.StatusOK, zap.Int("count", len(members)))
	responseWithData(w, http.StatusOK, members)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.AddMemberRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	member, err := h.Workspace.AddMember(r.Context(), middleware.GetOwner(r.Context()), id, request.UserID, request.Role)
	if err != nil {
		handleServiceError(w, r, err, "не удалось добавить участника")
		return
	}

	logOut("Участник добавлен", start, http.StatusCreated)
	responseWithData(w, http.StatusCreated, member)
}

func (h *Handler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.UpdateMemberRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	member, err := h.Workspace.UpdateMemberRole(r.Context(), middleware.GetOwner(r.Context()), id, request.Role)
	if err != nil {
		handleServiceError(w, r, err, "не удалось изменить роль")
		return
	}

	logOut("Роль изменена", start, http.StatusOK)
	responseWithData(w, http.StatusOK, member)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Workspace.RemoveMember(r.Context(), middleware.GetOwner(r.Context()), id); err != nil {
		handleServiceError(w, r, err, "не удалось удалить участника")
		return
	}

	logOut("Участник удалён", start, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.InviteRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	invitation, err := h.Workspace.Invite(r.Context(), middleware.GetOwner(r.Context()), &models.ProjectInvitation{
		ProjectID: id,
		Email:     request.Email,
		Role:      request.Role,
		Message:   request.Message,
	})
	if err != nil {
		handleServiceError(w, r, err, "не удалось создать приглашение")
		return
	}

	logOut("Приглашение создано", start, http.StatusCreated, zap.String("invitation_id", invitation.ID.String()))
	responseWithData(w, http.StatusCreated, invitation)
}

func (h *Handler) ListProjectInvitations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	invitations, err := h.Workspace.PendingInvitations(r.Context(), middleware.GetOwner(r.Context()), &id)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить приглашения")
		return
	}

	logOut("Приглашения получены", start, http.StatusOK, zap.Int("count", len(invitations)))
	responseWithData(w, http.StatusOK, invitations)
}

func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	invitations, err := h.Workspace.PendingInvitations(r.Context(), middleware.GetOwner(r.Context()), nil)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить приглашения")
		return
	}

	logOut("Приглашения получены", start, http.StatusOK, zap.Int("count", len(invitations)))
	responseWithData(w, http.StatusOK, invitations)
}

func (h *Handler) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.RespondInvitationRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	owner := middleware.GetOwner(r.Context())
	userID := owner
	if request.UserID != nil {
		userID = *request.UserID
	}

	invitation, member, err := h.Workspace.RespondInvitation(r.Context(), owner, id, userID, request.Accept)
	if err != nil {
		handleServiceError(w, r, err, "не удалось ответить на приглашение")
		return
	}

	logOut("Ответ на приглашение принят", start, http.StatusOK,
		zap.String("status", string(invitation.Status)))
	responseWithData(w, http.StatusOK, dto.RespondInvitationResponse{Invitation: invitation, Member: member})
}
