package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/marketplace-backend/internal/dto"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/service"
)

// ThreadHandler предоставляет HTTP слой для диалогов по объявлениям.
type ThreadHandler struct {
	threads  *service.ThreadService
	messages *service.MessageService
}

// NewThreadHandler создаёт хэндлер.
func NewThreadHandler(threads *service.ThreadService, messages *service.MessageService) *ThreadHandler {
	return &ThreadHandler{threads: threads, messages: messages}
}

// Create обрабатывает POST /api/marketplace/listings/:id/thread.
// Повторный вызов возвращает существующий диалог.
func (h *ThreadHandler) Create(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	view, err := h.threads.GetOrCreateThread(c.Request.Context(), listingID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Get обрабатывает GET /api/marketplace/threads/:id. Заблокированный
// диалог видит только его инициатор.
func (h *ThreadHandler) Get(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	threadID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	thread, err := h.threads.GetThreadForUser(c.Request.Context(), threadID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread": thread})
}

// List обрабатывает GET /api/marketplace/threads?role=buyer|seller|all.
func (h *ThreadHandler) List(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	role := c.DefaultQuery("role", "all")

	views, err := h.threads.ListThreads(c.Request.Context(), userID, role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ThreadListResponse{
		Threads: views,
		Total:   len(views),
	})
}

// History обрабатывает GET /api/marketplace/threads/:id/messages?page=&limit=.
// Сообщения возвращаются в хронологическом порядке.
func (h *ThreadHandler) History(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	threadID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	page, limit := common.GetPagination(c)

	messages, err := h.messages.GetThreadHistory(c.Request.Context(), threadID, userID, page, limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.PaginatedMessagesResponse{
		Messages: messages,
		Pagination: dto.Pagination{
			Page:    page,
			Limit:   limit,
			HasMore: len(messages) == limit,
		},
	})
}

// Send обрабатывает POST /api/marketplace/threads/:id/messages.
func (h *ThreadHandler) Send(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	threadID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SendMessageRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	msg, err := h.messages.SendMessage(c.Request.Context(), threadID, userID, service.SendInput{
		Content:  req.Content,
		FileURL:  req.FileURL,
		FileType: req.FileType,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// MarkRead обрабатывает POST /api/marketplace/threads/:id/read.
func (h *ThreadHandler) MarkRead(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	threadID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.messages.MarkThreadRead(c.Request.Context(), threadID, userID); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "сообщения отмечены прочитанными", nil)
}

// Block обрабатывает POST /api/marketplace/threads/:id/block.
func (h *ThreadHandler) Block(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	threadID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	thread, err := h.threads.BlockThread(c.Request.Context(), threadID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, thread)
}

// BlockUser обрабатывает POST /api/users/:id/block.
func (h *ThreadHandler) BlockUser(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	blockedID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.threads.BlockUser(c.Request.Context(), userID, blockedID); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "пользователь заблокирован", nil)
}
