package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/marketplace-backend/internal/dto"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/storage"
)

// UploadHandler принимает вложения для сообщений.
type UploadHandler struct {
	storage *storage.AttachmentStorage
}

// NewUploadHandler создаёт хэндлер.
func NewUploadHandler(st *storage.AttachmentStorage) *UploadHandler {
	return &UploadHandler{storage: st}
}

// Upload обрабатывает POST /api/uploads (multipart, поле "file").
// Возвращает file_url и file_type для последующей отправки сообщения.
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "файл обязателен")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	defer f.Close()

	saved, err := h.storage.Save(c.Request.Context(), userID, fileHeader.Filename, f)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusCreated, dto.UploadResponse{
		FileURL:  saved.URL,
		FileType: saved.MIMEType,
		Size:     saved.Size,
	})
}
