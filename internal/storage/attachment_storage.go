package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// Допустимые типы вложений сообщений.
var allowedAttachmentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"application/pdf": true,
}

// AttachmentStorage отвечает за файловое хранилище вложений сообщений.
type AttachmentStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// SavedAttachment описывает сохранённое вложение.
type SavedAttachment struct {
	URL      string
	MIMEType string
	Size     int64
}

// NewAttachmentStorage создаёт файловое хранилище.
func NewAttachmentStorage(rootPath string, maxUploadMB int64) (*AttachmentStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &AttachmentStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save проверяет тип файла по сигнатуре, сохраняет его и возвращает
// относительный путь с MIME-типом. Тип определяется по содержимому,
// а не по расширению из имени файла.
func (s *AttachmentStorage) Save(ctx context.Context, userID uuid.UUID, originalName string, r io.Reader) (*SavedAttachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Сигнатуре достаточно первых 261 байта.
	head := make([]byte, 261)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown || !allowedAttachmentTypes[kind.MIME.Value] {
		return nil, fmt.Errorf("storage: недопустимый тип файла")
	}

	safeName := sanitizeFilename(originalName)
	fileName := fmt.Sprintf("%s_%d%s", userID.String(), time.Now().UnixNano(), filepath.Ext(safeName))

	userDir := filepath.Join(s.rootPath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог пользователя: %w", err)
	}

	targetPath := filepath.Join(userDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limitedReader := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: файл превышает лимит %d МБ", s.maxUploadBytes/(1024*1024))
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: не удалось закрыть файл: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return &SavedAttachment{
		URL:      filepath.ToSlash(filepath.Join(userID.String(), fileName)),
		MIMEType: kind.MIME.Value,
		Size:     written,
	}, nil
}

// Delete удаляет вложение по относительному пути.
func (s *AttachmentStorage) Delete(relPath string) error {
	cleaned := filepath.Clean(relPath)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("storage: недопустимый путь")
	}
	return os.Remove(filepath.Join(s.rootPath, cleaned))
}

// sanitizeFilename убирает из имени файла всё, кроме безопасных символов.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
