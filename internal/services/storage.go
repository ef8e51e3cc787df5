package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/interview-simulator/internal/models"
)

// ErrFileTooLarge is returned when an upload exceeds the configured limit.
var ErrFileTooLarge = errors.New("file too large")

var allowedUploadExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
}

// StorageService keeps uploaded job descriptions and resumes on local disk.
type StorageService interface {
	SaveFile(file *multipart.FileHeader, docType models.DocumentType) (filename string, path string, err error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath  string
	maxFileSize int64
}

func NewStorageService(uploadPath string, maxFileSize int64) StorageService {
	return &storageService{
		uploadPath:  uploadPath,
		maxFileSize: maxFileSize,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return nil
}

// SaveFile writes the upload under a generated name. The file only appears
// under its final name once fully written and within the size limit.
func (s *storageService) SaveFile(file *multipart.FileHeader, docType models.DocumentType) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedUploadExtensions[ext] {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return "", "", fmt.Errorf("%w: %q is %d bytes", ErrFileTooLarge, file.Filename, file.Size)
	}
	if err := s.EnsureUploadDir(); err != nil {
		return "", "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.uploadPath, ".upload-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	var reader io.Reader = src
	if s.maxFileSize > 0 {
		reader = io.LimitReader(src, s.maxFileSize+1)
	}
	written, err := io.Copy(tmp, reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to save file: %w", err)
	}
	if s.maxFileSize > 0 && written > s.maxFileSize {
		return "", "", fmt.Errorf("%w: %q", ErrFileTooLarge, file.Filename)
	}
	if err := tmp.Close(); err != nil {
		return "", "", fmt.Errorf("failed to flush file: %w", err)
	}

	filename := fmt.Sprintf("%s_%s%s", docType, uuid.NewString(), ext)
	path := filepath.Join(s.uploadPath, filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", "", fmt.Errorf("failed to move file into place: %w", err)
	}
	committed = true

	return filename, path, nil
}

// GetFilePath resolves a stored name; directory parts are ignored.
func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filepath.Base(filename))
}

func (s *storageService) DeleteFile(filename string) error {
	if err := os.Remove(s.GetFilePath(filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
