package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/models"
	"alfredoptarigan/interview-simulator/internal/repositories"
	"alfredoptarigan/interview-simulator/internal/services"
)

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	extractor      services.TextExtractor
	maxFileSize    int64
	log            *zap.Logger
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	extractor services.TextExtractor,
	maxFileSize int64,
	log *zap.Logger,
) *UploadHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadHandler{
		docRepo:        docRepo,
		storageService: storageService,
		extractor:      extractor,
		maxFileSize:    maxFileSize,
		log:            log,
	}
}

var uploadFields = []struct {
	field   string
	docType models.DocumentType
	label   string
}{
	{field: "job_description", docType: models.DocumentJobDescription, label: "Job description"},
	{field: "resume", docType: models.DocumentResume, label: "Resume"},
}

// HandleUpload stores the job description and/or resume and extracts their text.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "invalid_form", "Failed to parse multipart form.")
	}

	var responses []models.UploadResponse
	for _, f := range uploadFields {
		files, exists := form.File[f.field]
		if !exists || len(files) == 0 {
			continue
		}

		resp, status, err := h.store(c, files[0], f.docType, f.label)
		if err != nil {
			if status >= fiber.StatusInternalServerError {
				h.log.Error("❌ Upload failed", zap.String("field", f.field), zap.Error(err))
				return errorJSON(c, status, "upload_failed", fmt.Sprintf("Failed to store %s.", f.label))
			}
			return badRequest(c, "invalid_file", err.Error())
		}
		responses = append(responses, *resp)
	}

	if len(responses) == 0 {
		return badRequest(c, "no_files", "No valid files uploaded. Please upload 'job_description' and/or 'resume' as PDF or TXT files.")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Files uploaded successfully",
		"documents": responses,
	})
}

func (h *UploadHandler) store(c *fiber.Ctx, file *multipart.FileHeader, docType models.DocumentType, label string) (*models.UploadResponse, int, error) {
	if h.maxFileSize > 0 && file.Size > h.maxFileSize {
		return nil, fiber.StatusBadRequest, fmt.Errorf("%s file too large. Max size: %d bytes", label, h.maxFileSize)
	}

	filename, filePath, err := h.storageService.SaveFile(file, docType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedFileType):
			return nil, fiber.StatusBadRequest, fmt.Errorf("%s must be a PDF or TXT file", label)
		case errors.Is(err, services.ErrFileTooLarge):
			return nil, fiber.StatusBadRequest, fmt.Errorf("%s file too large. Max size: %d bytes", label, h.maxFileSize)
		}
		return nil, fiber.StatusInternalServerError, err
	}

	text, err := h.extractor.ExtractText(filePath)
	if err != nil {
		h.log.Debug("text extraction failed", zap.String("filename", filename), zap.Error(err))
		h.cleanup(filename)
		return nil, fiber.StatusBadRequest, fmt.Errorf("could not read text from %s", label)
	}

	doc := models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FileType:         docType,
		FilePath:         filePath,
		TextExtracted:    text,
	}
	if err := h.docRepo.Create(c.UserContext(), &doc); err != nil {
		h.cleanup(filename)
		return nil, fiber.StatusInternalServerError, err
	}

	return &models.UploadResponse{
		ID:            doc.ID.String(),
		Filename:      doc.Filename,
		OriginalName:  doc.OriginalFileName,
		FileType:      string(doc.FileType),
		ExtractedSize: len([]rune(text)),
	}, fiber.StatusCreated, nil
}

func (h *UploadHandler) cleanup(filename string) {
	if err := h.storageService.DeleteFile(filename); err != nil {
		h.log.Warn("failed to remove stored upload", zap.String("filename", filename), zap.Error(err))
	}
}
