package server

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bookhub/elib/internal/domain/models"
	"github.com/bookhub/elib/internal/logger"
	"github.com/bookhub/elib/internal/media"
	storerrros "github.com/bookhub/elib/internal/storage/errors"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100

	// one cover + one document at maxFileSize each, plus form overhead
	maxRequestSize = 2*maxFileSize + 1<<20
)

func mimeToExtension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "application/pdf":
		return "pdf"
	default:
		return ""
	}
}

// CreateBook accepts a multipart request with title, genre, description and
// two files (coverImage, file), pushes both files to media storage and
// persists the book owned by the caller. Temp files are removed only after
// the record is persisted; earlier failures leave them behind.
func (s *Server) CreateBook(ctx *gin.Context) {
	log := logger.Get()

	uid := ctx.GetString("uid")
	if uid == "" {
		s.respondError(ctx, http.StatusUnauthorized, nil, "user ID not found")
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxRequestSize)
	if err := ctx.Request.ParseMultipartForm(maxFileSize); err != nil {
		s.respondError(ctx, http.StatusBadRequest, err, "failed to parse multipart form")
		return
	}

	form := ctx.Request.MultipartForm
	for _, field := range []string{"title", "genre", "description"} {
		if len(form.Value[field]) == 0 || form.Value[field][0] == "" {
			s.respondError(ctx, http.StatusBadRequest, nil, "missing or empty field: "+field)
			return
		}
	}

	coverHeader, err := ctx.FormFile("coverImage")
	if err != nil {
		s.respondError(ctx, http.StatusBadRequest, err, "coverImage file is required")
		return
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		s.respondError(ctx, http.StatusBadRequest, err, "book file is required")
		return
	}
	if coverHeader.Size > maxFileSize || fileHeader.Size > maxFileSize {
		s.respondError(ctx, http.StatusBadRequest, nil, "file exceeds the 30MB limit")
		return
	}

	coverPath, err := s.saveTempFile(coverHeader)
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "failed to store uploaded file")
		return
	}
	filePath, err := s.saveTempFile(fileHeader)
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "failed to store uploaded file")
		return
	}

	rctx := ctx.Request.Context()
	coverURL, err := s.Media.Upload(rctx, coverPath, media.UploadOptions{
		Folder:   coverFolder,
		Filename: coverHeader.Filename,
		Format:   mimeToExtension(coverHeader.Header.Get("Content-Type")),
	})
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "an error occurred while uploading the book cover")
		return
	}
	fileURL, err := s.Media.Upload(rctx, filePath, media.UploadOptions{
		Folder:   pdfFolder,
		Filename: fileHeader.Filename,
		Format:   "pdf",
		Raw:      true,
	})
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "an error occurred while uploading the book file")
		return
	}

	bid, err := s.Storage.SaveBook(models.Book{
		Title:    form.Value["title"][0],
		Genre:    form.Value["genre"][0],
		Desc:     form.Value["description"][0],
		Author:   models.Author{ID: uid},
		CoverURL: coverURL,
		FileURL:  fileURL,
	})
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "failed to save book")
		return
	}

	for _, path := range []string{coverPath, filePath} {
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to remove temp file")
		}
	}

	ctx.JSON(http.StatusCreated, gin.H{"id": bid})
}

// UpdateBook replaces any subset of the text fields and, when a new file is
// supplied, swaps the corresponding asset in media storage. Nothing is
// persisted if either asset swap fails.
func (s *Server) UpdateBook(ctx *gin.Context) {
	uid := ctx.GetString("uid")
	if uid == "" {
		s.respondError(ctx, http.StatusUnauthorized, nil, "user ID not found")
		return
	}
	bid := ctx.Param("bookId")
	if bid == "" {
		s.respondError(ctx, http.StatusBadRequest, nil, "missing book ID")
		return
	}

	book, err := s.Storage.GetBook(bid)
	if err != nil {
		if errors.Is(err, storerrros.ErrBookNoExist) {
			s.respondError(ctx, http.StatusNotFound, err, "book not found")
			return
		}
		s.respondError(ctx, http.StatusInternalServerError, err, "error updating book")
		return
	}
	if book.Author.ID != uid {
		s.respondError(ctx, http.StatusForbidden, nil, "you cannot update another's book")
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxRequestSize)
	if err := ctx.Request.ParseMultipartForm(maxFileSize); err != nil {
		s.respondError(ctx, http.StatusBadRequest, err, "failed to parse multipart form")
		return
	}
	form := ctx.Request.MultipartForm
	rctx := ctx.Request.Context()

	if coverHeader, err := ctx.FormFile("coverImage"); err == nil {
		if coverHeader.Size > maxFileSize {
			s.respondError(ctx, http.StatusBadRequest, nil, "file exceeds the 30MB limit")
			return
		}
		url, err := s.replaceAsset(rctx, book.CoverURL, coverHeader, media.UploadOptions{
			Folder:   coverFolder,
			Filename: coverHeader.Filename,
			Format:   mimeToExtension(coverHeader.Header.Get("Content-Type")),
		})
		if err != nil {
			s.respondError(ctx, http.StatusInternalServerError, err, "error processing cover image")
			return
		}
		book.CoverURL = url
	}

	if fileHeader, err := ctx.FormFile("file"); err == nil {
		if fileHeader.Size > maxFileSize {
			s.respondError(ctx, http.StatusBadRequest, nil, "file exceeds the 30MB limit")
			return
		}
		url, err := s.replaceAsset(rctx, book.FileURL, fileHeader, media.UploadOptions{
			Folder:   pdfFolder,
			Filename: fileHeader.Filename,
			Format:   "pdf",
			Raw:      true,
		})
		if err != nil {
			s.respondError(ctx, http.StatusInternalServerError, err, "error processing book file")
			return
		}
		book.FileURL = url
	}

	if v := formValue(form, "title"); v != "" {
		book.Title = v
	}
	if v := formValue(form, "genre"); v != "" {
		book.Genre = v
	}
	if v := formValue(form, "description"); v != "" {
		book.Desc = v
	}

	updated, err := s.Storage.UpdateBook(book)
	if err != nil {
		if errors.Is(err, storerrros.ErrBookNoExist) {
			s.respondError(ctx, http.StatusNotFound, err, "book not found")
			return
		}
		s.respondError(ctx, http.StatusInternalServerError, err, "error updating book")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// ListBooks returns the caller's books newest first with pagination
// metadata. Page below 1 is clamped to 1, limit defaults to 10 and is
// capped at 100.
func (s *Server) ListBooks(ctx *gin.Context) {
	uid := ctx.GetString("uid")
	if uid == "" {
		s.respondError(ctx, http.StatusUnauthorized, nil, "user ID not found")
		return
	}

	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	totalBooks, err := s.Storage.CountBooks(uid)
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "error while listing books")
		return
	}
	books, err := s.Storage.GetBooksPage(uid, limit, (page-1)*limit)
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "error while listing books")
		return
	}
	if books == nil {
		books = []models.Book{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"totalBooks":  totalBooks,
		"totalPages":  (totalBooks + limit - 1) / limit,
		"currentPage": page,
		"books":       books,
	})
}

// BookInfo is publicly readable, no ownership check.
func (s *Server) BookInfo(ctx *gin.Context) {
	bid := ctx.Param("bookId")
	book, err := s.Storage.GetBook(bid)
	if err != nil {
		if errors.Is(err, storerrros.ErrBookNoExist) {
			s.respondError(ctx, http.StatusNotFound, err, "book not found")
			return
		}
		s.respondError(ctx, http.StatusInternalServerError, err, "error while getting a book")
		return
	}
	ctx.JSON(http.StatusOK, book)
}

// RemoveBook destroys both stored assets and only then deletes the record.
// If the first destroy succeeds and the second fails the record survives
// with a dangling cover reference; there is no compensating action.
func (s *Server) RemoveBook(ctx *gin.Context) {
	uid := ctx.GetString("uid")
	if uid == "" {
		s.respondError(ctx, http.StatusUnauthorized, nil, "user ID not found")
		return
	}
	bid := ctx.Param("bookId")
	if bid == "" {
		s.respondError(ctx, http.StatusBadRequest, nil, "missing book ID")
		return
	}

	book, err := s.Storage.GetBook(bid)
	if err != nil {
		if errors.Is(err, storerrros.ErrBookNoExist) {
			s.respondError(ctx, http.StatusNotFound, err, "book not found")
			return
		}
		s.respondError(ctx, http.StatusInternalServerError, err, "error finding book")
		return
	}
	if book.Author.ID != uid {
		s.respondError(ctx, http.StatusForbidden, nil, "you cannot delete another's book")
		return
	}

	coverID, err := media.PublicID(book.CoverURL, true)
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "error deleting cover image")
		return
	}
	fileID, err := media.PublicID(book.FileURL, false)
	if err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "error deleting book file")
		return
	}

	rctx := ctx.Request.Context()
	if err := s.Media.Destroy(rctx, coverID, false); err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "error deleting cover image")
		return
	}
	if err := s.Media.Destroy(rctx, fileID, true); err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "error deleting book file")
		return
	}

	if err := s.Storage.DeleteBook(bid); err != nil {
		s.respondError(ctx, http.StatusInternalServerError, err, "error deleting book from database")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// replaceAsset destroys the previous asset, uploads the replacement and
// removes its temp file. Returns the replacement URL.
func (s *Server) replaceAsset(ctx context.Context, oldURL string, fh *multipart.FileHeader, opts media.UploadOptions) (string, error) {
	log := logger.Get()

	publicID, err := media.PublicID(oldURL, !opts.Raw)
	if err != nil {
		return "", err
	}
	if err := s.Media.Destroy(ctx, publicID, opts.Raw); err != nil {
		return "", err
	}

	path, err := s.saveTempFile(fh)
	if err != nil {
		return "", err
	}
	url, err := s.Media.Upload(ctx, path, opts)
	if err != nil {
		return "", err
	}
	if err := os.Remove(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove temp file")
	}
	return url, nil
}

func (s *Server) saveTempFile(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(s.cfg.UploadDir, os.ModePerm); err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.UploadDir, uuid.New().String()+"_"+filepath.Base(fh.Filename))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return "", err
	}
	return path, nil
}

func formValue(form *multipart.Form, field string) string {
	if form == nil || len(form.Value[field]) == 0 {
		return ""
	}
	return form.Value[field][0]
}
