package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	mediarouter "github.com/shoraid/go-media-router"
)

const ownerHeader = "X-User-ID"

type mediaHandler struct {
	cfg     Config
	service MediaService
	log     zerolog.Logger
}

type updateRequest struct {
	Title       string `json:"title" binding:"max=200"`
	Description string `json:"description" binding:"max=2000"`
}

type urlResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Signed    bool   `json:"signed"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

func (h *mediaHandler) register(r *gin.RouterGroup) {
	media := r.Group("/media", requireOwner)
	media.POST("", h.Upload)
	media.GET("", h.List)
	media.GET("/:id", h.Get)
	media.GET("/:id/url", h.URL)
	media.GET("/:id/content", h.Content)
	media.PATCH("/:id", h.Update)
	media.DELETE("/:id", h.Delete)

	r.GET("/admin/storage-usage", h.Usage)
}

func requireOwner(c *gin.Context) {
	if strings.TrimSpace(c.GetHeader(ownerHeader)) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + ownerHeader + " header"})
		return
	}
	c.Next()
}

func owner(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(ownerHeader))
}

// Upload accepts a multipart form with a "file" part and optional
// "title" and "description" fields.
func (h *mediaHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "The file is too large."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	record, err := h.service.UploadMedia(c.Request.Context(), mediarouter.UploadInput{
		File: mediarouter.File{
			Name:        header.Filename,
			ContentType: contentType,
			Data:        data,
		},
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		OwnerID:     owner(c),
	}, nil)
	if err != nil {
		h.fail(c, err, "upload failed")
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *mediaHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	records, err := h.service.ListMedia(c.Request.Context(), owner(c), limit, offset)
	if err != nil {
		h.fail(c, err, "list failed")
		return
	}
	if records == nil {
		records = []mediarouter.MediaRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (h *mediaHandler) Get(c *gin.Context) {
	record, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, record)
}

// URL returns a signed URL unless signed=false is requested.
func (h *mediaHandler) URL(c *gin.Context) {
	record, ok := h.load(c)
	if !ok {
		return
	}

	if c.Query("signed") == "false" {
		url, err := h.service.GetMediaURL(c.Request.Context(), record.ObjectKey, record.ProviderID)
		if err != nil {
			h.fail(c, err, "resolve url failed")
			return
		}
		c.JSON(http.StatusOK, urlResponse{ID: record.ID, URL: url})
		return
	}

	url, err := h.service.GetSignedMediaURL(c.Request.Context(), record.ObjectKey, record.ProviderID, h.cfg.SignedURLTTL)
	if err != nil {
		h.fail(c, err, "presign failed")
		return
	}
	c.JSON(http.StatusOK, urlResponse{
		ID:        record.ID,
		URL:       url,
		Signed:    true,
		ExpiresIn: int(h.cfg.SignedURLTTL.Seconds()),
	})
}

// Content streams the stored file through the API.
func (h *mediaHandler) Content(c *gin.Context) {
	record, ok := h.load(c)
	if !ok {
		return
	}

	data, err := h.service.FetchObject(c.Request.Context(), record)
	if err != nil {
		h.fail(c, err, "fetch failed")
		return
	}

	c.Data(http.StatusOK, record.MimeType, data)
}

func (h *mediaHandler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := h.load(c); !ok {
		return
	}

	record, err := h.service.UpdateDetails(c.Request.Context(), c.Param("id"), req.Title, req.Description)
	if err != nil {
		h.fail(c, err, "update failed")
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *mediaHandler) Delete(c *gin.Context) {
	record, ok := h.load(c)
	if !ok {
		return
	}

	if !h.service.DeleteMedia(c.Request.Context(), mediarouter.DeleteInputFor(record)) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "The media could not be deleted. Please try again."})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *mediaHandler) Usage(c *gin.Context) {
	usage, err := h.service.StorageUsage(c.Request.Context())
	if err != nil {
		h.fail(c, err, "storage usage failed")
		return
	}
	if usage == nil {
		usage = []mediarouter.ProviderUsage{}
	}

	c.JSON(http.StatusOK, gin.H{"data": usage})
}

// load fetches the record named by the :id parameter and hides records of
// other owners.
func (h *mediaHandler) load(c *gin.Context) (*mediarouter.MediaRecord, bool) {
	record, err := h.service.GetMedia(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "get failed")
		return nil, false
	}
	if record.OwnerID != owner(c) {
		h.fail(c, mediarouter.ErrRecordNotFound, "owner mismatch")
		return nil, false
	}
	return record, true
}

func (h *mediaHandler) fail(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Str("id", c.Param("id")).Msg(msg)

	c.AbortWithStatusJSON(status, gin.H{"error": mediarouter.UserMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mediarouter.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, mediarouter.ErrTransformFailed),
		errors.Is(err, mediarouter.ErrInvalidInput),
		errors.Is(err, mediarouter.ErrInvalidProvider):
		return http.StatusBadRequest
	case errors.Is(err, mediarouter.ErrRecordNotFound), errors.Is(err, mediarouter.ErrNotFound):
		return http.StatusNotFound
	}

	var uploadErr *mediarouter.UploadError
	if errors.As(err, &uploadErr) && uploadErr.Stage == mediarouter.StageUploading {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
