package api

import (
	"captchasolver/internal/captcha"
	"captchasolver/internal/solver"
	"captchasolver/internal/utils"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// ModelStatus reports which models loaded at startup
type ModelStatus interface {
	Status() map[captcha.Type]bool
}

// Handler serves the captcha API and the web assets
type Handler struct {
	solver    *solver.Solver
	models    ModelStatus
	webDir    string
	maxUpload int64
}

// NewHandler creates a handler. maxUpload is the largest accepted file in bytes.
func NewHandler(s *solver.Solver, models ModelStatus, webDir string, maxUpload int64) *Handler {
	return &Handler{
		solver:    s,
		models:    models,
		webDir:    webDir,
		maxUpload: maxUpload,
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.Use(requestID())

	r.GET("/", h.index)

	api := r.Group("/api")
	{
		api.GET("/health", h.healthCheck)
		api.POST("/solve", h.solveCaptcha)
	}

	// Everything else is looked up in the web directory
	r.NoRoute(h.static)
}

// healthCheck reports whether each model loaded
func (h *Handler) healthCheck(c *gin.Context) {
	status := h.models.Status()
	c.JSON(http.StatusOK, gin.H{
		string(captcha.TypeText): status[captcha.TypeText],
		string(captcha.TypeMath): status[captcha.TypeMath],
	})
}

// solveCaptcha handles POST /api/solve
func (h *Handler) solveCaptcha(c *gin.Context) {
	id := c.GetString(requestIDKey)

	// Multipart framing on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(c, http.StatusBadRequest, h.tooLargeMessage())
			return
		}
		log.Printf("[Solve %s] FormFile error: %v", id, err)
		utils.Error(c, http.StatusBadRequest, "file is required")
		return
	}

	if file.Size > h.maxUpload {
		utils.Error(c, http.StatusBadRequest, h.tooLargeMessage())
		return
	}

	data, err := readUpload(file)
	if err != nil {
		log.Printf("[Solve %s] Failed to read upload: %v", id, err)
		utils.Error(c, http.StatusInternalServerError, "failed to read upload: "+err.Error())
		return
	}

	req := solver.Request{
		Data:        data,
		ContentType: file.Header.Get("Content-Type"),
		Type:        c.DefaultPostForm("type", string(captcha.TypeText)),
	}
	log.Printf("[Solve %s] file=%q content_type=%q size=%d type=%q",
		id, file.Filename, req.ContentType, len(data), req.Type)

	resp, err := h.solver.Solve(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		log.Printf("[Solve %s] Failed (%d): %v", id, status, err)
		utils.Error(c, status, err.Error())
		return
	}

	log.Printf("[Solve %s] %s prediction=%q confidence=%.1f time=%dms",
		id, resp.Type, resp.Prediction, resp.Confidence, resp.ProcessingTimeMs)
	utils.Success(c, resp)
}

// index serves the landing page
func (h *Handler) index(c *gin.Context) {
	c.File(filepath.Join(h.webDir, "index.html"))
}

// static serves files from the web directory, with index.html for directories
func (h *Handler) static(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		utils.Error(c, http.StatusNotFound, "not found")
		return
	}

	rel := path.Clean("/" + c.Request.URL.Path)
	full := filepath.Join(h.webDir, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
	}
	if err != nil || info.IsDir() {
		utils.Error(c, http.StatusNotFound, "not found")
		return
	}

	c.File(full)
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("file exceeds %dMB limit", h.maxUpload>>20)
}

// statusFor maps solver errors to HTTP status codes
func statusFor(err error) int {
	var decErr *solver.DecodeError
	switch {
	case errors.Is(err, solver.ErrNotImage):
		return http.StatusBadRequest
	case errors.As(err, &decErr):
		return http.StatusBadRequest
	default:
		// model unavailable and inference failures
		return http.StatusInternalServerError
	}
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
