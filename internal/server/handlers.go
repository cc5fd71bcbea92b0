package server

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"scribe/internal/batch"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/results"
	"scribe/internal/services/whisperx"
	"scribe/internal/workspace"
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// modelChoices are the sizes offered by the upload form. The configured
// model is prepended when it is not already one of them, so the form
// always defaults to what the daemon actually runs.
var modelChoices = []string{"tiny", "base", "small", "medium", "large-v3"}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type indexData struct {
	Models          []string
	DefaultModel    string
	Languages       []language.Option
	DefaultLanguage string
	MaxUploadMB     int
}

func (s *Server) handleIndex(c echo.Context) error {
	models := modelChoices
	found := false
	for _, model := range models {
		if model == s.cfg.WhisperModel {
			found = true
			break
		}
	}
	if !found && s.cfg.WhisperModel != "" {
		models = append([]string{s.cfg.WhisperModel}, models...)
	}

	data := indexData{
		Models:          models,
		DefaultModel:    s.cfg.WhisperModel,
		Languages:       language.Options(),
		DefaultLanguage: s.cfg.Language,
		MaxUploadMB:     s.cfg.MaxUploadMB,
	}
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (s *Server) handleUpload(c echo.Context) error {
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, s.cfg.MaxUploadBytes()+1024)

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("invalid upload or larger than %d MB", s.cfg.MaxUploadMB)))
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		return c.JSON(http.StatusBadRequest, errorBody("no files in upload"))
	}

	model := strings.TrimSpace(c.FormValue("model"))
	if model == "" {
		model = s.cfg.WhisperModel
	}
	lang := strings.TrimSpace(c.FormValue("language"))
	if lang == "" {
		lang = s.cfg.Language
	}
	normalized := language.Normalize(lang)
	if normalized == "" {
		return c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("unknown language %q", lang)))
	}

	for _, header := range files {
		if !batch.IsMediaFile(header.Filename) {
			return c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("unsupported file type: %s", header.Filename)))
		}
		if header.Size > s.cfg.MaxUploadBytes() {
			return c.JSON(http.StatusRequestEntityTooLarge, errorBody(fmt.Sprintf("%s exceeds the %d MB limit", header.Filename, s.cfg.MaxUploadMB)))
		}
	}

	created := make([]jobView, 0, len(files))
	for _, header := range files {
		inputPath, err := s.saveUpload(header)
		if err != nil {
			s.logger.Error("save upload", logging.Error(err))
			return c.JSON(http.StatusInternalServerError, errorBody("could not store upload"))
		}
		job, err := s.store.Enqueue(c.Request().Context(), inputPath, header.Filename, model, normalized)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
		}
		created = append(created, snapshotJob(job))
	}

	return c.JSON(http.StatusAccepted, map[string]any{"jobs": created})
}

// saveUpload streams one multipart file into the inputs directory under a
// collision-free name. The random prefix keeps repeated uploads of the
// same file from sharing an output directory.
func (s *Server) saveUpload(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer src.Close()

	name := uuid.NewString() + "_" + sanitizeFileName(header.Filename)
	inputPath := filepath.Join(s.ws.InputDir, name)
	dst, err := os.Create(inputPath)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(src); err != nil {
		_ = os.Remove(inputPath)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return inputPath, nil
}

func (s *Server) handleListJobs(c echo.Context) error {
	limit := 50
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, errorBody("limit must be a positive integer"))
		}
		limit = parsed
	}

	var (
		jobs []*queue.Job
		err  error
	)
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("unknown status %q", raw)))
		}
		jobs, err = s.store.List(c.Request().Context(), status)
		if err == nil {
			// List returns enqueue order; the listing shows newest first.
			for i, j := 0, len(jobs)-1; i < j; i, j = i+1, j-1 {
				jobs[i], jobs[j] = jobs[j], jobs[i]
			}
			if len(jobs) > limit {
				jobs = jobs[:limit]
			}
		}
	} else {
		jobs, err = s.store.Recent(c.Request().Context(), limit)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, snapshotJob(job))
	}
	return c.JSON(http.StatusOK, map[string]any{"jobs": views})
}

func (s *Server) handleGetJob(c echo.Context) error {
	job, err := s.fetchJob(c)
	if job == nil {
		return err
	}
	return c.JSON(http.StatusOK, snapshotJob(job))
}

func (s *Server) handleJobFiles(c echo.Context) error {
	job, err := s.fetchJob(c)
	if job == nil {
		return err
	}

	files := make([]fileView, 0, len(job.ResultFiles))
	for _, name := range job.ResultFiles {
		view := fileView{
			Name: name,
			URL:  "/download/" + job.ID + "/" + url.PathEscape(name),
		}
		if job.OutputDir != "" {
			if info, statErr := os.Stat(filepath.Join(job.OutputDir, name)); statErr == nil {
				view.Size = info.Size()
			}
		}
		files = append(files, view)
	}
	return c.JSON(http.StatusOK, map[string]any{"job_id": job.ID, "files": files})
}

func (s *Server) handleDownload(c echo.Context) error {
	job, err := s.fetchJob(c)
	if job == nil {
		return err
	}
	if job.Status != queue.StatusSucceeded || job.OutputDir == "" {
		return c.JSON(http.StatusConflict, errorBody("job results are not ready"))
	}

	name, err := url.PathUnescape(c.Param("name"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid file name"))
	}
	// Result files are always plain names inside the job's output dir;
	// anything path-like is an escape attempt.
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return c.JSON(http.StatusBadRequest, errorBody("invalid file name"))
	}

	path := filepath.Join(job.OutputDir, name)
	if _, err := os.Stat(path); err != nil {
		if srt := s.renderMissingSRT(job, name); srt != nil {
			c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
			return c.Blob(http.StatusOK, "application/x-subrip", srt)
		}
		return c.JSON(http.StatusNotFound, errorBody("file not found"))
	}
	return c.Attachment(path, name)
}

// renderMissingSRT rebuilds subtitle output from the worker's JSON payload
// for jobs that finished without writing one. Returns nil when the request
// is not for the job's SRT or no payload is available.
func (s *Server) renderMissingSRT(job *queue.Job, name string) []byte {
	if name != workspace.JobBase(job.SourcePath)+".srt" {
		return nil
	}
	report, err := whisperx.LoadReport(job.OutputDir, job.SourcePath)
	if err != nil {
		return nil
	}
	var buf bytes.Buffer
	if err := results.WriteSRT(&buf, report.Segments); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (s *Server) handleJobSocket(c echo.Context) error {
	job, err := s.fetchJob(c)
	if job == nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return nil
	}

	s.hub.subscribe(job.ID, conn)
	_ = conn.WriteJSON(snapshotJob(job))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.unsubscribe(job.ID, conn)
	_ = conn.Close()
	return nil
}

func (s *Server) handleSystem(c echo.Context) error {
	report := s.checker.Run(c.Request().Context())
	health, err := s.store.Health(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}

	return c.JSON(http.StatusOK, systemView{
		Device:      s.cfg.Device,
		Model:       s.cfg.WhisperModel,
		Language:    s.cfg.Language,
		WorkerImage: s.cfg.WorkerImage,
		Diarization: s.cfg.DiarizationActive(),
		Ready:       report.Ready(),
		Checks:      snapshotChecks(report),
		Jobs:        health,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// fetchJob resolves the :id route parameter. A nil job means the error
// response was already rendered and should be returned as-is.
func (s *Server) fetchJob(c echo.Context) (*queue.Job, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return nil, c.JSON(http.StatusBadRequest, errorBody("job id required"))
	}
	job, err := s.store.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	if job == nil {
		return nil, c.JSON(http.StatusNotFound, errorBody("job not found"))
	}
	return job, nil
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

// sanitizeFileName strips everything that could not safely appear in a
// file name on the inputs directory's filesystem.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload.bin"
	}
	return name
}
