package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/v0xg/registrycheck/internal/batch"
	"github.com/v0xg/registrycheck/internal/creds"
	"github.com/v0xg/registrycheck/internal/export"
	"github.com/v0xg/registrycheck/internal/progress"
	"github.com/v0xg/registrycheck/internal/result"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// DefaultKeepJobs is how many finished batches stay downloadable.
const DefaultKeepJobs = 20

// ErrBusy is returned when a batch is already running.
var ErrBusy = errors.New("a batch is already running")

// Options configures the web server
type Options struct {
	// ConfigErr, when set, is shown to the user and blocks every batch.
	ConfigErr error
	Logger    *zap.Logger
	// Now is used for export filenames.
	Now func() time.Time
	// KeepJobs caps finished batches held in memory; DefaultKeepJobs when <= 0.
	KeepJobs int
}

// Server is the browser UI: paste credentials, watch progress, download results.
type Server struct {
	attempter batch.Attempter
	reporter  progress.Reporter
	configErr error
	logger    *zap.Logger
	now       func() time.Time
	baseCtx   context.Context
	keepJobs  int

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string // job IDs, oldest first
	running bool
	wg      sync.WaitGroup
}

// New creates a Server. Batches run with baseCtx, not the request context.
func New(baseCtx context.Context, a batch.Attempter, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	keep := opts.KeepJobs
	if keep <= 0 {
		keep = DefaultKeepJobs
	}
	return &Server{
		keepJobs:  keep,
		attempter: a,
		reporter:  progress.NewZapReporter(logger),
		configErr: opts.ConfigErr,
		logger:    logger,
		now:       now,
		baseCtx:   baseCtx,
		jobs:      make(map[string]*job),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/batches", s.handleCreate)
	mux.HandleFunc("GET /api/batches/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/batches/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /api/batches/{id}/export", s.handleExport)
	return mux
}

// Wait blocks until every started batch has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Start launches a batch for text and returns its job ID.
func (s *Server) Start(text string) (string, error) {
	if s.configErr != nil {
		return "", s.configErr
	}
	list := creds.Parse(text)
	if len(list) == 0 {
		return "", batch.ErrNoValidInput
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.running = true
	j := newJob(uuid.NewString())
	s.jobs[j.id] = j
	s.order = append(s.order, j.id)
	s.mu.Unlock()

	s.logger.Info("Batch started", zap.String("batch_id", j.id), zap.Int("credentials", len(list)))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		orch := batch.New(s.attempter, progress.Multi(s.reporter, j))
		res, err := orch.RunWithID(s.baseCtx, j.id, list)
		j.finish(res, err)

		s.mu.Lock()
		s.running = false
		s.evictLocked()
		s.mu.Unlock()
		s.logger.Info("Batch finished", zap.String("batch_id", j.id))
	}()

	return j.id, nil
}

// evictLocked drops the oldest finished jobs beyond keepJobs. s.mu must be held.
func (s *Server) evictLocked() {
	finished := 0
	for _, id := range s.order {
		if s.jobs[id].isDone() {
			finished++
		}
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if finished > s.keepJobs && s.jobs[id].isDone() {
			delete(s.jobs, id)
			finished--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *Server) job(id string) (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		ConfigError string
		Columns     []string
	}{Columns: result.Columns}
	if s.configErr != nil {
		data.ConfigError = s.configErr.Error()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("Render index failed", zap.Error(err))
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		req.Input = r.FormValue("input")
	}

	id, err := s.Start(req.Input)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
	case errors.Is(err, batch.ErrNoValidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, j.status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	history, live, cancel := j.subscribe()
	defer cancel()

	// Clients send nothing, but reading processes control frames and
	// notices a disconnect before the next write.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("WebSocket read failed", zap.String("batch_id", j.id), zap.Error(err))
				}
				cancel()
				return
			}
		}
	}()

	for _, e := range history {
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
	for e := range live {
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "batch finished"))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}

	format := export.FormatXLSX
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := export.ParseFormat(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	st := j.status()
	if !st.Done || st.Result == nil {
		writeError(w, http.StatusConflict, "batch has no results yet")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(format, s.now())+`"`)
	if err := export.Write(w, format, st.Result.Records); err != nil {
		s.logger.Error("Export failed", zap.String("batch_id", j.id), zap.Error(err))
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
