// Package server exposes the ABC compiler over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/cbegin/abcplay-go/internal/abc"
	"github.com/cbegin/abcplay-go/internal/config"
	"github.com/cbegin/abcplay-go/internal/logger"
	"github.com/cbegin/abcplay-go/internal/midi"
	"github.com/cbegin/abcplay-go/internal/source"
)

const (
	requestIDHeader = "X-Request-ID"
	shutdownTimeout = 5 * time.Second
)

type ctxKey int

const requestIDKey ctxKey = iota

// CompileResponse is the body of a successful POST /compile.
type CompileResponse struct {
	ID              string       `json:"id"`
	Info            abc.SongInfo `json:"info"`
	QuarterTempo    int          `json:"quarterTempo"`
	TicksPerQuarter int          `json:"ticksPerQuarter"`
	Events          []abc.Event  `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	cfg     *config.Config
	log     *logrus.Logger
	limiter *rate.Limiter
	parser  *abc.Parser
}

func New(cfg *config.Config, log *logrus.Logger) *Server {
	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return &Server{
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		parser:  abc.NewParser(abc.DefaultParserConfig()),
	}
}

// Handler returns the routed, CORS-enabled handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(s.requestID)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/compile", s.handleCompile).Methods(http.MethodPost)
	router.HandleFunc("/midi", s.handleMIDI).Methods(http.MethodPost)

	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(router)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set(requestIDHeader, id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		s.log.WithFields(logger.Fields{
			"request_id":  id,
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request")
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// compile applies the rate limit, reads the body and parses it. On failure
// the error response has already been written and the song is nil.
func (s *Server) compile(w http.ResponseWriter, r *http.Request) *abc.Song {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		return nil
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.Errorf("body exceeds %d bytes", tooLarge.Limit))
			return nil
		}
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "read body"))
		return nil
	}
	text, err := source.Decode(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil
	}
	song, err := s.parser.Parse(text)
	if err != nil {
		s.log.WithFields(logger.Fields{"request_id": requestIDFrom(r.Context())}).WithError(err).Info("compile failed")
		writeError(w, http.StatusBadRequest, err)
		return nil
	}
	return song
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	song := s.compile(w, r)
	if song == nil {
		return
	}
	perf := song.Perform()
	events := perf.Events
	if events == nil {
		events = []abc.Event{}
	}
	writeJSON(w, http.StatusOK, CompileResponse{
		ID:              requestIDFrom(r.Context()),
		Info:            song.Info(),
		QuarterTempo:    perf.QuarterTempo,
		TicksPerQuarter: perf.TicksPerQuarter,
		Events:          events,
	})
}

func (s *Server) handleMIDI(w http.ResponseWriter, r *http.Request) {
	song := s.compile(w, r)
	if song == nil {
		return
	}
	var buf bytes.Buffer
	if _, err := midi.Write(&buf, song.Perform(), midi.Options{TrackName: song.Title}); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
