// Package session manages the per-process session: its ID, its directory
// and the log files written there.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

const sessionMetaFile = "session.toml"

type sessionMeta struct {
	SessionID   string    `toml:"session_id"`
	Timestamp   time.Time `toml:"timestamp"`
	ProjectRoot string    `toml:"path"`
	Command     string    `toml:"command,omitempty"`
}

type logFile struct {
	f *os.File
	h slog.Handler
}

func newLogFile(p string, opts *slog.HandlerOptions) (*logFile, error) {
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &logFile{
		f: f,
		h: slog.NewJSONHandler(f, opts),
	}, nil
}

// Session is the state shared by a single run of the process.
type Session struct {
	meta        sessionMeta
	sessionPath string
	level       slog.Leveler

	files map[string]*logFile
}

type contextKey struct{}

// With returns a context carrying the session.
func (s *Session) With(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// LoggerFromContext returns the named logger of the session in ctx, or a
// logger discarding everything when there is no session.
func LoggerFromContext(ctx context.Context, name string) (*slog.Logger, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return slog.New(slog.DiscardHandler), nil
	}
	return s.GetLogger(name)
}

func (s *Session) ID() string {
	return s.meta.SessionID
}

func (s *Session) Timestamp() time.Time {
	return s.meta.Timestamp
}

func (s *Session) ProjectRoot() string {
	return s.meta.ProjectRoot
}

// Path returns the directory of the session.
func (s *Session) Path() string {
	return s.sessionPath
}

func (s *Session) logPath() string {
	return filepath.Join(s.sessionPath, "logs")
}

func (s *Session) init() error {
	if err := os.MkdirAll(s.sessionPath, 0755); err != nil {
		return err
	}
	encodedMeta, err := toml.Marshal(s.meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.sessionPath, sessionMetaFile), encodedMeta, 0644)
}

func (s *Session) openLogFile(name string) (*logFile, error) {
	if lf, ok := s.files[name]; ok {
		return lf, nil
	}
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("malformed log name %s", name)
	}
	pathName := name
	if !strings.Contains(name, ".") {
		pathName = name + ".jsonl"
	}
	if err := os.MkdirAll(s.logPath(), 0755); err != nil {
		return nil, err
	}
	lf, err := newLogFile(filepath.Join(s.logPath(), pathName), &slog.HandlerOptions{
		AddSource: true,
		Level:     s.level,
	})
	if err != nil {
		return nil, err
	}
	s.files[name] = lf
	return lf, nil
}

// NewLogHandler returns the JSON handler writing into the named log file.
func (s *Session) NewLogHandler(name string) (slog.Handler, error) {
	lf, err := s.openLogFile(name)
	if err != nil {
		return nil, err
	}
	return lf.h, nil
}

// GetLogger returns a logger writing into the named log file.
func (s *Session) GetLogger(name string) (*slog.Logger, error) {
	h, err := s.NewLogHandler(name)
	if err != nil {
		return nil, err
	}
	return slog.New(h).With("session", s.meta.SessionID), nil
}

// GetLogFile returns the raw writer of the named log file.
func (s *Session) GetLogFile(name string) (io.Writer, error) {
	lf, err := s.openLogFile(name)
	if err != nil {
		return nil, err
	}
	return lf.f, nil
}

func (s *Session) Close() error {
	var allerr error
	for name, lf := range s.files {
		if err := lf.f.Close(); err != nil {
			allerr = errors.Join(allerr, fmt.Errorf("failed to close %s: %w", name, err))
		}
	}
	s.files = map[string]*logFile{}
	return allerr
}

// New creates a session under the user cache directory. When the cache
// directory is not available it falls back to a temporary directory.
func New(projectRoot, command string, level slog.Leveler) (*Session, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		log.Printf("Failed to obtain the user cache dir: %v", err)
		cacheDir = os.TempDir()
	}
	return newIn(filepath.Join(cacheDir, "lagos"), projectRoot, command, level)
}

func newIn(baseDir, projectRoot, command string, level slog.Leveler) (*Session, error) {
	sessionUUID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	if level == nil {
		level = slog.LevelInfo
	}
	s := &Session{
		meta: sessionMeta{
			SessionID:   sessionUUID.String(),
			Timestamp:   time.Now(),
			ProjectRoot: projectRoot,
			Command:     command,
		},
		sessionPath: filepath.Join(baseDir, "sessions", sessionUUID.String()),
		level:       level,
		files:       map[string]*logFile{},
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}
