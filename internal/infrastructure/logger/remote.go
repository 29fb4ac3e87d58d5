package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"
)

// RemoteConfig configures shipping of log records to the logging service
type RemoteConfig struct {
	URL         string // base URL; records are posted to URL + "/api/logs"
	Service     string
	Timeout     time.Duration
	BufferSize  int
	FallbackDir string
	Level       zapcore.LevelEnabler
	Client      *http.Client
}

// Record is the JSON body accepted by the logging service
type Record struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Service   string         `json:"service"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RemoteSink ships records asynchronously through a bounded queue. Records
// that cannot be delivered, or that arrive while the queue is full, are
// appended to <FallbackDir>/<level>.log and <FallbackDir>/all.log.
type RemoteSink struct {
	cfg      RemoteConfig
	client   *http.Client
	queue    chan Record
	fallback *fileFallback

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	shipped    atomic.Int64
	fellBack   atomic.Int64
	lastFailed atomic.Bool
}

// NewRemoteSink starts the shipping worker
func NewRemoteSink(cfg RemoteConfig) *RemoteSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.FallbackDir == "" {
		cfg.FallbackDir = "logs"
	}
	if cfg.Level == nil {
		cfg.Level = zapcore.InfoLevel
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	s := &RemoteSink{
		cfg:      cfg,
		client:   client,
		queue:    make(chan Record, cfg.BufferSize),
		fallback: &fileFallback{dir: cfg.FallbackDir},
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Core returns a zapcore.Core feeding this sink
func (s *RemoteSink) Core() zapcore.Core {
	return &remoteCore{sink: s, enab: s.cfg.Level}
}

// Healthy reports whether the most recent delivery attempt succeeded
func (s *RemoteSink) Healthy() bool {
	return !s.lastFailed.Load()
}

// Stats returns the number of shipped and fallback-written records
func (s *RemoteSink) Stats() (shipped, fellBack int64) {
	return s.shipped.Load(), s.fellBack.Load()
}

// Close stops accepting records and waits for the queue to drain or ctx to end
func (s *RemoteSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RemoteSink) enqueue(rec Record) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.writeFallback(rec)
		return
	}
	select {
	case s.queue <- rec:
	default:
		s.writeFallback(rec)
	}
}

func (s *RemoteSink) run() {
	defer s.wg.Done()
	for rec := range s.queue {
		if err := s.post(rec); err != nil {
			s.lastFailed.Store(true)
			s.writeFallback(rec)
			continue
		}
		s.lastFailed.Store(false)
		s.shipped.Add(1)
	}
}

func (s *RemoteSink) post(rec Record) error {
	body, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.cfg.URL, "/")+"/api/logs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("logging service returned %d", resp.StatusCode)
	}
	return nil
}

func (s *RemoteSink) writeFallback(rec Record) {
	s.fellBack.Add(1)
	// Nothing else to report to: the logger itself is the failing channel.
	_ = s.fallback.write(rec)
}

// encodeRecord marshals rec. Metadata that cannot be encoded is replaced by
// the encoding error so the message itself still gets through.
func encodeRecord(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err == nil || rec.Metadata == nil {
		return data, err
	}
	rec.Metadata = map[string]any{"metadata_error": err.Error()}
	return json.Marshal(rec)
}

type fileFallback struct {
	dir  string
	mu   sync.Mutex
	made bool
}

func (f *fileFallback) write(rec Record) error {
	line, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.made {
		if err := os.MkdirAll(f.dir, 0o755); err != nil {
			return err
		}
		f.made = true
	}
	for _, name := range []string{rec.Level + ".log", "all.log"} {
		if err := appendFile(filepath.Join(f.dir, name), line); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(path string, line []byte) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.Write(line)
	return err
}

type remoteCore struct {
	sink   *RemoteSink
	enab   zapcore.LevelEnabler
	fields []zapcore.Field
}

func (c *remoteCore) Enabled(l zapcore.Level) bool {
	return c.enab.Enabled(l)
}

func (c *remoteCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &remoteCore{sink: c.sink, enab: c.enab, fields: merged}
}

func (c *remoteCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *remoteCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	meta := enc.Fields
	if ent.LoggerName != "" {
		meta["logger"] = ent.LoggerName
	}
	if ent.Caller.Defined {
		meta["caller"] = ent.Caller.TrimmedPath()
	}
	service := c.sink.cfg.Service
	if s, ok := meta["service"].(string); ok && s != "" {
		service = s
		delete(meta, "service")
	}

	c.sink.enqueue(Record{
		Level:     remoteLevel(ent.Level),
		Message:   ent.Message,
		Service:   service,
		Timestamp: ent.Time,
		Metadata:  meta,
	})
	return nil
}

func (c *remoteCore) Sync() error {
	return nil
}

// remoteLevel maps zap levels onto the four levels of the logging service
func remoteLevel(l zapcore.Level) string {
	switch {
	case l >= zapcore.ErrorLevel:
		return "error"
	case l == zapcore.WarnLevel:
		return "warn"
	case l == zapcore.InfoLevel:
		return "info"
	default:
		return "debug"
	}
}
