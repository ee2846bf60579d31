package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

const (
	segmentPrefix = "audit-"
	segmentSuffix = ".wal"
	filePerm      = 0644
)

// WALRepository implements domain.AuditWAL as newline-delimited JSON segment
// files. It buffers audit events locally while the primary buffer is down
// and replays them once it recovers.
type WALRepository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu          sync.Mutex
	segment     *os.File
	segmentSize int64
	totalSize   int64
}

// NewWALRepository opens (or creates) the WAL directory and its latest
// segment.
func NewWALRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*WALRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit WAL directory %s: %w", dir, err)
	}

	w := &WALRepository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "audit_wal"),
	}
	if err := w.openLatest(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends an audit event to the current segment. It fails once the
// configured disk budget is exhausted; audit buffering is best-effort and
// must never fill the disk under a prolonged outage.
func (w *WALRepository) Write(ctx context.Context, event domain.AuditEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event for WAL: %w", err)
	}
	line = append(line, '\n')

	if w.totalSize+int64(len(line)) > w.maxTotalSize {
		return fmt.Errorf("audit WAL disk budget exceeded (%d bytes)", w.maxTotalSize)
	}
	if w.segment == nil {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.segment.Write(line)
	if err != nil {
		return fmt.Errorf("failed to write audit WAL segment: %w", err)
	}
	w.segmentSize += int64(n)
	w.totalSize += int64(n)

	if w.segmentSize >= w.maxSegmentSize {
		if err := w.rotate(); err != nil {
			w.logger.Error("failed to rotate audit WAL segment", "error", err)
		}
	}
	return nil
}

// Replay streams every buffered event, oldest segment first, to the handler.
// A handler error stops the replay so unsent events stay buffered.
func (w *WALRepository) Replay(ctx context.Context, handler func(event domain.AuditEvent) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closeSegment()

	segments, err := w.listSegments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}
	w.logger.Info("replaying audit WAL", "segment_count", len(segments))

	for _, path := range segments {
		if err := w.replaySegment(ctx, path, handler); err != nil {
			return err
		}
	}
	return nil
}

func (w *WALRepository) replaySegment(ctx context.Context, path string, handler func(event domain.AuditEvent) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open WAL segment %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var event domain.AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			w.logger.Warn("skipping corrupt audit WAL line", "error", err, "segment", path)
			continue
		}
		if err := handler(event); err != nil {
			return fmt.Errorf("audit WAL replay handler failed: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error scanning WAL segment %s: %w", path, err)
	}
	return nil
}

// Truncate removes all segments and starts a fresh one.
func (w *WALRepository) Truncate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closeSegment()

	segments, err := w.listSegments()
	if err != nil {
		return err
	}
	for _, path := range segments {
		if err := os.Remove(path); err != nil {
			w.logger.Error("failed to remove audit WAL segment", "path", path, "error", err)
		}
	}
	w.totalSize = 0
	return w.openLatest()
}

// Close flushes and closes the active segment.
func (w *WALRepository) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.segment == nil {
		return nil
	}
	err := w.segment.Close()
	w.segment = nil
	return err
}

func (w *WALRepository) closeSegment() {
	if w.segment == nil {
		return
	}
	if err := w.segment.Close(); err != nil {
		w.logger.Error("failed to close audit WAL segment", "error", err)
	}
	w.segment = nil
}

func (w *WALRepository) rotate() error {
	w.closeSegment()

	name := fmt.Sprintf("%s%d%s", segmentPrefix, time.Now().UnixNano(), segmentSuffix)
	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create audit WAL segment %s: %w", path, err)
	}

	w.segment = f
	w.segmentSize = 0
	return nil
}

func (w *WALRepository) openLatest() error {
	segments, err := w.listSegments()
	if err != nil {
		return err
	}

	w.totalSize = 0
	for _, path := range segments {
		stat, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat WAL segment %s: %w", path, err)
		}
		w.totalSize += stat.Size()
	}

	if len(segments) == 0 {
		return w.rotate()
	}

	latest := segments[len(segments)-1]
	stat, err := os.Stat(latest)
	if err != nil {
		return fmt.Errorf("failed to stat WAL segment %s: %w", latest, err)
	}
	if stat.Size() >= w.maxSegmentSize {
		return w.rotate()
	}

	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open WAL segment %s: %w", latest, err)
	}
	w.segment = f
	w.segmentSize = stat.Size()
	return nil
}

func (w *WALRepository) listSegments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit WAL directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix) {
			segments = append(segments, filepath.Join(w.dir, name))
		}
	}
	sort.Strings(segments)
	return segments, nil
}
