package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/pkg/logger"
)

// Manager deletes uploaded source files after processing. Every path is
// validated against the documents root before anything touches the disk; a
// bug upstream can therefore mangle a path but never escape the uploads
// tree.
type Manager struct {
	root       string
	enabled    bool
	delay      time.Duration
	keepFailed bool
	maxRetries int
	log        logger.ILogger
}

func NewManager(root string, enabled bool, delay time.Duration, keepFailed bool, maxRetries int, log logger.ILogger) (*Manager, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, apperror.PathSecurity("documents root is not resolvable: " + root)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Manager{
		root:       absRoot,
		enabled:    enabled,
		delay:      delay,
		keepFailed: keepFailed,
		maxRetries: maxRetries,
		log:        log,
	}, nil
}

// ScheduleCleanup queues a delayed delete for a processed file. Failed
// documents keep their file when keepFailed is set, so a retry or a support
// look does not start from nothing. The path is validated now, not at fire
// time.
func (m *Manager) ScheduleCleanup(ctx context.Context, filePath string, processingFailed bool) error {
	if !m.enabled {
		return nil
	}
	if processingFailed && m.keepFailed {
		m.log.Info("Lifecycle", "keeping source file of failed document", map[string]interface{}{
			"file": filePath,
		})
		return nil
	}

	validated, err := m.validatePath(filePath)
	if err != nil {
		return err
	}

	time.AfterFunc(m.delay, func() {
		m.deleteWithRetries(validated)
	})
	m.log.Info("Lifecycle", "cleanup scheduled", map[string]interface{}{
		"file":  validated,
		"delay": m.delay.String(),
	})
	return nil
}

// DeleteNow removes a file immediately, with the same path validation. A
// file already gone counts as success.
func (m *Manager) DeleteNow(filePath string) error {
	validated, err := m.validatePath(filePath)
	if err != nil {
		return err
	}
	if err := os.Remove(validated); err != nil && !os.IsNotExist(err) {
		return apperror.Wrap(apperror.KindPathSecurity, "failed to delete file", err)
	}
	return nil
}

// validatePath resolves the path and requires it to sit strictly inside the
// documents root. Rejects relative escapes and absolute paths elsewhere.
func (m *Manager) validatePath(filePath string) (string, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", apperror.PathSecurity("unresolvable file path: " + filePath)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", apperror.PathSecurity("file path outside documents root: " + filePath)
	}
	return abs, nil
}

func (m *Manager) deleteWithRetries(path string) {
	backoff := time.Second
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		err := os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			m.log.Info("Lifecycle", "source file removed", map[string]interface{}{
				"file":    path,
				"attempt": attempt,
			})
			return
		}

		m.log.Warn("Lifecycle", "delete attempt failed", map[string]interface{}{
			"file":    path,
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt < m.maxRetries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	m.log.Error("Lifecycle", "giving up on file cleanup", map[string]interface{}{
		"file":    path,
		"retries": m.maxRetries,
	})
}
