package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

var ErrInvalidCatalog = errors.New("invalid question catalog")

const reloadDebounce = 100 * time.Millisecond

type file struct {
	Questions []models.Question `json:"questions"`
}

// Loader reads the question list from a file. Sessions created after a
// reload see the new list; running sessions keep the one they started with.
type Loader struct {
	path      string
	logger    *slog.Logger
	questions []models.Question
	mu        sync.RWMutex
	watcher   *fsnotify.Watcher
	onChange  []func([]models.Question)
	ctx       context.Context
	cancel    context.CancelFunc
	errChan   chan error
}

// NewLoader creates a loader for path. An empty path serves the built-in
// questions.
func NewLoader(path string, logger *slog.Logger) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		path:      path,
		logger:    logger,
		questions: Defaults(),
		errChan:   make(chan error, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *Loader) Load() ([]models.Question, error) {
	if l.path == "" {
		return l.Questions(), nil
	}

	questions, err := LoadFile(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.questions = questions
	l.mu.Unlock()

	l.logger.Info("Question catalog loaded", "path", l.path, "count", len(questions))
	return cloneQuestions(questions), nil
}

func (l *Loader) Questions() []models.Question {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneQuestions(l.questions)
}

// Watch reloads the file whenever it is written. Invalid edits are
// reported on Errors and the previous list stays in effect.
func (l *Loader) Watch() error {
	if l.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	l.watcher = watcher

	// editors replace files on save, so watch the directory
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	var debounce *time.Timer

	for {
		select {
		case <-l.ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(l.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, l.reload)

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.report(err)
		}
	}
}

func (l *Loader) reload() {
	questions, err := LoadFile(l.path)
	if err != nil {
		l.report(fmt.Errorf("reload catalog: %w", err))
		return
	}

	l.mu.Lock()
	l.questions = questions
	callbacks := append([]func([]models.Question){}, l.onChange...)
	l.mu.Unlock()

	l.logger.Info("Question catalog reloaded", "path", l.path, "count", len(questions))
	for _, cb := range callbacks {
		cb(cloneQuestions(questions))
	}
}

func (l *Loader) report(err error) {
	l.logger.Warn("Question catalog watch error", "path", l.path, "error", err)
	select {
	case l.errChan <- err:
	default:
	}
}

func (l *Loader) OnChange(cb func([]models.Question)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, cb)
}

func (l *Loader) Errors() <-chan error {
	return l.errChan
}

func (l *Loader) Close() error {
	l.cancel()
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// LoadFile parses a catalog file by extension (.yaml, .yml, .toml, .json),
// validates it against the catalog schema and checks ids are unique.
func LoadFile(path string) ([]models.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

func Parse(data []byte, ext string) ([]models.Question, error) {
	var raw any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidCatalog, err)
		}
		raw = doc
	case ".toml":
		var doc map[string]any
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("%w: parse toml: %v", ErrInvalidCatalog, err)
		}
		raw = doc
	case ".json":
		raw = json.RawMessage(data)
	default:
		return nil, fmt.Errorf("%w: unsupported file extension %q", ErrInvalidCatalog, ext)
	}

	// normalise every format to plain JSON values before validating
	normalised, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	var instance any
	if err := json.Unmarshal(normalised, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	var f file
	if err := json.Unmarshal(normalised, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	seen := make(map[int]bool, len(f.Questions))
	for _, q := range f.Questions {
		if seen[q.ID] {
			return nil, fmt.Errorf("%w: duplicate question id %d", ErrInvalidCatalog, q.ID)
		}
		seen[q.ID] = true
	}
	return f.Questions, nil
}
