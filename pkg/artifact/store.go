// Package artifact persists the durable outputs of a task: the plan, one
// summary per completed worker turn, and the reporter's final integration.
// All files live under <root>/<task_id>/ and are written atomically.
package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	planFileName  = "plan.md"
	finalFileName = "final_integration.md"
)

// SummaryRef points at one worker summary on disk.
type SummaryRef struct {
	Worker      string    `json:"worker"`
	Title       string    `json:"title"`
	Path        string    `json:"path"`
	CompletedAt time.Time `json:"completed_at"`
}

// Index is the full artifact listing for a task, consumed by the reporter
// through the task_files_json tool.
type Index struct {
	TaskDirectory    string   `json:"task_directory"`
	PlanFile         string   `json:"plan_file,omitempty"`
	SummaryFiles     []string `json:"summary_files"`
	FinalIntegration string   `json:"final_integration,omitempty"`
}

// Options configures a Store.
type Options struct {
	// Root is the directory task directories are created under.
	Root string

	// Disabled turns every write into a no-op.
	Disabled bool

	// FileBaseURL, when set, replaces filesystem paths with URLs in refs and
	// indexes so clients can fetch artifacts through a file server.
	FileBaseURL string

	// Titles names summary files. Nil falls back to <worker>_summary.
	Titles TitleNamer
}

// Store is the artifact store. Writes within a task are serialized by a
// per-task mutex; tasks write to disjoint directories and never contend.
type Store struct {
	root     string
	disabled bool
	baseURL  string
	titles   TitleNamer
	log      *slog.Logger

	mu        sync.Mutex
	taskLocks map[string]*sync.Mutex
	summaries map[string][]SummaryRef
}

// NewStore creates a store rooted at opts.Root.
func NewStore(opts Options) *Store {
	return &Store{
		root:      opts.Root,
		disabled:  opts.Disabled,
		baseURL:   strings.TrimRight(opts.FileBaseURL, "/"),
		titles:    opts.Titles,
		log:       slog.Default().With("component", "artifact"),
		taskLocks: make(map[string]*sync.Mutex),
		summaries: make(map[string][]SummaryRef),
	}
}

// NewTaskID allocates a sortable, collision-safe task identifier.
func NewTaskID() string {
	return time.Now().Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// Create makes the task directory. Idempotent.
func (s *Store) Create(taskID string) (string, error) {
	dir := filepath.Join(s.root, taskID)
	if s.disabled {
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create task directory: %w", err)
	}
	return dir, nil
}

// WritePlan saves the validated plan JSON wrapped in a markdown header.
func (s *Store) WritePlan(_ context.Context, taskID, planJSON string) (string, error) {
	if s.disabled {
		return "", nil
	}
	lock := s.lockTask(taskID)
	lock.Lock()
	defer lock.Unlock()

	var b strings.Builder
	b.WriteString("# 任务执行计划\n\n")
	b.WriteString("**生成时间**: " + time.Now().Format("2006-01-02 15:04:05") + "\n\n")
	b.WriteString("## 详细计划\n\n")
	b.WriteString(planJSON)

	path := filepath.Join(s.root, taskID, planFileName)
	if err := writeAtomic(path, b.String()); err != nil {
		return "", err
	}
	s.log.Info("Plan saved", "task_id", taskID, "path", path)
	return s.externalize(taskID, planFileName, path), nil
}

// WriteSummary persists one worker turn. The file name comes from the title
// namer; on naming failure the turn is still persisted under a fallback name.
// Name clashes within a task get a _2, _3, ... suffix.
func (s *Store) WriteSummary(ctx context.Context, taskID, worker, content string) (*SummaryRef, error) {
	if s.disabled {
		return &SummaryRef{Worker: worker, CompletedAt: time.Now()}, nil
	}
	lock := s.lockTask(taskID)
	lock.Lock()
	defer lock.Unlock()

	title := ""
	if s.titles != nil {
		t, err := s.titles.Title(ctx, worker, content)
		if err != nil {
			s.log.Warn("Title generation failed, using fallback", "worker", worker, "error", err)
		} else {
			title = t
		}
	}
	if title == "" {
		title = worker + "_summary"
	}

	dir := filepath.Join(s.root, taskID)
	name := s.dedupe(dir, title)
	path := filepath.Join(dir, name+".md")
	if err := writeAtomic(path, content); err != nil {
		return nil, err
	}

	ref := SummaryRef{
		Worker:      worker,
		Title:       name,
		Path:        s.externalize(taskID, name+".md", path),
		CompletedAt: time.Now(),
	}
	s.mu.Lock()
	s.summaries[taskID] = append(s.summaries[taskID], ref)
	s.mu.Unlock()

	s.log.Info("Summary saved", "task_id", taskID, "worker", worker, "path", path)
	return &ref, nil
}

// ListSummaries returns the summaries recorded for a task in completion
// order, which matches file mtime order since writes are serialized.
func (s *Store) ListSummaries(taskID string) []SummaryRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.summaries[taskID]
	out := make([]SummaryRef, len(refs))
	copy(out, refs)
	return out
}

// WriteFinal saves the reporter's final integration document.
func (s *Store) WriteFinal(_ context.Context, taskID, content string) (string, error) {
	if s.disabled {
		return "", nil
	}
	lock := s.lockTask(taskID)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(s.root, taskID, finalFileName)
	if err := writeAtomic(path, content); err != nil {
		return "", err
	}
	s.log.Info("Final integration saved", "task_id", taskID, "path", path)
	return s.externalize(taskID, finalFileName, path), nil
}

// TaskIndex scans the task directory and classifies its files.
func (s *Store) TaskIndex(taskID string) (*Index, error) {
	dir := filepath.Join(s.root, taskID)
	idx := &Index{TaskDirectory: dir, SummaryFiles: []string{}}
	if s.disabled {
		return idx, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("failed to read task directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		switch e.Name() {
		case planFileName:
			idx.PlanFile = s.externalize(taskID, e.Name(), full)
		case finalFileName:
			idx.FinalIntegration = s.externalize(taskID, e.Name(), full)
		default:
			idx.SummaryFiles = append(idx.SummaryFiles, s.externalize(taskID, e.Name(), full))
		}
	}
	sort.Strings(idx.SummaryFiles)
	return idx, nil
}

// FileInfo describes one artifact file for external consumers.
type FileInfo struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	Exists bool   `json:"exists"`
}

// TaskFiles lists every markdown artifact of a task with its size and
// externalized URL.
func (s *Store) TaskFiles(taskID string) ([]FileInfo, error) {
	dir := filepath.Join(s.root, taskID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read task directory: %w", err)
	}
	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		info := FileInfo{Name: e.Name(), URL: s.externalize(taskID, e.Name(), filepath.Join(dir, e.Name()))}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
			info.Exists = true
		}
		files = append(files, info)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Root returns the artifact root directory.
func (s *Store) Root() string {
	return s.root
}

// dedupe returns title, or title_2, title_3, ... if the name is taken.
func (s *Store) dedupe(dir, title string) string {
	name := title
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(dir, name+".md")); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s_%d", title, i)
	}
}

func (s *Store) lockTask(taskID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.taskLocks[taskID]
	if !ok {
		l = &sync.Mutex{}
		s.taskLocks[taskID] = l
	}
	return l
}

// externalize maps an on-disk path to its public form.
func (s *Store) externalize(taskID, name, path string) string {
	if s.baseURL == "" {
		return path
	}
	return s.baseURL + "/" + taskID + "/" + name
}

// writeAtomic writes content to a temp file in the target directory and
// renames it into place, so readers never observe a partial file.
func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to finalize artifact: %w", err)
	}
	return nil
}
