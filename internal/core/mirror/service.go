package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"sitemirror/internal/config"
	"sitemirror/internal/core/archive"
	"sitemirror/internal/core/job"
	"sitemirror/internal/logger"
	"sitemirror/internal/platform/runner"
	"sitemirror/internal/platform/sandbox"
	tasks "sitemirror/internal/platform/tasks"
	"sitemirror/internal/utils/sitemeta"
	"sitemirror/internal/utils/wgetlog"
)

const TaskTypeMirror = "mirror:task"

var (
	ErrInvalidURL = errors.New("invalid url: must be an absolute http/https URL")
	ErrNotRunning = errors.New("job is not running")
)

type CreateRequest struct {
	URL string `json:"url"`
}

type TaskPayload struct {
	JobID   string        `json:"job_id"`
	Request CreateRequest `json:"request"`
}

// Progress is one forwarded log line plus the counter snapshot, published
// per classified line to the job's channel.
type Progress struct {
	Line  string        `json:"line"`
	Stats wgetlog.Stats `json:"stats"`
}

// Recorder is the slice of the job service the run loop needs. Satisfied
// by *job.Service; tests plug in an in-memory one.
type Recorder interface {
	SetRunning(ctx context.Context, jobID string) error
	Complete(ctx context.Context, jobID string, status job.Status, errMsg string, result *job.MirrorResult) error
	PublishProgress(ctx context.Context, jobID string, event interface{}) error
}

// Service orchestrates mirror jobs: URL validation, stale-state cleanup,
// wget supervision, log classification, packaging and terminal-state
// bookkeeping.
type Service struct {
	jobs    *job.Service
	rec     Recorder
	tasks   *tasks.Client
	sandbox *sandbox.Sandbox
	zipper  *archive.Zipper
	cfg     config.Config
	log     *logger.Logger

	// command builds the process invocation; tests swap in a simulated
	// mirror tool.
	command func(tempDir, target string) (string, []string)

	mu      sync.Mutex
	running map[string]*runner.Proc // jobID -> live process
	domains map[string]string       // domain -> jobID holding it
}

func NewService(jobs *job.Service, tc *tasks.Client, sb *sandbox.Sandbox, z *archive.Zipper, cfg config.Config) *Service {
	return &Service{
		jobs:    jobs,
		rec:     jobs,
		tasks:   tc,
		sandbox: sb,
		zipper:  z,
		cfg:     cfg,
		log:     logger.New("MirrorService"),
		command: func(tempDir, target string) (string, []string) {
			return cfg.WgetPath, MirrorArgs(tempDir, target)
		},
		running: make(map[string]*runner.Proc),
		domains: make(map[string]string),
	}
}

// Enqueue registers a pending job and hands it to the worker queue.
func (s *Service) Enqueue(ctx context.Context, req CreateRequest) (string, error) {
	id := uuid.New().String()
	payload, _ := json.Marshal(TaskPayload{JobID: id, Request: req})
	if err := s.jobs.InitPending(ctx, id, req.URL); err != nil {
		return "", err
	}
	task := asynq.NewTask(TaskTypeMirror, payload)
	if err := s.tasks.Enqueue(task, "default", s.cfg.TaskMaxRetries); err != nil {
		return "", err
	}
	s.log.LogInfof("enqueued mirror job %s for %s", id, req.URL)
	return id, nil
}

// HandleMirrorTask is the asynq worker entry point. Every run resolves to
// a terminal job state; the task itself never retries a failed mirror.
func (s *Service) HandleMirrorTask(ctx context.Context, task *asynq.Task) error {
	var p TaskPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}
	s.log.LogInfof("processing mirror job %s for %s", p.JobID, p.Request.URL)
	s.run(ctx, p.JobID, p.Request.URL)
	return nil
}

// Cancel stops the job's live process. The in-flight stream then ends and
// the normal exit-evaluation path records the job as cancelled.
func (s *Service) Cancel(jobID string) error {
	s.mu.Lock()
	proc, ok := s.running[jobID]
	s.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	s.log.LogInfof("cancelling mirror job %s", jobID)
	proc.Stop()
	return nil
}

// run is the job lifecycle state machine. No error escapes it: every
// path, panics included, lands in a terminal job state.
func (s *Service) run(ctx context.Context, jobID, rawURL string) {
	var logBuf strings.Builder
	result := &job.MirrorResult{URL: rawURL}

	defer func() {
		if r := recover(); r != nil {
			s.log.LogErrorf("mirror job %s panicked: %v", jobID, r)
			result.Log = logBuf.String()
			_ = s.rec.Complete(ctx, jobID, job.StatusFailed, fmt.Sprintf("internal error: %v", r), result)
		}
	}()

	if err := ValidateURL(rawURL); err != nil {
		_ = s.rec.Complete(ctx, jobID, job.StatusFailed, err.Error(), result)
		return
	}

	domain := DeriveDomain(rawURL)
	result.Domain = domain
	if !s.acquireDomain(domain, jobID) {
		_ = s.rec.Complete(ctx, jobID, job.StatusFailed,
			fmt.Sprintf("a mirror for %s is already in progress", domain), result)
		return
	}
	defer s.releaseDomain(domain, jobID)

	target := filepath.Join(s.sandbox.TempDir(), domain)
	cls := wgetlog.NewClassifier()

	emit := func(line string, st wgetlog.Stats) {
		logBuf.WriteString(line)
		logBuf.WriteByte('\n')
		_ = s.rec.PublishProgress(ctx, jobID, Progress{Line: line, Stats: st})
	}

	if _, err := os.Stat(target); err == nil {
		emit(fmt.Sprintf("[Engine] Cleaning old directory: %s...", domain), cls.Stats())
		s.sandbox.ClearFolder(target)
	}

	_ = s.rec.SetRunning(ctx, jobID)
	emit(fmt.Sprintf("[Engine] Starting download for: %s", domain), cls.Stats())

	name, args := s.command(s.sandbox.TempDir(), rawURL)
	proc, err := runner.Start(name, args...)
	if err != nil {
		s.log.LogError("failed to launch mirror process", err)
		result.Log = logBuf.String()
		_ = s.rec.Complete(ctx, jobID, job.StatusFailed, fmt.Sprintf("could not start mirror tool: %v", err), result)
		return
	}
	s.register(jobID, proc)
	defer s.unregister(jobID)

	for line := range proc.Lines() {
		ev, st := cls.ProcessLine(line)
		if ev.Display == "" {
			continue
		}
		emit(ev.Display, st)
	}

	exit := proc.ExitCode()
	st := cls.Stats()
	result.FilesSaved = st.FilesSaved
	result.ErrorsSeen = st.ErrorsSeen
	_, statErr := os.Stat(target)
	dirPresent := statErr == nil

	switch {
	case proc.Stopped():
		emit("[Engine] Download cancelled.", st)
		s.sandbox.ClearFolder(target)
		result.Log = logBuf.String()
		_ = s.rec.Complete(ctx, jobID, job.StatusCancelled, "mirror cancelled", result)

	case exit == 0 && dirPresent:
		emit("[Engine] Download completed successfully.", st)
		title := sitemeta.Title(target)
		zipPath, err := s.zipper.Compress(target)
		if err != nil {
			s.log.LogError("compression failed", err)
			s.sandbox.ClearFolder(target)
			result.Log = logBuf.String()
			_ = s.rec.Complete(ctx, jobID, job.StatusFailed, fmt.Sprintf("compression failed: %v", err), result)
			return
		}
		emit(fmt.Sprintf("✅ Archive ready: %s", filepath.Base(zipPath)), st)
		s.sandbox.ClearFolder(target)
		result.ArchivePath = zipPath
		result.Title = title
		result.Log = logBuf.String()
		_ = s.rec.Complete(ctx, jobID, job.StatusCompleted, "", result)

	case exit == 0:
		emit("[Engine] Error: download finished but produced no site directory.", st)
		result.Log = logBuf.String()
		_ = s.rec.Complete(ctx, jobID, job.StatusFailed, "download produced no site directory", result)

	default:
		emit(fmt.Sprintf("[Engine] Error: process exited with code %d.", exit), st)
		s.sandbox.ClearFolder(target)
		result.Log = logBuf.String()
		_ = s.rec.Complete(ctx, jobID, job.StatusFailed, fmt.Sprintf("mirror process exited with code %d", exit), result)
	}
}

func (s *Service) acquireDomain(domain, jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, busy := s.domains[domain]; busy && holder != jobID {
		return false
	}
	s.domains[domain] = jobID
	return true
}

func (s *Service) releaseDomain(domain, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.domains[domain] == jobID {
		delete(s.domains, domain)
	}
}

func (s *Service) register(jobID string, p *runner.Proc) {
	s.mu.Lock()
	s.running[jobID] = p
	s.mu.Unlock()
}

func (s *Service) unregister(jobID string) {
	s.mu.Lock()
	delete(s.running, jobID)
	s.mu.Unlock()
}
