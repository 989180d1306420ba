package job

import (
	"context"
	"encoding/json"
	"fmt"

	rds "sitemirror/internal/platform/redis"
)

// Service stores job records in Redis and publishes per-job progress for
// streaming listeners.
type Service struct{ redis *rds.Service }

func NewService(redis *rds.Service) *Service { return &Service{redis: redis} }

func (s *Service) GetJobStatus(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := s.redis.CacheGet(ctx, key(jobID), &j); err != nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return &j, nil
}

func (s *Service) store(ctx context.Context, jobID string, status Status, errMsg string, result *MirrorResult) error {
	var j Job
	_ = s.redis.CacheGet(ctx, key(jobID), &j)
	j.JobID = jobID
	j.Type = TypeMirror
	j.Status = status
	j.Error = errMsg
	if result != nil {
		j.Result = result
	}
	if err := s.redis.CacheSet(ctx, key(jobID), j, ttl(status)); err != nil {
		return err
	}
	// Status change event for streaming listeners.
	return s.redis.Publish(ctx, key(jobID), "status:"+string(status))
}

func (s *Service) InitPending(ctx context.Context, jobID, url string) error {
	return s.store(ctx, jobID, StatusPending, "", &MirrorResult{URL: url})
}

func (s *Service) SetRunning(ctx context.Context, jobID string) error {
	return s.store(ctx, jobID, StatusRunning, "", nil)
}

func (s *Service) Complete(ctx context.Context, jobID string, status Status, errMsg string, result *MirrorResult) error {
	return s.store(ctx, jobID, status, errMsg, result)
}

// PublishProgress forwards one classified log line plus the counter
// snapshot to the job's channel for live listeners. Best effort: a job
// with no listeners still runs fine.
func (s *Service) PublishProgress(ctx context.Context, jobID string, event interface{}) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	return s.redis.Publish(ctx, key(jobID), "log:"+string(b))
}

func key(id string) string { return "job:" + id }

// Channel is the pub/sub channel carrying a job's status and log events.
func Channel(id string) string { return key(id) }

func ttl(s Status) int {
	if s.Terminal() {
		return 3600
	}
	return 600
}
