package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/harvester/harvest"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/webhook"
)

// JobStore holds in-flight and finished harvest jobs. Jobs older than the
// TTL are expired by a background goroutine.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.HarvestJob
	ttl  time.Duration
	now  func() time.Time
}

// NewJobStore creates a JobStore and starts its expiry loop, which runs
// until ctx is done.
func NewJobStore(ctx context.Context, ttl time.Duration) *JobStore {
	s := &JobStore{
		jobs: make(map[string]*models.HarvestJob),
		ttl:  ttl,
		now:  time.Now,
	}
	go s.expireLoop(ctx)
	return s
}

func (s *JobStore) create() *models.HarvestJob {
	job := &models.HarvestJob{
		ID:        "harvest-" + randomID(),
		Status:    models.JobQueued,
		CreatedAt: s.now().Unix(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

func (s *JobStore) update(id, status string, result *models.HarvestResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
		job.Result = result
	}
}

// Get returns a snapshot of the job.
func (s *JobStore) Get(id string) (models.HarvestJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.HarvestJob{}, false
	}
	return *job, true
}

// Active counts queued and processing jobs.
func (s *JobStore) Active() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, job := range s.jobs {
		if job.Status == models.JobQueued || job.Status == models.JobProcessing {
			n++
		}
	}
	return n
}

func (s *JobStore) expireLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expire()
		}
	}
}

func (s *JobStore) expire() {
	cutoff := s.now().Add(-s.ttl).Unix()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if job.CreatedAt < cutoff {
			delete(s.jobs, id)
		}
	}
}

// PostHarvestJob returns a handler for POST /api/v1/harvest/jobs. The crawl
// runs in the background, queued behind any crawl already in progress.
func PostHarvestJob(hv *harvest.Harvester, store *JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.HarvestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.Defaults()
		if req.IndexURL == "" && len(req.Locators) == 0 {
			badRequest(c, errors.New("index_url or locators is required"))
			return
		}

		job := store.create()
		go runJob(hv, store, job.ID, req)

		c.JSON(http.StatusAccepted, models.JobResponse{ID: job.ID, Status: job.Status})
	}
}

// GetHarvestJob returns a handler for GET /api/v1/harvest/jobs/:id.
func GetHarvestJob(store *JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := store.Get(c.Param("id"))
		if !ok {
			respondError(c, models.NewHarvestError(models.ErrCodeNotFound, "harvest job not found", nil))
			return
		}
		c.JSON(http.StatusOK, models.JobStatusResponse{
			ID:        job.ID,
			Status:    job.Status,
			CreatedAt: job.CreatedAt,
			Result:    job.Result,
		})
	}
}

func runJob(hv *harvest.Harvester, store *JobStore, id string, req models.HarvestRequest) {
	store.update(id, models.JobProcessing, nil)

	start := time.Now()
	res, err := hv.Harvest(context.Background(), toHarvestRequest(req))

	var resp *models.HarvestResponse
	if res != nil {
		resp = buildResponse(res, err, start)
	} else {
		resp = &models.HarvestResponse{
			Success: false,
			Error:   models.AsHarvestError(err).ToDetail(),
			Timing:  models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		}
	}

	status := jobStatus(res, err)
	store.update(id, status, resp)

	slog.Info("harvest job finished", "id", id, "status", status,
		"records", len(resp.Records), "total_ms", resp.Timing.TotalMs)

	if req.WebhookURL != "" {
		eventType := webhook.EventHarvestCompleted
		if status == models.JobFailed {
			eventType = webhook.EventHarvestFailed
		}
		webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      eventType,
			JobID:     id,
			Timestamp: time.Now().Unix(),
			Data:      resp,
		})
	}
}

// jobStatus classifies a finished crawl: failed when nothing was
// harvested because of an error or every page failed, partial when some
// pages failed or the crawl stopped early, completed otherwise.
func jobStatus(res *harvest.Result, err error) string {
	switch {
	case res == nil, err != nil && len(res.Batch) == 0:
		return models.JobFailed
	case res.Report.Requested > 0 && len(res.Report.Failed) == res.Report.Requested:
		return models.JobFailed
	case err != nil, len(res.Report.Failed) > 0:
		return models.JobPartial
	default:
		return models.JobCompleted
	}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
