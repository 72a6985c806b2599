package services

import (
	"context"
	"fmt"
	"time"

	"github.com/JaewonYunDS/Filmind/internal/logging"
)

// Worker pulls jobs from the shared pool and runs the registered processor.
type Worker struct {
	id         int
	workerPool chan chan *Job
	jobChannel chan *Job
	quit       chan bool
	manager    *JobManager
}

// NewWorker creates a new worker
func NewWorker(id int, workerPool chan chan *Job, quit chan bool, manager *JobManager) *Worker {
	return &Worker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan *Job),
		quit:       quit,
		manager:    manager,
	}
}

// Start starts the worker
func (w *Worker) Start() {
	go func() {
		defer w.manager.wg.Done()

		for {
			// Register worker in the worker pool
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				w.processJob(job)
			case <-w.quit:
				return
			}
		}
	}()
}

// processJob processes a single job
func (w *Worker) processJob(job *Job) {
	log := logging.L().With().Int("worker", w.id).Int64("job_id", job.ID).Str("type", string(job.Type)).Logger()
	log.Info().Msg("processing job")

	w.manager.updateJobStatus(job.ID, JobStatusRunning, "")

	if _, err := w.manager.db.Exec(`
		UPDATE import_jobs SET started_at = datetime('now') WHERE id = ?
	`, job.ID); err != nil {
		log.Warn().Err(err).Msg("failed to update job start time")
	}

	w.manager.mutex.RLock()
	processor, exists := w.manager.processors[job.Type]
	w.manager.mutex.RUnlock()

	if !exists {
		errMsg := fmt.Sprintf("No processor registered for job type: %s", job.Type)
		log.Error().Msg(errMsg)
		w.manager.updateJobStatus(job.ID, JobStatusFailed, errMsg)
		return
	}

	// Imports shouldn't run longer than an hour
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	startTime := time.Now()
	err := processor.ProcessJob(ctx, job)
	duration := time.Since(startTime)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			log.Error().Msg("job timed out")
			w.manager.updateJobStatus(job.ID, JobStatusFailed, "Job timed out after 1 hour")
		} else {
			log.Error().Err(err).Msg("job failed")
			w.manager.updateJobStatus(job.ID, JobStatusFailed, fmt.Sprintf("Job failed: %v", err))
		}
		return
	}

	log.Info().Dur("duration", duration).Msg("job completed")
	w.manager.updateJobStatus(job.ID, JobStatusCompleted, "")
	w.manager.db.Exec(`
		UPDATE import_jobs SET progress = 100, current_step = 'Completed' WHERE id = ?
	`, job.ID)
}
