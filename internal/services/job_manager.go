package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/JaewonYunDS/Filmind/internal/logging"
)

// JobType represents different types of background jobs
type JobType string

const (
	JobTypePlexImport JobType = "plex_import"
)

// JobStatus represents the current status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents a background import job
type Job struct {
	ID              int64                  `json:"id"`
	Type            JobType                `json:"type"`
	UserID          string                 `json:"user_id,omitempty"`
	Status          JobStatus              `json:"status"`
	Progress        int                    `json:"progress"` // 0-100
	CurrentStep     string                 `json:"current_step"`
	TotalItems      int                    `json:"total_items"`
	ProcessedItems  int                    `json:"processed_items"`
	SuccessfulItems int                    `json:"successful_items"`
	FailedItems     int                    `json:"failed_items"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	StartedAt       *time.Time             `json:"started_at,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// JobProcessor is the interface that job handlers must implement
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *Job) error
	GetJobType() JobType
}

// JobManager manages background job execution
type JobManager struct {
	db         *sql.DB
	processors map[JobType]JobProcessor
	workers    int
	workerPool chan chan *Job
	jobQueue   chan *Job
	quit       chan bool
	wg         sync.WaitGroup
	mutex      sync.RWMutex
	isRunning  bool
}

// NewJobManager creates a new job manager
func NewJobManager(db *sql.DB, workers int) *JobManager {
	return &JobManager{
		db:         db,
		processors: make(map[JobType]JobProcessor),
		workers:    workers,
		workerPool: make(chan chan *Job, workers),
		jobQueue:   make(chan *Job, 100), // Buffer up to 100 jobs
		quit:       make(chan bool),
	}
}

// RegisterProcessor registers a job processor for a specific job type
func (jm *JobManager) RegisterProcessor(processor JobProcessor) {
	jm.mutex.Lock()
	defer jm.mutex.Unlock()
	jm.processors[processor.GetJobType()] = processor
}

// Start starts the job manager and worker goroutines
func (jm *JobManager) Start() {
	jm.mutex.Lock()
	if jm.isRunning {
		jm.mutex.Unlock()
		return
	}
	jm.isRunning = true
	jm.mutex.Unlock()

	for i := 0; i < jm.workers; i++ {
		worker := NewWorker(i+1, jm.workerPool, jm.quit, jm)
		worker.Start()
		jm.wg.Add(1)
	}

	go jm.dispatch()

	// Resume any jobs that were running when the system shut down
	go jm.resumePendingJobs()

	logging.L().Info().Int("workers", jm.workers).Msg("job manager started")
}

// Stop gracefully stops the job manager
func (jm *JobManager) Stop() {
	jm.mutex.Lock()
	if !jm.isRunning {
		jm.mutex.Unlock()
		return
	}
	jm.isRunning = false
	jm.mutex.Unlock()

	close(jm.quit)
	jm.wg.Wait()

	logging.L().Info().Msg("job manager stopped")
}

// CreateJob creates a new job in the database and queues it
func (jm *JobManager) CreateJob(jobType JobType, userID string, metadata map[string]interface{}) (*Job, error) {
	metadataJSON := "{}"
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(data)
		}
	}

	var jobID int64
	err := jm.db.QueryRow(`
		INSERT INTO import_jobs (type, user_id, status, metadata_json)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, jobType, userID, JobStatusPending, metadataJSON).Scan(&jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	job, err := jm.GetJob(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve created job: %w", err)
	}

	select {
	case jm.jobQueue <- job:
		logging.L().Info().Int64("job_id", job.ID).Str("type", string(job.Type)).Msg("job queued")
	default:
		jm.updateJobStatus(job.ID, JobStatusFailed, "Job queue is full")
		return nil, fmt.Errorf("job queue is full")
	}

	return job, nil
}

// GetJob retrieves a job by ID
func (jm *JobManager) GetJob(jobID int64) (*Job, error) {
	row := jm.db.QueryRow(`
		SELECT id, type, user_id, status, progress, current_step,
			   total_items, processed_items, successful_items, failed_items,
			   error_message, metadata_json, started_at, completed_at, created_at
		FROM import_jobs WHERE id = ?
	`, jobID)
	return scanJob(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var userID, currentStep, errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime
	var metadataJSON string

	err := row.Scan(
		&job.ID, &job.Type, &userID, &job.Status, &job.Progress,
		&currentStep, &job.TotalItems, &job.ProcessedItems, &job.SuccessfulItems,
		&job.FailedItems, &errorMessage, &metadataJSON, &startedAt, &completedAt,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.UserID = userID.String
	job.CurrentStep = currentStep.String
	job.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if metadataJSON != "" && metadataJSON != "{}" {
		json.Unmarshal([]byte(metadataJSON), &job.Metadata)
	}

	return &job, nil
}

// GetUserJobs retrieves recent jobs for a specific user
func (jm *JobManager) GetUserJobs(userID string, limit int) ([]*Job, error) {
	rows, err := jm.db.Query(`
		SELECT id, type, user_id, status, progress, current_step,
			   total_items, processed_items, successful_items, failed_items,
			   error_message, metadata_json, started_at, completed_at, created_at
		FROM import_jobs
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJobProgress updates job progress information
func (jm *JobManager) UpdateJobProgress(jobID int64, progress int, currentStep string, processedItems, successfulItems, failedItems int) error {
	_, err := jm.db.Exec(`
		UPDATE import_jobs
		SET progress = ?, current_step = ?, processed_items = ?,
			successful_items = ?, failed_items = ?
		WHERE id = ?
	`, progress, currentStep, processedItems, successfulItems, failedItems, jobID)
	return err
}

// SetJobTotals records the discovered item count before processing starts
func (jm *JobManager) SetJobTotals(jobID int64, totalItems int) error {
	_, err := jm.db.Exec(`
		UPDATE import_jobs SET total_items = ? WHERE id = ?
	`, totalItems, jobID)
	return err
}

func (jm *JobManager) updateJobStatus(jobID int64, status JobStatus, errorMessage string) error {
	now := time.Now()
	var completedAt *time.Time
	if status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled {
		completedAt = &now
	}

	_, err := jm.db.Exec(`
		UPDATE import_jobs
		SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, status, errorMessage, completedAt, jobID)
	return err
}

// dispatch continuously dispatches jobs to available workers
func (jm *JobManager) dispatch() {
	for {
		select {
		case job := <-jm.jobQueue:
			go func(job *Job) {
				worker := <-jm.workerPool
				worker <- job
			}(job)
		case <-jm.quit:
			return
		}
	}
}

// resumePendingJobs finds jobs that were running when the system shut down
// and requeues them
func (jm *JobManager) resumePendingJobs() {
	rows, err := jm.db.Query(`
		SELECT id FROM import_jobs
		WHERE status IN (?, ?)
		ORDER BY created_at ASC
	`, JobStatusPending, JobStatusRunning)
	if err != nil {
		logging.L().Error().Err(err).Msg("failed to query pending jobs")
		return
	}
	defer rows.Close()

	var resumed int
	for rows.Next() {
		var jobID int64
		if err := rows.Scan(&jobID); err != nil {
			continue
		}

		if err := jm.updateJobStatus(jobID, JobStatusPending, ""); err != nil {
			logging.L().Warn().Err(err).Int64("job_id", jobID).Msg("failed to reset job status")
			continue
		}

		if job, err := jm.GetJob(jobID); err == nil {
			select {
			case jm.jobQueue <- job:
				resumed++
			default:
				// Queue full, leave as pending
			}
		}
	}

	if resumed > 0 {
		logging.L().Info().Int("count", resumed).Msg("resumed pending jobs")
	}
}

// CancelJob cancels a running or pending job
func (jm *JobManager) CancelJob(jobID int64) error {
	return jm.updateJobStatus(jobID, JobStatusCancelled, "Job cancelled by user")
}

// CleanupOldJobs removes finished jobs older than the given number of days
func (jm *JobManager) CleanupOldJobs(daysOld int) error {
	result, err := jm.db.Exec(`
		DELETE FROM import_jobs
		WHERE status IN (?, ?, ?)
		AND created_at < datetime('now', '-' || ? || ' days')
	`, JobStatusCompleted, JobStatusFailed, JobStatusCancelled, daysOld)
	if err != nil {
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		logging.L().Info().Int64("count", rowsAffected).Msg("cleaned up old jobs")
	}
	return nil
}
