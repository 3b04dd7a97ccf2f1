package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Job status values recorded in the jobs table.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusAborted   = "aborted"
)

// JobRecord is one batch.
type JobRecord struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	Status      string    `json:"status"`
	ClipsTotal  int       `json:"clips_total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Message     string    `json:"message,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// ClipRecord is one clip's terminal state.
type ClipRecord struct {
	JobID      string    `json:"job_id"`
	Index      int       `json:"index"`
	Source     string    `json:"source"`
	Output     string    `json:"output"`
	Outcome    string    `json:"outcome"`
	ExitCode   int       `json:"exit_code"`
	FinishedAt time.Time `json:"finished_at"`
}

// StartJob inserts or restarts a job row.
func (s *Store) StartJob(ctx context.Context, job JobRecord) error {
	if job.ID == "" {
		return errors.New("job id is empty")
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	if job.Status == "" {
		job.Status = StatusRunning
	}
	err := s.exec(ctx,
		`INSERT INTO jobs (id, source, destination, status, clips_total, started_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             destination = excluded.destination,
             status = excluded.status,
             clips_total = excluded.clips_total,
             started_at = excluded.started_at`,
		job.ID, job.Source, nullableString(job.Destination), job.Status, job.ClipsTotal, formatTime(job.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// FinishJob records the terminal status and tallies of a job.
func (s *Store) FinishJob(ctx context.Context, job JobRecord) error {
	if job.FinishedAt.IsZero() {
		job.FinishedAt = time.Now()
	}
	err := s.exec(ctx,
		`UPDATE jobs
         SET status = ?, succeeded = ?, failed = ?, skipped = ?, message = ?, finished_at = ?,
             destination = COALESCE(?, destination)
         WHERE id = ?`,
		job.Status, job.Succeeded, job.Failed, job.Skipped, nullableString(job.Message),
		formatTime(job.FinishedAt), nullableString(job.Destination), job.ID,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// RecordClip appends a clip outcome.
func (s *Store) RecordClip(ctx context.Context, clip ClipRecord) error {
	if clip.FinishedAt.IsZero() {
		clip.FinishedAt = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO clips (job_id, clip_index, source, output, outcome, exit_code, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		clip.JobID, clip.Index, clip.Source, nullableString(clip.Output), clip.Outcome, clip.ExitCode,
		formatTime(clip.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}
	return nil
}

const jobColumns = "id, source, destination, status, clips_total, succeeded, failed, skipped, message, started_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (JobRecord, error) {
	var (
		rec         JobRecord
		destination sql.NullString
		message     sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID, &rec.Source, &destination, &rec.Status, &rec.ClipsTotal,
		&rec.Succeeded, &rec.Failed, &rec.Skipped, &message, &startedRaw, &finishedRaw,
	); err != nil {
		return JobRecord{}, err
	}
	rec.Destination = destination.String
	rec.Message = message.String
	rec.StartedAt = parseTime(startedRaw)
	rec.FinishedAt = parseTime(finishedRaw.String)
	return rec, nil
}

// Job returns one job by id.
func (s *Store) Job(ctx context.Context, id string) (JobRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	rec, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return JobRecord{}, false, nil
	}
	if err != nil {
		return JobRecord{}, false, fmt.Errorf("get job: %w", err)
	}
	return rec, true, nil
}

// RecentJobs returns up to limit jobs, newest first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Clips returns the recorded clips of a job in batch order.
func (s *Store) Clips(ctx context.Context, jobID string) ([]ClipRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, clip_index, source, output, outcome, exit_code, finished_at
         FROM clips WHERE job_id = ? ORDER BY clip_index, id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var out []ClipRecord
	for rows.Next() {
		var (
			rec         ClipRecord
			output      sql.NullString
			exitCode    sql.NullInt64
			finishedRaw string
		)
		if err := rows.Scan(&rec.JobID, &rec.Index, &rec.Source, &output, &rec.Outcome, &exitCode, &finishedRaw); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		rec.Output = output.String
		rec.ExitCode = int(exitCode.Int64)
		rec.FinishedAt = parseTime(finishedRaw)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneBefore deletes jobs that finished before cutoff. Clips follow
// through the foreign key cascade.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM jobs WHERE finished_at IS NOT NULL AND finished_at < ?`, formatTime(cutoff))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return affected, nil
}
