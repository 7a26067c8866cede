package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	llamaCloudBaseURL   = "https://api.cloud.llamaindex.ai"
	llamaCloudEUBaseURL = "https://api.cloud.eu.llamaindex.ai"

	defaultRequestTimeout  = 180 * time.Second
	defaultPollInterval    = 10 * time.Second
	defaultMaxPollAttempts = 180
)

// Remote parses a directory through LlamaCloud batch processing: it
// creates a remote directory, uploads the files, submits a parse job
// and polls until the job settles. Retry and polling mechanics stay
// entirely behind the DocumentSource interface.
type Remote struct {
	apiKey       string
	baseURL      string
	dir          string
	pollInterval time.Duration
	maxAttempts  int
	client       *http.Client
}

// RemoteOptions tunes the polling loop; zero values take defaults.
type RemoteOptions struct {
	EU           bool
	PollInterval time.Duration
	MaxAttempts  int
}

func NewRemote(dir, apiKey string, opts RemoteOptions) *Remote {
	base := llamaCloudBaseURL
	if opts.EU {
		base = llamaCloudEUBaseURL
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxPollAttempts
	}
	return &Remote{
		apiKey:       apiKey,
		baseURL:      base,
		dir:          dir,
		pollInterval: interval,
		maxAttempts:  attempts,
		client:       &http.Client{Timeout: defaultRequestTimeout},
	}
}

type directoryResponse struct {
	ID string `json:"id"`
}

type batchJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type batchJobStatus struct {
	Job                batchJob `json:"job"`
	ProgressPercentage int      `json:"progress_percentage"`
}

type batchJobResults struct {
	Items []struct {
		Text string `json:"text"`
	} `json:"items"`
}

func (r *Remote) Documents(ctx context.Context) ([]string, error) {
	run := uuid.NewString()
	log := slog.With("run", run, "directory", r.dir)

	dirID, err := r.createDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("create remote directory: %w", err)
	}
	log.Info("remote directory created", "directory_id", dirID)

	if err := r.uploadFiles(ctx, dirID); err != nil {
		return nil, fmt.Errorf("upload files: %w", err)
	}

	jobID, err := r.createBatchJob(ctx, dirID)
	if err != nil {
		return nil, fmt.Errorf("create batch job: %w", err)
	}
	log.Info("batch parse job created", "job_id", jobID)

	status, err := r.pollJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("poll batch job: %w", err)
	}
	if status != "completed" {
		return nil, fmt.Errorf("batch job %s finished with status %q", jobID, status)
	}

	texts, err := r.fetchResults(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch batch job results: %w", err)
	}
	log.Info("remote parsing finished", "documents", len(texts))
	return texts, nil
}

func (r *Remote) createDirectory(ctx context.Context) (string, error) {
	var resp directoryResponse
	err := r.postJSON(ctx, "/api/v1/beta/directories", map[string]any{
		"name": r.dir,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (r *Remote) uploadFiles(ctx context.Context, dirID string) error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read directory %q: %w", r.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		if err := r.uploadFile(ctx, dirID, path); err != nil {
			slog.Error("file upload failed, skipping", "file", path, "error", err)
			continue
		}
		slog.Debug("file uploaded", "file", path)
	}
	return nil
}

func (r *Remote) uploadFile(ctx context.Context, dirID, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("upload_file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := part.Write(raw); err != nil {
		return fmt.Errorf("write multipart form: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close multipart form: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/beta/directories/%s/files/upload", r.baseURL, dirID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload %q: %s: %s", path, resp.Status, detail)
	}
	return nil
}

func (r *Remote) createBatchJob(ctx context.Context, dirID string) (string, error) {
	var resp batchJob
	err := r.postJSON(ctx, "/api/v1/beta/batch-processing", map[string]any{
		"directory_id": dirID,
		"job_config": map[string]any{
			"job_name":   "parse_raw_file_job",
			"partitions": map[string]any{},
			"parameters": map[string]any{
				"type":      "parse",
				"lang":      "en",
				"fast_mode": true,
			},
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (r *Remote) pollJob(ctx context.Context, jobID string) (string, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		var status batchJobStatus
		err := r.getJSON(ctx, "/api/v1/beta/batch-processing/"+jobID, &status)
		if err == nil {
			switch status.Job.Status {
			case "completed", "failed", "cancelled":
				return status.Job.Status, nil
			}
			slog.Debug("batch job still running",
				"job_id", jobID, "status", status.Job.Status, "progress", status.ProgressPercentage)
		} else {
			slog.Warn("poll attempt failed, retrying", "job_id", jobID, "error", err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
	return "", fmt.Errorf("job %s did not settle within %d attempts", jobID, r.maxAttempts)
}

func (r *Remote) fetchResults(ctx context.Context, jobID string) ([]string, error) {
	var results batchJobResults
	if err := r.getJSON(ctx, "/api/v1/beta/batch-processing/"+jobID+"/results", &results); err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(results.Items))
	for _, item := range results.Items {
		texts = append(texts, item.Text)
	}
	return texts, nil
}

func (r *Remote) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return r.do(req, out)
}

func (r *Remote) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	return r.do(req, out)
}

func (r *Remote) do(req *http.Request, out any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, detail)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
