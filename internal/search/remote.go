// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/foldseek-fetch/internal/httputil"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

// Defaults for the Foldseek web server.
const (
	DefaultRemoteBase   = "https://search.foldseek.com/api"
	DefaultRemoteMode   = "3diaa"
	DefaultPollInterval = 10 * time.Second
)

// Job states reported by the ticket endpoint.
const (
	statusComplete = "COMPLETE"
	statusError    = "ERROR"
)

// RemoteProvider submits the query to the Foldseek web server job API,
// polls the job until it finishes and extracts the result table for the
// selected database from the downloaded archive.
type RemoteProvider struct {
	retrier httputil.Retrier
	cfg     types.RemoteSearchConfig
	logger  *zap.Logger
}

// NewRemoteProvider creates a provider that talks to cfg.BaseURL.
func NewRemoteProvider(client *http.Client, cfg types.RemoteSearchConfig, logger *zap.Logger) *RemoteProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRemoteBase
	}
	if cfg.Mode == "" {
		cfg.Mode = DefaultRemoteMode
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteProvider{
		retrier: httputil.Retrier{Client: client, Logger: logger},
		cfg:     cfg,
		logger:  logger,
	}
}

// Name returns the backend identifier.
func (p *RemoteProvider) Name() string { return string(types.ModeRemote) }

type ticket struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Search submits, polls and downloads one job.
func (p *RemoteProvider) Search(ctx context.Context, req Request) (types.Table, Metadata, error) {
	meta := Metadata{Backend: p.Name()}
	if _, err := req.writeQuery(); err != nil {
		return types.Table{}, meta, err
	}

	t, err := p.submit(ctx, req)
	if err != nil {
		return types.Table{}, meta, err
	}
	meta.JobID = t.ID
	p.logger.Info("submitted search job", zap.String("job", t.ID), zap.String("status", t.Status))

	polls, err := p.wait(ctx, t)
	meta.Polls = polls
	if err != nil {
		return types.Table{}, meta, err
	}

	archive := filepath.Join(req.Layout.ResultsDir(), strings.TrimSuffix(req.QueryName, "_fsquery")+"_results.tar.gz")
	if err := p.download(ctx, t.ID, archive); err != nil {
		return types.Table{}, meta, err
	}

	extractDir := strings.TrimSuffix(archive, ".tar.gz")
	files, err := ExtractTarGz(archive, extractDir)
	if err != nil {
		return types.Table{}, meta, fmt.Errorf("%w: extracting %s: %w", types.ErrSearchExecution, archive, err)
	}
	resultPath, err := FindResult(files, req.Source.ServerDB())
	if err != nil {
		return types.Table{}, meta, fmt.Errorf("%w: %w", types.ErrSearchExecution, err)
	}
	meta.ResultPath = resultPath

	table, err := readTableFile(resultPath, types.VariantRemote)
	if err != nil {
		return types.Table{}, meta, fmt.Errorf("%w: parsing %s: %w", types.ErrSearchExecution, resultPath, err)
	}
	if table.Len() == 0 {
		return types.Table{}, meta, fmt.Errorf("%w: %s is empty", types.ErrNoHomologs, resultPath)
	}
	return table, meta, nil
}

// submit uploads the query as a multipart form to {base}/ticket.
func (p *RemoteProvider) submit(ctx context.Context, req Request) (ticket, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("q", req.QueryName+".pdb")
	if err != nil {
		return ticket{}, fmt.Errorf("building upload: %w", err)
	}
	if _, err := fw.Write(req.Query); err != nil {
		return ticket{}, fmt.Errorf("building upload: %w", err)
	}
	_ = mw.WriteField("mode", p.cfg.Mode)
	_ = mw.WriteField("database[]", req.Source.ServerDB())
	if err := mw.Close(); err != nil {
		return ticket{}, fmt.Errorf("building upload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/ticket", bytes.NewReader(body.Bytes()))
	if err != nil {
		return ticket{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var t ticket
	if err := p.getJSON(httpReq, &t); err != nil {
		return ticket{}, err
	}
	if t.ID == "" {
		return ticket{}, fmt.Errorf("%w: server returned no job id", types.ErrSearchExecution)
	}
	return t, nil
}

// wait polls the job status every PollInterval until it is COMPLETE or
// ERROR. MaxPolls and MaxWait, when set, bound the loop and produce
// types.ErrSearchTimedOut. It returns the number of status checks made.
func (p *RemoteProvider) wait(ctx context.Context, t ticket) (int, error) {
	start := time.Now()
	status := t.Status
	polls := 0
	for {
		switch status {
		case statusComplete:
			return polls, nil
		case statusError:
			return polls, fmt.Errorf("%w: job %s reported %s", types.ErrSearchExecution, t.ID, statusError)
		}

		if p.cfg.MaxPolls > 0 && polls >= p.cfg.MaxPolls {
			return polls, fmt.Errorf("%w: job %s still %s after %d status checks",
				types.ErrSearchTimedOut, t.ID, status, polls)
		}
		if p.cfg.MaxWait > 0 && time.Since(start)+p.cfg.PollInterval > p.cfg.MaxWait {
			return polls, fmt.Errorf("%w: job %s still %s after %s",
				types.ErrSearchTimedOut, t.ID, status, time.Since(start).Round(time.Millisecond))
		}

		select {
		case <-ctx.Done():
			return polls, ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/ticket/"+t.ID, nil)
		if err != nil {
			return polls, fmt.Errorf("creating request: %w", err)
		}
		var st ticket
		if err := p.getJSON(httpReq, &st); err != nil {
			return polls, err
		}
		polls++
		status = st.Status
		p.logger.Debug("job status", zap.String("job", t.ID), zap.String("status", status), zap.Int("poll", polls))
	}
}

// download saves the compressed result archive of job id to dest.
func (p *RemoteProvider) download(ctx context.Context, id, dest string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/result/download/"+id, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.retrier.Do(ctx, httpReq)
	if err != nil {
		return fmt.Errorf("%w: downloading results: %w", types.ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return httpStatusError(resp.StatusCode, "result download")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return fmt.Errorf("%w: writing %s: %w", types.ErrSearchUnavailable, dest, copyErr)
	}
	return closeErr
}

func (p *RemoteProvider) getJSON(req *http.Request, v any) error {
	p.setHeaders(req)
	req.Header.Set("Accept", "application/json")

	resp, err := p.retrier.Do(req.Context(), req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %w", types.ErrSearchUnavailable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return httpStatusError(resp.StatusCode, req.Method+" "+req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: parsing %s response: %w", types.ErrSearchExecution, req.URL.Path, err)
	}
	return nil
}

func (p *RemoteProvider) setHeaders(req *http.Request) {
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}
}

// httpStatusError classifies an unexpected HTTP status: server-side and
// throttling failures mean the service is unavailable, anything else means
// it rejected the job.
func httpStatusError(code int, what string) error {
	kind := types.ErrSearchExecution
	if code >= 500 || code == http.StatusTooManyRequests {
		kind = types.ErrSearchUnavailable
	}
	return fmt.Errorf("%w: %s returned HTTP %d", kind, what, code)
}
