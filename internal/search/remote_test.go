// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/foldseek-fetch/internal/httputil"
	"github.com/pdiddy/foldseek-fetch/internal/source"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const sampleRemotePDB = "q\t7k3g-assembly1.cif.gz_A Spike glycoprotein\t0.9\t100\t10\t0\t1\t100\t1\t100\t1.0\t1e-30\t300\t100\t1200\tM\tM\t1,2,3\tMFV\t2697049\tSARS-CoV-2\n" +
	"q\t6vxx_B Spike glycoprotein\t0.8\t100\t20\t0\t1\t100\t1\t100\t1.0\t1e-25\t280\t100\t1200\tM\tM\t1,2,3\tMFV\t2697049\tSARS-CoV-2\n"

const sampleRemoteAFDB = "q\tAF-P0DTC2-F1-model_v4 Spike\t0.7\t100\t30\t0\t1\t100\t1\t100\t1.0\t1e-20\t250\t100\t1273\tM\tM\t1,2,3\tMFV\t2697049\tSARS-CoV-2\n"

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// fakeServer mimics the Foldseek web server job API. The job reports
// RUNNING for runningPolls status checks, then finalStatus.
type fakeServer struct {
	t            *testing.T
	runningPolls int32
	finalStatus  string
	archive      []byte

	polls     int32
	databases []string
	mode      string
	upload    string
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ticket", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.databases = r.MultipartForm.Value["database[]"]
		f.mode = r.FormValue("mode")
		file, hdr, err := r.FormFile("q")
		if err != nil {
			http.Error(w, "missing q", http.StatusBadRequest)
			return
		}
		defer file.Close()
		var b bytes.Buffer
		b.ReadFrom(file)
		f.upload = hdr.Filename + ":" + b.String()
		json.NewEncoder(w).Encode(ticket{ID: "job-1", Status: "PENDING"})
	})
	mux.HandleFunc("GET /api/ticket/job-1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.polls, 1)
		status := "RUNNING"
		if n > f.runningPolls {
			status = f.finalStatus
		}
		json.NewEncoder(w).Encode(ticket{ID: "job-1", Status: status})
	})
	mux.HandleFunc("GET /api/result/download/job-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		w.Write(f.archive)
	})
	return mux
}

func remoteRequest(t *testing.T, src source.Source) Request {
	t.Helper()
	layout := types.Layout{Root: t.TempDir(), Mode: types.ModeRemote}
	require.NoError(t, layout.Ensure())
	return NewRequest([]byte(fakeQueryPDB), "6vxx.pdb", src, layout, nil)
}

func newTestRemote(t *testing.T, ts *httptest.Server, mutate func(*types.RemoteSearchConfig)) *RemoteProvider {
	cfg := types.RemoteSearchConfig{
		HTTPConfig:   types.HTTPConfig{UserAgent: "foldseek-fetch-test/0.1"},
		BaseURL:      ts.URL + "/api",
		PollInterval: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewRemoteProvider(ts.Client(), cfg, zaptest.NewLogger(t))
}

func TestRemoteSearch(t *testing.T) {
	fs := &fakeServer{t: t, runningPolls: 2, finalStatus: "COMPLETE", archive: buildArchive(t, map[string]string{
		"alis_pdb100.m8": sampleRemotePDB,
		"alis_afdb50.m8": sampleRemoteAFDB,
	})}
	ts := httptest.NewServer(fs.handler())
	defer ts.Close()

	p := newTestRemote(t, ts, nil)
	req := remoteRequest(t, source.PDB)
	table, meta, err := p.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, types.VariantRemote, table.Variant)
	assert.Equal(t, []string{
		"7k3g-assembly1.cif.gz_A Spike glycoprotein",
		"6vxx_B Spike glycoprotein",
	}, table.Targets())
	assert.Equal(t, "remote", meta.Backend)
	assert.Equal(t, "job-1", meta.JobID)
	assert.Equal(t, 3, meta.Polls)
	assert.Contains(t, meta.ResultPath, "alis_pdb100.m8")

	assert.Equal(t, []string{"pdb100"}, fs.databases)
	assert.Equal(t, "3diaa", fs.mode)
	assert.Equal(t, "6vxx_fsquery.pdb:"+fakeQueryPDB, fs.upload)
	assert.FileExists(t, req.QueryPath())
}

func TestRemoteSearchSelectsDatabaseTable(t *testing.T) {
	fs := &fakeServer{t: t, finalStatus: "COMPLETE", archive: buildArchive(t, map[string]string{
		"alis_pdb100.m8": sampleRemotePDB,
		"alis_afdb50.m8": sampleRemoteAFDB,
	})}
	ts := httptest.NewServer(fs.handler())
	defer ts.Close()

	table, _, err := newTestRemote(t, ts, nil).Search(context.Background(), remoteRequest(t, source.AFUniProt50))
	require.NoError(t, err)
	assert.Equal(t, []string{"AF-P0DTC2-F1-model_v4 Spike"}, table.Targets())
	assert.Equal(t, []string{"afdb50"}, fs.databases)
}

func TestRemoteSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		server  *fakeServer
		mutate  func(*types.RemoteSearchConfig)
		wantErr error
	}{
		{
			name:    "job error",
			server:  &fakeServer{runningPolls: 1, finalStatus: "ERROR"},
			wantErr: types.ErrSearchExecution,
		},
		{
			name:    "max polls exceeded",
			server:  &fakeServer{runningPolls: 1000, finalStatus: "COMPLETE"},
			mutate:  func(c *types.RemoteSearchConfig) { c.MaxPolls = 3 },
			wantErr: types.ErrSearchTimedOut,
		},
		{
			name:   "max wait exceeded",
			server: &fakeServer{runningPolls: 1000, finalStatus: "COMPLETE"},
			mutate: func(c *types.RemoteSearchConfig) {
				c.PollInterval = 5 * time.Millisecond
				c.MaxWait = 20 * time.Millisecond
			},
			wantErr: types.ErrSearchTimedOut,
		},
		{
			name:    "database missing from archive",
			server:  &fakeServer{finalStatus: "COMPLETE", archive: nil},
			wantErr: types.ErrSearchExecution,
		},
		{
			name:    "empty result table",
			server:  &fakeServer{finalStatus: "COMPLETE", archive: []byte("placeholder")},
			wantErr: types.ErrNoHomologs,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.server.t = t
			switch {
			case tt.server.archive == nil:
				tt.server.archive = buildArchive(t, map[string]string{"alis_afdb50.m8": sampleRemoteAFDB})
			case string(tt.server.archive) == "placeholder":
				tt.server.archive = buildArchive(t, map[string]string{"alis_pdb100.m8": ""})
			default:
				tt.server.archive = buildArchive(t, map[string]string{"alis_pdb100.m8": sampleRemotePDB})
			}
			ts := httptest.NewServer(tt.server.handler())
			defer ts.Close()

			_, _, err := newTestRemote(t, ts, tt.mutate).Search(context.Background(), remoteRequest(t, source.PDB))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRemoteSearchUnavailable(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	_, _, err := newTestRemote(t, down, nil).Search(context.Background(), remoteRequest(t, source.PDB))
	assert.ErrorIs(t, err, types.ErrSearchUnavailable)

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_, _, err = newTestRemote(t, closed, nil).Search(context.Background(), remoteRequest(t, source.PDB))
	assert.ErrorIs(t, err, types.ErrSearchUnavailable)
}

func TestRemoteSearchRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid database", http.StatusBadRequest)
	}))
	defer ts.Close()

	_, _, err := newTestRemote(t, ts, nil).Search(context.Background(), remoteRequest(t, source.PDB))
	assert.ErrorIs(t, err, types.ErrSearchExecution)
}

func TestRemoteSearchCancelledWhilePolling(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := &fakeServer{t: t, runningPolls: 1 << 30, finalStatus: "COMPLETE"}
	fs.archive = buildArchive(t, map[string]string{"alis_pdb100.m8": sampleRemotePDB})
	ts := httptest.NewServer(fs.handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	p := newTestRemote(t, ts, func(c *types.RemoteSearchConfig) { c.PollInterval = 5 * time.Millisecond })
	_, _, err := p.Search(ctx, remoteRequest(t, source.PDB))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, types.ErrSearchTimedOut)
}
