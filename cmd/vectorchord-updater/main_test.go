package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releasesJSON = `[
	{"tag_name": "v1.3.0-rc.1", "prerelease": true, "draft": false},
	{"tag_name": "v1.2.0", "prerelease": false, "draft": false},
	{"tag_name": "v1.1.0", "prerelease": false, "draft": false}
]`

func setup(t *testing.T, status int) (apiURL, workdir string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, releasesJSON)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("ARG VECTORCHORD=\"1.0.0\"\n"), 0o644))
	return srv.URL, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestDryRunLatest(t *testing.T) {
	apiURL, dir := setup(t, http.StatusOK)

	out, err := execute(t, "--api-url", apiURL, "--workdir", dir, "--dockerfile", "Dockerfile", "--dry-run", "--latest")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 VectorChord releases")
	assert.Contains(t, out, "Selected VectorChord version: 1.2.0")
	assert.Contains(t, out, "Tag: 4.0-master-vectorchord-1.2.0-1")

	got, err := os.ReadFile(filepath.Join(dir, "Dockerfile"))
	require.NoError(t, err)
	assert.Equal(t, "ARG VECTORCHORD=\"1.0.0\"\n", string(got))
}

func TestDryRunJSONRelease(t *testing.T) {
	apiURL, dir := setup(t, http.StatusOK)

	out, err := execute(t, "--api-url", apiURL, "--workdir", dir, "--dockerfile", "Dockerfile", "--dry-run", "--release", "v1.1.0", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"branch": "4.0-master-vectorchord-1.1.0"`)
	assert.Contains(t, out, `"dry_run": true`)
}

func TestJSONOutputKeepsStdoutClean(t *testing.T) {
	apiURL, dir := setup(t, http.StatusOK)

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yml"),
		"--api-url", apiURL, "--workdir", dir, "--dockerfile", "Dockerfile", "--dry-run", "--latest", "--output", "json"})
	require.NoError(t, cmd.Execute())

	var summary struct {
		DryRun bool   `json:"dry_run"`
		Plan   struct {
			Branch string `json:"branch"`
		} `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary), stdout.String())
	assert.Equal(t, "4.0-master-vectorchord-1.2.0", summary.Plan.Branch)
	assert.True(t, summary.DryRun)
	assert.Contains(t, stderr.String(), "Found 2 VectorChord releases")
	assert.NotContains(t, stdout.String(), "Found 2 VectorChord releases")
}

func TestFetchFailureExitsNonZero(t *testing.T) {
	apiURL, dir := setup(t, http.StatusInternalServerError)

	out, err := execute(t, "--api-url", apiURL, "--workdir", dir, "--dockerfile", "Dockerfile", "--dry-run", "--latest")
	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.code)
	assert.NotContains(t, out, "Creating branch")
}

func TestInvalidConfig(t *testing.T) {
	_, err := execute(t, "--output", "xml", "--latest")
	require.Error(t, err)
	var ee *exitError
	assert.False(t, errors.As(err, &ee))
	assert.Contains(t, err.Error(), "invalid configuration")
}
