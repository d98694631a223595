package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSeed(t *testing.T) {
	seed, err := readSeed(filepath.Join("..", "..", "seeds", "sample.json"))
	require.NoError(t, err)
	assert.Len(t, seed.Companies, 3)
	assert.Len(t, seed.Students, 4)
	assert.Equal(t, "R1+R2", seed.Companies[0].Positions[0].ResidencyTerm)
}

func TestReadSeedRejectsUnknownTerm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	body := `{"companies":[{"name":"Acme","email":"a@example.com","positions":[{"title":"Dev","residency_term":"R7"}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := readSeed(path)
	assert.ErrorContains(t, err, "R7")
}

func TestSeedAndAllocateCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RESIDENCY_DATABASE_DSN", filepath.Join(dir, "db", "residency.db"))
	t.Setenv("RESIDENCY_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "seed", filepath.Join("..", "..", "seeds", "sample.json")})
	require.NoError(t, rootCmd.Execute())

	// nobody has ranked yet, so nothing is allocated
	rootCmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "allocate"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "allocate: 0 created")
}

func TestFileServer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>ranking</h1>"), 0o644))

	r := chi.NewRouter()
	FileServer(r, "/app", http.Dir(dir))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app/index.html", nil))
	// http.FileServer redirects /index.html to the directory
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ranking")
}

func TestFileServerRejectsParams(t *testing.T) {
	assert.Panics(t, func() { FileServer(chi.NewRouter(), "/{id}", http.Dir(".")) })
}
