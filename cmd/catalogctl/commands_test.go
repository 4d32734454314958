package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

const yerbaDraft = `{
  "name": "Yerba Test",
  "category": "Yerbas",
  "type": "yerba",
  "stockInKg": "5.5",
  "packageSizes": [{"sizeInKg": "0.5", "price": "750"}, {"sizeInKg": "1", "price": "1400"}]
}`

func TestValidate_OK(t *testing.T) {
	out, _, err := runCmd(t, "validate", writeFile(t, "yerba.json", yerbaDraft))
	require.NoError(t, err)
	assert.Contains(t, out, "ok: Yerba Test (yerba, weight-based)")
}

func TestValidate_PrintsFieldErrors(t *testing.T) {
	path := writeFile(t, "mate.json", `{"name":"Mate","category":"Mates","type":"mate calabaza","price":"abc"}`)

	_, errOut, err := runCmd(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, errOut, "price:")
	assert.Contains(t, errOut, "stock:")
}

func TestValidate_BadJSON(t *testing.T) {
	_, _, err := runCmd(t, "validate", writeFile(t, "broken.json", `{`))
	require.Error(t, err)
}

func TestCreate_SendsValidatedDraft(t *testing.T) {
	var gotType, gotSize string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		gotType = r.FormValue("type")
		gotSize = r.FormValue("packageSizes[1][sizeInKg]")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"product":{"id":"p1"},"warnings":[{"op":"replace","publicId":"old","message":"gone"}]}`))
	}))
	defer srv.Close()

	out, _, err := runCmd(t, "--server", srv.URL, "--token", "t", "create", writeFile(t, "yerba.json", yerbaDraft))
	require.NoError(t, err)

	assert.Equal(t, "yerba", gotType)
	assert.Equal(t, "1", gotSize)
	assert.Contains(t, out, `"id": "p1"`)
	assert.Contains(t, out, "warning: replace old: gone")
}

// 検証エラーならサーバには送らない
func TestCreate_InvalidDraftIsNotSent(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	path := writeFile(t, "mate.json", `{"name":"Mate","category":"Mates","type":"mate calabaza"}`)
	_, _, err := runCmd(t, "--server", srv.URL, "create", path)

	require.Error(t, err)
	assert.False(t, called)
}
