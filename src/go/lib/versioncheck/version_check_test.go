package versioncheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckUpdates(t *testing.T) {
	var tool string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		m := strings.Split(string(body), ";")
		tool = r.Header.Get("X-Percona-Toolkit-Tool")

		advices := []Advice{
			{
				Hash:     m[0],
				ToolName: m[1],
				Advice:   "There is a new version",
			},
		}

		buf, _ := json.Marshal(advices)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, string(buf))
	}))
	defer ts.Close()
	t.Setenv(URL_ENV_VAR, ts.URL)

	msg, err := CheckUpdates(context.Background(), "pt-test", "3.4.0")
	require.NoError(t, err)
	assert.Equal(t, "There is a new version", msg)
	assert.Equal(t, "pt-test", tool)
}

func TestEmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "")
	}))
	defer ts.Close()
	t.Setenv(URL_ENV_VAR, ts.URL)

	msg, err := CheckUpdates(context.Background(), "pt-test", "3.4.0")
	assert.Error(t, err, "response should return error due to empty body")
	assert.Empty(t, msg)
}

func TestErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()
	t.Setenv(URL_ENV_VAR, ts.URL)

	_, err := CheckUpdates(context.Background(), "pt-test", "3.4.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
