package versioncheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	PERCONA_TOOLKIT = "Percona::Toolkit"
	DEFAULT_TIMEOUT = 3 * time.Second
	DEFAULT_URL     = "https://v.percona.com/"

	URL_ENV_VAR     = "PERCONA_VERSION_CHECK_URL"
	TIMEOUT_ENV_VAR = "PERCONA_VERSION_CHECK_TIMEOUT"
)

type Advice struct {
	Hash     string
	ToolName string
	Advice   string
}

// CheckUpdates asks the version check API whether a newer version of the toolkit exists.
// The returned advice is empty when there is nothing to report.
func CheckUpdates(ctx context.Context, toolName, version string) (string, error) {
	url := DEFAULT_URL
	timeout := DEFAULT_TIMEOUT

	log.Info("Checking for updates")
	if envURL := os.Getenv(URL_ENV_VAR); envURL != "" {
		url = envURL
		log.Infof("Using %s env var", URL_ENV_VAR)
	}

	if envTimeout := os.Getenv(TIMEOUT_ENV_VAR); envTimeout != "" {
		i, err := strconv.Atoi(envTimeout)
		if err == nil && i > 0 {
			log.Infof("Using time out from %s env var", TIMEOUT_ENV_VAR)
			timeout = time.Millisecond * time.Duration(i)
		}
	}

	log.Infof("Contacting version check API at %s. Timeout set to %v", url, timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return checkUpdates(ctx, url, toolName, version)
}

func checkUpdates(ctx context.Context, url, toolName, version string) (string, error) {
	// the hash only has to be unique per run
	payload := fmt.Sprintf("%x;%s;%s", uuid.New().String(), PERCONA_TOOLKIT, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "cannot build version check request")
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("X-Percona-Toolkit-Tool", toolName)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "version check request failed")
	}
	defer resp.Body.Close()

	log.Debug(resp.Status)
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("version check API returned %s", resp.Status)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "cannot read version check response")
	}
	advices := []Advice{}
	if err := json.Unmarshal(body, &advices); err != nil {
		return "", errors.Wrap(err, "cannot decode version check response")
	}

	for _, advice := range advices {
		if advice.ToolName == PERCONA_TOOLKIT {
			return advice.Advice, nil
		}
	}

	return "", nil
}
