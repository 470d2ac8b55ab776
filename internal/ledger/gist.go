package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const githubAPI = "https://api.github.com"

// GistLedger хранит журнал JSON-файлом в GitHub Gist
type GistLedger struct {
	apiURL      string
	gistID      string
	githubToken string
	filename    string
	client      *http.Client

	// read-modify-write одного файла, поэтому пишем по одному
	mu sync.Mutex
}

func NewGistLedger(gistID, githubToken string) *GistLedger {
	return &GistLedger{
		apiURL:      githubAPI,
		gistID:      gistID,
		githubToken: githubToken,
		filename:    "results.json",
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// WithAPIURL подменяет адрес GitHub API (GitHub Enterprise, тесты)
func (gl *GistLedger) WithAPIURL(apiURL string) *GistLedger {
	gl.apiURL = strings.TrimSuffix(apiURL, "/")
	return gl
}

func (gl *GistLedger) gistURL() string {
	return fmt.Sprintf("%s/gists/%s", gl.apiURL, gl.gistID)
}

func (gl *GistLedger) load(ctx context.Context) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gl.gistURL(), nil)
	if err != nil {
		return nil, err
	}

	if gl.githubToken != "" {
		req.Header.Set("Authorization", "token "+gl.githubToken)
	}

	resp, err := gl.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var gist struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}

	if err := json.Unmarshal(body, &gist); err != nil {
		return nil, err
	}

	var rows []Result
	file, exists := gist.Files[gl.filename]
	if exists && file.Content != "" {
		if err := json.Unmarshal([]byte(file.Content), &rows); err != nil {
			return nil, errors.Wrap(err, "corrupted results file in gist")
		}
	}

	return rows, nil
}

func (gl *GistLedger) save(ctx context.Context, rows []Result) error {
	content, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"files": map[string]interface{}{
			gl.filename: map[string]interface{}{
				"content": string(content),
			},
		},
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, gl.gistURL(), bytes.NewReader(jsonPayload))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "token "+gl.githubToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := gl.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return nil
}

func (gl *GistLedger) AppendResult(ctx context.Context, res Result) error {
	gl.mu.Lock()
	defer gl.mu.Unlock()

	rows, err := gl.load(ctx)
	if err != nil {
		return errors.Wrap(err, "error loading from gist")
	}

	rows = append(rows, res)

	if err := gl.save(ctx, rows); err != nil {
		return errors.Wrap(err, "error saving to gist")
	}

	return nil
}

func (gl *GistLedger) Top(ctx context.Context, limit int) ([]Result, error) {
	rows, err := gl.load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error loading leaderboard")
	}
	return rank(rows, limit), nil
}
