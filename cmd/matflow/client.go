// Copyright 2025 CreativeGHQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"
)

// apiClient is a thin JSON client for the daemon's admin API.
type apiClient struct {
	base string
	http *http.Client
}

func newClient(c *cli.Context) *apiClient {
	return &apiClient{
		base: strings.TrimSuffix(c.String("addr"), "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *apiClient) do(method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.base+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var failure struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error != "" {
			return fmt.Errorf("%s (%s)", failure.Error, resp.Status)
		}
		return fmt.Errorf("request failed: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func submitCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: matflow submit DOCUMENT_REF")
	}

	client := newClient(c)
	var job map[string]any
	err := client.do(http.MethodPost, "/jobs", map[string]string{
		"document_ref": c.Args().First(),
		"workspace_id": c.String("workspace"),
	}, &job)
	if err != nil {
		return err
	}

	if !c.Bool("watch") {
		return printJSON(job)
	}

	jobID, _ := job["id"].(string)
	fmt.Fprintf(os.Stderr, "job %s submitted, streaming progress\n", jobID)
	return streamProgress(client.base, jobID)
}

// streamProgress follows the job's websocket feed until it closes.
func streamProgress(base, jobID string) error {
	wsBase := strings.Replace(base, "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.Dial(wsBase+"/jobs/"+url.PathEscape(jobID)+"/stream", nil)
	if err != nil {
		return fmt.Errorf("stream failed: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	for {
		var update struct {
			Status   string `json:"status"`
			Stage    string `json:"stage"`
			Progress int    `json:"progress"`
			Error    string `json:"error"`
		}
		if err := conn.ReadJSON(&update); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || err == io.EOF {
				return nil
			}
			return err
		}
		fmt.Printf("%-12s %-18s %3d%%", update.Status, update.Stage, update.Progress)
		if update.Error != "" {
			fmt.Printf("  %s", update.Error)
		}
		fmt.Println()
	}
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: matflow status JOB_ID")
	}

	var report map[string]any
	if err := newClient(c).do(http.MethodGet, "/jobs/"+url.PathEscape(c.Args().First()), nil, &report); err != nil {
		return err
	}
	return printJSON(report)
}

func resumeCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: matflow resume JOB_ID")
	}

	jobID := c.Args().First()
	if err := newClient(c).do(http.MethodPost, "/jobs/"+url.PathEscape(jobID)+"/resume", nil, nil); err != nil {
		return err
	}
	fmt.Printf("job %s queued\n", jobID)
	return nil
}

func cancelCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: matflow cancel JOB_ID")
	}

	jobID := c.Args().First()
	if err := newClient(c).do(http.MethodPost, "/jobs/"+url.PathEscape(jobID)+"/cancel", nil, nil); err != nil {
		return err
	}
	fmt.Printf("job %s cancelling\n", jobID)
	return nil
}

func usageCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: matflow usage JOB_ID")
	}

	var report map[string]any
	if err := newClient(c).do(http.MethodGet, "/jobs/"+url.PathEscape(c.Args().First())+"/ai-usage", nil, &report); err != nil {
		return err
	}
	return printJSON(report)
}

func validateCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: matflow validate PROPERTY_KEY RAW_VALUE")
	}

	var result map[string]any
	err := newClient(c).do(http.MethodPost, "/validate-metadata", map[string]string{
		"property_key": c.Args().Get(0),
		"raw_value":    c.Args().Get(1),
	}, &result)
	if err != nil {
		return err
	}
	return printJSON(result)
}
