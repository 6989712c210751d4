package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClient is shared by the client commands; session starts may block on
// synchronous provisioning, so the timeout is generous.
var httpClient = &http.Client{Timeout: 10 * time.Minute}

// detailResponse is the uniform failure shape of the engine
type detailResponse struct {
	Detail string `json:"detail"`
}

// postJSON sends a request body and decodes the answer into out
func postJSON(path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := httpClient.Post(serverURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cannot reach WFM server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

// getJSON fetches a listing and decodes the answer into out
func getJSON(path string, out interface{}) error {
	resp, err := httpClient.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("cannot reach WFM server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var failure detailResponse
		if err := json.Unmarshal(data, &failure); err == nil && failure.Detail != "" {
			return fmt.Errorf("%s", failure.Detail)
		}
		return fmt.Errorf("server answered status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
