package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	checkEndpoint(baseURL, "GET", "/health", nil, 200)
	checkEndpoint(baseURL, "GET", "/instruments", nil, 200)
	presets := listPresets(baseURL)
	if len(presets) < 2 {
		log.Fatalf("need at least two presets, got %d", len(presets))
	}

	name := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	checkEndpoint(baseURL, "POST", "/portfolios", map[string]interface{}{
		"name":   name,
		"preset": presets[0],
		"amount": 10000,
	}, 201)

	checkEndpoint(baseURL, "GET", "/portfolios/"+name, nil, 200)
	checkEndpoint(baseURL, "PUT", "/portfolios/"+name+"/target", map[string]interface{}{"preset": presets[1]}, 200)
	checkEndpoint(baseURL, "GET", "/portfolios/"+name+"/deviation", nil, 200)
	checkEndpoint(baseURL, "POST", "/portfolios/"+name+"/deposit", map[string]interface{}{"amount": 500}, 200)
	checkEndpoint(baseURL, "POST", "/portfolios/"+name+"/rebalance", nil, 200)
	checkEndpoint(baseURL, "POST", "/portfolios/"+name+"/withdraw", map[string]interface{}{"amount": 1e12}, 422)
	checkEndpoint(baseURL, "POST", "/portfolios/"+name+"/withdraw", map[string]interface{}{"amount": 500}, 200)
	checkEndpoint(baseURL, "GET", "/portfolios/"+name+"/deviation", nil, 200)

	fmt.Println("ALL TESTS PASSED")
}

func checkEndpoint(baseURL, method, path string, body interface{}, expectedStatus int) []byte {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", string(respBody))
	return respBody
}

func listPresets(baseURL string) []string {
	body := checkEndpoint(baseURL, "GET", "/presets", nil, 200)
	var presets []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &presets); err != nil {
		log.Fatalf("decode presets: %v", err)
	}
	names := []string{}
	for _, p := range presets {
		names = append(names, p.Name)
	}
	return names
}
