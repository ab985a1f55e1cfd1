package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

// Manual smoke test for a running instance:
//
//	go run ./scripts BASE_URL USER_ID FILE
//
// Uploads a document, polls its progress until terminal, then runs a query.
func main() {
	if len(os.Args) < 4 {
		color.Red("usage: smoke_api BASE_URL USER_ID FILE")
		os.Exit(1)
	}
	baseURL, userId, filePath := os.Args[1], os.Args[2], os.Args[3]
	client := &http.Client{Timeout: 30 * time.Second}

	color.Cyan("🚀 Document pipeline smoke test against %s\n", baseURL)

	color.Yellow("\n[1] Upload %s", filePath)
	documentId := upload(client, baseURL, userId, filePath)
	color.Green("Document: %s", documentId)

	color.Yellow("\n[2] Poll progress")
	for i := 0; i < 60; i++ {
		status, progress := pollProgress(client, baseURL, userId, documentId)
		color.Green("status=%s progress=%d", status, progress)
		if status == "completed" || status == "failed" || status == "cancelled" {
			break
		}
		time.Sleep(2 * time.Second)
	}

	color.Yellow("\n[3] Query")
	query(client, baseURL, userId, "summarize the uploaded document")

	color.Cyan("\n✅ Done")
}

func upload(client *http.Client, baseURL, userId, filePath string) string {
	f, err := os.Open(filePath)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", filePath)
	if _, err := io.Copy(part, f); err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	writer.Close()

	req, _ := http.NewRequest("POST", baseURL+"/api/document/v1", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-Id", userId)

	resp, err := client.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var parsed struct {
		Data struct {
			DocumentId string `json:"document_id"`
		} `json:"data"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Data.DocumentId == "" {
		color.Red("Unexpected response (%s): %s", resp.Status, string(raw))
		os.Exit(1)
	}
	return parsed.Data.DocumentId
}

func pollProgress(client *http.Client, baseURL, userId, documentId string) (string, int) {
	req, _ := http.NewRequest("GET", fmt.Sprintf("%s/api/document/v1/%s/progress", baseURL, documentId), nil)
	req.Header.Set("X-User-Id", userId)

	resp, err := client.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		return "", 0
	}
	defer resp.Body.Close()

	var parsed struct {
		Data struct {
			Status   string `json:"status"`
			Progress int    `json:"progress"`
		} `json:"data"`
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &parsed)
	return parsed.Data.Status, parsed.Data.Progress
}

func query(client *http.Client, baseURL, userId, question string) {
	payload, _ := json.Marshal(map[string]interface{}{"query": question})
	req, _ := http.NewRequest("POST", baseURL+"/api/retrieval/v1/query", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", userId)

	resp, err := client.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	color.Green("Status: %s", resp.Status)
	fmt.Println(string(raw))
}
