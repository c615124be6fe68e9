package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	var (
		addr    = flag.String("addr", "http://localhost:9050", "Server URL")
		session = flag.String("session", "", "Session ID to resume (optional)")
		message = flag.String("message", "", "One-shot message (non-interactive mode)")
		attach  = flag.String("attach", "", "File to upload and attach to the first message")
	)
	flag.Parse()

	// Document extraction can take several model round trips server side.
	client := &http.Client{Timeout: 10 * time.Minute}

	fileID := ""
	if *attach != "" {
		id, name, err := uploadFile(client, *addr, *attach)
		if err != nil {
			log.Fatal(err)
		}
		fileID = id
		fmt.Printf("Uploaded %s (file_id %s)\n", name, id)
	}

	// One-shot mode
	if *message != "" {
		reply, err := sendChat(client, *addr, *message, *session, fileID)
		if err != nil {
			log.Fatal(err)
		}
		printReply(reply)
		return
	}

	// Interactive mode
	fmt.Println("===========================================")
	fmt.Println("  agentgate chat")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Type a message (Ctrl+D to exit).")
	fmt.Println("Use /attach <path> to upload a file for your next message.")
	fmt.Println()

	sessionID := *session
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if path, ok := strings.CutPrefix(line, "/attach "); ok {
			id, name, err := uploadFile(client, *addr, strings.TrimSpace(path))
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			fileID = id
			fmt.Printf("Uploaded %s; it will be attached to your next message.\n", name)
			continue
		}

		reply, err := sendChat(client, *addr, line, sessionID, fileID)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}
		fileID = ""
		sessionID = reply.SessionID
		printReply(reply)
	}

	fmt.Println("\nGoodbye!")
}

type chatReply struct {
	Response       string  `json:"response"`
	AgentUsed      string  `json:"agent_used"`
	ProcessingTime float64 `json:"processing_time"`
	SessionID      string  `json:"session_id"`
}

func sendChat(client *http.Client, addr, message, sessionID, fileID string) (chatReply, error) {
	payload := map[string]string{"message": message}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	if fileID != "" {
		payload["file_id"] = fileID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return chatReply{}, err
	}

	resp, err := client.Post(addr+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return chatReply{}, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return chatReply{}, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return chatReply{}, fmt.Errorf("decode response: %w", err)
	}
	return reply, nil
}

func uploadFile(client *http.Client, addr, path string) (id, name string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", "", err
	}
	if err := mw.Close(); err != nil {
		return "", "", err
	}

	resp, err := client.Post(addr+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", "", fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var up struct {
		FileID   string `json:"file_id"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}
	return up.FileID, up.Filename, nil
}

func printReply(reply chatReply) {
	fmt.Println()
	fmt.Println(reply.Response)
	fmt.Printf("\n[%s, %.2fs, session %s]\n\n", reply.AgentUsed, reply.ProcessingTime, reply.SessionID)
}
