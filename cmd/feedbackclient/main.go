// Command feedbackclient exercises a running server end to end: it
// authenticates as a kiosk, mints a validation token, uploads an audio file
// and watches the live stream until the feedback comes back completed.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
)

type KioskAuthRequest struct {
	KioskID   string `json:"kiosk_id"`
	SecretKey string `json:"secret_key"`
}

type KioskAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	KioskID   string    `json:"kiosk_id"`
}

type MintTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type IngestResponse struct {
	FeedbackID string `json:"feedback_id"`
	State      string `json:"state"`
}

func main() {
	host := os.Getenv("VOFAS_HOST")
	if host == "" {
		host = "localhost:8080"
	}
	audioPath := filepath.Join(".", "sample_audio.wav")
	if len(os.Args) > 1 {
		audioPath = os.Args[1]
	}

	jwt, err := authenticateKiosk(host)
	if err != nil {
		log.Fatal("Failed to authenticate kiosk:", err)
	}
	log.Printf("Kiosk authenticated")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Watch the live stream before uploading so the completion is not missed
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws/feedback"}
	log.Printf("connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}
			log.Printf("📨 stream event: %s", message)
		}
	}()

	token, err := mintValidationToken(host, jwt)
	if err != nil {
		log.Fatal("Failed to mint validation token:", err)
	}
	log.Printf("Validation token minted, expires %s", token.ExpiresAt.Format(time.RFC3339))

	feedbackID, err := uploadFeedback(host, audioPath, token.Token)
	if err != nil {
		log.Fatal("Failed to upload feedback:", err)
	}
	log.Printf("🚀 Feedback accepted: %s, waiting for completion on the stream...", feedbackID)

	select {
	case <-done:
	case <-interrupt:
		log.Println("interrupt")
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("write close:", err)
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func authenticateKiosk(host string) (string, error) {
	authReq := KioskAuthRequest{
		KioskID:   envOr("VOFAS_KIOSK_ID", "kiosk-1"),
		SecretKey: envOr("VOFAS_KIOSK_SECRET", "secret123"),
	}

	jsonData, err := json.Marshal(authReq)
	if err != nil {
		return "", err
	}

	resp, err := http.Post("http://"+host+"/api/v1/kiosk/auth", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("authentication failed: %s", string(body))
	}

	var authResp KioskAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return "", err
	}
	return authResp.Token, nil
}

func mintValidationToken(host, jwt string) (*MintTokenResponse, error) {
	req, err := http.NewRequest("POST", "http://"+host+"/api/v1/kiosk/tokens", bytes.NewBufferString("{}"))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+jwt)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("mint failed: %s", string(body))
	}

	var minted MintTokenResponse
	if err := json.Unmarshal(body, &minted); err != nil {
		return nil, err
	}
	return &minted, nil
}

func uploadFeedback(host, audioPath, token string) (string, error) {
	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("reading audio file: %w", err)
	}
	log.Printf("📁 Read audio file: %s (%d bytes)", audioPath, len(audioData))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audioData); err != nil {
		return "", err
	}
	if err := writer.WriteField("validationToken", token); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	resp, err := http.Post("http://"+host+"/api/v1/feedback", writer.FormDataContentType(), body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("upload rejected: %s", string(respBody))
	}

	var accepted IngestResponse
	if err := json.Unmarshal(respBody, &accepted); err != nil {
		return "", err
	}
	return accepted.FeedbackID, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
