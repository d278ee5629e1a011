package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/adapters/media"
	"github.com/vofas/vofas-backend/adapters/memory"
	"github.com/vofas/vofas-backend/adapters/sentiment"
	"github.com/vofas/vofas-backend/adapters/stt"
	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/internal/auth"
	"github.com/vofas/vofas-backend/internal/pipeline"
	"github.com/vofas/vofas-backend/internal/stream"
	"github.com/vofas/vofas-backend/internal/websocket"
)

type apiEnv struct {
	server   *httptest.Server
	feedback *memory.FeedbackRepository
	tokens   *memory.TokenRepository
	kiosks   *memory.KioskRepository
	broker   *stream.Broker
	pipeline *pipeline.Pipeline
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger := zap.NewNop()

	store, err := media.NewDiskStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewDiskStore returned error: %v", err)
	}

	env := &apiEnv{
		feedback: memory.NewFeedbackRepository(),
		tokens:   memory.NewTokenRepository(),
		kiosks:   memory.NewKioskRepository(),
		broker:   stream.NewBroker(logger),
	}

	transcriber := stt.NewMockTranscriber(logger)
	transcriber.Transcript = "the staff were friendly"
	classifier := sentiment.NewMockClassifier(logger)
	classifier.Label = entities.SentimentPositive

	env.pipeline = pipeline.New(env.feedback, env.tokens, store, transcriber, classifier, env.broker, logger, pipeline.Config{Workers: 2})
	env.pipeline.Start()

	hub := websocket.NewHub(env.broker, logger)
	go hub.Run()

	e := echo.New()
	InitRoutes(e, env.pipeline, env.feedback, env.tokens, env.kiosks, env.broker, hub, logger)

	env.server = httptest.NewServer(e)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		env.pipeline.Stop(ctx)
		env.broker.Close()
		env.server.Close()
	})

	return env
}

func (env *apiEnv) mintToken(t *testing.T) string {
	t.Helper()
	token, err := env.tokens.Mint(context.Background(), "kiosk-1", time.Hour)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}
	return token.Value
}

func multipartUpload(t *testing.T, filename, contentType, token string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart returned error: %v", err)
	}
	if _, err := part.Write([]byte("audio payload bytes")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	if token != "" {
		if err := writer.WriteField("validationToken", token); err != nil {
			t.Fatalf("WriteField returned error: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	return body, writer.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Decoding error response: %v", err)
	}
	return errResp
}

func TestIngestEndpointAccepted(t *testing.T) {
	env := newAPIEnv(t)
	body, contentType := multipartUpload(t, "clip.mp3", "audio/mpeg", env.mintToken(t))

	resp, err := http.Post(env.server.URL+"/api/v1/feedback", contentType, body)
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", resp.StatusCode)
	}

	var accepted IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if accepted.FeedbackID == "" {
		t.Error("Expected a feedback id in the response")
	}
	if accepted.State != "RECEIVED" {
		t.Errorf("Expected state RECEIVED, got %s", accepted.State)
	}
}

func TestIngestEndpointUnsupportedMedia(t *testing.T) {
	env := newAPIEnv(t)
	body, contentType := multipartUpload(t, "notes.txt", "text/plain", env.mintToken(t))

	resp, err := http.Post(env.server.URL+"/api/v1/feedback", contentType, body)
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415, got %d", resp.StatusCode)
	}
	errResp := decodeError(t, resp)
	if errResp.Status != http.StatusUnsupportedMediaType {
		t.Errorf("Expected status mirrored in body, got %d", errResp.Status)
	}
	if errResp.Path != "/api/v1/feedback" {
		t.Errorf("Expected request path in body, got %s", errResp.Path)
	}
}

func TestIngestEndpointBadToken(t *testing.T) {
	env := newAPIEnv(t)
	body, contentType := multipartUpload(t, "clip.mp3", "audio/mpeg", "no-such-token")

	resp, err := http.Post(env.server.URL+"/api/v1/feedback", contentType, body)
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", resp.StatusCode)
	}
}

func TestIngestEndpointMissingToken(t *testing.T) {
	env := newAPIEnv(t)
	body, contentType := multipartUpload(t, "clip.mp3", "audio/mpeg", "")

	resp, err := http.Post(env.server.URL+"/api/v1/feedback", contentType, body)
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestIngestEndpointTokenFieldName(t *testing.T) {
	env := newAPIEnv(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "clip.mp3")
	if err != nil {
		t.Fatalf("CreateFormFile returned error: %v", err)
	}
	if _, err := part.Write([]byte("audio payload bytes")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	// A differently named field does not carry the validation token.
	if err := writer.WriteField("token", env.mintToken(t)); err != nil {
		t.Fatalf("WriteField returned error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	resp, err := http.Post(env.server.URL+"/api/v1/feedback", writer.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 when the validationToken field is absent, got %d", resp.StatusCode)
	}
}

func TestListEndpointRejectsBadFilters(t *testing.T) {
	env := newAPIEnv(t)

	cases := []struct {
		name  string
		query string
	}{
		{"unknown sort field", "sortBy=color"},
		{"unknown state", "feedbackState=PENDING"},
		{"unknown sentiment", "sentimentState=MIXED"},
		{"malformed date", "startDate=2026-03-01"},
		{"negative page", "pageNo=-1"},
		{"window inverted", "startDate=10-03-2026&endDate=01-03-2026"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(env.server.URL + "/api/v1/feedback?" + tc.query)
			if err != nil {
				t.Fatalf("Get returned error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", resp.StatusCode)
			}
			errResp := decodeError(t, resp)
			if !strings.Contains(errResp.Message, "invalid filter option") {
				t.Errorf("Expected an invalid filter message, got %q", errResp.Message)
			}
		})
	}
}

func TestListEndpointPaginates(t *testing.T) {
	env := newAPIEnv(t)
	for i := 0; i < 5; i++ {
		f := entities.NewFeedback("kiosk-1", "tok")
		if err := env.feedback.Create(context.Background(), f); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	resp, err := http.Get(env.server.URL + "/api/v1/feedback?pageNo=0&pageSize=2&sortBy=feedbackId&ascending=true")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var page PageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if page.TotalItems != 5 {
		t.Errorf("Expected 5 total items, got %d", page.TotalItems)
	}
	if page.TotalPages != 3 {
		t.Errorf("Expected 3 total pages, got %d", page.TotalPages)
	}
	if len(page.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(page.Items))
	}
}

func TestGetEndpointNotFound(t *testing.T) {
	env := newAPIEnv(t)

	resp, err := http.Get(env.server.URL + "/api/v1/feedback/missing-id")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestGetEndpointHidesFilePath(t *testing.T) {
	env := newAPIEnv(t)
	f := entities.NewFeedback("kiosk-1", "tok")
	f.FilePath = "/var/lib/vofas/feedback_x.mp3"
	if err := env.feedback.Create(context.Background(), f); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	resp, err := http.Get(env.server.URL + "/api/v1/feedback/" + f.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	defer resp.Body.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if _, leaked := raw["file_path"]; leaked {
		t.Error("Expected the storage path to stay internal")
	}
}

func TestProcessEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	resp, err := http.Post(env.server.URL+"/api/v1/feedback/missing-id/process", "application/json", nil)
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown feedback, got %d", resp.StatusCode)
	}
}

func TestKioskAuthAndMint(t *testing.T) {
	env := newAPIEnv(t)
	kiosk := &entities.Kiosk{ID: "kiosk-1", Name: "Lobby", Location: "Main entrance", State: entities.KioskStateActive}
	if err := env.kiosks.Create(context.Background(), kiosk); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := env.kiosks.RegisterSecret("kiosk-1", "s3cret"); err != nil {
		t.Fatalf("RegisterSecret returned error: %v", err)
	}

	authBody, _ := json.Marshal(KioskAuthRequest{KioskID: "kiosk-1", SecretKey: "s3cret"})
	resp, err := http.Post(env.server.URL+"/api/v1/kiosk/auth", "application/json", bytes.NewReader(authBody))
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var authResp KioskAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if authResp.Token == "" {
		t.Fatal("Expected a kiosk JWT")
	}

	req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/kiosk/tokens", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authResp.Token)
	mintResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	defer mintResp.Body.Close()
	if mintResp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", mintResp.StatusCode)
	}

	var minted MintTokenResponse
	if err := json.NewDecoder(mintResp.Body).Decode(&minted); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if minted.Token == "" {
		t.Error("Expected a validation token value")
	}

	stored, err := env.tokens.GetByValue(context.Background(), minted.Token)
	if err != nil {
		t.Fatalf("GetByValue returned error: %v", err)
	}
	if stored.KioskID != "kiosk-1" {
		t.Errorf("Expected the token owned by kiosk-1, got %s", stored.KioskID)
	}
}

func TestMintRequiresKioskToken(t *testing.T) {
	env := newAPIEnv(t)

	resp, err := http.Post(env.server.URL+"/api/v1/kiosk/tokens", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}

	// A non-kiosk token is refused too.
	forged, err := auth.GenerateKioskToken("")
	if err != nil {
		t.Fatalf("GenerateKioskToken returned error: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/kiosk/tokens", bytes.NewReader([]byte("{}")))
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for empty kiosk claim, got %d", resp.StatusCode)
	}
}

func TestStreamEndpointReplaysAndStreams(t *testing.T) {
	env := newAPIEnv(t)

	published := entities.NewFeedback("kiosk-1", "tok")
	published.State = entities.FeedbackStateCompleted
	published.Sentiment = &entities.SentimentResult{Label: entities.SentimentNegative}
	env.broker.Publish(published)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/api/v1/feedback/stream?replay=5", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/event-stream") {
		t.Errorf("Expected event-stream content type, got %s", got)
	}

	scanner := bufio.NewScanner(resp.Body)
	var dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if dataLine == "" {
		t.Fatal("Expected a replayed event on the stream")
	}

	var event FeedbackResponse
	if err := json.Unmarshal([]byte(dataLine), &event); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if event.ID != published.ID {
		t.Errorf("Expected replayed feedback %s, got %s", published.ID, event.ID)
	}
}

func TestStreamEndpointRejectsBadReplay(t *testing.T) {
	env := newAPIEnv(t)

	resp, err := http.Get(env.server.URL + "/api/v1/feedback/stream?replay=soon")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}
