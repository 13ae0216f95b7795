// Command audioclient posts a WAV file to the proxy for transcription.
// Useful for manual end-to-end checks against a running instance.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ai-speech-proxy-service/internal/service/audio"
)

func main() {
	audioFile := flag.String("audio", "testdata/sample.wav", "Path to WAV file")
	serverURL := flag.String("server", "http://localhost:8100", "Proxy base URL")
	token := flag.String("token", "", "Bearer token (API key)")
	model := flag.String("model", "whisper-1", "Model name")
	srt := flag.Bool("srt", false, "Request SRT output")
	flag.Parse()

	if *token == "" {
		log.Fatal("missing -token")
	}

	info, err := audio.Probe(*audioFile)
	if err != nil {
		log.Fatalf("Failed to probe WAV file: %v", err)
	}
	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d duration=%.1fs",
		info.AudioFormat, info.NumChannels, info.SampleRate, info.BitsPerSample, info.Duration())

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(*audioFile))
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		log.Fatalf("Failed to read audio: %v", err)
	}
	_ = w.WriteField("model", *model)
	if *srt {
		_ = w.WriteField("srt_format", "true")
	}
	if err := w.Close(); err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *serverURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+*token)

	client := &http.Client{Timeout: 5 * time.Minute}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	log.Printf("Status: %d (took %v)", resp.StatusCode, time.Since(start).Round(time.Millisecond))
	fmt.Println(string(body))
}
