package audio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	ttsRequestTimeout = 10 * time.Second
	defaultTTSURL     = "https://translate.google.com/translate_tts"
	// DefaultTTSRate keeps the unauthenticated endpoint from throttling us
	DefaultTTSRate = rate.Limit(2)
)

// TTSPlayer fetches speech from Google Translate's text-to-speech endpoint,
// caches the MP3 per phrase, and plays it with an external audio player.
// Game prompts repeat constantly so most phrases come from the cache.
type TTSPlayer struct {
	cacheDir string
	lang     string
	player   *CommandPlayer
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
}

// TTSOptions configures a TTSPlayer
type TTSOptions struct {
	CacheDir  string
	Lang      string // e.g. "zh-CN"
	PlayerCmd string // program that plays an MP3 file, e.g. "mpg123"
	BaseURL   string
	RateLimit rate.Limit
}

// NewTTSPlayer creates the cache directory and a throttled client
func NewTTSPlayer(opts TTSOptions) (*TTSPlayer, error) {
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tts cache directory: %w", err)
	}
	if opts.Lang == "" {
		opts.Lang = "zh-CN"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultTTSURL
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = DefaultTTSRate
	}

	t := &TTSPlayer{
		cacheDir: opts.CacheDir,
		lang:     opts.Lang,
		baseURL:  opts.BaseURL,
		client:   &http.Client{Timeout: ttsRequestTimeout},
		limiter:  rate.NewLimiter(opts.RateLimit, 1),
	}
	if opts.PlayerCmd != "" {
		t.player = &CommandPlayer{Name: opts.PlayerCmd}
	}
	return t, nil
}

// Play synthesizes text (or reuses the cached file) and plays it
func (t *TTSPlayer) Play(ctx context.Context, text string) error {
	path, err := t.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if t.player == nil {
		return fmt.Errorf("no audio player configured for %s", path)
	}
	return t.player.Play(ctx, path)
}

// Synthesize returns the path of an MP3 for text, downloading it on first use
func (t *TTSPlayer) Synthesize(ctx context.Context, text string) (string, error) {
	path := filepath.Join(t.cacheDir, t.cacheName(text))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	if err := t.download(ctx, text, path); err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}
	return path, nil
}

// cacheName hashes the phrase so any script maps to a safe filename
func (t *TTSPlayer) cacheName(text string) string {
	sum := sha256.Sum256([]byte(t.lang + "\x00" + text))
	return "tts_" + hex.EncodeToString(sum[:12]) + ".mp3"
}

func (t *TTSPlayer) download(ctx context.Context, text, outputPath string) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", t.lang)
	params.Set("client", "tw-ob")
	params.Set("textlen", strconv.Itoa(len([]rune(text))))

	ctx, cancel := context.WithTimeout(ctx, ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Set user agent (required by Google)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Write next to the target and rename so a failed download never
	// leaves a truncated file in the cache
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".tts-*.part")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to store audio file: %w", err)
	}
	return nil
}

// Prefetch synthesizes phrases ahead of time, stopping at the first error
func (t *TTSPlayer) Prefetch(ctx context.Context, phrases []string) error {
	for _, p := range phrases {
		if _, err := t.Synthesize(ctx, p); err != nil {
			return fmt.Errorf("failed to prefetch %q: %w", p, err)
		}
	}
	return nil
}

// CachedFiles returns the MP3 files currently in the cache directory
func (t *TTSPlayer) CachedFiles() ([]string, error) {
	files, err := os.ReadDir(t.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}

	var audioFiles []string
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".mp3" {
			audioFiles = append(audioFiles, file.Name())
		}
	}
	return audioFiles, nil
}
