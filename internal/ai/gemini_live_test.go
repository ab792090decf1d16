package ai

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGeminiCompleteJSONLive calls the real API. It runs only when
// GEMINI_API_KEY is set in the environment or a .env file up the tree.
func TestGeminiCompleteJSONLive(t *testing.T) {
	loadDotEnv(t)
	key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if key == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := NewGeminiProvider(ctx, key, os.Getenv("VIBE_AI_MODEL"))
	require.NoError(t, err)
	t.Cleanup(p.Close)

	var out struct {
		Picks []string `json:"picks"`
		Mood  string   `json:"mood"`
	}
	err = p.CompleteJSON(ctx, JSONRequest{
		System: "You pick venue ids from the list you are given. Never invent ids.",
		User:   `{"vibe":"quiet rainy afternoon","ids":["museum-1","spa-2","trail-3"]}`,
		Schema: Object(map[string]*Schema{
			"picks": ArrayOf(String("venue id from the input")),
			"mood":  Enum("overall energy", "chill", "medium", "high"),
		}, "picks", "mood"),
		Temperature: 0.2,
	}, &out)
	require.NoError(t, err)
	t.Logf("[TEST LOG] Gemini picks=%v mood=%s", out.Picks, out.Mood)

	require.NotEmpty(t, out.Picks)
	for _, id := range out.Picks {
		assert.Contains(t, []string{"museum-1", "spa-2", "trail-3"}, id)
	}
	assert.Contains(t, []string{"chill", "medium", "high"}, out.Mood)
}

func loadDotEnv(t *testing.T) {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		return
	}
	path := ""
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if path == "" {
		return
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, set := os.LookupEnv(k); set {
			continue
		}
		t.Setenv(k, strings.TrimSpace(v))
	}
}
