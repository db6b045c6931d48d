package briefing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/mailbrief/internal/model"
)

// Renderer turns a briefing result into an artifact (an image, an HTML
// page, a report) and returns the artifact path. Renderers are external
// collaborators: they consume the result and must not feed a mutated copy
// back into the pipeline.
type Renderer interface {
	Render(ctx context.Context, result model.BriefingResult) (string, error)
}

// Render invokes r under a bounded timeout. The pipeline never blocks on
// a renderer beyond this bound, even if the renderer ignores its context.
func Render(
	ctx context.Context,
	r Renderer,
	result model.BriefingResult,
	timeout time.Duration,
) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type renderOutcome struct {
		path string
		err  error
	}

	done := make(chan renderOutcome, 1)
	go func() {
		path, err := r.Render(ctx, result)
		done <- renderOutcome{path: path, err: err}
	}()

	select {
	case out := <-done:
		return out.path, out.err
	case <-ctx.Done():
		return "", fmt.Errorf("rendering briefing: %w", ctx.Err())
	}
}

// JSONRenderer writes the briefing as a JSON document, the structured
// form every downstream renderer consumes.
type JSONRenderer struct {
	// Path is the output file location.
	Path string
}

// Render serializes the briefing to JSON and writes it via a temp file
// and rename, so a crash mid-write never leaves a partial artifact.
func (r *JSONRenderer) Render(
	_ context.Context, result model.BriefingResult,
) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling briefing: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(r.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".briefing-*.json")
	if err != nil {
		return "", fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing artifact: %w", err)
	}

	if err := os.Rename(tmpName, r.Path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("committing artifact %s: %w", r.Path, err)
	}

	return r.Path, nil
}
