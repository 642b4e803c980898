// internal/xslt/processor.go
//
// XSLT transformer adapter.
//
// Context
// -------
// The provider treats XSLT as a black box: transform(xml, stylesheet).
// Processor implements it by piping the record through an external
// processor (xsltproc by default) with the stylesheet materialised on
// disk.  Stylesheet files are cached in an expiring LRU keyed by
// stylesheet id; eviction removes the file.  Concurrent misses for the same
// stylesheet are collapsed with singleflight.
//
// Workflow
// --------
//  1. p, _ := xslt.New(cfg.XSLT, store.Stylesheets, log)
//  2. out, err := p.Transform(ctx, xml, mapping.StylesheetID)
//
// Notes
// -----
//   - Each call is bounded by cfg.Timeout on top of the caller's context.
//   - The runner is injectable so tests never fork a process.
package xslt

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/oairepo/internal/cache"
	"github.com/yanizio/oairepo/internal/config"
	"github.com/yanizio/oairepo/internal/metrics"
	"github.com/yanizio/oairepo/internal/model"
)

// Stylesheets loads stylesheet content by id.
type Stylesheets interface {
	Get(ctx context.Context, id int64) (model.Stylesheet, error)
}

// Runner executes binary with args, feeding stdin, and returns stdout.
type Runner func(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error)

// Processor is safe for concurrent use.
type Processor struct {
	binary  string
	dir     string
	timeout time.Duration
	sheets  Stylesheets
	run     Runner
	log     *zap.SugaredLogger

	sfg   singleflight.Group
	files *cache.LRU[int64, string]
}

// New prepares the work directory and returns a Processor running
// cfg.Binary.  An empty cfg.WorkDir selects a fresh temporary directory.
func New(cfg config.XSLT, sheets Stylesheets, log *zap.SugaredLogger) (*Processor, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	dir := cfg.WorkDir
	if dir == "" {
		d, err := os.MkdirTemp("", "oai-xslt-")
		if err != nil {
			return nil, fmt.Errorf("xslt: work dir: %w", err)
		}
		dir = d
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("xslt: work dir: %w", err)
	}

	p := &Processor{
		binary:  cfg.Binary,
		dir:     dir,
		timeout: cfg.Timeout,
		sheets:  sheets,
		run:     execRunner,
		log:     log,
	}
	p.files = cache.New[int64, string]("xslt_stylesheet", cfg.CacheSize, cfg.CacheTTL,
		func(id int64, path string) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				p.log.Warnw("stylesheet file cleanup failed", "stylesheet", id, "err", err)
			}
		})
	return p, nil
}

// WithRunner replaces the process runner.  Used by tests.
func (p *Processor) WithRunner(r Runner) *Processor {
	p.run = r
	return p
}

// Transform applies stylesheet stylesheetID to xml.
func (p *Processor) Transform(ctx context.Context, xml []byte, stylesheetID int64) ([]byte, error) {
	path, err := p.sheetPath(ctx, stylesheetID)
	if err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := p.run(ctx, p.binary, []string{"--nonet", path, "-"}, xml)
	metrics.TransformDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("xslt: stylesheet %d: %w", stylesheetID, err)
	}
	return out, nil
}

// Invalidate forgets the cached file for a stylesheet.
func (p *Processor) Invalidate(stylesheetID int64) { p.files.Remove(stylesheetID) }

// Close removes every cached stylesheet file.
func (p *Processor) Close() { p.files.Purge() }

func (p *Processor) sheetPath(ctx context.Context, id int64) (string, error) {
	if path, ok := p.files.Get(id); ok {
		return path, nil
	}
	v, err, _ := p.sfg.Do(strconv.FormatInt(id, 10), func() (any, error) {
		// The load is shared by every coalesced caller, so one caller
		// cancelling must not fail the others.
		lctx := context.WithoutCancel(ctx)
		if p.timeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(lctx, p.timeout)
			defer cancel()
		}
		sh, err := p.sheets.Get(lctx, id)
		if err != nil {
			return "", fmt.Errorf("xslt: load stylesheet %d: %w", id, err)
		}
		sum := sha256.Sum256([]byte(sh.Content))
		path := filepath.Join(p.dir, fmt.Sprintf("%d-%s.xsl", id, hex.EncodeToString(sum[:6])))
		if err := os.WriteFile(path, []byte(sh.Content), 0o640); err != nil {
			return "", fmt.Errorf("xslt: write stylesheet %d: %w", id, err)
		}
		p.files.Add(id, path)
		p.log.Debugw("stylesheet cached", "stylesheet", id, "name", sh.Name, "path", path)
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// execRunner forks binary and returns its stdout.  Stderr is folded into
// the error.
func execRunner(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", binary, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
