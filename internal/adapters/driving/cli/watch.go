package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/logger"
)

var (
	watchDebounce time.Duration
	watchNoIndex  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild chunks and the index when sources change",
	Long: `Watches every file and directory source. After changes settle for the
debounce interval, the affected sources are re-chunked and the index is
rebuilt incrementally. A ready index keeps its model and source scope, and a
source-scoped index is only rebuilt when its source changed. Paste sources
are not watched.

Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 750*time.Millisecond, "quiet period before rebuilding")
	watchCmd.Flags().BoolVar(&watchNoIndex, "no-index", false, "only rebuild chunks")
	rootCmd.AddCommand(watchCmd)
}

// watchTarget maps a watched directory to the sources it affects. A file
// source watches its parent directory filtered to its own name.
type watchTarget struct {
	dir       string
	fileName  string
	sourceIDs []string
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if evidenceService == nil {
		return notConfigured("evidence")
	}
	if !watchNoIndex && indexService == nil {
		return notConfigured("index")
	}
	ctx := cmd.Context()

	sources, err := evidenceService.ListSources(ctx)
	if err != nil {
		return err
	}
	targets := watchTargets(sources)
	if len(targets) == 0 {
		return domain.ErrEvidenceEmpty.WithDetails("no file or directory sources to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dirs := map[string]bool{}
	for _, t := range targets {
		if dirs[t.dir] {
			continue
		}
		if err := watcher.Add(t.dir); err != nil {
			return fmt.Errorf("watch %s: %w", t.dir, err)
		}
		dirs[t.dir] = true
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %d directories for %d sources. Press Ctrl-C to stop.\n", len(dirs), len(sources))

	err = watchLoop(ctx, watcher.Events, watcher.Errors, targets, watchDebounce, func(ctx context.Context, ids []string) error {
		return rebuild(ctx, cmd, ids)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func rebuild(ctx context.Context, cmd *cobra.Command, sourceIDs []string) error {
	out := cmd.OutOrStdout()
	total := 0
	for _, id := range sourceIDs {
		result, err := evidenceService.BuildChunks(ctx, id, now())
		if err != nil {
			return err
		}
		total += result.ChunkCount
	}
	fmt.Fprintf(out, "Rebuilt %d chunks for %d changed sources.\n", total, len(sourceIDs))

	if watchNoIndex {
		return nil
	}
	model, scope, err := rebuildScope(ctx)
	if err != nil {
		return err
	}
	if scope != "" && !slices.Contains(sourceIDs, scope) {
		fmt.Fprintf(out, "Index is scoped to source %s; no rebuild needed.\n", scope)
		return nil
	}
	status, err := indexService.Build(ctx, domain.IndexBuildInput{Model: model, SourceID: scope, UpdatedAt: now()})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Indexed %d/%d chunks.\n", status.ChunkCount, status.ChunksTotal)
	return nil
}

// rebuildScope returns the model and source scope of the ready index, or the
// configured model over all sources when no index is ready.
func rebuildScope(ctx context.Context) (model, sourceID string, err error) {
	current, err := indexService.Status(ctx)
	if err != nil {
		return "", "", err
	}
	if current != nil && current.Ready {
		return current.Model, current.SourceID, nil
	}
	model, err = embeddingModel()
	return model, "", err
}

// watchTargets groups file and directory sources by watched directory.
func watchTargets(sources []domain.EvidenceSource) []watchTarget {
	byKey := map[string]*watchTarget{}
	var keys []string
	for i := range sources {
		src := &sources[i]
		if src.Origin.Path == nil {
			continue
		}
		var dir, name string
		switch src.Origin.Kind {
		case domain.OriginKindFile:
			dir, name = filepath.Dir(*src.Origin.Path), filepath.Base(*src.Origin.Path)
		case domain.OriginKindDirectory:
			dir = filepath.Clean(*src.Origin.Path)
		default:
			continue
		}
		key := dir + "\x00" + name
		t, ok := byKey[key]
		if !ok {
			t = &watchTarget{dir: dir, fileName: name}
			byKey[key] = t
			keys = append(keys, key)
		}
		t.sourceIDs = append(t.sourceIDs, src.ID)
	}

	sort.Strings(keys)
	targets := make([]watchTarget, 0, len(keys))
	for _, k := range keys {
		targets = append(targets, *byKey[k])
	}
	return targets
}

// affectedSources returns the sources touched by a change to path.
func affectedSources(targets []watchTarget, path string) []string {
	dir, name := filepath.Dir(path), filepath.Base(path)
	var ids []string
	for _, t := range targets {
		if t.dir != dir {
			continue
		}
		if t.fileName == "" || t.fileName == name {
			ids = append(ids, t.sourceIDs...)
		}
	}
	return ids
}

// watchLoop collects changed sources from events and calls rebuild once no
// event has arrived for the debounce interval. Rebuild errors are logged
// and watching continues.
func watchLoop(
	ctx context.Context,
	events <-chan fsnotify.Event,
	errs <-chan error,
	targets []watchTarget,
	debounce time.Duration,
	rebuild func(ctx context.Context, sourceIDs []string) error,
) error {
	pending := map[string]bool{}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			ids := affectedSources(targets, ev.Name)
			if len(ids) == 0 {
				continue
			}
			logger.Debug("Change detected: %s %s", ev.Op, ev.Name)
			for _, id := range ids {
				pending[id] = true
			}
			timer.Reset(debounce)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			ids := make([]string, 0, len(pending))
			for id := range pending {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			pending = map[string]bool{}
			if err := rebuild(ctx, ids); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("Rebuild failed: %v", err)
			}
		}
	}
}
