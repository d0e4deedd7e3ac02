package runner

import (
	"context"
	"fmt"
	"strings"

	"derivefuzz/internal/oracle"
	"derivefuzz/internal/report"
	"derivefuzz/internal/result"
	"derivefuzz/internal/util"
)

func (r *Runner) logDivergence(base, derived result.Result) {
	util.Errorf("------------------------------------------------- %s", r.artifactName("test", ""))
	util.Errorf("origin: %s", base.SQL)
	util.Errorf("dest: %s", derived.SQL)
	for _, line := range base.Lines() {
		util.Errorf("%s", line)
	}
	for _, line := range derived.Lines() {
		util.Errorf("%s", line)
	}
}

func (r *Runner) crash(ctx context.Context, run *iterationRun, pair oracle.Pair, err error) {
	r.stats.Crashes.Add(1)
	util.Errorf("SQL execution error in loop %d: %v", run.loop, err)
	details := []string{"-- crash: " + oneLine(err.Error())}
	lines := append(run.artifactLines(details), pair.Base, pair.Derived)
	r.write(ctx, run, r.artifactName("crash_test", "_error"), lines)
}

func (r *Runner) export(ctx context.Context, run *iterationRun, name string, details []string) {
	r.write(ctx, run, name, run.artifactLines(details))
}

func (r *Runner) write(ctx context.Context, run *iterationRun, name string, lines []string) {
	if r.writer == nil {
		return
	}
	path, err := r.writer.Write(ctx, report.Artifact{
		Op:        run.shape.Op,
		TestCount: run.shape.TestCount,
		Name:      name,
		Lines:     lines,
	})
	if err != nil {
		util.Warnf("write artifact %s failed: %v", name, err)
		return
	}
	util.Highlightf("artifact written to %s", path)
}

// exportFatal writes the in-flight iteration after a fatal error.
func (r *Runner) exportFatal(err error) {
	run := r.current
	if run == nil || len(run.original) == 0 {
		return
	}
	details := []string{"-- main error: " + oneLine(err.Error())}
	name := fmt.Sprintf("crash_test_%s_main_error", r.target)
	if r.workers > 1 {
		name = fmt.Sprintf("crash_test_%s_w%d_main_error", r.target, r.worker)
	}
	r.write(context.Background(), run, name, run.artifactLines(details))
}

func (r *Runner) databaseName() string {
	if r.workers > 1 {
		return fmt.Sprintf("w%d_database%d", r.worker, r.loop)
	}
	return fmt.Sprintf("database%d", r.loop)
}

func (r *Runner) artifactName(prefix, suffix string) string {
	if r.workers > 1 {
		return fmt.Sprintf("%s_%s_w%d_%d%s", prefix, r.target, r.worker, r.loop, suffix)
	}
	return fmt.Sprintf("%s_%s_%d%s", prefix, r.target, r.loop, suffix)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
