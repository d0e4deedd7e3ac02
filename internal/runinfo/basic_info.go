// Package runinfo detects CI metadata so artifacts can be traced back to
// the build that produced them.
package runinfo

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var githubPullRefPattern = regexp.MustCompile(`^refs/pull/([0-9]+)/`)

// BasicInfo captures CI metadata.
type BasicInfo struct {
	Provider    string
	Repository  string
	Branch      string
	Commit      string
	RunID       string
	PullRequest string
	BuildURL    string
}

// FromEnv builds run metadata from environment variables. DERIVEFUZZ_CI_*
// values take precedence over provider defaults. It returns nil outside CI.
func FromEnv() *BasicInfo {
	info := detectBase()
	applyOverrides(&info)
	if info.Provider == "" && (info.Repository != "" || info.Commit != "" || info.RunID != "") {
		info.Provider = "generic"
	}
	if info.Provider == "" {
		return nil
	}
	return &info
}

func detectBase() BasicInfo {
	var info BasicInfo
	if isTruthy(env("GITHUB_ACTIONS")) {
		info.Provider = "github_actions"
		info.Repository = env("GITHUB_REPOSITORY")
		info.Branch = envFirst("GITHUB_HEAD_REF", "GITHUB_REF_NAME")
		info.Commit = env("GITHUB_SHA")
		info.RunID = env("GITHUB_RUN_ID")
		info.PullRequest = githubPullRequestFromRef(env("GITHUB_REF"))
		serverURL := env("GITHUB_SERVER_URL")
		if serverURL == "" {
			serverURL = "https://github.com"
		}
		if info.Repository != "" && info.RunID != "" {
			info.BuildURL = strings.TrimRight(serverURL, "/") + "/" + info.Repository + "/actions/runs/" + info.RunID
		}
		return info
	}
	switch {
	case isTruthy(env("GITLAB_CI")):
		info.Provider = "gitlab_ci"
	case isTruthy(env("BUILDKITE")):
		info.Provider = "buildkite"
	case env("JENKINS_URL") != "":
		info.Provider = "jenkins"
	case isTruthy(env("CI")):
		info.Provider = "generic"
	}
	info.Repository = envFirst("CI_PROJECT_PATH", "BUILDKITE_REPO")
	info.Branch = normalizeBranch(envFirst("CI_COMMIT_REF_NAME", "BUILDKITE_BRANCH", "BRANCH_NAME", "GIT_BRANCH"))
	info.Commit = envFirst("CI_COMMIT_SHA", "BUILDKITE_COMMIT", "GIT_COMMIT")
	info.RunID = envFirst("CI_PIPELINE_ID", "BUILDKITE_BUILD_ID", "BUILD_ID")
	info.BuildURL = envFirst("CI_JOB_URL", "BUILDKITE_BUILD_URL", "BUILD_URL")
	return info
}

func applyOverrides(info *BasicInfo) {
	setFromEnv(&info.Provider, "DERIVEFUZZ_CI_PROVIDER")
	setFromEnv(&info.Repository, "DERIVEFUZZ_CI_REPOSITORY")
	setFromEnv(&info.Branch, "DERIVEFUZZ_CI_BRANCH")
	setFromEnv(&info.Commit, "DERIVEFUZZ_CI_COMMIT")
	setFromEnv(&info.RunID, "DERIVEFUZZ_CI_RUN_ID")
	setFromEnv(&info.BuildURL, "DERIVEFUZZ_CI_BUILD_URL")
	info.Provider = strings.ToLower(info.Provider)
}

// Lines renders the metadata as SQL comment lines for artifacts.
func (b *BasicInfo) Lines() []string {
	if b == nil {
		return nil
	}
	fields := []struct{ key, value string }{
		{"provider", b.Provider},
		{"repository", b.Repository},
		{"branch", b.Branch},
		{"commit", b.Commit},
		{"pull_request", b.PullRequest},
		{"run_id", b.RunID},
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.value != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", f.key, f.value))
		}
	}
	out := []string{"-- ci: " + strings.Join(parts, " ")}
	if b.BuildURL != "" {
		out = append(out, "-- build: "+b.BuildURL)
	}
	return out
}

func normalizeBranch(branch string) string {
	branch = strings.TrimPrefix(branch, "refs/heads/")
	return strings.TrimPrefix(branch, "origin/")
}

func githubPullRequestFromRef(ref string) string {
	if m := githubPullRefPattern.FindStringSubmatch(ref); len(m) > 1 {
		return m[1]
	}
	return ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value := env(key); value != "" {
			return value
		}
	}
	return ""
}

func setFromEnv(dst *string, key string) {
	if value := env(key); value != "" {
		*dst = value
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
