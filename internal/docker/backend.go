// SPDX-License-Identifier: Apache-2.0

// Package docker shells out to the docker CLI for image builds, tagging and
// pushes. Commands run under the caller's context so a cancellation actually
// aborts the external process.
package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dbuild-io/dbuild/internal/output"
)

// MinVersion is the oldest docker client this tool supports.
const MinVersion = "1.13.0"

var reBuildStep = regexp.MustCompile(`^Step (\d+)/(\d+) : ([A-Z]+)(.*)$`)

// BuildOptions configures one image build.
type BuildOptions struct {
	// Dir is the build context directory.
	Dir string

	// Tag is the primary image reference the build produces.
	Tag string

	// BuildArgs are passed as --build-arg key=value.
	BuildArgs map[string]string

	// OnStep is called for every "Step i/N" line of the build output.
	OnStep func(step, total int, instruction, snippet string)

	// OnLine is called for every line of the build output.
	OnLine func(line string)

	// LogWriter additionally receives the raw build output.
	LogWriter io.Writer
}

// Backend is the container backend edge the verbs depend on.
type Backend interface {
	// VerifyVersion fails when the installed client is older than MinVersion.
	VerifyVersion(ctx context.Context) error

	// Build builds the image described by opts.
	Build(ctx context.Context, opts BuildOptions) error

	// Tag applies an additional reference to an already-built image.
	Tag(ctx context.Context, source, target string) error

	// Push uploads one complete image reference.
	Push(ctx context.Context, image string) error
}

// VersionError reports a docker client below the supported minimum.
type VersionError struct {
	Installed string
	Minimum   string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("installed docker version %s does not meet requirement >= %s",
		e.Installed, e.Minimum)
}

// CLI is a Backend driving the docker binary.
type CLI struct {
	binary string
}

// NewCLI returns a Backend using the docker binary from PATH.
func NewCLI() *CLI {
	return &CLI{binary: "docker"}
}

// ClientVersion returns the installed docker client version string.
func (c *CLI) ClientVersion(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, "version", "-f", "{{.Client.Version}}")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker version failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// VerifyVersion implements Backend.
func (c *CLI) VerifyVersion(ctx context.Context) error {
	installed, err := c.ClientVersion(ctx)
	if err != nil {
		return err
	}

	if compareVersions(installed, MinVersion) < 0 {
		return &VersionError{Installed: installed, Minimum: MinVersion}
	}

	output.Debug("docker version meets requirement", "installed", installed, "minimum", MinVersion)
	return nil
}

// Build implements Backend. Build output is scanned line by line; step
// markers drive the OnStep callback.
func (c *CLI) Build(ctx context.Context, opts BuildOptions) error {
	args := []string{"build", "--rm", "-t", opts.Tag}
	for _, k := range sortedKeys(opts.BuildArgs) {
		args = append(args, "--build-arg", k+"="+opts.BuildArgs[k])
	}
	args = append(args, opts.Dir)

	output.Debug("running docker", "args", args)

	cmd := exec.CommandContext(ctx, c.binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("error opening build output pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting docker build: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if opts.OnLine != nil {
			opts.OnLine(line)
		}
		if opts.LogWriter != nil {
			fmt.Fprintln(opts.LogWriter, line)
		}

		if m := reBuildStep.FindStringSubmatch(line); m != nil && opts.OnStep != nil {
			step, _ := strconv.Atoi(m[1])
			total, _ := strconv.Atoi(m[2])
			snippet := strings.TrimSpace(m[4])
			if len(snippet) > 20 {
				snippet = snippet[:20]
			}
			opts.OnStep(step, total, m[3], snippet)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("docker build failed: %w (%s)", err, lastLines(stderr.String(), 3))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading build output: %w", err)
	}

	return nil
}

// Tag implements Backend.
func (c *CLI) Tag(ctx context.Context, source, target string) error {
	return c.run(ctx, "tag", source, target)
}

// Push implements Backend.
func (c *CLI) Push(ctx context.Context, image string) error {
	return c.run(ctx, "push", image)
}

func (c *CLI) run(ctx context.Context, args ...string) error {
	output.Debug("running docker", "args", args)

	cmd := exec.CommandContext(ctx, c.binary, args...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker %s failed: %w (%s)", args[0], err, lastLines(buf.String(), 3))
	}

	return nil
}

// compareVersions orders dotted numeric version strings. Non-numeric
// trailers (e.g. "-ce") are ignored; docker versions are not semver, so no
// release library fits here.
func compareVersions(a, b string) int {
	as := versionSegments(a)
	bs := versionSegments(b)

	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}

		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}

	return 0
}

func versionSegments(v string) []int {
	v, _, _ = strings.Cut(v, "-")

	var segments []int
	for _, part := range strings.Split(v, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		segments = append(segments, n)
	}

	return segments
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " / ")
}
