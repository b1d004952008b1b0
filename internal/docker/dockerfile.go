// SPDX-License-Identifier: Apache-2.0

package docker

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var reRebuildArg = regexp.MustCompile(`^REBUILD_([A-Z_]+)=.+$`)

// Instruction is one Dockerfile instruction with its (continuation-joined)
// value.
type Instruction struct {
	Cmd   string
	Value string
}

// Dockerfile is a minimally parsed build recipe: enough structure for
// progress totals and rebuild-target discovery.
type Dockerfile struct {
	Instructions []Instruction
}

// LoadDockerfile parses the module's build recipe.
func LoadDockerfile(basePath, module string) (*Dockerfile, error) {
	path := filepath.Join(basePath, module, "Dockerfile")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	defer f.Close()

	var (
		instructions []Instruction
		pending      string
	)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			pending += strings.TrimSuffix(line, "\\") + " "
			continue
		}

		full := pending + line
		pending = ""

		cmd, value, _ := strings.Cut(full, " ")
		instructions = append(instructions, Instruction{
			Cmd:   strings.ToUpper(cmd),
			Value: strings.TrimSpace(value),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	return &Dockerfile{Instructions: instructions}, nil
}

// Steps is the number of instructions, which is also the number of "Step
// i/N" markers a build emits.
func (d *Dockerfile) Steps() int {
	return len(d.Instructions)
}

// RebuildTargets lists the cache-invalidation hooks the recipe declares via
// the ARG REBUILD_<NAME>=... convention, lowercased.
func (d *Dockerfile) RebuildTargets() []string {
	var targets []string

	for _, ins := range d.Instructions {
		if ins.Cmd != "ARG" {
			continue
		}

		if m := reRebuildArg.FindStringSubmatch(ins.Value); m != nil {
			targets = append(targets, strings.ToLower(m[1]))
		}
	}

	return targets
}
