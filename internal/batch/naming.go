// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSuffix is appended to the base name of every output file
const DefaultSuffix = "_converted"

// Policy decides what happens when an output path is already taken
type Policy string

const (
	PolicyOverwrite Policy = "overwrite"
	PolicyFail      Policy = "fail"
	PolicyRename    Policy = "rename"
)

// ParsePolicy validates a collision policy name. Empty means overwrite.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PolicyOverwrite, nil
	case PolicyOverwrite, PolicyFail, PolicyRename:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// OutputPath returns dir/B<suffix>.E for input dir/B.E. Dot files such as
// ".clip" have no extension.
func OutputPath(input, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	dir, name := filepath.Split(input)
	ext := filepath.Ext(name)
	if ext == name {
		ext = ""
	}
	return dir + strings.TrimSuffix(name, ext) + suffix + ext
}

// Resolver assigns output paths to the inputs of one batch
type Resolver struct {
	Suffix string
	Policy Policy

	exists func(string) bool
	taken  map[string]bool
}

// NewResolver creates a Resolver that checks the file system for collisions
func NewResolver(suffix string, policy Policy) *Resolver {
	return &Resolver{
		Suffix: suffix,
		Policy: policy,
		exists: fileExists,
		taken:  make(map[string]bool),
	}
}

// Resolve returns the output path for input. With PolicyFail a taken path is
// returned together with ErrOutputExists.
func (r *Resolver) Resolve(input string) (string, error) {
	out := OutputPath(input, r.Suffix)

	switch r.Policy {
	case PolicyFail:
		if r.isTaken(out) {
			return out, fmt.Errorf("%w: %s", ErrOutputExists, out)
		}
	case PolicyRename:
		base := strings.TrimSuffix(out, extOf(out))
		ext := extOf(out)
		for n := 1; r.isTaken(out); n++ {
			out = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
	}

	r.taken[out] = true
	return out, nil
}

func (r *Resolver) isTaken(path string) bool {
	return r.taken[path] || r.exists(path)
}

func extOf(path string) string {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if ext == name {
		return ""
	}
	return ext
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// NewJobs builds the pending jobs of a batch in input order
func NewJobs(inputs []Input, resolver *Resolver) []Job {
	jobs := make([]Job, len(inputs))
	for i, in := range inputs {
		out, err := resolver.Resolve(in.Path)
		jobs[i] = Job{
			Index:      i,
			InputPath:  in.Path,
			OutputPath: out,
			SizeBytes:  in.SizeBytes,
			Status:     StatusPending,
			preset:     err,
		}
	}
	return jobs
}
