// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// license checks or adds the license header of all source files of the
// repository.
//
// Run using
//
//	go run ./scripts/license check <dir>
//	go run ./scripts/license fix <dir>
package main

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
)

//go:embed license_header.txt
var licenseHeader string

// prefixes maps file extensions, or names for files without extension, to
// the comment prefix used for the header.
var prefixes = map[string]string{
	".go":    "//",
	".yml":   "#",
	".yaml":  "#",
	"go.mod": "//",
}

// ignored lists path fragments of files not carrying a header.
var ignored = []string{"/_examples/", "/testdata/", "/.git/"}

var (
	ErrMissingHeader = errors.New("missing or incorrect license header")
	ErrDoubleHeader  = errors.New("double license header")
)

func main() {
	app := &cli.App{
		Name:  "license",
		Usage: "check or add license headers",
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "report files lacking the license header",
				ArgsUsage: "<dir>",
				Action:    func(context *cli.Context) error { return run(context, false) },
			},
			{
				Name:      "fix",
				Usage:     "add the license header to all files lacking it",
				ArgsUsage: "<dir>",
				Action:    func(context *cli.Context) error { return run(context, true) },
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(context *cli.Context, fix bool) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing directory parameter")
	}
	files, err := collectFiles(context.Args().Get(0))
	if err != nil {
		return err
	}
	var issues []error
	for _, file := range files {
		if err := processFile(file.path, addPrefix(licenseHeader, file.prefix), file.prefix, fix); err != nil {
			fmt.Fprintln(context.App.Writer, err)
			issues = append(issues, err)
		}
	}
	return errors.Join(issues...)
}

type sourceFile struct {
	path   string
	prefix string
}

func collectFiles(dir string) ([]sourceFile, error) {
	var res []sourceFile
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || shouldIgnore(path) {
			return nil
		}
		prefix, found := prefixes[filepath.Ext(path)]
		if !found {
			prefix, found = prefixes[filepath.Base(path)]
		}
		if found {
			res = append(res, sourceFile{path: path, prefix: prefix})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}
	return res, nil
}

func shouldIgnore(path string) bool {
	path = filepath.ToSlash(path)
	for _, fragment := range ignored {
		if strings.Contains(path, fragment) || strings.HasPrefix(path, fragment[1:]) {
			return true
		}
	}
	return false
}

// processFile checks the header of the given file and, if requested, adds a
// missing header. Outdated headers of the same owner are replaced.
func processFile(path, header, prefix string, fix bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if bytes.HasPrefix(content, []byte(header)) {
		rest := content[len(header):]
		if bytes.Contains(rest, []byte(prefix+" Copyright")) {
			return fmt.Errorf("%w: %s", ErrDoubleHeader, path)
		}
		return nil
	}
	if !fix {
		return fmt.Errorf("%w: %s", ErrMissingHeader, path)
	}

	lines := strings.Split(string(content), "\n")
	if strings.Contains(lines[0], "Sonic Operations Ltd") {
		for i, line := range lines {
			if strings.TrimSpace(line) == "" {
				content = []byte(strings.Join(lines[i+1:], "\n"))
				break
			}
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(header+"\n"), content...), info.Mode().Perm())
}

func addPrefix(license, prefix string) string {
	var buf bytes.Buffer
	s := bufio.NewScanner(strings.NewReader(license))
	for s.Scan() {
		line := s.Text()
		if line == "" {
			buf.WriteString(prefix + "\n")
		} else {
			buf.WriteString(prefix + " " + line + "\n")
		}
	}
	return buf.String()
}
