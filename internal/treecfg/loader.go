package treecfg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielsvitols/tornado/internal/tree"
)

// Load loads a processing tree from either a single file or a directory,
// auto-detecting the type (teacher: rules.Load).
func Load(path string) (tree.Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		return tree.Node{}, fmt.Errorf("failed to stat rules path: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadFile loads and compiles a single YAML file into a tree.
func LoadFile(path string) (tree.Node, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return tree.Node{}, err
	}
	return Build(cfg)
}

// LoadDir loads and merges every .yaml/.yml file under dirPath,
// recursively, then compiles the merged configuration (teacher:
// rules.LoadRulesDir).
func LoadDir(dirPath string) (tree.Node, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return tree.Node{}, fmt.Errorf("failed to stat rules directory: %w", err)
	}
	if !info.IsDir() {
		return tree.Node{}, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	merged := &RulesConfig{}

	err = filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		cfg, err := parseFile(path)
		if err != nil {
			return err
		}
		merged.Nodes = append(merged.Nodes, cfg.Nodes...)
		return nil
	})
	if err != nil {
		return tree.Node{}, err
	}

	return Build(merged)
}

// ReadContent returns the raw bytes backing the configuration at path, for
// use as a content-hash input (SPEC_FULL §4.10). For a single file this is
// just its bytes; for a directory it is a deterministic concatenation of
// every matched file's path and content, sorted by path, so the hash is
// stable across directory listings and independent of filesystem order.
func ReadContent(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat rules path: %w", err)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
		}
		return data, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var buf bytes.Buffer
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules file %s: %w", f, err)
		}
		buf.WriteString(f)
		buf.WriteByte('\n')
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func parseFile(path string) (*RulesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	var cfg RulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML %s: %w", path, err)
	}
	return &cfg, nil
}
