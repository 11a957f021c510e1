package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/fsutil"
)

const hclExt = ".hcl"

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and merges the task manifests and
// nodes into one model. Any block may appear in any file. Paths that do not
// exist are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.NewModel()
	parser := hclparse.NewParser()
	seenNodes := make(map[string]string)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range root.Tasks {
			def, err := l.translateTask(ctx, block)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			if _, dup := model.Tasks[def.Name]; dup {
				return nil, nil, fmt.Errorf("%s: task '%s' is declared more than once", file, def.Name)
			}
			model.Tasks[def.Name] = def
		}
		for _, block := range root.Nodes {
			if prev, dup := seenNodes[block.Name]; dup {
				return nil, nil, fmt.Errorf("%s: node '%s' is already declared in %s", file, block.Name, prev)
			}
			seenNodes[block.Name] = file
			n, err := l.translateNode(ctx, block)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Workflow.Nodes = append(model.Workflow.Nodes, n)
		}
	}

	logger.Debug("HCL loading complete.", "tasks", len(model.Tasks), "nodes", len(model.Workflow.Nodes))
	return model, NewConverter(), nil
}

// findAllHCLFiles returns every .hcl file under paths, each once, in a stable
// order: paths in the given order, files within a directory sorted.
func findAllHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == hclExt {
				add(path)
			}
			continue
		}

		found, err := fsutil.FindFilesByExtension(path, hclExt)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", path, err)
		}
		for _, f := range found {
			add(f)
		}
	}
	return all, nil
}
