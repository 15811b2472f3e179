// Package hcl_adapter implements config.Loader for launcher.hcl files.
package hcl_adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/launcher/internal/config"
	"github.com/specialistvlad/launcher/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	home   string
	exeDir string
	env    func() []string
}

// NewLoader creates a new HCL configuration loader. home and exeDir are
// exposed to expressions as the home and exe_dir variables.
func NewLoader(home, exeDir string) *Loader {
	return &Loader{home: home, exeDir: exeDir, env: os.Environ}
}

// Load decodes the file at path over config.Default. A missing file yields
// the defaults unchanged.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := config.Default(l.home)

	if path == "" {
		logger.Debug("No config file given, using defaults.")
		return model, nil
	}
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("Config file not found, using defaults.", "path", path)
		return model, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filepath.Base(path))
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, l.evalContext(), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	if err := translate(&root, model); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	logger.Debug("HCL loading complete.", "path", path, "data_dir", model.DataDir, "dev_mode", model.DevMode)
	return model, nil
}

func (l *Loader) evalContext() *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, kv := range l.env() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				if i > 0 {
					env[kv[:i]] = cty.StringVal(kv[i+1:])
				}
				break
			}
		}
	}
	envVal := cty.EmptyObjectVal
	if len(env) > 0 {
		envVal = cty.ObjectVal(env)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"home":    cty.StringVal(l.home),
			"exe_dir": cty.StringVal(l.exeDir),
			"env":     envVal,
		},
	}
}
