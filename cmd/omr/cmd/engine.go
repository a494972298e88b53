package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/omr/internal/config"
	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/template"
)

var errNoTemplate = errors.New("no template: pass --template or set template in the config file")

// loadEngine builds the engine of the configured template.
func loadEngine(cfg *config.Config, progress engine.Progress) (*engine.Engine, error) {
	if cfg.Template == "" {
		return nil, errNoTemplate
	}
	scan, err := template.Load(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", cfg.Template, err)
	}
	e, err := engine.New(scan, cfg.ToEngineConfig(), engine.Options{Progress: progress})
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", cfg.Template, err)
	}
	slog.Debug("Engine ready", "template", cfg.Template, "pages", len(scan.Pages))
	return e, nil
}

// loadOptionalEngine is loadEngine for commands that also accept layouts at
// request time; it returns nil without a configured template.
func loadOptionalEngine(cfg *config.Config) (*engine.Engine, error) {
	if cfg.Template == "" {
		return nil, nil
	}
	return loadEngine(cfg, nil)
}
