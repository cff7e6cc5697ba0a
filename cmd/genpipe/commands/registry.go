package commands

import (
	"github.com/teranos/genpipe/pipeline"
	"github.com/teranos/genpipe/targets/markdown"
	"github.com/teranos/genpipe/targets/typescript"
	"github.com/teranos/genpipe/version"
)

// builtinTargets are registered in every genpipe binary.
var builtinTargets = []func() pipeline.Target{
	typescript.Target,
	markdown.Target,
}

// newRegistry returns the registry of built-in targets, gated on this
// binary's version.
func newRegistry() (*pipeline.Registry, error) {
	reg := pipeline.NewRegistry(version.Get().Version)
	for _, target := range builtinTargets {
		if err := reg.Register(target()); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
