package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/germanamz/dialogue/pkg/ensemble"
	"github.com/germanamz/dialogue/pkg/policy"
	"github.com/germanamz/dialogue/pkg/ted"
	"github.com/germanamz/dialogue/pkg/warnings"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

type command struct {
	summary string
	// setup registers command-specific flags and returns the command body.
	setup func(fs *flag.FlagSet) func(*env) error
}

var commands = map[string]command{
	"list": {
		summary: "List registered policies",
		setup:   func(*flag.FlagSet) func(*env) error { return runList },
	},
	"validate": {
		summary: "Build every policy in a configuration file",
		setup:   func(*flag.FlagSet) func(*env) error { return runValidate },
	},
	"show": {
		summary: "Print the resolved configuration of every policy",
		setup:   func(*flag.FlagSet) func(*env) error { return runShow },
	},
	"diff": {
		summary: "Show how every policy's configuration differs from the defaults",
		setup:   func(*flag.FlagSet) func(*env) error { return runDiff },
	},
	"persist": {
		summary: "Write policy metadata to a directory",
		setup: func(fs *flag.FlagSet) func(*env) error {
			out := fs.String("out", "models", "directory to write policy metadata to")
			return func(e *env) error { return runPersist(e, *out) }
		},
	},
}

func buildEnsemble(e *env) (*ensemble.Ensemble, error) {
	cfg, err := ensemble.LoadConfig(e.configPath)
	if err != nil {
		return nil, err
	}

	return ensemble.New(context.Background(), cfg,
		ensemble.WithRegistry(e.registry),
		ensemble.WithEmitter(e.emitter),
		ensemble.WithLogger(e.log),
	)
}

func runList(e *env) error {
	for _, entry := range e.registry.List() {
		line := nameStyle.Width(20).Render(entry.Name) + " " + dimStyle.Render(entry.Description)
		if entry.Deprecated {
			line += " " + deprecatedStyle.Render(fmt.Sprintf("(deprecated, use %s)", entry.Replacement))
		}
		fmt.Fprintln(e.out, line)
	}

	return nil
}

func runValidate(e *env) error {
	sub := e.emitter.Subscribe(64)
	defer e.emitter.Unsubscribe(sub)

	ens, err := buildEnsemble(e)
	if err != nil {
		return err
	}

	for _, m := range ens.Members() {
		name := m.ConfiguredName
		if name != m.Policy.Name() {
			name += " -> " + m.Policy.Name()
		}
		fmt.Fprintf(e.out, "%s %s\n",
			nameStyle.Width(32).Render(name),
			dimStyle.Render(fmt.Sprintf("priority %d", m.Policy.Priority())),
		)
	}

	fmt.Fprintf(e.out, "%d policies OK, %d warnings\n", len(ens.Members()), drain(sub))

	return nil
}

// drain counts the warnings already delivered to sub without blocking.
func drain(sub *warnings.Subscription) int {
	n := 0
	for {
		select {
		case <-sub.C:
			n++
		default:
			return n
		}
	}
}

type shownPolicy struct {
	Name       string         `yaml:"name"`
	Policy     string         `yaml:"policy"`
	Priority   int            `yaml:"priority"`
	Featurizer string         `yaml:"featurizer"`
	MaxHistory *int           `yaml:"max_history,omitempty"`
	Config     map[string]any `yaml:"config,omitempty"`
}

func runShow(e *env) error {
	ens, err := buildEnsemble(e)
	if err != nil {
		return err
	}

	shown := make([]shownPolicy, 0, len(ens.Members()))
	for _, m := range ens.Members() {
		sp := shownPolicy{
			Name:       m.ConfiguredName,
			Policy:     m.Policy.Name(),
			Priority:   m.Policy.Priority(),
			Featurizer: m.Policy.Featurizer().Name(),
			MaxHistory: m.Policy.Featurizer().MaxHistory(),
		}
		if c, ok := m.Policy.(policy.Configurable); ok {
			sp.Config = c.ConfigMap()
		}
		shown = append(shown, sp)
	}

	data, err := yaml.Marshal(map[string]any{"policies": shown})
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}

	_, err = e.out.Write(data)
	return err
}

func runDiff(e *env) error {
	ens, err := buildEnsemble(e)
	if err != nil {
		return err
	}

	// Compare against resolved defaults so that auto values do not show up
	// as changes.
	base, err := ted.New(ted.Args{})
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	defaults, err := yaml.Marshal(base.ConfigMap())
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	for _, m := range ens.Members() {
		c, ok := m.Policy.(policy.Configurable)
		if !ok {
			continue
		}

		resolved, err := yaml.Marshal(c.ConfigMap())
		if err != nil {
			return fmt.Errorf("diff: %s: %w", m.ConfiguredName, err)
		}

		result, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(defaults)),
			B:        difflib.SplitLines(string(resolved)),
			FromFile: "defaults",
			ToFile:   m.ConfiguredName,
			Context:  1,
		})
		if err != nil {
			return fmt.Errorf("diff: %s: %w", m.ConfiguredName, err)
		}

		fmt.Fprintln(e.out, headerStyle.Render(m.ConfiguredName))
		if result == "" {
			fmt.Fprintln(e.out, dimStyle.Render("same as defaults"))
			continue
		}
		fmt.Fprint(e.out, result)
	}

	return nil
}

// persister is implemented by policies that can write their metadata.
type persister interface {
	Persist(dir string) error
}

func runPersist(e *env, out string) error {
	ens, err := buildEnsemble(e)
	if err != nil {
		return err
	}

	for i, m := range ens.Members() {
		p, ok := m.Policy.(persister)
		if !ok {
			e.log.Warn("policy cannot be persisted", "policy", m.ConfiguredName)
			continue
		}

		dir := filepath.Join(out, fmt.Sprintf("policy_%d_%s", i, m.Policy.Name()))
		if err := p.Persist(dir); err != nil {
			return fmt.Errorf("persist: %s: %w", m.ConfiguredName, err)
		}

		fmt.Fprintf(e.out, "%s %s\n", nameStyle.Render(m.ConfiguredName), dimStyle.Render(dir))
	}

	return nil
}
