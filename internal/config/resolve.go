package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

// RepoConfigName is the per-repository override file checked into the
// repository root
const RepoConfigName = ".revcoord.yml"

// RepoConfig is the per-repository override file. Only the fields a
// repository wants to pin need to be set; everything else falls through to
// the user config
type RepoConfig struct {
	Agents []string `yaml:"agents"`
	Mode   Mode     `yaml:"mode"`
}

// LoadRepoConfig reads .revcoord.yml from dir. A missing file is not an
// error; it returns nil so the resolver falls through
func LoadRepoConfig(dir string) (*RepoConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, RepoConfigName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rc RepoConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, domain.E(domain.KindValidation, "parse %s: %v", RepoConfigName, err).
			WithHint("fix the YAML syntax in " + RepoConfigName)
	}
	return &rc, nil
}

// Resolved is the effective agent roster and mode after layering
type Resolved struct {
	Agents []Agent
	Mode   Mode
}

// Resolve layers the three configuration sources: the per-repository file
// wins over environment variables, which win over the user config defaults.
// getenv is injected so tests never touch the process environment.
//
// REVCOORD_AGENTS is a comma-separated list of agent IDs; REVCOORD_MODE is
// sequential or parallel. An agent ID that no configured agent carries is a
// validation error rather than a silent drop.
func Resolve(cfg *Config, repo *RepoConfig, getenv func(string) string) (Resolved, error) {
	out := Resolved{Agents: cfg.Agents, Mode: cfg.Mode}
	if out.Mode == "" {
		out.Mode = ModeSequential
	}

	if v := getenv("REVCOORD_AGENTS"); v != "" {
		ids := strings.Split(v, ",")
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		agents, err := selectAgents(cfg.Agents, ids)
		if err != nil {
			return Resolved{}, err
		}
		out.Agents = agents
	}
	if v := getenv("REVCOORD_MODE"); v != "" {
		out.Mode = Mode(v)
	}

	if repo != nil {
		if len(repo.Agents) > 0 {
			agents, err := selectAgents(cfg.Agents, repo.Agents)
			if err != nil {
				return Resolved{}, err
			}
			out.Agents = agents
		}
		if repo.Mode != "" {
			out.Mode = repo.Mode
		}
	}

	switch out.Mode {
	case ModeSequential, ModeParallel:
	default:
		return Resolved{}, domain.E(domain.KindValidation, "unknown mode %q", out.Mode).
			WithHint("use sequential or parallel")
	}
	return out, nil
}

// selectAgents filters the configured roster down to the requested IDs,
// preserving the roster's order
func selectAgents(roster []Agent, ids []string) ([]Agent, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			want[id] = true
		}
	}
	var out []Agent
	for _, a := range roster {
		if want[a.ID] {
			out = append(out, a)
			delete(want, a.ID)
		}
	}
	for id := range want {
		return nil, domain.E(domain.KindValidation, "unknown agent %q", id).
			WithHint("configure the agent in the [[agents]] table first")
	}
	return out, nil
}
