package config

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/biodockify/enginehost/internal/supervisor"
)

// DefaultEngineName is the sidecar executable launched when engine.path is unset.
const DefaultEngineName = "biodockify-engine"

// EngineConfig is the [engine] table. It is what the config watcher reloads:
// a change here restarts the engine with the new command.
type EngineConfig struct {
	Path      string            `toml:"path"`
	Args      []string          `toml:"args"`
	Dir       string            `toml:"dir"`
	Env       map[string]string `toml:"env"`
	OutputTag string            `toml:"output_tag"`
	ReadyAddr string            `toml:"ready_addr"`
}

// EnvPairs returns Env as sorted KEY=VALUE entries.
func (c EngineConfig) EnvPairs() []string {
	return tableToPairs(c.Env)
}

// Merge returns c with every non-empty field of override applied. Env
// entries are merged key by key.
func (c EngineConfig) Merge(override EngineConfig) EngineConfig {
	if override.Path != "" {
		c.Path = override.Path
	}
	if len(override.Args) > 0 {
		c.Args = slices.Clone(override.Args)
	}
	if override.Dir != "" {
		c.Dir = override.Dir
	}
	if override.OutputTag != "" {
		c.OutputTag = override.OutputTag
	}
	if override.ReadyAddr != "" {
		c.ReadyAddr = override.ReadyAddr
	}
	if len(override.Env) > 0 {
		env := make(map[string]string, len(c.Env)+len(override.Env))
		maps.Copy(env, c.Env)
		maps.Copy(env, override.Env)
		c.Env = env
	}
	return c
}

// Command builds the launch command. resolve maps a configured name to an
// executable path; supervisor.ResolveEngine is the usual choice.
func (c EngineConfig) Command(resolve func(name string) string) supervisor.Command {
	path := c.Path
	if path == "" {
		path = DefaultEngineName
	}
	if resolve != nil {
		path = resolve(path)
	}
	return supervisor.Command{
		Path: path,
		Args: slices.Clone(c.Args),
		Env:  c.EnvPairs(),
		Dir:  c.Dir,
	}
}

// LoadEngineConfig reads the [engine] table from a TOML file.
func LoadEngineConfig(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	var raw struct {
		Engine EngineConfig `toml:"engine"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return EngineConfig{}, fmt.Errorf("failed to parse engine config: %w", err)
	}
	return raw.Engine, nil
}

func tableToPairs[V any](table map[string]V) []string {
	if len(table) == 0 {
		return nil
	}
	pairs := make([]string, 0, len(table))
	for _, key := range slices.Sorted(maps.Keys(table)) {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, table[key]))
	}
	return pairs
}
