package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/vectorchord-updater/pkg/releases"
)

const (
	DefaultRepository   = "tensorchord/VectorChord"
	DefaultAPIURL       = "https://api.github.com/"
	DefaultBaseBranch   = "main"
	DefaultDockerfile   = "postgres-appliance/Dockerfile"
	DefaultRemote       = "origin"
	DefaultBranchPrefix = "4.0-master-vectorchord-"
	DefaultTagSuffix    = "-1"
	DefaultLimit        = 20
	DefaultTimeout      = 10 * time.Second
)

type Config struct {
	Repository   string        `yaml:"repository"`
	APIURL       string        `yaml:"api_url"`
	BaseBranch   string        `yaml:"base_branch"`
	Dockerfile   string        `yaml:"dockerfile"`
	Remote       string        `yaml:"remote"`
	BranchPrefix string        `yaml:"branch_prefix"`
	TagSuffix    string        `yaml:"tag_suffix"`
	Limit        int           `yaml:"limit"`
	Timeout      time.Duration `yaml:"timeout"`
	GitBinary    string        `yaml:"git_binary"`
	Workdir      string        `yaml:"workdir"`

	Token       string `yaml:"-"`
	Release     string `yaml:"-"`
	Latest      bool   `yaml:"-"`
	DryRun      bool   `yaml:"-"`
	Output      string `yaml:"-"`
	LogLevel    string `yaml:"-"`
	ForcePrompt bool   `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Repository:   DefaultRepository,
		APIURL:       DefaultAPIURL,
		BaseBranch:   DefaultBaseBranch,
		Dockerfile:   DefaultDockerfile,
		Remote:       DefaultRemote,
		BranchPrefix: DefaultBranchPrefix,
		TagSuffix:    DefaultTagSuffix,
		Limit:        DefaultLimit,
		Timeout:      DefaultTimeout,
		GitBinary:    "git",
		Output:       "text",
		LogLevel:     "warn",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if v, err := flags.GetString("repo"); err == nil && v != "" {
		cfg.Repository = v
	}
	if v, err := flags.GetString("api-url"); err == nil && v != "" {
		cfg.APIURL = v
	}
	if v, err := flags.GetString("base-branch"); err == nil && v != "" {
		cfg.BaseBranch = v
	}
	if v, err := flags.GetString("dockerfile"); err == nil && v != "" {
		cfg.Dockerfile = v
	}
	if v, err := flags.GetString("remote"); err == nil && v != "" {
		cfg.Remote = v
	}
	if v, err := flags.GetString("workdir"); err == nil && v != "" {
		cfg.Workdir = v
	}
	if flags.Changed("limit") {
		if v, err := flags.GetInt("limit"); err == nil {
			cfg.Limit = v
		}
	}
	if flags.Changed("timeout") {
		if v, err := flags.GetDuration("timeout"); err == nil {
			cfg.Timeout = v
		}
	}
	if v, err := flags.GetString("github-token"); err == nil && v != "" {
		cfg.Token = v
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("GITHUB_TOKEN")
	}
	if v, err := flags.GetString("release"); err == nil && v != "" {
		cfg.Release = v
	}
	if v, err := flags.GetBool("latest"); err == nil {
		cfg.Latest = v
	}
	if v, err := flags.GetBool("dry-run"); err == nil {
		cfg.DryRun = v
	}
	if v, err := flags.GetBool("force-prompt"); err == nil {
		cfg.ForcePrompt = v
	}
	if v, err := flags.GetString("output"); err == nil && v != "" {
		cfg.Output = v
	}
	if v, err := flags.GetString("log-level"); err == nil && v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// Validate reports the first setting that would make a run fail before it
// touches the network or the repository.
func (c *Config) Validate() error {
	if _, _, err := releases.ParseGitHubRepo(c.Repository); err != nil {
		return err
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.BaseBranch == "" || c.Dockerfile == "" || c.Remote == "" {
		return fmt.Errorf("base_branch, dockerfile and remote are required")
	}
	switch c.Output {
	case "text", "table", "json":
	default:
		return fmt.Errorf("unknown output format %q (want text, table or json)", c.Output)
	}
	if c.Release != "" && c.Latest {
		return fmt.Errorf("--release and --latest are mutually exclusive")
	}
	return nil
}
