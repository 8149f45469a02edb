package risk

// Ruleset is the data the classifier scores against. The lists ship as
// configuration defaults so deployments can extend them without touching
// classification logic.
type Ruleset struct {
	CriticalFiles       []string `mapstructure:"critical_files" json:"critical_files"`
	ConfigExtensions    []string `mapstructure:"config_extensions" json:"config_extensions"`
	SensitiveSegments   []string `mapstructure:"sensitive_segments" json:"sensitive_segments"`
	FrameworkConfigs    []string `mapstructure:"framework_configs" json:"framework_configs"`
	DestructiveCommands []string `mapstructure:"destructive_commands" json:"destructive_commands"`
	ElevatedCommands    []string `mapstructure:"elevated_commands" json:"elevated_commands"`
	DatabaseCommands    []string `mapstructure:"database_commands" json:"database_commands"`
	InstallCommands     []string `mapstructure:"install_commands" json:"install_commands"`
	NetworkCommands     []string `mapstructure:"network_commands" json:"network_commands"`

	// LargeContentChars marks non-delete payloads above this size as at
	// least moderate. RefactorHighLines/RefactorModerateLines are the
	// large-refactor line-delta thresholds.
	LargeContentChars     int `mapstructure:"large_content_chars" json:"large_content_chars"`
	RefactorHighLines     int `mapstructure:"refactor_high_lines" json:"refactor_high_lines"`
	RefactorModerateLines int `mapstructure:"refactor_moderate_lines" json:"refactor_moderate_lines"`
}

// DefaultRuleset returns the built-in rule data.
func DefaultRuleset() Ruleset {
	return Ruleset{
		CriticalFiles: []string{
			".env", ".env.local", ".env.production", ".env.development",
			"package.json", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
			"go.mod", "go.sum", "Cargo.toml", "Cargo.lock",
			"requirements.txt", "Pipfile.lock", "composer.lock", "Gemfile.lock",
			"Makefile", "Dockerfile", "docker-compose.yml", "docker-compose.yaml",
			"schema.sql", "schema.prisma",
		},
		ConfigExtensions: []string{
			".json", ".yml", ".yaml", ".toml", ".ini", ".conf",
		},
		SensitiveSegments: []string{
			"auth", "login", "password", "token", "session",
		},
		FrameworkConfigs: []string{
			"next.config", "vite.config", "webpack.config", "rollup.config",
		},
		DestructiveCommands: []string{
			"rm", "del", "dd", "format", "mkfs", "sudo rm", "sudo dd", "rmdir", "rd",
		},
		ElevatedCommands: []string{
			"sudo", "chmod",
		},
		DatabaseCommands: []string{
			"migrate", "prisma", "sequelize", "typeorm", "psql", "mysql",
		},
		InstallCommands: []string{
			"npm install", "yarn add", "pip install", "cargo install", "go get",
		},
		NetworkCommands: []string{
			"curl", "wget",
		},
		LargeContentChars:     10000,
		RefactorHighLines:     100,
		RefactorModerateLines: 30,
	}
}

// normalized fills zero-valued fields from the defaults so a partially
// configured ruleset never silently disables a rule class.
func (r Ruleset) normalized() Ruleset {
	def := DefaultRuleset()
	if len(r.CriticalFiles) == 0 {
		r.CriticalFiles = def.CriticalFiles
	}
	if len(r.ConfigExtensions) == 0 {
		r.ConfigExtensions = def.ConfigExtensions
	}
	if len(r.SensitiveSegments) == 0 {
		r.SensitiveSegments = def.SensitiveSegments
	}
	if len(r.FrameworkConfigs) == 0 {
		r.FrameworkConfigs = def.FrameworkConfigs
	}
	if len(r.DestructiveCommands) == 0 {
		r.DestructiveCommands = def.DestructiveCommands
	}
	if len(r.ElevatedCommands) == 0 {
		r.ElevatedCommands = def.ElevatedCommands
	}
	if len(r.DatabaseCommands) == 0 {
		r.DatabaseCommands = def.DatabaseCommands
	}
	if len(r.InstallCommands) == 0 {
		r.InstallCommands = def.InstallCommands
	}
	if len(r.NetworkCommands) == 0 {
		r.NetworkCommands = def.NetworkCommands
	}
	if r.LargeContentChars <= 0 {
		r.LargeContentChars = def.LargeContentChars
	}
	if r.RefactorHighLines <= 0 {
		r.RefactorHighLines = def.RefactorHighLines
	}
	if r.RefactorModerateLines <= 0 {
		r.RefactorModerateLines = def.RefactorModerateLines
	}
	return r
}
