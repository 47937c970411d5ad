package overlay

type jsGuardConfig struct {
	cache ProgramCache
}

// JSGuardOption configures the JS guard.
type JSGuardOption func(*jsGuardConfig)

// JSGuardWithProgramCache applies a ProgramCache to the JS guard.
func JSGuardWithProgramCache(cache ProgramCache) JSGuardOption {
	return func(cfg *jsGuardConfig) {
		cfg.cache = cache
	}
}

func applyJSGuardOptions(opts []JSGuardOption) jsGuardConfig {
	cfg := jsGuardConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
