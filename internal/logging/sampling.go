package logging

import (
	"go.uber.org/zap/zapcore"
)

const errorLevel = zapcore.ErrorLevel

// newSampledCore wraps core with per-level sampling.
// Error and above are never sampled; levels without a sampling entry pass
// through unsampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	cores := []zapcore.Core{
		&levelFilterCore{Core: core, enabled: func(l zapcore.Level) bool { return l >= errorLevel }},
	}

	sampled := make(map[zapcore.Level]bool, len(cfg.Levels))
	for name, lc := range cfg.Levels {
		lvl, err := LevelFromString(name)
		if err != nil || lvl >= errorLevel {
			continue
		}
		sampled[lvl] = true
		only := lvl
		cores = append(cores, zapcore.NewSamplerWithOptions(
			&levelFilterCore{Core: core, enabled: func(l zapcore.Level) bool { return l == only }},
			cfg.Tick,
			lc.Initial,
			lc.Thereafter,
		))
	}

	cores = append(cores, &levelFilterCore{Core: core, enabled: func(l zapcore.Level) bool {
		return l < errorLevel && !sampled[l]
	}})

	return zapcore.NewTee(cores...)
}

// levelFilterCore passes only entries whose level satisfies enabled.
type levelFilterCore struct {
	zapcore.Core
	enabled func(zapcore.Level) bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:    c.Core.With(fields),
		enabled: c.enabled,
	}
}
