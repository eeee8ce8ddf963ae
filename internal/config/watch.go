package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ThresholdApplier receives re-read risk thresholds on config file change.
// The analytics engine satisfies this through a small adapter in the
// session package.
type ThresholdApplier interface {
	ApplyRiskThresholds(thresholds map[string]float64)
}

// WatchRiskThresholds re-applies the risk threshold section to the applier
// whenever the config file changes on disk. Reload failures keep the
// previous thresholds in force.
func WatchRiskThresholds(v *viper.Viper, applier ThresholdApplier, logger *zap.Logger) {
	v.OnConfigChange(func(ev fsnotify.Event) {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
			return
		}
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			logger.Error("config reload failed, keeping previous thresholds",
				zap.String("file", ev.Name), zap.Error(err))
			return
		}
		applier.ApplyRiskThresholds(cfg.Risk.Thresholds)
		logger.Info("risk thresholds reloaded",
			zap.String("file", ev.Name),
			zap.Int("thresholds", len(cfg.Risk.Thresholds)))
	})
	v.WatchConfig()
}
