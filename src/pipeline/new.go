package pipeline

import (
	"context"

	"worklink/src/linkagent"
	"worklink/src/logger"
)

// New builds the pipeline DetectMode selects for cfg. mapper is only used in local mode.
func New(ctx context.Context, cfg *Config, mapper linkagent.Mapper, log logger.Logger) (Pipeline, error) {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	switch DetectMode(cfg) {
	case AgenticMode:
		return NewAgenticPipeline(ctx, cfg, log)
	default:
		return NewLocalPipeline(ctx, cfg, mapper, log)
	}
}
