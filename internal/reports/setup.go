package reports

import (
	"go.uber.org/zap"

	"top-posts-report/report-backend/internal/config"
	"top-posts-report/report-backend/internal/media"
	"top-posts-report/report-backend/internal/trigger"
)

// NewServiceFromConfig wires the extractor, renderer and trigger from cfg.
// The trigger is left out when no API URL is configured.
func NewServiceFromConfig(cfg *config.Config, resolver media.Resolver, logger *zap.Logger) *Service {
	extractor := NewExtractor(PostgresConnector(cfg.Database.URL), cfg.Report.WrapWidth, logger)
	rendererOptions := DefaultRendererOptions()
	rendererOptions.PDF.UTF8FontFile = cfg.Report.FontFile
	renderer := NewRenderer(resolver, rendererOptions, logger)

	var gate Trigger
	if cfg.Trigger.URL != "" {
		gate = trigger.NewClient(cfg.Trigger, logger)
	}

	return NewService(gate, extractor, renderer, ServiceConfig{
		RankCutoff:   cfg.Report.RankCutoff,
		OutputPath:   cfg.Report.OutputPath,
		ExtraFormats: cfg.Report.ExtraFormats,
	}, logger)
}

// ResolverOptionsFromConfig returns the media fetch limits from cfg.
func ResolverOptionsFromConfig(cfg *config.Config) media.ResolverOptions {
	opts := media.DefaultResolverOptions()
	opts.Timeout = cfg.Report.MediaTimeout
	opts.MaxBytes = cfg.Report.MediaMaxSize
	opts.MaxPixels = cfg.Report.MediaMaxPixels
	return opts
}
