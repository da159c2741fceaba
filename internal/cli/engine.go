package cli

import (
	"context"
	"fmt"

	"skillmatch/internal/ai"
	"skillmatch/internal/analysis"
	"skillmatch/internal/cache"
	"skillmatch/internal/common"
	"skillmatch/internal/config"
	"skillmatch/internal/errors"
	"skillmatch/internal/observability"
	"skillmatch/internal/rag"
	"skillmatch/internal/roles"

	"github.com/spf13/cobra"
)

// engine wires the generation clients, the embedder and the role catalog
// into an analyzer
type engine struct {
	service  *ai.Service
	cache    *cache.RedisCache
	analyzer *analysis.Analyzer
	catalog  *roles.Catalog
	logger   *errors.Logger
}

// newEngine builds the analyzer of cfg. When metrics is not nil, generation
// calls and analyses are reported to it.
func newEngine(cfg *config.Config, logger *errors.Logger, metrics *observability.Metrics) (*engine, error) {
	e := &engine{logger: logger}

	catalog, err := roles.NewCatalog(cfg.Roles.File, logger)
	if err != nil {
		return nil, err
	}
	e.catalog = catalog

	var clientOpts []ai.ClientOption
	if cfg.Cache.Enabled {
		rc, err := cache.New(cfg.Cache, logger)
		if err != nil {
			// The cache only saves calls; run without it
			logger.LogError(err, "Response cache disabled")
		} else {
			e.cache = rc
			clientOpts = append(clientOpts, ai.WithCache(rc))
		}
	}
	if metrics != nil {
		clientOpts = append(clientOpts, ai.WithObserver(metrics))
	}

	svc, err := ai.NewService(cfg, logger, clientOpts...)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.service = svc

	embedder, err := rag.NewEmbedder(cfg.Embedding, logger)
	if err != nil {
		e.Close()
		return nil, err
	}

	var analyzerOpts []analysis.Option
	if metrics != nil {
		analyzerOpts = append(analyzerOpts, analysis.WithRecorder(metrics))
	}
	e.analyzer = analysis.NewAnalyzer(analysis.GeneratorsFrom(svc), embedder, cfg.Analysis, logger, analyzerOpts...)

	logger.Debug("Engine ready",
		"provider", cfg.ActiveProvider(),
		"embedding", embedder.Name(),
		"roles", len(catalog.Names()),
		"cache", e.cache != nil)
	return e, nil
}

// Close releases the providers and the cache
func (e *engine) Close() {
	if e.service != nil {
		if err := e.service.Close(); err != nil {
			e.logger.LogError(err, "Failed to close generation clients")
		}
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.LogError(err, "Failed to close response cache")
		}
	}
}

// skillFlags are the skill source flags shared by the rating commands
type skillFlags struct {
	skills         string
	role           string
	jobDescription string
}

func (f *skillFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.skills, "skills", "", "Comma separated skills to rate")
	fs.StringVar(&f.role, "role", "", "Role preset whose skills are rated (see 'skillmatch roles')")
	fs.StringVar(&f.jobDescription, "job", "", "Job description file to extract skills from")
}

// jobDescriptionText reads the job description file, "" when none is set
func (f *skillFlags) jobDescriptionText(logger *errors.Logger, maxFileSize int64) (string, error) {
	if f.jobDescription == "" {
		return "", nil
	}
	return common.NewFileProcessor(logger, maxFileSize).ReadText(f.jobDescription)
}

// resolve returns the skills to rate: the explicit list, the role preset or
// the skills extracted from the job description
func (f *skillFlags) resolve(ctx context.Context, e *engine, maxFileSize int64) ([]string, error) {
	jd, err := f.jobDescriptionText(e.logger, maxFileSize)
	if err != nil {
		return nil, err
	}
	skills, err := common.ResolveSkills(e.catalog, f.skills, f.role, jd != "")
	if err != nil || skills != nil {
		return skills, err
	}

	skills, err = e.analyzer.ExtractSkills(ctx, jd)
	if err != nil {
		return nil, fmt.Errorf("failed to extract skills from %s: %w", f.jobDescription, err)
	}
	e.logger.Info("Skills extracted from job description", "count", len(skills))
	return skills, nil
}
