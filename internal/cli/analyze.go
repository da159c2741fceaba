package cli

import (
	"context"
	"fmt"

	"skillmatch/internal/common"
	"skillmatch/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Rate a resume against required skills",
	Long: `Rate a resume (pdf, docx, txt or md) against the required skills.

Skills are taken from --skills, otherwise from the --role preset, otherwise
extracted from the --job description file. Every skill is scored from 0 to 10
and the overall score (0-100) is compared with analysis.cutoff.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: outputPreRun(&analyzeConfig),
	RunE:    runAnalyze,
}

var batchCmd = &cobra.Command{
	Use:   "batch [resume-file...]",
	Short: "Rate several resumes against the same skills",
	Long: `Rate several resumes against the same required skills. Resumes are
analyzed concurrently and reported in the order given; a resume that cannot
be read or rated is reported with its error and does not stop the others.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: outputPreRun(&batchConfig),
	RunE:    runBatch,
}

var compareCmd = &cobra.Command{
	Use:   "compare [resume-a] [resume-b]",
	Short: "Compare two resumes against the same skills",
	Long: `Rate two resumes against the same required skills and summarize which
one fits better, the skills where each one leads and the strengths they share.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: outputPreRun(&compareConfig),
	RunE:    runCompare,
}

var (
	analyzeConfig common.CommandConfig
	batchConfig   common.CommandConfig
	compareConfig common.CommandConfig

	analyzeSkills skillFlags
	batchSkills   skillFlags
	compareSkills skillFlags
)

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
	analyzeSkills.register(analyzeCmd)

	addOutputFlags(batchCmd, &batchConfig)
	batchSkills.register(batchCmd)

	addOutputFlags(compareCmd, &compareConfig)
	compareSkills.register(compareCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	e, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	operation := func(ctx context.Context, docs []types.ResumeDocument) (*types.AnalysisResult, error) {
		skills, err := analyzeSkills.resolve(ctx, e, analyzeConfig.MaxFileSize)
		if err != nil {
			return nil, err
		}
		logger.Info("Starting skill analysis", "resume", docs[0].Name, "skills", len(skills))
		return e.analyzer.AnalyzeOne(ctx, docs[0], skills)
	}

	err = common.RunDocumentCommand(cmd.Context(), logger, analyzeConfig, cmd.OutOrStdout(), args, operation)
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Skill analysis completed successfully")
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	e, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	operation := func(ctx context.Context, docs []types.ResumeDocument) (*types.BulkResult, error) {
		skills, err := batchSkills.resolve(ctx, e, batchConfig.MaxFileSize)
		if err != nil {
			return nil, err
		}
		logger.Info("Starting batch analysis", "resumes", len(docs), "skills", len(skills))
		return e.analyzer.AnalyzeMany(ctx, docs, skills)
	}

	err = common.RunDocumentCommand(cmd.Context(), logger, batchConfig, cmd.OutOrStdout(), args, operation)
	if err != nil {
		return fmt.Errorf("failed to analyze resumes: %w", err)
	}
	logger.Info("Batch analysis completed successfully")
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	e, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	operation := func(ctx context.Context, docs []types.ResumeDocument) (*types.Comparison, error) {
		skills, err := compareSkills.resolve(ctx, e, compareConfig.MaxFileSize)
		if err != nil {
			return nil, err
		}
		logger.Info("Starting resume comparison", "resume_a", docs[0].Name, "resume_b", docs[1].Name)
		return e.analyzer.Compare(ctx, docs[0], docs[1], skills)
	}

	err = common.RunDocumentCommand(cmd.Context(), logger, compareConfig, cmd.OutOrStdout(), args, operation)
	if err != nil {
		return fmt.Errorf("failed to compare resumes: %w", err)
	}
	logger.Info("Resume comparison completed successfully")
	return nil
}
