package cli

import (
	"context"
	"fmt"
	"strings"

	"skillmatch/internal/analysis"
	"skillmatch/internal/ats"
	"skillmatch/internal/common"
	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"github.com/spf13/cobra"
)

var skillsCmd = &cobra.Command{
	Use:   "skills [job-description-file]",
	Short: "Extract the required skills from a job description",
	Long: `Ask the model for the technical skills, tools and qualifications a job
description requires. The list can be fed back to analyze with --skills.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: outputPreRun(&skillsConfig),
	RunE:    runSkills,
}

var atsCmd = &cobra.Command{
	Use:   "ats [resume-file]",
	Short: "Score how well a resume parses in applicant tracking systems",
	Long: `Score a resume from 0 to 100 on sections, contact details, quantified
achievements, action verbs, length, formatting and dates. The score is
computed locally and needs no model.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: outputPreRun(&atsConfig),
	RunE:    runATS,
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [resume-file]",
	Short: "Rewrite a resume for a target role",
	Long: `Rewrite a resume for ATS systems targeting --role, prioritizing the
given keywords. Without --skills the skills of the role preset are used when
the role is known.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: outputPreRun(&rewriteConfig),
	RunE:    runRewrite,
}

var askCmd = &cobra.Command{
	Use:   "ask [resume-file] [question]",
	Short: "Answer a question about a resume",
	Long: `Answer a question from the parts of the resume most similar to it.
When a skill source is given the resume is rated first and the answer is
asked in the same session.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: outputPreRun(&askConfig),
	RunE:    runAsk,
}

var (
	skillsConfig  common.CommandConfig
	atsConfig     common.CommandConfig
	rewriteConfig common.CommandConfig
	askConfig     common.CommandConfig

	rewriteRole   string
	rewriteSkills string
	askSkills     skillFlags
)

func init() {
	addOutputFlags(skillsCmd, &skillsConfig)
	addOutputFlags(atsCmd, &atsConfig)

	addOutputFlags(rewriteCmd, &rewriteConfig)
	rewriteCmd.Flags().StringVar(&rewriteRole, "role", "", "Target role (required)")
	rewriteCmd.Flags().StringVar(&rewriteSkills, "skills", "", "Comma separated keywords to prioritize")
	_ = rewriteCmd.MarkFlagRequired("role")

	addOutputFlags(askCmd, &askConfig)
	askSkills.register(askCmd)
}

func runSkills(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	e, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	operation := func(ctx context.Context, docs []types.ResumeDocument) (types.SkillList, error) {
		skills, err := e.analyzer.ExtractSkills(ctx, docs[0].Text)
		return types.SkillList{Skills: skills}, err
	}

	if err := common.RunDocumentCommand(cmd.Context(), logger, skillsConfig, cmd.OutOrStdout(), args, operation); err != nil {
		return fmt.Errorf("failed to extract skills: %w", err)
	}
	return nil
}

func runATS(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	operation := func(_ context.Context, docs []types.ResumeDocument) (types.ATSReport, error) {
		if strings.TrimSpace(docs[0].Text) == "" {
			return types.ATSReport{}, errors.NewExtractionError(errors.ErrCodeEmptyDocument,
				"No text could be extracted from "+docs[0].Name, nil)
		}
		return ats.Score(docs[0].Text), nil
	}

	if err := common.RunDocumentCommand(cmd.Context(), logger, atsConfig, cmd.OutOrStdout(), args, operation); err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	return nil
}

func runRewrite(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	e, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	operation := func(ctx context.Context, docs []types.ResumeDocument) (types.RewriteOutput, error) {
		skills := analysis.SplitSkillList(rewriteSkills)
		if len(skills) == 0 {
			skills, _ = e.catalog.Skills(rewriteRole)
		}
		logger.Info("Starting resume rewrite", "resume", docs[0].Name, "role", rewriteRole, "skills", len(skills))

		text, err := e.analyzer.Rewrite(ctx, docs[0].Text, rewriteRole, skills)
		if err != nil {
			return types.RewriteOutput{}, err
		}
		return types.RewriteOutput{TargetRole: rewriteRole, Skills: skills, Resume: text}, nil
	}

	if err := common.RunDocumentCommand(cmd.Context(), logger, rewriteConfig, cmd.OutOrStdout(), args, operation); err != nil {
		return fmt.Errorf("failed to rewrite resume: %w", err)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	question := args[1]

	e, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	operation := func(ctx context.Context, docs []types.ResumeDocument) (types.Answer, error) {
		session := e.analyzer.NewSession()
		defer session.Close()

		jd, err := askSkills.jobDescriptionText(logger, askConfig.MaxFileSize)
		if err != nil {
			return types.Answer{}, err
		}
		var skills []string
		if askSkills.skills != "" || askSkills.role != "" {
			if skills, err = common.ResolveSkills(e.catalog, askSkills.skills, askSkills.role, false); err != nil {
				return types.Answer{}, err
			}
		}

		// Without a skill source only the question index is needed; the
		// session keeps it even though the rating is skipped
		if _, err := session.Analyze(ctx, docs[0], skills, jd); err != nil && errors.CodeOf(err) != errors.ErrCodeNoSkills {
			return types.Answer{}, err
		}

		answer, err := session.Ask(ctx, question)
		if err != nil {
			return types.Answer{}, err
		}
		return types.Answer{SessionID: session.ID, Question: question, Answer: answer}, nil
	}

	if err := common.RunDocumentCommand(cmd.Context(), logger, askConfig, cmd.OutOrStdout(), args[:1], operation); err != nil {
		return fmt.Errorf("failed to answer question: %w", err)
	}
	return nil
}
