package ai

import (
	"skillmatch/internal/config"
)

// DefaultSystemPrompts provides the default system instructions, keyed by operation.
// The rating and answer prompts carry all instructions in the user turn, so
// no operation sets one by default.
var DefaultSystemPrompts = map[string]string{
	config.OperationRate:    "",
	config.OperationExtract: "",
	config.OperationRewrite: "",
	config.OperationAnswer:  "",
}

// ContextPromptTemplate wraps retrieved context and a question: %s context,
// %s question. Ratings always use it; the answer operation starts from it but
// can be customized.
const ContextPromptTemplate = `Based on the following context, answer the question.

Context:
%s

Question: %s

Answer:`

// DefaultUserPrompts provides the default user prompt templates, keyed by operation.
//
//	rate:    %s skill
//	answer:  %s retrieved context, %s question
//	extract: %s job description
//	rewrite: %s target role, %s comma separated keywords, %s resume
var DefaultUserPrompts = map[string]string{
	config.OperationRate: "Rate resume proficiency in %s from 0 to 10. Start with the number, then one sentence justification.",

	config.OperationAnswer: ContextPromptTemplate,

	config.OperationExtract: `
Extract technical and professional skills from the job description.

Rules:
- Return ONLY a Python list
- No explanations
- Use standard industry terms

Job Description:
%s
`,

	config.OperationRewrite: `
You are an ATS optimization engine.

Goal:
Rewrite the resume to maximize ATS match for the target role.

Rules:
- Use bullet points
- Start bullets with strong action verbs
- Include metrics (%% / numbers) wherever possible
- Integrate missing keywords naturally
- Do NOT add fake experience

Target Role:
%s

Keywords to prioritize:
%s

Original Resume:
%s

Return ONLY the rewritten resume.
No explanations.
`,
}

// resolvePrompt selects the correct prompt string based on a clear priority order:
// 1. A prompt loaded from a file.
// 2. A prompt defined directly in the configuration.
// 3. A hardcoded default prompt.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// SystemPromptFor resolves the system prompt of operation op
func SystemPromptFor(op string, prompts config.PromptConfig) string {
	return resolvePrompt(prompts.LoadedSystem, prompts.System, DefaultSystemPrompts[op])
}

// UserPromptFor resolves the user prompt template of operation op
func UserPromptFor(op string, prompts config.PromptConfig) string {
	return resolvePrompt(prompts.LoadedUser, prompts.User, DefaultUserPrompts[op])
}
