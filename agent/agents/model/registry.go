// Package model builds the LLM-backed classifier and composer from compiled
// eino graphs, one chat model per role.
package model

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/pattarawat/docassist/agent/contract"
	llmx "github.com/pattarawat/docassist/agent/llm"
	promptx "github.com/pattarawat/docassist/agent/prompt"
)

type registry struct {
	classifier contractx.Classifier
	composer   contractx.Composer
}

var _ contractx.Registry = (*registry)(nil)

func (r *registry) Classifier() contractx.Classifier { return r.classifier }
func (r *registry) Composer() contractx.Composer     { return r.composer }

// NewRegistry compiles one structured graph for the classifier and one chat
// graph per composing intent. Graph compilation is front-loaded so a broken
// prompt or model config fails at startup, not mid-conversation.
func NewRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	if prompts.Classifier == "" {
		return nil, fmt.Errorf("%w: classifier prompt is empty", contractx.ErrPromptMissing)
	}

	classifierCfg := cfg.OpenRouterFor(contractx.RoleClassifier)
	classifierModel, err := classifierCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("build classifier model: %w", err)
	}

	classifierRunner, err := compileStructuredLLMGraph[classifierLLMOutput](
		ctx, classifierModel, prompts.Classifier, "intent_classifier",
	)
	if err != nil {
		return nil, fmt.Errorf("compile classifier: %w", err)
	}

	composerCfg := cfg.OpenRouterFor(contractx.RoleComposer)
	composerModel, err := composerCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("build composer model: %w", err)
	}

	runners := make(map[contractx.Intent]compose.Runnable[map[string]any, *schema.Message])
	for _, it := range []contractx.Intent{
		contractx.IntentQA,
		contractx.IntentSummarization,
		contractx.IntentCalculation,
		contractx.IntentOther,
	} {
		systemPrompt := prompts.ForIntent(it)
		if systemPrompt == "" {
			return nil, fmt.Errorf("%w: composer prompt for intent=%s", contractx.ErrPromptMissing, it)
		}
		runner, err := compileChatGraph(ctx, composerModel, systemPrompt, "composer_"+string(it))
		if err != nil {
			return nil, fmt.Errorf("compile composer intent=%s: %w", it, err)
		}
		runners[it] = runner
	}

	log.Info().
		Str("classifier_model", classifierCfg.Model).
		Str("composer_model", composerCfg.Model).
		Msg("model registry ready")

	return &registry{
		classifier: &classifierImpl{runner: classifierRunner},
		composer:   &composerImpl{runners: runners, fallbackIntent: contractx.IntentQA},
	}, nil
}
