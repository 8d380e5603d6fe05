// Command chronolex builds a timeline from local documents and prints it
// as JSON. It is the one-shot counterpart to the chronolex-web service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/scrypster/chronolex/internal/config"
	"github.com/scrypster/chronolex/internal/llm"
	"github.com/scrypster/chronolex/internal/timeline"
	"github.com/scrypster/chronolex/pkg/types"
)

func main() {
	view := flag.String("view", "complete", "timeline view (complete, procedure, facts, auditions, specific_fact, act_type)")
	targetFact := flag.String("fact", "", "target fact for the specific_fact view")
	includeRelated := flag.Bool("related", false, "include related events in the specific_fact view")
	actType := flag.String("act", "", "act type for the act_type view")
	agentList := flag.String("agents", "", "comma-separated agent kinds (default: all)")
	noFusion := flag.Bool("no-fusion", false, "pool per-agent events instead of fusing them")
	title := flag.String("title", "", "timeline title")
	pretty := flag.Bool("pretty", true, "indent JSON output")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: chronolex [flags] file...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.LoadKeywordOverrides(); err != nil {
		log.Fatalf("Failed to load keyword overrides: %v", err)
	}

	docs := make([]types.Document, 0, flag.NArg())
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		docs = append(docs, types.Document{
			ID:      uuid.New().String(),
			Name:    filepath.Base(path),
			Content: string(data),
		})
	}

	var agents []types.AgentKind
	if *agentList != "" {
		for _, name := range strings.Split(*agentList, ",") {
			kind, err := types.ParseAgentKind(strings.TrimSpace(name))
			if err != nil {
				log.Fatalf("Invalid agent: %v", err)
			}
			agents = append(agents, kind)
		}
	}

	var delegate llm.TextGenerator
	if cfg.Delegate.Enabled {
		providerCfg := llm.ProviderConfig{
			Provider: cfg.Delegate.Provider,
			Model:    cfg.Delegate.Model,
			BaseURL:  cfg.Delegate.OllamaURL,
		}
		switch cfg.Delegate.Provider {
		case "openai":
			providerCfg.APIKey = cfg.Delegate.OpenAIKey
		case "anthropic":
			providerCfg.APIKey = cfg.Delegate.AnthropicKey
		}
		delegate, err = llm.NewTextGenerator(providerCfg)
		if err != nil {
			log.Fatalf("Failed to initialize delegate: %v", err)
		}
	}

	builderCfg := timeline.Config{
		NumWorkers:  cfg.Builder.NumWorkers,
		UnitTimeout: cfg.Builder.UnitTimeout,
		DelegateRPS: cfg.Builder.DelegateRPS,
		CacheSize:   cfg.Builder.CacheSize,
	}
	builder, err := timeline.NewBuilder(builderCfg, timeline.NewDateResolver(), delegate)
	if err != nil {
		log.Fatalf("Failed to initialize builder: %v", err)
	}

	req := timeline.BuildRequest{
		Documents: docs,
		View: types.ViewSpec{
			Kind:           types.ViewKind(*view),
			TargetFact:     *targetFact,
			IncludeRelated: *includeRelated,
			ActType:        *actType,
		},
		Agents: agents,
		Fusion: !*noFusion,
		Title:  *title,
	}

	result, err := builder.Build(context.Background(), req)
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		log.Fatalf("Failed to encode timeline: %v", err)
	}
}
