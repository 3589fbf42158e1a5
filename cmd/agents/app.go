package main

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/santis84/agents/agent"
	"github.com/santis84/agents/config"
	"github.com/santis84/agents/core"
	"github.com/santis84/agents/graph"
	"github.com/santis84/agents/model"
	"github.com/santis84/agents/model/anthropic"
	"github.com/santis84/agents/model/ollama"
	"github.com/santis84/agents/model/openai"
	"github.com/santis84/agents/runner"
	"github.com/santis84/agents/session"
	"github.com/santis84/agents/session/sqlite"
	"github.com/santis84/agents/tool"
)

// routeRules is the demo routing table. Order matters: the first keyword
// found in the latest message wins.
func routeRules() []agent.RouteRule {
	return []agent.RouteRule{
		{Keyword: "análise de dados", Target: "data_analyst"},
		{Keyword: "pesquisa", Target: "researcher"},
		{Keyword: "criação de conteúdo", Target: "content_writer"},
	}
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Model.Provider {
	case config.ProviderMock:
		return model.NewMockModel("mock-llm", "mock"), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Model.Name)
			}
		}), nil
	case config.ProviderOllama:
		m, err := ollama.NewModel(func(o *ollama.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			if cfg.Model.Host != "" {
				o.Host = cfg.Model.Host
			}
		})
		if err != nil {
			return nil, fmt.Errorf("build ollama model: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

// buildStore returns the configured session store and a cleanup func.
func buildStore(cfg *config.Config) (core.SessionStore, func() error, error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return session.NewInMemoryStore(), func() error { return nil }, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLite)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// buildGraph wires the demo topology: the orchestrator routes via conditional
// edges, every specialist loops back to the orchestrator.
func buildGraph(cfg *config.Config, llm model.Model) (*graph.CompiledGraph, error) {
	orch := agent.NewOrchestrator("orchestrator", routeRules())

	analyst := agent.NewSpecialist("data_analyst", llm, func(o *agent.SpecialistOptions) {
		o.Instruction = agent.NewInstructionFromText(
			"Você é um analista de dados. Use as ferramentas read_file e analyze_data " +
				"para ler os arquivos citados e produzir uma análise objetiva dos dados.")
		o.EnableStreaming = cfg.Stream
		o.OutputKey = "analysis_result"
	})
	analyst.RegisterTools(tool.NewReadFileTool(cfg.Workspace), tool.NewAnalyzeDataTool())

	researcher := agent.NewSpecialist("researcher", llm, func(o *agent.SpecialistOptions) {
		o.Instruction = agent.NewInstructionFromText(
			"Você é um pesquisador. Responda com um resumo claro e fundamentado sobre o " +
				"tema pedido; use write_file para salvar o resultado quando for solicitado.")
		o.EnableStreaming = cfg.Stream
		o.OutputKey = "research_result"
	})
	researcher.RegisterTools(tool.NewReadFileTool(cfg.Workspace), tool.NewWriteFileTool(cfg.Workspace))

	writer := agent.NewSpecialist("content_writer", llm, func(o *agent.SpecialistOptions) {
		o.Instruction = agent.NewInstructionFromText(
			"Você é um redator de conteúdo. Escreva o texto pedido e use write_file " +
				"para gravá-lo no arquivo indicado.")
		o.EnableStreaming = cfg.Stream
		o.OutputKey = "content_result"
	})
	writer.RegisterTools(tool.NewReadFileTool(cfg.Workspace), tool.NewWriteFileTool(cfg.Workspace))

	return graph.NewStateGraph().
		AddNode("orchestrator", orch).
		AddNode("data_analyst", analyst).
		AddNode("researcher", researcher).
		AddNode("content_writer", writer).
		SetEntryPoint("orchestrator").
		AddConditionalEdges("orchestrator", orch.Router(), map[string]string{
			"data_analyst":   "data_analyst",
			"researcher":     "researcher",
			"content_writer": "content_writer",
		}).
		AddEdge("data_analyst", "orchestrator").
		AddEdge("researcher", "orchestrator").
		AddEdge("content_writer", "orchestrator").
		Compile(graph.WithMaxSteps(cfg.MaxSteps))
}

func newRunner(cfg *config.Config) (*runner.Runner, func() error, error) {
	llm, err := buildModel(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	g, err := buildGraph(cfg, llm)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}

	r := runner.New(g, func(o *runner.Options) {
		o.SessionStore = store
		o.Logger = logger
	})

	return r, closeStore, nil
}

// executeRun feeds one user message through the graph and prints every
// intermediate event until the run finishes.
func executeRun(ctx context.Context, r *runner.Runner, sessionID, message string) error {
	fmt.Printf("\n[user]\n%s\n", message)

	_, eventsCh, errorsCh, err := r.Run(ctx, sessionID, core.NewUserContent(message))
	if err != nil {
		return err
	}

	var runErr error
	for eventsCh != nil || errorsCh != nil {
		select {
		case ev, ok := <-eventsCh:
			if !ok {
				eventsCh = nil
				continue
			}
			printEvent(ev)
		case err, ok := <-errorsCh:
			if !ok {
				errorsCh = nil
				continue
			}
			if err != nil && runErr == nil {
				runErr = err
			}
		}
	}

	return runErr
}

func printEvent(ev core.Event) {
	if ev.Content == nil {
		return
	}

	// Streamed partials are printed inline without a label.
	if ev.IsPartial() {
		fmt.Print(ev.Text())
		return
	}

	for _, part := range ev.Content.Parts {
		switch p := part.(type) {
		case core.TextPart:
			if p.Text != "" {
				fmt.Printf("\n[%s]\n%s\n", ev.Author, p.Text)
			}
		case core.FunctionCallPart:
			fmt.Printf("\n[%s] -> %s(%s)\n", ev.Author, p.FunctionCall.Name, p.FunctionCall.Arguments)
		case core.FunctionResponsePart:
			fmt.Printf("\n[%s] <- %s: %v\n", ev.Author, p.FunctionResponse.Name, p.FunctionResponse.Response)
		}
	}
}
