// Copyright 2025 Soporte AVI Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main builds the knowledge base indices: it renders client records
// and guides to text, chunks and embeds them, and writes one index per client
// plus the shared general index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/your-org/soporte-avi/internal/config"
	"github.com/your-org/soporte-avi/internal/kb"
	"github.com/your-org/soporte-avi/internal/openai"
	"github.com/your-org/soporte-avi/internal/vectorstore"
	"go.uber.org/zap"
)

var (
	configPath string
	clientsDir string
	guidesDir  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kbbuilder",
		Short: "Soporte-AVI knowledge base index builder",
		Long: `Builds the vector indices the assistant answers from.

Reads per-client kb_<cliente>.json records and general guide JSON files,
renders them to text, chunks and embeds the chunks, and saves one index per
client plus the shared "general" index. Every client index also contains all
general chunks, so client queries never lose access to general guidance.`,
		RunE: runBuild,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.Flags().StringVar(&clientsDir, "clients-dir", "", "Override the client records directory")
	rootCmd.Flags().StringVar(&guidesDir, "guides-dir", "", "Override the guides directory")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBuild(_ *cobra.Command, _ []string) error {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	// The builder only needs the OpenAI side of the configuration, so the
	// GLPI fields are not required here.
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: false,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required; set openai.apikey or OPENAI_API_KEY")
	}

	if clientsDir == "" {
		clientsDir = cfg.Knowledge.ClientsDir
	}
	if guidesDir == "" {
		guidesDir = cfg.Knowledge.GuidesDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Endpoint, cfg.OpenAI.ChatModel, logger)
	if err != nil {
		return fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	store, err := vectorstore.Open(cfg.Knowledge.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer func() { _ = store.Close() }()

	builder := kb.NewBuilder(clientsDir, guidesDir,
		cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap,
		client, store, logger)

	logger.Info("Building knowledge base",
		zap.String("clients_dir", clientsDir),
		zap.String("guides_dir", guidesDir),
		zap.String("db_path", cfg.Knowledge.DBPath))

	summary, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	logger.Info("Knowledge base built",
		zap.Int("guide_docs", summary.GuideDocs),
		zap.Int("client_docs", summary.ClientDocs),
		zap.Int("indices", summary.IndicesBuilt),
		zap.Int("total_chunks", summary.TotalChunks))

	fmt.Printf("Indices built: %d (%d guide docs, %d client docs, %d chunks)\n",
		summary.IndicesBuilt, summary.GuideDocs, summary.ClientDocs, summary.TotalChunks)
	for _, name := range summary.SkippedGuides {
		fmt.Printf("Skipped malformed guide: %s\n", name)
	}
	for _, name := range summary.SkippedClients {
		fmt.Printf("Skipped malformed client record: %s\n", name)
	}
	return nil
}
