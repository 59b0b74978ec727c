package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Avis-Rio/Chora/internal/cover"
	"github.com/Avis-Rio/Chora/internal/feishu"
	"github.com/Avis-Rio/Chora/internal/pipeline"
	"github.com/Avis-Rio/Chora/internal/rewrite"
	"github.com/Avis-Rio/Chora/internal/secrets"
	"github.com/Avis-Rio/Chora/internal/state"
	"github.com/Avis-Rio/Chora/internal/transcribe"
	"github.com/Avis-Rio/Chora/internal/ytdlp"
	"github.com/Avis-Rio/Chora/pkg/types"
)

const (
	defaultArchiveRoot = "content_archive"
	defaultStatePath   = "config/state.yaml"
	defaultPromptPath  = "config/rewrite-prompt.md"
	defaultExportPath  = "content_export.json"
	defaultPageTimeout = 60 * time.Second
)

// httpConfig materializes the shared HTTP settings from chora.yaml.
func httpConfig() types.HTTPConfig {
	cfg := types.HTTPConfig{
		Timeout:   viper.GetDuration("http.timeout"),
		UserAgent: viper.GetString("http.user_agent"),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPageTimeout
	}
	return cfg
}

// pageClient is for bounded page and media fetches. API clients get no
// global timeout; streaming calls are governed by their contexts.
func pageClient() *http.Client {
	return &http.Client{Timeout: httpConfig().Timeout}
}

func archiveRootFlag(cmd *cobra.Command) string {
	root, _ := cmd.Flags().GetString("archive-root")
	return root
}

func addArchiveRootFlag(cmd *cobra.Command) {
	cmd.Flags().String("archive-root", defaultArchiveRoot, "base directory of the content archive")
}

// geminiKey resolves the generative API credential, rejecting template
// placeholders.
func geminiKey() (string, error) {
	key := secretDefault("gemini-api-key", viper.GetString("rewrite.api_key"))
	if key == "" || secrets.IsPlaceholder(key) {
		return "", fmt.Errorf("gemini API key not configured (add .secrets/gemini-api-key)")
	}
	return key, nil
}

// geminiConfig materializes one generative endpoint section (rewrite or
// cover) from chora.yaml plus the shared credential.
func geminiConfig(section string) (types.GeminiConfig, error) {
	cfg := types.GeminiConfig{
		BaseURL: viper.GetString(section + ".base_url"),
	}
	if cfg.BaseURL == "" {
		return cfg, fmt.Errorf("%s.base_url not configured", section)
	}
	key, err := geminiKey()
	if err != nil {
		return cfg, err
	}
	cfg.APIKey = key
	return cfg, nil
}

func groqConfig() types.GroqConfig {
	return types.GroqConfig{
		APIKey: secretDefault("groq-api-key", viper.GetString("groq.api_key")),
		Model:  viper.GetString("groq.model"),
	}
}

func pipelineConfig(archiveRoot, promptPath string) (types.PipelineConfig, error) {
	rewriteCfg, err := geminiConfig("rewrite")
	if err != nil {
		return types.PipelineConfig{}, err
	}
	coverCfg, err := geminiConfig("cover")
	if err != nil {
		return types.PipelineConfig{}, err
	}
	return types.PipelineConfig{
		HTTPConfig:  httpConfig(),
		ArchiveRoot: archiveRoot,
		PromptPath:  promptPath,
		Rewrite:     rewriteCfg,
		Cover:       coverCfg,
		Groq:        groqConfig(),
	}, nil
}

func newRewriter(cfg types.GeminiConfig, promptPath string) *rewrite.Rewriter {
	gemini := rewrite.NewGeminiClient(&http.Client{}, cfg)
	return rewrite.New(gemini, promptPath, os.Stdout)
}

func newCoverGenerator(cfg types.GeminiConfig) *cover.Generator {
	return cover.New(cover.NewGeminiImageClient(&http.Client{}, cfg), os.Stdout)
}

func newTranscriber(cfg types.GroqConfig) *transcribe.Transcriber {
	return transcribe.New(transcribe.NewGroqClient(&http.Client{}, cfg), os.Stdout)
}

func newProcessor(archiveRoot, promptPath string, store *state.Store) (*pipeline.Processor, error) {
	cfg, err := pipelineConfig(archiveRoot, promptPath)
	if err != nil {
		return nil, err
	}
	return pipeline.NewProcessor(ytdlp.New(), newTranscriber(cfg.Groq),
		newRewriter(cfg.Rewrite, cfg.PromptPath), newCoverGenerator(cfg.Cover),
		pageClient(), cfg, store, os.Stdout), nil
}

func newFeishuClient() (*feishu.Client, error) {
	cfg := types.FeishuConfig{
		AppID:     secretDefault("feishu-app-id", viper.GetString("feishu.app_id")),
		AppSecret: secretDefault("feishu-app-secret", viper.GetString("feishu.app_secret")),
		BaseID:    viper.GetString("feishu.base_id"),
		TableID:   viper.GetString("feishu.table_id"),
	}
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("feishu credentials not configured (add .secrets/feishu-app-id and .secrets/feishu-app-secret)")
	}
	if cfg.BaseID == "" || cfg.TableID == "" {
		return nil, fmt.Errorf("feishu.base_id and feishu.table_id must be configured")
	}
	return feishu.NewClient(&http.Client{Timeout: defaultPageTimeout}, cfg), nil
}

func loadSources() ([]types.SourceConfig, error) {
	var sources []types.SourceConfig
	if err := viper.UnmarshalKey("sources", &sources); err != nil {
		return nil, fmt.Errorf("parsing sources config: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources configured (add a sources list to chora.yaml)")
	}
	return sources, nil
}
