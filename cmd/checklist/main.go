// Command checklist evaluates a checklist submission from a JSON or YAML file
// and prints the score and report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/zatekoja/sisma-inspection/internal/application/services"
	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/clients/openai"
	"github.com/zatekoja/sisma-inspection/pkg/config"
)

func main() {
	file := flag.String("file", "-", "checklist file (.json, .yaml or .yml); - reads JSON from stdin")
	offline := flag.Bool("offline", false, "skip the generative model and always build the fallback report")
	pretty := flag.Bool("pretty", true, "indent the JSON output")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	raw, err := loadSubmission(*file, os.Stdin)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read checklist")
	}

	var generator providers.ReportGenerator
	if !*offline {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		if cfg.OpenAI.APIKey == "" {
			log.Warn().Msg("OPENAI_API_KEY not set, using the fallback report")
		} else {
			client, err := openai.NewClient(&cfg.OpenAI)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize OpenAI client")
			}
			defer client.Close()
			generator = client
		}
	}

	evaluation, err := services.NewChecklistService(generator, nil).Evaluate(ctx, raw)
	if err != nil {
		log.Fatal().Err(err).Msg("Checklist rejected")
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(evaluation); err != nil {
		log.Fatal().Err(err).Msg("Failed to write evaluation")
	}
}

// loadSubmission returns the submission as JSON. YAML files are converted so
// the same parser validates both formats.
func loadSubmission(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	default:
		return data, nil
	}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("yaml is not representable as json: %w", err)
	}
	return out, nil
}
