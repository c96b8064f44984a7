package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"health-risk/internal/assess"
	"health-risk/internal/client"
	"health-risk/internal/common"
	"health-risk/internal/features"
	"health-risk/internal/ml"
	"health-risk/internal/schema"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Parse command line arguments
	var (
		inputPath = flag.String("input", "", "Answers file (.json, .yaml or .yml)")
		serverURL = flag.String("server", "", "Risk API base URL; scores locally when empty")
		modelsDir = flag.String("models", common.DefaultModelsDir, "Model artifact directory for local scoring")
		onnxLib   = flag.String("onnx-lib", "", "ONNX Runtime shared library (default <models>/libonnxruntime.so)")
		userID    = flag.String("user", "", "User id to store the assessment under (server mode only)")
		timeout   = flag.Duration("timeout", 10*time.Second, "Request or model load timeout")
		logLevel  = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	// Setup logging
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: assess -input answers.json [-server URL | -models DIR]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	input, err := readInput(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("input", *inputPath).Msg("Failed to read answers")
	}

	var results assess.Results
	if *serverURL != "" {
		var recordID string
		results, recordID, err = client.New(*serverURL, *timeout).Assess(input, *userID)
		if err != nil {
			log.Fatal().Err(err).Str("server", *serverURL).Msg("Remote assessment failed")
		}
		if recordID != "" {
			log.Info().Str("record_id", recordID).Msg("Assessment stored")
		}
	} else {
		results = assessLocally(input, *modelsDir, *onnxLib, *timeout)
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode results")
	}
	fmt.Println(string(out))
}

func readInput(path string) (features.RawInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return assess.ParseYAMLInput(data)
	default:
		return assess.ParseInput(data)
	}
}

func assessLocally(input features.RawInput, modelsDir, onnxLib string, timeout time.Duration) assess.Results {
	schemas := schema.Default()
	registry := ml.NewRegistry(schemas, ml.NewFileLoader(modelsDir, onnxLib), timeout, nil)
	defer registry.Close()

	svc := assess.NewService(features.NewBuilder(schemas), registry, nil)
	return svc.Assess(context.Background(), input)
}
