// cmd/tools/model-info/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"sales-predictor/internal/common/config"
	"sales-predictor/internal/common/logger"
	"sales-predictor/internal/models"
	"sales-predictor/internal/predictor"
	"sales-predictor/internal/services/prediction"
	"sales-predictor/pkg/registry"
)

func main() {
	infoCmd := flag.NewFlagSet("info", flag.ExitOnError)
	infoPath := infoCmd.String("path", "", "Artifact path (defaults to model.path from config)")
	infoFetch := infoCmd.Bool("fetch", false, "Download the artifact if it is missing")

	predictCmd := flag.NewFlagSet("predict", flag.ExitOnError)
	predictPath := predictCmd.String("path", "", "Artifact path (defaults to model.path from config)")
	predictInput := predictCmd.String("input", "", "Request JSON; empty scores the form's initial values")

	registryCmd := flag.NewFlagSet("registry", flag.ExitOnError)
	registryPath := registryCmd.String("path", "", "Registry file to validate (defaults to the embedded registry)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "info":
		infoCmd.Parse(os.Args[2:])
		err = runInfo(*infoPath, *infoFetch)
	case "predict":
		predictCmd.Parse(os.Args[2:])
		err = runPredict(*predictPath, *predictInput)
	case "registry":
		registryCmd.Parse(os.Args[2:])
		err = runRegistry(*registryPath)
	case "help":
		help()
		return
	default:
		help()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadModel(path string, fetch bool) (*predictor.Model, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.Model.Path
	}

	var fetcher predictor.Fetcher
	if fetch {
		if fetcher, err = predictor.NewFetcher(cfg.Model); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	return predictor.NewLoader(path, fetcher, logger.NewStructured("warn", "console")).Load(ctx)
}

func runInfo(path string, fetch bool) error {
	model, err := loadModel(path, fetch)
	if err != nil {
		return err
	}
	return printJSON(model.Info())
}

func runPredict(path, input string) error {
	model, err := loadModel(path, false)
	if err != nil {
		return err
	}

	svc, err := prediction.NewService(model, prediction.Options{}, prediction.Dependencies{})
	if err != nil {
		return err
	}

	req := models.NewPredictionRequest()
	if input != "" {
		if req, err = svc.ParseRequest([]byte(input)); err != nil {
			return err
		}
	}

	res, err := svc.Predict(context.Background(), req, prediction.RequestMeta{Source: "cli"})
	if err != nil {
		fmt.Println(prediction.FormatError(err))
		return err
	}
	fmt.Println(res.Display)
	return nil
}

func runRegistry(path string) error {
	var (
		reg *registry.ActivityRegistry
		err error
	)
	if path == "" {
		reg, err = registry.Default()
	} else {
		reg, err = registry.LoadRegistry(path)
	}
	if err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}

	for _, a := range reg.Activities {
		if _, err := a.InputValidator(); err != nil {
			return fmt.Errorf("activity %s: input schema: %w", a.ID, err)
		}
		if _, err := a.OutputValidator(); err != nil {
			return fmt.Errorf("activity %s: output schema: %w", a.ID, err)
		}
	}
	fmt.Printf("Registry validation passed (%d activities).\n", len(reg.Activities))
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func help() {
	fmt.Println("Usage: model-info <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  info      Print the artifact's name, version and columns")
	fmt.Println("  predict   Score one request with the artifact")
	fmt.Println("  registry  Validate the activity registry")
	fmt.Println("  help      Show this help")
}
