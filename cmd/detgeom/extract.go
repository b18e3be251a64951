package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"detgeom/internal/blob"
	"detgeom/internal/config"
	"detgeom/internal/extract"
	"detgeom/internal/infra/persistence/postgres"
	"detgeom/internal/infra/persistence/sqlite"
	"detgeom/internal/persistence"
	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the extraction passes over a tracker model",
	Long: `Reads the tracker model from a JSON file, runs the analysis
passes and writes the resulting geometry bundle. The run can optionally
be recorded in a store and the bundle published as an artifact,
depending on the configuration file.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("model", "", "tracker model file (JSON, required)")
	extractCmd.Flags().String("out", "", "write the bundle JSON to this file (default stdout)")
	extractCmd.Flags().String("run", "", "run name for the store and artifact key (default model name + timestamp)")
	_ = extractCmd.MarkFlagRequired("model")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	modelPath, _ := cmd.Flags().GetString("model")
	model, err := loadModel(modelPath)
	if err != nil {
		return err
	}

	engine := extract.New(cfg.Engine,
		extract.WithLogger(newZapLogger(logger)),
		extract.WithMetricsRecorder(extract.NewExpvarMetricsRecorder("detgeom_extract")),
	)
	started := time.Now().UTC()
	bundle, err := engine.Analyse(ctx, model)
	if err != nil {
		return fmt.Errorf("analyse %s: %w", model.Name, err)
	}

	encoded, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := os.WriteFile(out, encoded, 0o644); err != nil {
			return fmt.Errorf("write bundle: %w", err)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	}

	runName, _ := cmd.Flags().GetString("run")
	if runName == "" {
		runName = fmt.Sprintf("%s-%s", model.Name, started.Format("20060102T150405Z"))
	}
	if err := recordRun(ctx, cfg, runName, model.Name, started, bundle); err != nil {
		return err
	}
	return publishBundle(ctx, cfg, runName, encoded)
}

func loadModel(path string) (*tracker.Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var model tracker.Model
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if model.Name == "" {
		return nil, fmt.Errorf("model %s has no name", path)
	}
	return &model, nil
}

func recordRun(ctx context.Context, cfg config.Config, name, model string, at time.Time, bundle *geometry.Bundle) error {
	store, err := openRunStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	defer func() { _ = store.Close() }()
	run := persistence.Run{
		Name:      name,
		Model:     model,
		CreatedAt: at,
		Counts:    persistence.CountsOf(bundle),
		Bundle:    bundle,
	}
	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	logger.Info("run recorded", zap.String("run", name))
	return nil
}

func publishBundle(ctx context.Context, cfg config.Config, name string, encoded []byte) error {
	store, err := openBlobStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	key := fmt.Sprintf("runs/%s/bundle.json", name)
	info, err := store.Put(ctx, key, bytes.NewReader(encoded), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"run": name},
	})
	if err != nil {
		return fmt.Errorf("publish bundle: %w", err)
	}
	logger.Info("bundle published", zap.String("key", info.Key), zap.Int64("bytes", info.Size))
	return nil
}

func openRunStore(ctx context.Context, cfg config.StoreConfig) (persistence.RunStore, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.NewStore(cfg.Path)
	case "postgres":
		return postgres.NewStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "fs":
		return blob.NewFilesystem(cfg.Root)
	case "memory":
		return blob.NewMemory(), nil
	case "s3":
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
