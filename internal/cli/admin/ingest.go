package admin

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pagemill/pagemill/internal/config"
	"github.com/pagemill/pagemill/internal/pdf"
	"github.com/pagemill/pagemill/internal/repository"
	"github.com/pagemill/pagemill/internal/service"
	"github.com/pagemill/pagemill/internal/storage"
)

// IngestCmd returns the ingest command, which loads PDFs straight into the
// database without going through the HTTP API.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Ingest PDFs from the local filesystem",
		Long:  "Extract, chunk and embed a PDF file or every PDF in a directory. Defaults to the configured PDF directory when no path is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runIngest,
	}

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path := cfg.PDFDirectory
	if len(args) == 1 {
		path = args[0]
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	llmClient, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	ingestOpts := []service.IngestOption{
		service.WithChunkConfig(service.ChunkConfig{
			Size:     cfg.ChunkSize,
			MinChars: service.DefaultChunkConfig().MinChars,
			Overlap:  cfg.ChunkOverlap,
		}),
		service.WithEmbedWorkers(cfg.IngestWorkers),
	}
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		ingestOpts = append(ingestOpts, service.WithArchiveStore(s3Client))
	}

	docRepo := repository.NewDocumentRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	ingestSvc := service.NewIngestService(docRepo, txRunner, pdf.NewExtractor(), llmClient, ingestOpts...)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		result, err := ingestSvc.IngestDirectory(ctx, path)
		if err != nil {
			return err
		}
		for _, r := range result.Ingested {
			logIngestResult(r)
		}
		for file, msg := range result.Failed {
			log.Printf("ingest failed for %s: %s", file, msg)
		}
		fmt.Printf("ingested %d documents, %d failures\n", len(result.Ingested), len(result.Failed))
		return nil
	}

	result, err := ingestSvc.IngestFile(ctx, path)
	if err != nil {
		return err
	}
	logIngestResult(result)
	return nil
}

func logIngestResult(r *service.IngestResult) {
	if r.Reused {
		log.Printf("%s already ingested as document %s", r.Document.Filename, r.Document.ID)
		return
	}
	log.Printf("ingested %s: document %s, %d pages, %d chunks, %d pending embeddings",
		r.Document.Filename, r.Document.ID, r.Pages, r.ChunkCount, r.PendingEmbeddings)
}
