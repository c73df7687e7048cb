package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// IngestRequest represents the ingest API request.
type IngestRequest struct {
	FilePath string `json:"file_path"`
}

// IngestResponse represents the ingest API response.
type IngestResponse struct {
	DocumentID        string `json:"document_id"`
	SourcePath        string `json:"source_path"`
	Filename          string `json:"filename"`
	Status            string `json:"status"`
	Pages             int    `json:"pages"`
	ChunkCount        int    `json:"chunk_count"`
	PendingEmbeddings int    `json:"pending_embeddings,omitempty"`
	Reused            bool   `json:"reused,omitempty"`
}

// DirectoryIngestResponse represents the directory ingest API response.
type DirectoryIngestResponse struct {
	Ingested []IngestResponse  `json:"ingested"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var dir bool

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a PDF file or directory on the server",
		Long:  "Asks the server to ingest the given path. The path must be visible to the server process.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if dir {
				return runIngestDirectory(cmd, args[0], outputJSON)
			}
			return runIngestFile(cmd, args[0], outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&dir, "dir", "d", false, "Treat the path as a directory of PDFs")

	return cmd
}

func runIngestFile(cmd *cobra.Command, path string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/api/v1/ingest", IngestRequest{FilePath: path})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	var ingestResp IngestResponse
	if err := json.Unmarshal(resp.Data, &ingestResp); err != nil {
		return fmt.Errorf("failed to parse ingest response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(ingestResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printIngestResult(ingestResp)
	return nil
}

func runIngestDirectory(cmd *cobra.Command, path string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/api/v1/ingest/directory?directory_path="+url.QueryEscape(path), nil)
	if err != nil {
		return fmt.Errorf("directory ingest failed: %w", err)
	}

	var dirResp DirectoryIngestResponse
	if err := json.Unmarshal(resp.Data, &dirResp); err != nil {
		return fmt.Errorf("failed to parse ingest response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(dirResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	for _, r := range dirResp.Ingested {
		printIngestResult(r)
	}
	for file, msg := range dirResp.Failed {
		fmt.Printf("failed: %s: %s\n", file, msg)
	}
	fmt.Printf("\n%d ingested, %d failed\n", len(dirResp.Ingested), len(dirResp.Failed))
	return nil
}

func printIngestResult(r IngestResponse) {
	if r.Reused {
		fmt.Printf("%s already ingested (document %s)\n", r.Filename, r.DocumentID)
		return
	}
	fmt.Printf("%s: document %s, %d pages, %d chunks (status: %s)\n",
		r.Filename, r.DocumentID, r.Pages, r.ChunkCount, r.Status)
	if r.PendingEmbeddings > 0 {
		fmt.Printf("  %d chunks pending embedding, the index worker will retry them\n", r.PendingEmbeddings)
	}
}
