package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

// DocumentResponse represents a document returned by the API.
type DocumentResponse struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
	Filename   string `json:"filename"`
	SHA256     string `json:"sha256"`
	Pages      int    `json:"pages"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
	Archived   bool   `json:"archived"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// DocumentListResponse represents the document list API response.
type DocumentListResponse struct {
	Items   []DocumentResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

// DownloadResponse represents the download URL API response.
type DownloadResponse struct {
	URL string `json:"url"`
}

// DocsCmd creates the docs command with list, get and download subcommands.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Inspect ingested documents",
	}

	cmd.AddCommand(docsListCmd())
	cmd.AddCommand(docsGetCmd())
	cmd.AddCommand(docsDownloadCmd())

	return cmd
}

func docsListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of documents")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runDocsList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/api/v1/documents"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var listResp DocumentListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse document list: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	for _, doc := range listResp.Items {
		fmt.Printf("%s  %-30s  %3d pages  %4d chunks  %s\n",
			doc.ID, doc.Filename, doc.Pages, doc.ChunkCount, doc.Status)
	}
	if listResp.HasMore {
		fmt.Printf("\nMore results available. Next cursor:\n  %s\n", listResp.Cursor)
	}

	return nil
}

func docsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show a single document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsGet(cmd, args[0], outputJSON)
		},
	}
}

func runDocsGet(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/api/v1/documents/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc DocumentResponse
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("ID:          %s\n", doc.ID)
	fmt.Printf("Filename:    %s\n", doc.Filename)
	fmt.Printf("Source path: %s\n", doc.SourcePath)
	fmt.Printf("SHA256:      %s\n", doc.SHA256)
	fmt.Printf("Pages:       %d\n", doc.Pages)
	fmt.Printf("Chunks:      %d\n", doc.ChunkCount)
	fmt.Printf("Status:      %s\n", doc.Status)
	fmt.Printf("Archived:    %v\n", doc.Archived)
	fmt.Printf("Created:     %s\n", doc.CreatedAt)

	return nil
}

func docsDownloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <document-id>",
		Short: "Download the archived source PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocsDownload(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output-file", "o", "", "Output path (defaults to the document filename)")

	return cmd
}

func runDocsDownload(cmd *cobra.Command, id, outputPath string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if outputPath == "" {
		resp, err := api.Get("/api/v1/documents/" + url.PathEscape(id))
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}
		var doc DocumentResponse
		if err := json.Unmarshal(resp.Data, &doc); err != nil {
			return fmt.Errorf("failed to parse document: %w", err)
		}
		outputPath = filepath.Base(doc.Filename)
	}

	resp, err := api.Get("/api/v1/documents/" + url.PathEscape(id) + "/download")
	if err != nil {
		return fmt.Errorf("failed to get download URL: %w", err)
	}

	var download DownloadResponse
	if err := json.Unmarshal(resp.Data, &download); err != nil {
		return fmt.Errorf("failed to parse download response: %w", err)
	}

	if err := api.DownloadFile(download.URL, outputPath); err != nil {
		return err
	}

	fmt.Printf("Downloaded to %s\n", outputPath)
	return nil
}
