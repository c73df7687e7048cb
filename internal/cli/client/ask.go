package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// QueryRequest represents the query API request.
type QueryRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"top_k,omitempty"`
	IncludeSources bool   `json:"include_sources,omitempty"`
}

// QuerySource represents a retrieved chunk backing an answer.
type QuerySource struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	SourcePath string  `json:"source_path"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// QueryResponse represents the query API response.
type QueryResponse struct {
	Answer  string        `json:"answer"`
	Sources []QuerySource `json:"sources,omitempty"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		topK        int
		withSources bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the ingested documents",
		Long:  "Sends a question to the query endpoint and prints the retrieval-augmented answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, args[0], topK, withSources, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (server default when 0)")
	cmd.Flags().BoolVarP(&withSources, "sources", "s", false, "Include source chunks in the output")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, topK int, withSources, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/api/v1/query", QueryRequest{
		Query:          question,
		TopK:           topK,
		IncludeSources: withSources,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(resp.Data, &queryResp); err != nil {
		return fmt.Errorf("failed to parse query response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(queryResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(queryResp.Answer)

	if len(queryResp.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range queryResp.Sources {
			content := src.Content
			if len(content) > 100 {
				content = content[:97] + "..."
			}
			fmt.Printf("%d. %s (page %d, score %.2f)\n   %s\n", i+1, src.SourcePath, src.Page, src.Score, content)
		}
	}

	return nil
}
