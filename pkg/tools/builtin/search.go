package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/inboxd/inboxd/pkg/mailstore"
	"github.com/inboxd/inboxd/pkg/tools"
)

const defaultSearchTopK = 5

// SearchTool exposes the mail archive's full-text search. It never needs
// approval; reading history has no side effects.
func SearchTool(index *mailstore.Index) tools.Tool {
	return tools.Tool{
		Name:        "search_email_history",
		Description: "Search past emails for context. Args: \"query\" (search terms), \"top_k\" (number of results, default 5)",
		Parameters: tools.Schema(map[string]any{
			"query": tools.StringParam("Search terms"),
			"top_k": tools.IntParam("Number of results to return"),
		}, "query"),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			topK := tools.IntArg(args, "top_k", defaultSearchTopK)

			hits, err := index.Search(tools.StringArg(args, "query"), topK)
			if err != nil {
				return "", err
			}
			if len(hits) == 0 {
				return "No emails found.", nil
			}

			var blocks []string
			for i, hit := range hits {
				blocks = append(blocks, fmt.Sprintf("%d. From: %s, Subject: %s\n%s", i+1, hit.Author, hit.Subject, hit.Snippet))
			}
			return strings.Join(blocks, "\n\n"), nil
		},
	}
}
