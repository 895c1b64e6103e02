package main

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/catalogo"
	"github.com/hupe1980/catalogo/query"
	"github.com/spf13/cobra"
)

// hit is the JSON form of a search result.
type hit struct {
	UID             string         `json:"uid"`
	RID             uint32         `json:"rid"`
	Score           int            `json:"score"`
	NormalizedScore int            `json:"normalized_score"`
	Data            map[string]any `json:"data,omitempty"`
}

func newHit(b catalogo.Brain) hit {
	return hit{UID: b.UID, RID: b.RID, Score: b.Score, NormalizedScore: b.NormalizedScore, Data: b.Data}
}

func newSearchCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog with a JSON query",
		Long: `Runs a catalog query and prints one JSON line per hit. The query is
a JSON object mapping index names to query values, plus the control keys
sort_on, sort_order, sort_limit, b_start and b_size.`,
		Example: `  catalogo search '{"portal_type": "Document"}'
  catalogo search '{"subject": {"query": ["go", "search"], "operator": "and"}, "sort_on": "created", "sort_order": "reverse"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var req query.Request
			if err := gojson.Unmarshal([]byte(args[0]), &req); err != nil {
				return fmt.Errorf("query: %w", err)
			}

			s, err := o.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.catalog.Search(ctx, req)
			if err != nil {
				return err
			}
			enc := gojson.NewEncoder(cmd.OutOrStdout())
			for _, b := range res.All() {
				if err := enc.Encode(newHit(b)); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d results\n", res.Len(), res.ActualResultCount())

			// Searches teach the plan store, keep what they learned.
			return s.savePlans(ctx)
		},
	}
	return cmd
}
