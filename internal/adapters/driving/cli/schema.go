package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	openaiembed "github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/embedding/openai"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/vectorstore/postgres"
	"github.com/gitbook-qa/gitbook-qa/internal/app"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// applySchema prepares the configured vector store.
var applySchema = app.ApplySchema

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print or apply the vector store schema",
	Long: `Prints the SQL that creates the documents table and the
match_documents similarity function, sized for the configured embedding
model. Run it in your database console, or pass --apply to run it against
DATABASE_URL.

With VECTOR_STORE=qdrant, --apply creates the collection instead.

--drop removes the existing table and function (or collection) first,
deleting every stored document.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().Bool("apply", false, "Run the schema against the configured store")
	schemaCmd.Flags().Bool("drop", false, "Drop existing objects first (with --apply)")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dims := openaiembed.DimensionsFor(cfg.Embedding.Model)

	apply, _ := cmd.Flags().GetBool("apply")
	drop, _ := cmd.Flags().GetBool("drop")

	if !apply {
		if drop {
			cmd.Print(postgres.DropSQL())
			cmd.Println()
		}
		cmd.Print(postgres.Schema(dims))
		return nil
	}

	if err := applySchema(cmd.Context(), cfg, dims, drop); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	switch cfg.VectorStore {
	case domain.VectorStoreQdrant:
		cmd.Printf("Collection %s ready (%d dimensions)\n", cfg.QdrantCollection, dims)
	case domain.VectorStoreMemory:
		cmd.Println("The in-memory store needs no schema.")
	default:
		cmd.Printf("Schema applied (%d dimensions)\n", dims)
	}
	return nil
}
