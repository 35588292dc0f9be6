package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flexvec/flexvec/pkg/core"
	"github.com/flexvec/flexvec/pkg/flexvec"
)

var (
	dsn              string
	table            string
	dimensions       int
	metric           string
	partitionColumn  string
	externalIDColumn string
	verbose          bool
)

var rootCmd = &cobra.Command{
	Use:   "flexvec",
	Short: "CLI tool for Postgres/pgvector storage",
	Long:  `A command-line interface for managing vector embeddings in a Postgres database with pgvector.`,
}

var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Ensure extensions, table and indexes exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Table %q ready with %d dimensions\n", table, dimensions)
		return nil
	},
}

var upsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Insert or update an embedding",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		externalID, _ := cmd.Flags().GetString("external-id")
		partition, _ := cmd.Flags().GetString("partition")
		content, _ := cmd.Flags().GetString("content")
		vectorStr, _ := cmd.Flags().GetString("vector")
		metadataStr, _ := cmd.Flags().GetString("metadata")

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		var metadata map[string]any
		if metadataStr != "" {
			if err := json.Unmarshal([]byte(metadataStr), &metadata); err != nil {
				return fmt.Errorf("invalid metadata JSON: %w", err)
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.Upsert(context.Background(), core.Record{
			ID:         id,
			ExternalID: externalID,
			Partition:  partition,
			Content:    content,
			Metadata:   metadata,
			Embedding:  vector,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert: %w", err)
		}

		action := "updated"
		if res.WasInsert {
			action = "inserted"
		}
		fmt.Printf("Record %s %s\n", res.ID, action)
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <json-file>",
	Short: "Upsert embeddings in batch from JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		var records []core.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		results, err := db.UpsertBatch(context.Background(), records)
		if err != nil {
			return fmt.Errorf("batch upsert failed: %w", err)
		}

		inserted := 0
		for _, r := range results {
			if r.WasInsert {
				inserted++
			}
		}
		fmt.Printf("Upserted %d records (%d inserted, %d updated)\n",
			len(results), inserted, len(results)-inserted)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search for similar vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStr, _ := cmd.Flags().GetString("vector")
		topK, _ := cmd.Flags().GetInt("top-k")
		offset, _ := cmd.Flags().GetInt("offset")
		partition, _ := cmd.Flags().GetString("partition")
		filterStr, _ := cmd.Flags().GetString("filter")

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		var filter map[string]any
		if filterStr != "" {
			if err := json.Unmarshal([]byte(filterStr), &filter); err != nil {
				return fmt.Errorf("invalid filter JSON: %w", err)
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		results, err := db.Query(context.Background(), core.QuerySpec{
			Embedding:      vector,
			TopK:           topK,
			Offset:         offset,
			Partition:      partition,
			MetadataFilter: filter,
		})
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		outputJSON, _ := cmd.Flags().GetBool("json")
		if outputJSON {
			data, _ := json.MarshalIndent(results, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Found %d results:\n", len(results))
		for i, r := range results {
			fmt.Printf("%d. %s (score: %.4f)\n", i+1, r.ID, r.Score)
			if verbose && r.Content != "" {
				fmt.Printf("   Content: %s\n", r.Content)
			}
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Get records by id or partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := selectorFromFlags(cmd)
		if err != nil {
			return err
		}
		withEmbedding, _ := cmd.Flags().GetBool("with-embedding")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.Get(context.Background(), core.GetSpec{
			Selector:         sel,
			IncludeEmbedding: withEmbedding,
		})
		if err != nil {
			return fmt.Errorf("get failed: %w", err)
		}

		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete records by id or partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := selectorFromFlags(cmd)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := db.Delete(context.Background(), sel)
		if err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}

		fmt.Printf("Deleted %d records\n", deleted)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count records, optionally scoped to a partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		partition, _ := cmd.Flags().GetString("partition")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		total, err := db.Count(context.Background(), partition)
		if err != nil {
			return fmt.Errorf("count failed: %w", err)
		}

		fmt.Println(total)
		return nil
	},
}

var dropCollectionCmd = &cobra.Command{
	Use:   "drop-collection <partition>",
	Short: "Delete every record in a partition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			fmt.Printf("Delete all records in partition '%s'? [y/N]: ", name)
			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := db.DropCollection(context.Background(), name)
		if err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}

		fmt.Printf("Partition '%s' dropped (%d records deleted)\n", name, deleted)
		return nil
	},
}

func selectorFromFlags(cmd *cobra.Command) (core.Selector, error) {
	ids, _ := cmd.Flags().GetStringSlice("id")
	externalIDs, _ := cmd.Flags().GetStringSlice("external-id")
	partition, _ := cmd.Flags().GetString("partition")
	filterStr, _ := cmd.Flags().GetString("filter")

	sel := core.Selector{
		IDs:         ids,
		ExternalIDs: externalIDs,
		Partition:   partition,
	}
	if filterStr != "" {
		if err := json.Unmarshal([]byte(filterStr), &sel.MetadataFilter); err != nil {
			return core.Selector{}, fmt.Errorf("invalid filter JSON: %w", err)
		}
	}
	return sel, nil
}

func parseVector(str string) ([]float32, error) {
	if str == "" {
		return nil, fmt.Errorf("vector is required")
	}
	var vector []float32
	for _, part := range strings.Split(str, ",") {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector format: %w", err)
		}
		vector = append(vector, float32(val))
	}
	return vector, nil
}

// cliConfig builds the store configuration from the global flags. Partition
// and external id columns default on so the partition-scoped commands work
// against the table this tool creates; pass an empty column name to disable
// either.
func cliConfig() flexvec.Config {
	config := flexvec.DefaultConfig(table)
	config.Schema.Dimensions = dimensions
	config.Schema.Columns.Partition = partitionColumn
	config.Schema.Columns.ExternalID = externalIDColumn
	config.Metric = core.Metric(metric)
	if verbose {
		config.Logger = core.NewStdLogger(core.LevelDebug)
	}
	return config
}

func openDB() (*flexvec.DB, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not specified (use --dsn or DATABASE_URL)")
	}

	db, err := flexvec.Open(context.Background(), dsn, cliConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres connection string (or DATABASE_URL)")
	rootCmd.PersistentFlags().StringVarP(&table, "table", "t", "embeddings", "Table name")
	rootCmd.PersistentFlags().IntVarP(&dimensions, "dimensions", "n", 1536, "Vector dimensions")
	rootCmd.PersistentFlags().StringVarP(&metric, "metric", "m", "cosine", "Distance metric (cosine/euclidean/dotproduct)")
	rootCmd.PersistentFlags().StringVar(&partitionColumn, "partition-column", "partition", "Partition column name (empty to disable)")
	rootCmd.PersistentFlags().StringVar(&externalIDColumn, "external-id-column", "external_id", "External id column name (empty to disable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	upsertCmd.Flags().String("id", "", "Record ID (generated when empty)")
	upsertCmd.Flags().String("external-id", "", "External ID")
	upsertCmd.Flags().String("partition", "", "Partition name")
	upsertCmd.Flags().String("content", "", "Record content")
	upsertCmd.Flags().String("vector", "", "Vector values (comma-separated)")
	upsertCmd.Flags().String("metadata", "", "Metadata as JSON")
	upsertCmd.MarkFlagRequired("vector")

	queryCmd.Flags().String("vector", "", "Query vector (comma-separated)")
	queryCmd.Flags().Int("top-k", 10, "Number of results")
	queryCmd.Flags().Int("offset", 0, "Result offset")
	queryCmd.Flags().String("partition", "", "Partition to search in")
	queryCmd.Flags().String("filter", "", "Metadata containment filter as JSON")
	queryCmd.Flags().Bool("json", false, "Output as JSON")
	queryCmd.MarkFlagRequired("vector")

	for _, cmd := range []*cobra.Command{getCmd, deleteCmd} {
		cmd.Flags().StringSlice("id", nil, "Record IDs")
		cmd.Flags().StringSlice("external-id", nil, "External IDs (requires --partition)")
		cmd.Flags().String("partition", "", "Partition name")
		cmd.Flags().String("filter", "", "Metadata containment filter as JSON")
	}
	getCmd.Flags().Bool("with-embedding", false, "Include embeddings in output")

	countCmd.Flags().String("partition", "", "Partition name")
	dropCollectionCmd.Flags().Bool("force", false, "Skip confirmation prompt")

	rootCmd.AddCommand(
		ensureCmd,
		upsertCmd,
		batchCmd,
		queryCmd,
		getCmd,
		deleteCmd,
		countCmd,
		dropCollectionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
