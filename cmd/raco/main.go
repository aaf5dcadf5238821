package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ominux/raco/dataflow/catalog"
	"github.com/ominux/raco/dataflow/engine"
	"github.com/ominux/raco/dataflow/programs"
)

var (
	catalogDir    string
	inputs        []string
	storeAs       string
	maxIterations int
	workers       int
	debug         bool
)

var rootCmd = &cobra.Command{
	Use:   "raco",
	Short: "Dataflow execution engine for declarative relational programs",
}

var runCmd = &cobra.Command{
	Use:   "run <program>",
	Short: "Run a built-in program (kmeans, spatial, sigmaclip, classify)",
	Long: `Run one of the built-in programs over CSV inputs.

Each --input binds a scan source to a headerless CSV file whose columns
follow the program's declared schema, for example:

  raco run kmeans --input points=points.csv --input centroids=centers.csv
  raco run classify --input scores=scores.csv --store predictions --catalog ./db`,
	Args: cobra.ExactArgs(1),
	RunE: runProgram,
}

var showCmd = &cobra.Command{
	Use:   "show <relation>",
	Short: "Print a relation stored in the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openBadger()
		if err != nil {
			return err
		}
		defer cat.Close()

		rel, err := cat.Scan(args[0])
		if err != nil {
			return err
		}
		fmt.Println(rel.Table())
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List relations stored in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openBadger()
		if err != nil {
			return err
		}
		defer cat.Close()

		names, err := cat.Names()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func openBadger() (*catalog.BadgerCatalog, error) {
	if catalogDir == "" {
		return nil, fmt.Errorf("--catalog is required")
	}
	return catalog.OpenBadgerCatalog(catalogDir)
}

func runProgram(cmd *cobra.Command, args []string) error {
	name := args[0]

	builder, err := programs.ByName(name)
	if err != nil {
		return err
	}
	schemas, err := programs.Schemas(name)
	if err != nil {
		return err
	}

	var cat engine.Catalog
	var badgerCat *catalog.BadgerCatalog
	if catalogDir != "" {
		badgerCat, err = catalog.OpenBadgerCatalog(catalogDir)
		if err != nil {
			return err
		}
		defer badgerCat.Close()
		cat = badgerCat
	} else {
		cat = catalog.NewMemoryCatalog()
	}

	for _, input := range inputs {
		source, path, ok := strings.Cut(input, "=")
		if !ok {
			return fmt.Errorf("--input %q is not source=file.csv", input)
		}
		schema, ok := schemas[source]
		if !ok {
			return fmt.Errorf("program %s has no scan source %q", name, source)
		}
		rel, err := catalog.LoadCSV(source, path, schema)
		if err != nil {
			return err
		}
		if err := cat.Store(source, rel); err != nil {
			return err
		}
	}

	opts := engine.DefaultOptions()
	if maxIterations > 0 {
		opts.MaxIterations = maxIterations
	}
	opts.Workers = workers
	opts.EnableDebugLogging = debug

	interp := engine.New(cat, opts)
	result, err := interp.Run(builder(programs.DefaultSource(name)))
	if err != nil {
		return err
	}

	rel, err := result.Env.MustLookup(programs.ResultName)
	if err != nil {
		return err
	}

	fmt.Println(rel.Table())
	for _, loop := range result.Loops {
		fmt.Printf("%s in %d iterations\n", color.GreenString(loop.State.String()), loop.Iterations)
	}

	if storeAs != "" {
		if err := cat.Store(storeAs, rel); err != nil {
			return err
		}
		fmt.Printf("stored as %s\n", color.CyanString(storeAs))
	}
	return nil
}

func main() {
	runCmd.Flags().StringArrayVar(&inputs, "input", nil, "bind a scan source to a CSV file (source=file.csv)")
	runCmd.Flags().StringVar(&storeAs, "store", "", "persist the result relation under this name")
	runCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "fixpoint iteration cap (default 1000)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers for operator evaluation (0 = sequential)")
	runCmd.Flags().BoolVar(&debug, "debug", false, "trace operator evaluation and loop iterations")

	rootCmd.PersistentFlags().StringVar(&catalogDir, "catalog", "", "BadgerDB catalog directory")
	rootCmd.AddCommand(runCmd, showCmd, lsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
