// Command multisum counts and enumerates the multisets of a positive input
// set summing to one or more query targets.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/multisum"
	"github.com/hupe1980/multisum/zeroboard"
)

var (
	cfgFile   string
	atomsFlag []float64
	inputFile string
	queries   []float64

	precision  int
	epsilon    float64
	kMin       int
	kMax       int
	kFixed     int
	boardK     int
	maxEntries uint64
	workers    int

	printComb      bool
	printDetails   bool
	printTimes     bool
	printTestTimes bool

	saveBoardPath string
	loadBoardPath string
	compression   string

	verbose  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "multisum",
	Short: "Unbounded subset-sum enumeration over a positive input set",
	Long: `multisum counts all multisets (combinations with repetition) drawn from a
finite set of positive reals whose sum equals each query target, broken down
by multiset cardinality.

The engine indexes every cardinality-k multiset in a zeroboard keyed by its
quantized shortfall, then resolves larger cardinalities by a bounded
branch-and-bound search with one zeroboard lookup per surviving prefix.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.RunE = run

	flags := rootCmd.Flags()

	flags.StringVarP(&cfgFile, "config", "c", "", "yaml config file")
	flags.Float64SliceVarP(&atomsFlag, "atoms", "a", nil, "input set values (repeatable or comma separated)")
	flags.StringVarP(&inputFile, "input", "i", "", "file of whitespace/comma separated input values")
	flags.Float64SliceVarP(&queries, "query", "q", nil, "query target (repeatable)")

	flags.IntVar(&precision, "precision", 5, "decimal places for all sum comparisons")
	flags.Float64Var(&epsilon, "epsilon", 0, "query tolerance (only 0 is supported; nonzero values are warned and ignored)")
	flags.IntVar(&kMin, "k-min", 2, "minimum reported cardinality")
	flags.IntVar(&kMax, "k-max", 0, "maximum reported cardinality (0 = unbounded)")
	flags.IntVar(&kFixed, "k-fixed", 0, "search exactly this cardinality (0 = all)")
	flags.IntVar(&boardK, "board-k", 0, "zeroboard cardinality (0 = automatic)")
	flags.Uint64Var(&maxEntries, "max-board-entries", 0, "zeroboard memory guard (0 = unlimited)")
	flags.IntVar(&workers, "workers", 0, "concurrent queries (0 = GOMAXPROCS)")

	flags.BoolVar(&printComb, "print-comb", false, "print every multiset summing to each query")
	flags.BoolVar(&printDetails, "details", true, "print the per-cardinality breakdown")
	flags.BoolVar(&printTimes, "times", false, "print build and query times per query")
	flags.BoolVar(&printTestTimes, "test-times", false, "print only the total time per query")

	flags.StringVar(&saveBoardPath, "save-board", "", "write the zeroboard snapshot to this file (requires --board-k)")
	flags.StringVar(&loadBoardPath, "load-board", "", "load a zeroboard snapshot before querying")
	flags.StringVar(&compression, "compression", "zstd", "snapshot compression: none, lz4, zstd")

	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&jsonLogs, "json-logs", false, "JSON log output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	var cfg fileConfig
	if cfgFile != "" {
		loaded, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	applyConfig(cmd, &cfg)

	atoms := atomsFlag
	if len(atoms) == 0 && inputFile != "" {
		parsed, err := parseAtomsFile(inputFile)
		if err != nil {
			return err
		}
		atoms = parsed
	}
	if len(atoms) == 0 {
		atoms = cfg.Atoms
	}
	if len(atoms) == 0 {
		return fmt.Errorf("no input set: use --atoms, --input, or a config file")
	}

	if len(queries) == 0 {
		queries = cfg.Queries
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries: use --query or a config file")
	}

	eng, err := multisum.Atoms(atoms...).
		Precision(precision).
		Epsilon(epsilon).
		KMin(kMin).
		KMax(kMax).
		KFixed(kFixed).
		BoardK(boardK).
		MaxBoardEntries(maxEntries).
		Logger(newLogger()).
		Build()
	if err != nil {
		return err
	}
	defer eng.Close()

	if loadBoardPath != "" {
		if err := loadBoard(eng); err != nil {
			return err
		}
	}

	if err := runQueries(eng); err != nil {
		return err
	}

	if saveBoardPath != "" {
		if err := saveBoard(eng); err != nil {
			return err
		}
	}

	return nil
}

// applyConfig fills unset flags from the config file. Flags the user set
// explicitly win.
func applyConfig(cmd *cobra.Command, cfg *fileConfig) {
	flags := cmd.Flags()

	if cfg.Precision != nil && !flags.Changed("precision") {
		precision = *cfg.Precision
	}
	if cfg.Epsilon != nil && !flags.Changed("epsilon") {
		epsilon = *cfg.Epsilon
	}
	if cfg.KMin != nil && !flags.Changed("k-min") {
		kMin = *cfg.KMin
	}
	if cfg.KMax != nil && !flags.Changed("k-max") {
		kMax = *cfg.KMax
	}
	if cfg.KFixed != nil && !flags.Changed("k-fixed") {
		kFixed = *cfg.KFixed
	}
	if cfg.BoardK != nil && !flags.Changed("board-k") {
		boardK = *cfg.BoardK
	}
	if cfg.MaxBoardEntries != nil && !flags.Changed("max-board-entries") {
		maxEntries = *cfg.MaxBoardEntries
	}
	if cfg.Workers != nil && !flags.Changed("workers") {
		workers = *cfg.Workers
	}
}

func newLogger() *multisum.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if jsonLogs {
		return multisum.NewJSONLogger(level)
	}
	return multisum.NewTextLogger(level)
}

func runQueries(eng *multisum.Engine) error {
	ctx := rootCmd.Context()

	// Combination printing interleaves with per-query output, so it runs
	// sequentially; counting-only batches run concurrently.
	if printComb {
		for _, q := range queries {
			res, err := eng.Query(q).Combinations(os.Stdout).Execute(ctx)
			if err != nil {
				return err
			}
			printResult(res)
		}
		return nil
	}

	results, err := eng.RunBatch(ctx, queries, func(o *multisum.BatchOptions) {
		if workers > 0 {
			o.Workers = workers
		}
	})
	if err != nil {
		return err
	}
	for _, res := range results {
		printResult(res)
	}
	return nil
}

func printResult(res *multisum.Result) {
	if printDetails {
		fmt.Printf("Query Value: %.5f\n", res.Query)
		fmt.Println("Combination length : Num Results")
		for _, cc := range res.Cardinalities {
			fmt.Printf("\t%d\t\t%d\n", cc.Cardinality, cc.Count)
		}
		fmt.Printf("\nTotal results: %d\n\n", res.Total)
	}
	if printTimes {
		fmt.Printf("%f seconds to create zeroboard\n", res.BuildTime.Seconds())
		fmt.Printf("%f seconds to query zeroboard\n", res.QueryTime.Seconds())
		fmt.Printf("%f seconds total\n\n", (res.BuildTime + res.QueryTime).Seconds())
	}
	if printTestTimes {
		fmt.Printf("%f\n", (res.BuildTime + res.QueryTime).Seconds())
	}
}

func parseCompression() (zeroboard.Compression, error) {
	switch compression {
	case "none":
		return zeroboard.CompressionNone, nil
	case "lz4":
		return zeroboard.CompressionLZ4, nil
	case "zstd":
		return zeroboard.CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (use none, lz4, or zstd)", compression)
	}
}

func saveBoard(eng *multisum.Engine) error {
	if boardK == 0 {
		return fmt.Errorf("--save-board requires --board-k")
	}
	comp, err := parseCompression()
	if err != nil {
		return err
	}

	f, err := os.Create(saveBoardPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := eng.SaveBoard(rootCmd.Context(), f, boardK, func(o *zeroboard.SaveOptions) {
		o.Compression = comp
	}); err != nil {
		return err
	}
	return f.Sync()
}

func loadBoard(eng *multisum.Engine) error {
	f, err := os.Open(loadBoardPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = eng.LoadBoard(rootCmd.Context(), f)
	return err
}
