// Command dart-corpus builds the company database the portal searches.
// It downloads OpenDART's corpCode.xml archive (or reads a CSV written by a
// previous run) and imports every company into SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/config"
	"github.com/bobmcallan/dart-portal/internal/corpus"
	"github.com/bobmcallan/dart-portal/internal/dart"
)

var (
	configFile = flag.String("config", "", "Configuration file path")
	dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
	csvOut     = flag.String("csv", "", "Also write the company list to this CSV file")
	csvIn      = flag.String("from-csv", "", "Import from a CSV file instead of downloading")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.LoadFromFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Corpus.DBPath = *dbPath
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("corpus build failed")
		fmt.Fprintf(os.Stderr, "\n오류: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *common.Logger) error {
	start := time.Now()

	var (
		records []corpus.Record
		err     error
	)
	if *csvIn != "" {
		records, err = readCSV(*csvIn)
	} else {
		records, err = download(ctx, cfg, logger)
	}
	if err != nil {
		return err
	}
	logger.Info().Int("records", len(records)).Msg("company list parsed")

	if *csvOut != "" {
		if err := writeCSV(*csvOut, records); err != nil {
			return err
		}
		logger.Info().Str("path", *csvOut).Msg("company list written to CSV")
	}

	db, err := corpus.OpenDB(cfg.Corpus.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := corpus.Import(ctx, db, records)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("데이터베이스 생성 완료")
	fmt.Printf("  경로:       %s\n", cfg.Corpus.DBPath)
	fmt.Printf("  전체 회사:  %s\n", common.FormatCount(stats.Total))
	fmt.Printf("  상장 회사:  %s\n", common.FormatCount(stats.Listed))
	fmt.Printf("  비상장 회사: %s\n", common.FormatCount(stats.Unlisted()))
	if stats.Skipped > 0 {
		fmt.Printf("  건너뜀:     %s\n", common.FormatCount(stats.Skipped))
	}
	fmt.Printf("  소요 시간:  %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// download fetches and parses corpCode.xml.
func download(ctx context.Context, cfg *config.Config, logger *common.Logger) ([]corpus.Record, error) {
	if cfg.OpenDART.APIKey == "" {
		return nil, fmt.Errorf("OPENDART_API_KEY가 설정되지 않았습니다")
	}

	client := dart.NewClient(cfg.OpenDART.BaseURL, cfg.OpenDART.APIKey, 5*time.Minute)
	logger.Info().Str("base_url", cfg.OpenDART.BaseURL).Msg("downloading corpCode.xml")

	archive, err := client.DownloadCorpCodes(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("size", common.FormatBytes(len(archive))).Msg("archive downloaded")

	codes, err := dart.ParseCorpCodeZip(archive)
	if err != nil {
		return nil, err
	}
	return toRecords(codes), nil
}

func toRecords(codes []dart.CorpCode) []corpus.Record {
	records := make([]corpus.Record, 0, len(codes))
	for _, c := range codes {
		records = append(records, corpus.Record{
			CorpCode:    c.CorpCode,
			CorpName:    c.CorpName,
			CorpEngName: c.CorpEngName,
			StockCode:   c.StockCode,
			ModifyDate:  c.ModifyDate,
		})
	}
	return records
}

func readCSV(path string) ([]corpus.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return corpus.ReadCSV(f)
}

func writeCSV(path string, records []corpus.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := corpus.WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
