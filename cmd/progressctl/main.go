package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"smartkids/internal/config"
	"smartkids/internal/logging"
	"smartkids/internal/service"
	"smartkids/internal/store"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	legacyCmd := flag.NewFlagSet("import-legacy", flag.ExitOnError)
	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: progress_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importOverwrite := importCmd.Bool("overwrite", false, "Replace players that already exist")

	legacyInput := legacyCmd.String("input", "", "Legacy progress.json path (required)")
	legacyOverwrite := legacyCmd.Bool("overwrite", false, "Replace the player if it already exists")

	reportPlayer := reportCmd.String("player", "", "Player name (required)")
	reportTo := reportCmd.String("to", "", "Parent email address (required)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Debug)

	ctx := context.Background()
	progress, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open progress store")
	}
	defer closeStore()

	backupService := service.NewBackupService(progress, cfg.StoreType, cfg.HistoryRetention)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		requireFlag(importCmd, "input", *importInput)
		handleImport(ctx, backupService, *importInput, *importOverwrite)

	case "import-legacy":
		legacyCmd.Parse(os.Args[2:])
		requireFlag(legacyCmd, "input", *legacyInput)
		handleImportLegacy(ctx, backupService, *legacyInput, *legacyOverwrite)

	case "list":
		handleList(ctx, progress)

	case "report":
		reportCmd.Parse(os.Args[2:])
		requireFlag(reportCmd, "player", *reportPlayer)
		requireFlag(reportCmd, "to", *reportTo)
		handleReport(ctx, cfg, progress, *reportPlayer, *reportTo)

	default:
		printUsage()
		os.Exit(1)
	}
}

func requireFlag(fs *flag.FlagSet, name, value string) {
	if value == "" {
		fmt.Printf("Error: -%s flag is required\n", name)
		fs.PrintDefaults()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("progress_%s.json", time.Now().Format("20060102_150405"))
	}

	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create output directory")
		}
	}

	backup, err := backupService.Export(ctx, outputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	for _, name := range backup.Skipped {
		log.Warn().Str("player", name).Msg("Not exported: profile is corrupt")
	}
	fmt.Printf("Exported %d players to %s\n", len(backup.Players), outputPath)
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, overwrite bool) {
	if _, err := os.Stat(inputPath); errors.Is(err, os.ErrNotExist) {
		log.Fatal().Str("path", inputPath).Msg("Input file does not exist")
	}
	stats, err := backupService.Import(ctx, inputPath, overwrite)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}
	fmt.Printf("Imported %d players, skipped %d existing\n", stats.Imported, stats.Skipped)
}

func handleImportLegacy(ctx context.Context, backupService *service.BackupService, inputPath string, overwrite bool) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read legacy progress file")
	}
	p, err := backupService.ImportLegacy(ctx, data, overwrite)
	if err != nil {
		log.Fatal().Err(err).Msg("Legacy import failed")
	}
	fmt.Printf("Imported %s: %d coins, %d stars, %d games\n", p.Name, p.Coins, p.Stars, len(p.Games))
}

func handleList(ctx context.Context, progress store.ProgressStore) {
	names, err := progress.ListPlayers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list players")
	}
	for _, name := range names {
		p, err := progress.Load(ctx, name)
		if err != nil {
			fmt.Printf("%-20s (unreadable: %v)\n", name, err)
			continue
		}
		fmt.Printf("%-20s age %3d months  coins %5d  stars %4d\n", p.Name, p.AgeMonths, p.Coins, p.Stars)
	}
}

func handleReport(ctx context.Context, cfg *config.Config, progress store.ProgressStore, player, to string) {
	if !cfg.ReportsEnabled() {
		log.Fatal().Msg("Progress reports need SES_FROM_EMAIL")
	}
	reportService, err := service.NewReportService(ctx, cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create report service")
	}
	p, err := progress.Load(ctx, player)
	if err != nil {
		log.Fatal().Err(err).Str("player", player).Msg("Failed to load player")
	}
	if err := reportService.SendProgressReport(ctx, to, p); err != nil {
		log.Fatal().Err(err).Msg("Failed to send report")
	}
	fmt.Printf("Sent %s's progress report to %s\n", p.Name, to)
}

func printUsage() {
	fmt.Println("Smart Kids Progress Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  progressctl export [options]          Export all players to a JSON file")
	fmt.Println("  progressctl import [options]          Import players from a JSON file")
	fmt.Println("  progressctl import-legacy [options]   Import a progress.json from the first release")
	fmt.Println("  progressctl list                      List players")
	fmt.Println("  progressctl report [options]          Email a player's progress to a parent")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: progress_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -overwrite        Replace players that already exist")
	fmt.Println()
	fmt.Println("Report Options:")
	fmt.Println("  -player <name>    Player name (required)")
	fmt.Println("  -to <email>       Recipient (required)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  STORE_TYPE        file, sqlite, postgres or mysql (default: file)")
	fmt.Println("  DATA_DIR          Directory for player files (default: ./data)")
	fmt.Println("  DB_PATH           SQLite database path (default: ./data/smartkids.db)")
	fmt.Println("  DATABASE_URL      PostgreSQL or MySQL connection URL")
	fmt.Println("  SES_FROM_EMAIL    Sender address for progress reports")
}
