package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arek-soma/sfxvault/internal/meta"
	"github.com/arek-soma/sfxvault/internal/store"
	"github.com/arek-soma/sfxvault/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and registry",
	Long: `Checks the conditions spec §7 treats as "critical bootstrap" failures
— a missing runtime dependency or an unwritable data directory — plus the
registry's integrity, before any indexing or search command is run.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().String("root", "", "library root to check for read access (optional)")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== sfxvault doctor ===")
	util.InfoLog("")

	var results []checkResult
	results = append(results, checkFFprobe())
	results = append(results, checkFFmpeg())
	results = append(results, checkSQLite())
	results = append(results, checkDatabase(viper.GetString("db")))

	if root, _ := cmd.Flags().GetString("root"); root != "" {
		results = append(results, checkLibraryRoot(root))
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors, hasWarnings := false, false
	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol, hasErrors = "✗", true
		} else if r.warning {
			symbol, hasWarnings = "⚠", true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		switch {
		case r.error:
			util.ErrorLog("%s", line)
		case r.warning:
			util.WarnLog("%s", line)
		default:
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed; resolve them before running sfxvault.")
		return fmt.Errorf("system diagnostics failed")
	}
	if hasWarnings {
		util.WarnLog("Some checks produced warnings.")
	} else {
		util.SuccessLog("All checks passed.")
	}
	return nil
}

// checkFFprobe verifies ffprobe is reachable (the extraction path's
// primary technical-metadata source).
func checkFFprobe() checkResult {
	if meta.CheckFFprobeAvailable() {
		return checkResult{name: "ffprobe", message: "available"}
	}
	return checkResult{
		name:    "ffprobe",
		warning: true,
		message: "not found; extraction falls back to embedded-tag metadata only",
	}
}

// checkFFmpeg verifies ffmpeg is reachable — the preprocessor's decode
// path (spec §4.7 step 1) shells out to it to load PCM samples.
func checkFFmpeg() checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return checkResult{
			name:    "ffmpeg",
			error:   true,
			message: "not found in PATH (required for audio preprocessing / indexing)",
		}
	}

	out, err := exec.CommandContext(ctx, "ffmpeg", "-version").CombinedOutput()
	if err != nil {
		return checkResult{name: "ffmpeg", error: true, message: fmt.Sprintf("found but failed to run: %v", err)}
	}
	version := "unknown"
	if lines := strings.Split(string(out), "\n"); len(lines) > 0 {
		if parts := strings.Fields(lines[0]); len(parts) >= 3 {
			version = parts[2]
		}
	}
	return checkResult{name: "ffmpeg", message: fmt.Sprintf("version %s", version)}
}

func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{name: "SQLite", error: true, message: "unable to determine version"}
	}
	return checkResult{name: "SQLite", message: fmt.Sprintf("version %s (built-in)", version)}
}

func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{name: "Registry", warning: true, message: "no database path specified (use --db flag or config)"}
	}

	var sizeInfo string
	if info, err := os.Stat(dbPath); err == nil && !info.Mode().IsRegular() {
		return checkResult{name: "Registry", error: true, message: fmt.Sprintf("%s is not a regular file", dbPath)}
	} else if err != nil && !os.IsNotExist(err) {
		return checkResult{name: "Registry", error: true, message: fmt.Sprintf("cannot access %s: %v", dbPath, err)}
	} else if err == nil {
		sizeInfo = humanize.Bytes(uint64(info.Size()))
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{name: "Registry", error: true, message: fmt.Sprintf("cannot open %s: %v", dbPath, err)}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{name: "Registry", error: true, message: fmt.Sprintf("integrity check failed: %v", err)}
	}

	count, _ := db.CountRecords("")
	if sizeInfo == "" {
		return checkResult{name: "Registry", message: fmt.Sprintf("%s (%d records)", dbPath, count)}
	}
	return checkResult{name: "Registry", message: fmt.Sprintf("%s, %s (%d records)", dbPath, sizeInfo, count)}
}

func checkLibraryRoot(root string) checkResult {
	info, err := os.Stat(root)
	if err != nil {
		return checkResult{name: "Library root", error: true, message: fmt.Sprintf("cannot access %s: %v", root, err)}
	}
	if !info.IsDir() {
		return checkResult{name: "Library root", error: true, message: fmt.Sprintf("%s is not a directory", root)}
	}
	f, err := os.Open(root)
	if err != nil {
		return checkResult{name: "Library root", error: true, message: fmt.Sprintf("cannot read %s: %v", root, err)}
	}
	f.Close()
	return checkResult{name: "Library root", message: root}
}
