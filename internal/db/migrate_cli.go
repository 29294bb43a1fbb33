package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand against the catalog
// at dbPath. Output for the operator goes to w.
func RunMigrateCommand(w io.Writer, args []string, dbPath string) error {
	if len(args) < 1 {
		PrintMigrateHelp(w)
		return fmt.Errorf("missing migrate action")
	}
	action := args[0]
	if action == "help" {
		PrintMigrateHelp(w)
		return nil
	}

	migrations, err := MigrationsFS()
	if err != nil {
		return err
	}

	// Open without running migrations; the action decides what to apply.
	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch action {
	case "up":
		log.Printf("running migrations...")
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		return printMigrateStatus(w, database)

	case "down":
		log.Printf("rolling back one migration...")
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		return printMigrateStatus(w, database)

	case "status":
		return printMigrateStatus(w, database)

	case "version", "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: tracksim migrate %s <version_number>", action)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if action == "version" {
			err = database.MigrateTo(migrations, uint(n))
		} else {
			err = database.MigrateForce(migrations, n)
		}
		if err != nil {
			return err
		}
		return printMigrateStatus(w, database)

	case "import":
		if len(args) < 2 {
			return fmt.Errorf("usage: tracksim migrate import <platforms.json>")
		}
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		n, err := database.importPlatforms(context.Background(), args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Imported %d platform(s) from %s\n", n, args[1])
		return nil

	default:
		fmt.Fprintf(w, "Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp(w)
		return fmt.Errorf("unknown migrate action %q", action)
	}
}

// importPlatforms inserts every platform in a JSON array file, in order.
// Each platform goes in with its own transaction; the first failure stops
// the import.
func (db *DB) importPlatforms(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var platforms []Platform
	if err := json.Unmarshal(data, &platforms); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i := range platforms {
		if err := db.InsertPlatform(ctx, &platforms[i]); err != nil {
			return i, err
		}
	}
	return len(platforms), nil
}

func printMigrateStatus(w io.Writer, database *DB) error {
	migrations, err := MigrationsFS()
	if err != nil {
		return err
	}
	status, err := database.GetMigrationStatus(migrations)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== Migration Status ===")
	fmt.Fprintf(w, "Current version: %d\n", status.CurrentVersion)
	fmt.Fprintf(w, "Latest available: %d\n", status.LatestVersion)
	fmt.Fprintf(w, "Dirty: %v\n", status.Dirty)

	switch {
	case status.Dirty:
		fmt.Fprintln(w, "Database is in a dirty state. Inspect it, then run: tracksim migrate force <version>")
	case status.Pending():
		fmt.Fprintf(w, "Database is %d version(s) behind. Run 'tracksim migrate up' to update.\n",
			status.LatestVersion-status.CurrentVersion)
	default:
		fmt.Fprintln(w, "Database is up to date.")
	}
	return nil
}

// PrintMigrateHelp displays the help message for the migrate command
func PrintMigrateHelp(w io.Writer) {
	fmt.Fprintln(w, "Catalog Migration Commands")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: tracksim migrate <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  up              Apply all pending migrations")
	fmt.Fprintln(w, "  down            Rollback one migration")
	fmt.Fprintln(w, "  status          Show current migration status and version")
	fmt.Fprintln(w, "  version <N>     Migrate to specific version N")
	fmt.Fprintln(w, "  force <N>       Force migration version to N (recovery only)")
	fmt.Fprintln(w, "  import <file>   Migrate up, then add the platforms in a JSON array file")
	fmt.Fprintln(w, "  help            Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The database path comes from DATABASE_PATH or -db-path.")
}
