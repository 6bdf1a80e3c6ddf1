// Seeds the location and school directory tables from CSV files.
//
// Expected formats:
//
//	counties.csv:   id,name
//	localities.csv: id,county_id,name
//	schools.csv:    id,name,address,county_id,locality_id,level
//
// Rows whose id already exists are skipped.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kitcycle/kitcycle-api/internal/models"
	"github.com/kitcycle/kitcycle-api/pkg/config"
	"github.com/kitcycle/kitcycle-api/pkg/database"
)

func main() {
	var (
		countiesPath   string
		localitiesPath string
		schoolsPath    string
		timeout        time.Duration
	)

	flag.StringVar(&countiesPath, "counties", filepath.Join("data", "counties.csv"), "Path to counties CSV")
	flag.StringVar(&localitiesPath, "localities", filepath.Join("data", "localities.csv"), "Path to localities CSV")
	flag.StringVar(&schoolsPath, "schools", filepath.Join("data", "schools.csv"), "Path to schools CSV")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	counties, err := seedCounties(ctx, db, countiesPath)
	if err != nil {
		log.Fatalf("failed to seed counties: %v", err)
	}
	localities, err := seedLocalities(ctx, db, localitiesPath)
	if err != nil {
		log.Fatalf("failed to seed localities: %v", err)
	}
	schools, err := seedSchools(ctx, db, schoolsPath)
	if err != nil {
		log.Fatalf("failed to seed schools: %v", err)
	}

	fmt.Printf("seeded %d counties, %d localities, %d schools\n", counties, localities, schools)
}

func seedCounties(ctx context.Context, db *sqlx.DB, path string) (int, error) {
	rows, err := readCSV(path, 2)
	if err != nil {
		return 0, err
	}
	const query = `INSERT INTO counties (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	count := 0
	for _, row := range rows {
		result, err := db.ExecContext(ctx, query, row[0], row[1])
		if err != nil {
			return count, fmt.Errorf("county %s: %w", row[0], err)
		}
		count += int(rowsAffected(result))
	}
	return count, nil
}

func seedLocalities(ctx context.Context, db *sqlx.DB, path string) (int, error) {
	rows, err := readCSV(path, 3)
	if err != nil {
		return 0, err
	}
	const query = `INSERT INTO localities (id, county_id, name) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`
	count := 0
	for _, row := range rows {
		result, err := db.ExecContext(ctx, query, row[0], row[1], row[2])
		if err != nil {
			return count, fmt.Errorf("locality %s: %w", row[0], err)
		}
		count += int(rowsAffected(result))
	}
	return count, nil
}

func seedSchools(ctx context.Context, db *sqlx.DB, path string) (int, error) {
	rows, err := readCSV(path, 6)
	if err != nil {
		return 0, err
	}
	const query = `INSERT INTO schools
	(id, name, normalized_name, address, county_id, locality_id, level, active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, true, NOW(), NOW())
	ON CONFLICT (id) DO NOTHING`
	count := 0
	for _, row := range rows {
		id := strings.TrimSpace(row[0])
		if id == "" {
			id = uuid.NewString()
		}
		level := models.SchoolLevel(strings.ToLower(strings.TrimSpace(row[5])))
		if !level.Valid() {
			return count, fmt.Errorf("school %s: invalid level %q", id, row[5])
		}
		normalized := models.NormalizeSchoolName(row[1])
		if normalized == "" {
			return count, fmt.Errorf("school %s: name %q normalizes to nothing", id, row[1])
		}
		var localityID *string
		if locality := strings.TrimSpace(row[4]); locality != "" {
			localityID = &locality
		}
		result, err := db.ExecContext(ctx, query, id, strings.TrimSpace(row[1]), normalized,
			strings.TrimSpace(row[2]), strings.TrimSpace(row[3]), localityID, level)
		if err != nil {
			return count, fmt.Errorf("school %s: %w", id, err)
		}
		count += int(rowsAffected(result))
	}
	return count, nil
}

func readCSV(path string, columns int) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = columns

	var rows [][]string
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		// first row is a header
		if header {
			header = false
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowsAffected(result interface{ RowsAffected() (int64, error) }) int64 {
	n, err := result.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
