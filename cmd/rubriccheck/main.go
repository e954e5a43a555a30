package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"coursegrader"
)

func main() {
	var (
		dbPath       = flag.String("db", "", "Rubric database (default: RUBRIC_DB or ./rubrics.db)")
		importCourse = flag.Bool("import-course", false, "Import the course rubrics before checking")
		samplesFile  = flag.String("samples", "", "JSON file of samples to add before checking")
		report       = flag.String("report", "", "Write the full JSON report to this file")
		verbose      = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	coursegrader.SetVerbose(*verbose)
	cfg := coursegrader.LoadConfig()
	if *dbPath == "" {
		*dbPath = cfg.RubricDB
	}

	rdb, err := coursegrader.OpenRubricDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer rdb.Close()

	if err := rdb.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	if *importCourse {
		course, err := cfg.Course()
		if err != nil {
			log.Fatalf("Failed to load course: %v", err)
		}
		for _, r := range course.Rubrics {
			if err := rdb.SaveRubric(r); err != nil {
				log.Fatalf("Failed to import rubric %s: %v", r.ID, err)
			}
		}
		log.Printf("Imported %d rubrics from %s", len(course.Rubrics), course.ID)
	}

	if *samplesFile != "" {
		n, err := importSamples(rdb, *samplesFile)
		if err != nil {
			log.Fatalf("Failed to import samples: %v", err)
		}
		log.Printf("Added %d samples from %s", n, *samplesFile)
	}

	result, err := coursegrader.CheckRubricDB(rdb, time.Now())
	if err != nil {
		log.Fatalf("Rubric check failed: %v", err)
	}

	for id, problem := range result.Invalid {
		fmt.Printf("INVALID  %s: %s\n", id, problem)
	}
	for _, s := range result.Orphans {
		fmt.Printf("ORPHAN   sample %d references unknown rubric %s\n", s.ID, s.RubricID)
	}
	for _, o := range result.Regressions() {
		fmt.Printf("REGRESS  %s sample %d: expected passed=%t, got %d/%d, missing %v\n",
			o.Sample.RubricID, o.Sample.ID, o.Sample.ExpectPass,
			o.Result.MatchedCount, o.Result.TotalCount, o.Missing)
	}
	fmt.Printf("Run %s: %d checked, %d regressions, %d invalid rubrics\n",
		result.Run.ID, result.Run.Checked, result.Run.Regressions, result.Run.Invalid)

	if *report != "" {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal report: %v", err)
		}
		if err := os.WriteFile(*report, output, 0644); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		log.Printf("Report saved to: %s", *report)
	}

	if !result.OK() {
		os.Exit(1)
	}
}

func importSamples(rdb *coursegrader.RubricDB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read samples: %w", err)
	}
	var samples []coursegrader.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return 0, fmt.Errorf("failed to parse samples: %w", err)
	}
	for i := range samples {
		if err := rdb.AddSample(&samples[i]); err != nil {
			return i, fmt.Errorf("sample %d: %w", i+1, err)
		}
	}
	return len(samples), nil
}
