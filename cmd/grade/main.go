package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"coursegrader"
)

func main() {
	var (
		answer    = flag.String("answer", "", "Student answer to grade")
		terms     = flag.String("terms", "", "Comma-separated expected terms")
		threshold = flag.Float64("threshold", coursegrader.DefaultPassThreshold, "Pass threshold in [0, 1]")
		rubricID  = flag.String("rubric", "", "Grade against a course rubric instead of -terms/-threshold")
		stdin     = flag.Bool("stdin", false, "Read a JSON grading request from stdin")
		missing   = flag.Bool("missing", false, "Print the missing terms to stderr")
		verbose   = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	coursegrader.SetVerbose(*verbose)

	req, err := buildRequest(*stdin, *rubricID, *answer, *terms, *threshold, configuredCourse)
	if err != nil {
		log.Fatalf("Invalid request: %v", err)
	}

	result, err := req.Grade()
	if errors.Is(err, coursegrader.ErrInvalidThreshold) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Failed to grade answer: %v", err)
	}
	coursegrader.VerboseLog("Graded answer (%d chars): %d/%d terms, passed=%t",
		len(req.Answer), result.MatchedCount, result.TotalCount, result.Passed)

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal result: %v", err)
	}
	fmt.Println(string(output))

	if *missing {
		for _, term := range req.Missing(result) {
			fmt.Fprintf(os.Stderr, "missing: %s\n", term)
		}
	}
}

// configuredCourse loads COURSE_FILE when set, otherwise the embedded course.
func configuredCourse() (*coursegrader.Course, error) {
	return coursegrader.LoadConfig().Course()
}

func buildRequest(fromStdin bool, rubricID, answer, terms string, threshold float64, loadCourse func() (*coursegrader.Course, error)) (coursegrader.GradingRequest, error) {
	if fromStdin {
		return decodeRequest(os.Stdin)
	}

	if rubricID != "" {
		course, err := loadCourse()
		if err != nil {
			return coursegrader.GradingRequest{}, err
		}
		rubric, err := course.Rubric(rubricID)
		if err != nil {
			return coursegrader.GradingRequest{}, err
		}
		return rubric.Request(answer), nil
	}

	if terms == "" {
		return coursegrader.GradingRequest{}, errors.New("-terms, -rubric or -stdin is required")
	}
	return coursegrader.GradingRequest{
		Answer:    answer,
		Terms:     strings.Split(terms, ","),
		Threshold: &threshold,
	}, nil
}

func decodeRequest(r io.Reader) (coursegrader.GradingRequest, error) {
	var req coursegrader.GradingRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}
