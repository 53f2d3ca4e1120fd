package main

import (
	"bufio"
	"encoding/csv"
	"os"
	"strings"
	"time"
)

// ReadURLList loads the input file: one site per line, the way the upload
// format has always worked. CSV input is tolerated by taking the first
// column.
func ReadURLList(filepath string) ([]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		if i := strings.IndexByte(line, ','); i != -1 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls, scanner.Err()
}

// WriteResultsCSV writes the report, one row per email; sites without any
// still get a row so their status is visible. Rows follow the input order.
func WriteResultsCSV(outputFile string, order []string, results map[string]CrawlResult) error {
	file, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	now := time.Now().Format("2006-01-02 15:04:05")
	writer.Write([]string{"URL", "Email", "Status", "Contact page", "Scanned at"})
	for _, input := range order {
		res, ok := results[input]
		if !ok {
			continue
		}
		if len(res.Emails) == 0 {
			writer.Write([]string{input, "", res.StatusLine(), res.ContactPage, now})
			continue
		}
		for _, email := range res.Emails {
			writer.Write([]string{input, email, res.StatusLine(), res.ContactPage, now})
		}
	}
	return writer.Error()
}
